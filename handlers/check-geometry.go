package handlers

import (
	"sort"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/network"
)

type Error struct {
	Ref          string `json:"ref"`
	ErrorMessage string `json:"errorMessage"`
}

// CheckGeometry lists every outline that is not a valid polygon, sorted by
// key.
func CheckGeometry(ops geometry.Ops, outlines network.Outlines) []Error {
	errors := []Error{}

	keys := make([]string, 0, len(outlines))
	for key := range outlines {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	logger.Debug("Found outlines", "count", len(keys))
	for _, key := range keys {
		shape := outlines[key]
		if !ops.IsValid(shape) {
			errors = append(errors, Error{Ref: key, ErrorMessage: ops.ValidReason(shape)})
		}
	}
	return errors
}
