package network

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
)

var (
	ErrUnresolvedEndpoint  = errors.New("unresolved line endpoint")
	ErrOutlineMismatch     = errors.New("outline mismatch")
	ErrTessellationFailure = errors.New("tessellation failure")
)

type Kind string

const (
	KindInvalidGeometry     Kind = "InvalidGeometry"
	KindUnresolvedEndpoint  Kind = "UnresolvedEndpoint"
	KindSelfLoop            Kind = "SelfLoop"
	KindOutlineMismatch     Kind = "OutlineMismatch"
	KindTessellationFailure Kind = "TessellationFailure"
	KindEmptyRegion         Kind = "EmptyRegion"
	KindCountryMismatch     Kind = "CountryMismatch"
	KindDuplicateSeed       Kind = "DuplicateSeed"
	KindRebaseCollision     Kind = "RebaseCollision"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic records a feature or outline that was excluded, altered or
// left unresolved.
type Diagnostic struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Feature  string   `json:"feature,omitempty"`
	Outline  string   `json:"outline,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	subject := d.Feature
	if d.Outline != "" {
		if subject != "" {
			subject = d.Outline + "/" + subject
		} else {
			subject = d.Outline
		}
	}
	return fmt.Sprintf("%s %s: %s", d.Kind, subject, d.Message)
}

// Diagnostics is an append-only report shared by all pipeline stages.
type Diagnostics []Diagnostic

func (d *Diagnostics) Add(kind Kind, severity Severity, feature, format string, args ...any) {
	*d = append(*d, Diagnostic{
		Kind:     kind,
		Severity: severity,
		Feature:  feature,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (d *Diagnostics) AddOutline(kind Kind, severity Severity, outline, format string, args ...any) {
	*d = append(*d, Diagnostic{
		Kind:     kind,
		Severity: severity,
		Outline:  outline,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (d *Diagnostics) Merge(other Diagnostics) {
	*d = append(*d, other...)
}

func (d Diagnostics) Count(kind Kind) int {
	n := 0
	for _, entry := range d {
		if entry.Kind == kind {
			n++
		}
	}
	return n
}

func (d Diagnostics) Filter(kind Kind) Diagnostics {
	var out Diagnostics
	for _, entry := range d {
		if entry.Kind == kind {
			out = append(out, entry)
		}
	}
	return out
}

// Err joins the error-level entries, each wrapping its kind's sentinel.
func (d Diagnostics) Err() error {
	var errs []error
	for _, entry := range d {
		if entry.Severity != SeverityError {
			continue
		}
		if sentinel := entry.Kind.sentinel(); sentinel != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry, sentinel))
		} else {
			errs = append(errs, errors.New(entry.String()))
		}
	}
	return errors.Join(errs...)
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidGeometry:
		return geometry.ErrInvalidGeometry
	case KindUnresolvedEndpoint:
		return ErrUnresolvedEndpoint
	case KindOutlineMismatch:
		return ErrOutlineMismatch
	case KindTessellationFailure:
		return ErrTessellationFailure
	}
	return nil
}

// Log writes a per-kind summary at info level and every warning or error
// entry individually. Info entries are only logged at debug level.
func (d Diagnostics) Log() {
	seen := make(map[Kind]bool)
	for _, entry := range d {
		seen[entry.Kind] = true
		switch entry.Severity {
		case SeverityError:
			logger.Error(entry.Message, "kind", entry.Kind, "feature", entry.Feature, "outline", entry.Outline)
		case SeverityWarning:
			logger.Warn(entry.Message, "kind", entry.Kind, "feature", entry.Feature, "outline", entry.Outline)
		default:
			logger.Debug(entry.Message, "kind", entry.Kind, "feature", entry.Feature, "outline", entry.Outline)
		}
	}

	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		entries := d.Filter(Kind(k))
		logger.Info("Diagnostics", "kind", k, "count", len(entries), "first", entries[0].Feature)
	}
}
