package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bsaid97/go-grid-topology/config"
	"github.com/bsaid97/go-grid-topology/dataset"
	"github.com/bsaid97/go-grid-topology/geometry"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/network"
	"github.com/bsaid97/go-grid-topology/utils"
)

// Multipart file fields accepted by /build-network.
const (
	FieldSubstations    = "substations"
	FieldLines          = "lines"
	FieldCountryShapes  = "country_shapes"
	FieldOffshoreShapes = "offshore_shapes"
	FieldScenario       = "scenario"
)

// NewServeMux registers the HTTP endpoints. base is the scenario used for
// requests that do not upload their own.
func NewServeMux(base config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/build-network", buildNetworkHandler(base))
	mux.HandleFunc("/check-geometry", checkGeometryHandler(base))
	logger.Info("Registered all HTTP handlers")
	return mux
}

func buildNetworkHandler(base config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("PANIC recovered in buildNetworkHandler", "panic", rec)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method, only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		logger.Info("Build network request received", "content_type", r.Header.Get("Content-Type"))

		form, err := utils.ReadMultiPartForm(r, FieldSubstations, FieldLines, FieldCountryShapes, FieldOffshoreShapes, FieldScenario)
		if err != nil {
			http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
			return
		}

		cfg := base
		if scenario, ok := form.Files[FieldScenario]; ok {
			if cfg, err = config.Parse(scenario); err != nil {
				http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
				return
			}
		}
		if len(form.Properties.Countries) > 0 {
			cfg.Countries = form.Properties.Countries
		}
		cfg.Debug = cfg.Debug || form.Properties.Debug

		substations, ok := form.Files[FieldSubstations]
		if !ok {
			http.Error(w, "ERROR: No substations file found", http.StatusBadRequest)
			return
		}
		src := Sources{Substations: bytes.NewReader(substations)}
		if lines, ok := form.Files[FieldLines]; ok {
			src.Lines = bytes.NewReader(lines)
		}
		if src.Onshore, err = outlinesFromForm(form, FieldCountryShapes, cfg.Inputs.NameProperty); err != nil {
			http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
			return
		}
		if src.Offshore, err = outlinesFromForm(form, FieldOffshoreShapes, cfg.Inputs.NameProperty); err != nil {
			http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
			return
		}

		zipData, err := BuildNetworkZip(r.Context(), cfg, src)
		if err != nil {
			http.Error(w, fmt.Sprintf("ERROR: Network build failed: %v", err), http.StatusInternalServerError)
			return
		}

		logger.Info("Network build complete. Sending zip response", "bytes", len(zipData))
		sendZipResponse(w, zipData)
	}
}

func outlinesFromForm(form utils.MultipartResult, field, nameProperty string) (network.Outlines, error) {
	data, ok := form.Files[field]
	if !ok {
		return nil, nil
	}
	outlines, err := dataset.ReadOutlines(bytes.NewReader(data), nameProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", field, err)
	}
	return outlines, nil
}

func checkGeometryHandler(base config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method, only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Error reading request body", http.StatusInternalServerError)
			return
		}
		defer r.Body.Close()

		nameProperty := base.Inputs.NameProperty
		if q := r.URL.Query().Get("name"); q != "" {
			nameProperty = q
		}
		outlines, err := dataset.ReadOutlines(bytes.NewReader(body), nameProperty)
		if err != nil {
			http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
			return
		}

		errors := CheckGeometry(geometry.NewGEOS(), outlines)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(errors)
	}
}

func sendZipResponse(w http.ResponseWriter, zipData []byte) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=\"grid_topology.zip\"")
	w.WriteHeader(http.StatusOK)
	w.Write(zipData)
}
