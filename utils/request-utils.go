package utils

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxUploadMemory is how much of a multipart upload is held in memory
// before spilling to temporary files.
const maxUploadMemory = 64 << 20

type MultipartResult struct {
	// Files maps a form field name to the content of its first file.
	Files      map[string][]byte
	Properties Properties
}

type Properties struct {
	Countries []string
	Debug     bool
}

func ReadMultiPartForm(r *http.Request, fileKeys ...string) (MultipartResult, error) {
	result := MultipartResult{Files: make(map[string][]byte)}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return result, fmt.Errorf("failed to parse multipart form: %v", err)
	}

	for _, key := range fileKeys {
		headers, ok := r.MultipartForm.File[key]
		if !ok || len(headers) == 0 {
			continue
		}

		file, err := headers[0].Open()
		if err != nil {
			return result, fmt.Errorf("failed to open %s: %v", key, err)
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return result, fmt.Errorf("failed to read %s: %v", key, err)
		}
		result.Files[key] = content
	}

	for key, value := range r.MultipartForm.Value {
		if len(value) == 0 {
			continue
		}
		switch key {
		case "countries":
			for _, country := range strings.Split(value[0], ",") {
				if country = strings.TrimSpace(country); country != "" {
					result.Properties.Countries = append(result.Properties.Countries, country)
				}
			}
		case "debug":
			result.Properties.Debug = value[0] == "true"
		}
	}

	return result, nil
}
