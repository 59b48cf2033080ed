package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"zestsync/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps the error marker to an HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrMalformedInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyInProgress):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNetworkUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  services.Kind(err),
	})
}

func accepted(w http.ResponseWriter, action string) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "action": action})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return services.Wrap(services.ErrValidation, "server", "decode", "invalid request body", err)
	}
	return nil
}
