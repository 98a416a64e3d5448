package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opencliniq/frontdesk/internal/crm"
)

// WriteData writes the standard success envelope {success: true, data: ...}.
func WriteData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

// WriteError writes the standard failure envelope {success: false, message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}

// writeUpstreamError maps a gateway error onto the envelope taxonomy:
// 404 for a missing entity, 500 with the upstream message when the gateway
// supplied one, 500 generic otherwise.
func writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, crm.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}
	var ue *crm.UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		WriteError(w, http.StatusInternalServerError, ue.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "upstream request failed")
}
