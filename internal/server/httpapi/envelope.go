package httpapi

import (
	"encoding/json"
	"net/http"
)

// Every endpoint answers with one of two envelopes:
//
//	{"status": "success", "data": {...}, "meta": {...}}
//	{"status": "error", "error": {"code": "...", "message": "...", "details": {...}}}
//
// Error codes are stable protocol identifiers; messages are for humans.

type successEnvelope struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	Meta   map[string]any `json:"meta"`
}

type errorEnvelope struct {
	Status string    `json:"status"`
	Error  errorBody `json:"error"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data, meta map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Status: "success", Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Status: "error", Error: errorBody{Code: code, Message: message}})
}
