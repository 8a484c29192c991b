package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 20

// requireJSON ensures the request has Content-Type application/json (optionally with params).
// Writes 415 if not JSON and returns false; otherwise returns true.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	mime := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0]))
	if mime != "application/json" {
		writeErr(w, http.StatusUnsupportedMediaType, "content type must be application/json", "unsupported_media_type")
		return false
	}
	return true
}

// decodeJSON reads one JSON object into v, rejecting unknown fields and
// trailing data. It writes the 400/415 itself and reports whether to go on.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !requireJSON(w, r) {
		return false
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON: "+err.Error(), "invalid_json")
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "invalid JSON: trailing data after object", "invalid_json")
		return false
	}
	return true
}
