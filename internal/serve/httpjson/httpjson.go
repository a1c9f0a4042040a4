// Package httpjson renders JSON responses with a consistent content type.
package httpjson

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const contentType = "application/json; charset=utf-8"

func Render(w http.ResponseWriter, v any) {
	RenderStatus(w, http.StatusOK, v)
}

func RenderStatus(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("rendering JSON response: %v", err)
	}
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(dst)
}
