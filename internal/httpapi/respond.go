package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"auditgraph/internal/review"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeReviewError maps review failures to 400 for caller mistakes and 500
// for everything downstream.
func (s *Server) writeReviewError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if review.IsClientError(err) {
		status = http.StatusBadRequest
	}
	s.logger.Warn("http: review failed",
		"path", r.URL.Path,
		"status", status,
		"kind", review.KindOf(err),
		"error", err,
	)
	writeError(w, status, review.UserMessage(err))
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is empty")
		default:
			return fmt.Errorf("invalid request body: %w", err)
		}
	}
	return nil
}
