package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"librarysvc/internal/auth"
	"librarysvc/internal/library"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to status codes. Anything unrecognized
// is logged and surfaced as a generic 500, never dropped and never leaked.
func writeError(w http.ResponseWriter, err error) {
	var ve *library.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Msg})
	case errors.Is(err, library.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, library.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "permission denied"})
	case errors.Is(err, library.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// caller returns the authenticated user; the auth middleware guarantees it is
// present on every protected route.
func caller(r *http.Request) (*library.User, bool) {
	return auth.FromContext(r.Context())
}
