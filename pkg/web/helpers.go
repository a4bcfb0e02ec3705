package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RespondJSON writes payload as JSON. Storefront responses describe per-user state and are never cached.
func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Cache-Control", "no-store")
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// category slugs such as home-&-kitchen are returned verbatim
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RespondError writes {"error": message}.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// ParseInt64Param extracts a positive integer route parameter, answering 400 when it is not one.
func ParseInt64Param(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string) (int64, bool) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", key, raw))
		return 0, false
	}
	return id, true
}
