package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/pkg/web"
)

// statusFor maps a domain or backend error to the status returned to the UI.
func statusFor(err error) (int, string) {
	var se *api.StatusError
	switch {
	case errors.Is(err, cart.ErrLoginRequired):
		return http.StatusUnauthorized, "Please login to add items to cart"
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized, "Session expired, please login again"
	case errors.Is(err, api.ErrCircuitOpen), errors.Is(err, cart.ErrStopped):
		return http.StatusServiceUnavailable, "Backend temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Backend timed out"
	case errors.As(err, &se) && se.Code >= 400 && se.Code < 500:
		if se.Message != "" {
			return se.Code, se.Message
		}
		return se.Code, http.StatusText(se.Code)
	case errors.As(err, &se):
		return http.StatusBadGateway, ""
	}
	return http.StatusInternalServerError, ""
}

func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), message, "error", err)
	} else {
		h.logger.WarnContext(r.Context(), message, "error", err)
	}
	if detail != "" {
		message = detail
	}
	web.RespondError(w, h.logger, status, message)
}
