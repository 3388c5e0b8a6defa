package handlers

import (
	"errors"
	"net/http"

	"github.com/chamapesa/chama-wallet/internal/facades"
	"github.com/chamapesa/chama-wallet/internal/services"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrWithdrawalLocked):
		return http.StatusLocked
	case errors.Is(err, services.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, facades.ErrGatewayRejected):
		return http.StatusBadGateway
	case errors.Is(err, facades.ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the user-facing error message for a service error.
// Internal errors are not leaked.
func messageFor(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
