package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/middlewares"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// SendWriter defines the interface that the service must implement.
type SendWriter interface {
	Send(ctx context.Context, actorID uuid.UUID, req models.SendRequest) (*models.LedgerEntryDB, error)
}

// NewSendHandler returns an HTTP handler for member-to-member transfers.
// @Summary Send funds to another member
// @Description Moves funds from the caller's wallet to another member's wallet in the same chama, atomically.
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body models.SendRequest true "Send Request"
// @Success 200 {object} models.SendResponse "Funds sent successfully"
// @Failure 400 {object} models.SendErrorResponse "Invalid request or insufficient funds"
// @Failure 401 {object} models.SendErrorResponse "Unauthorized"
// @Failure 403 {object} models.SendErrorResponse "Forbidden"
// @Router /wallets/send [post]
// @Security BearerAuth
func NewSendHandler(svc SendWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.SendErrorResponse{Error: "Unauthorized"})
			return
		}

		var req models.SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode send request", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.SendErrorResponse{Error: "Invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.SendErrorResponse{Error: "Invalid request"})
			return
		}

		entry, err := svc.Send(ctx, actorID, req)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.SendErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.SendResponse{
			Message: "Funds sent successfully",
			Entry:   *entry,
		})
	}
}
