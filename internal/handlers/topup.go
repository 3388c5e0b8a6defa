package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/middlewares"
	"github.com/chamapesa/chama-wallet/internal/models"
)

var validate = validator.New()

// TopupWriter defines the interface that the service must implement.
type TopupWriter interface {
	Topup(ctx context.Context, actorID uuid.UUID, req models.TopupRequest) (*models.LedgerEntryDB, error)
}

// NewTopupHandler returns an HTTP handler for topping up a wallet.
// @Summary Top up a wallet
// @Description Records a manual top-up into one of the caller's wallets through the ledger.
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body models.TopupRequest true "Topup Request"
// @Success 200 {object} models.TopupResponse "Wallet topped up successfully"
// @Failure 400 {object} models.TopupErrorResponse "Invalid amount or wallet"
// @Failure 401 {object} models.TopupErrorResponse "Unauthorized"
// @Failure 403 {object} models.TopupErrorResponse "Forbidden"
// @Router /wallets/topup [post]
// @Security BearerAuth
func NewTopupHandler(svc TopupWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.TopupErrorResponse{Error: "Unauthorized"})
			return
		}

		var req models.TopupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode topup request", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.TopupErrorResponse{Error: "Invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.TopupErrorResponse{Error: "Invalid amount or wallet"})
			return
		}

		entry, err := svc.Topup(ctx, actorID, req)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.TopupErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.TopupResponse{
			Message: "Wallet topped up successfully",
			Entry:   *entry,
		})
	}
}
