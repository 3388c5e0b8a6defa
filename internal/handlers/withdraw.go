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

// WithdrawWriter defines the interface that the service must implement.
type WithdrawWriter interface {
	Withdraw(ctx context.Context, actorID uuid.UUID, req models.WithdrawRequest) (*models.LedgerEntryDB, error)
}

// NewWithdrawHandler returns an HTTP handler for withdrawing funds.
// @Summary Withdraw funds
// @Description Debits one of the caller's wallets. Merry-go-round withdrawals are refused while the member's turn is locked.
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body models.WithdrawRequest true "Withdraw Request"
// @Success 200 {object} models.WithdrawResponse "Withdrawal successful"
// @Failure 400 {object} models.WithdrawErrorResponse "Invalid amount or insufficient funds"
// @Failure 401 {object} models.WithdrawErrorResponse "Unauthorized"
// @Failure 423 {object} models.WithdrawErrorResponse "Withdrawal locked"
// @Router /wallets/withdraw [post]
// @Security BearerAuth
func NewWithdrawHandler(svc WithdrawWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.WithdrawErrorResponse{Error: "Unauthorized"})
			return
		}

		var req models.WithdrawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode withdraw request", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.WithdrawErrorResponse{Error: "Invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.WithdrawErrorResponse{Error: "Invalid amount or wallet"})
			return
		}

		entry, err := svc.Withdraw(ctx, actorID, req)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.WithdrawErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.WithdrawResponse{
			Message: "Withdrawal successful",
			Entry:   *entry,
		})
	}
}
