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

// BalanceReader defines the interface that the service must implement.
type BalanceReader interface {
	GetBalances(ctx context.Context, actorID uuid.UUID) ([]models.WalletBalance, error)
}

// NewGetBalanceHandler returns an HTTP handler for fetching the caller's wallet balances.
// @Summary Get wallet balances
// @Description Returns balances for all wallets the caller owns, across chamas.
// @Tags wallet
// @Produce json
// @Success 200 {object} models.BalanceResponse "Wallet balances"
// @Failure 401 {object} models.BalanceErrorResponse "Unauthorized"
// @Failure 500 {object} models.BalanceErrorResponse "Internal server error"
// @Router /wallets/balance [get]
// @Security BearerAuth
func NewGetBalanceHandler(reader BalanceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.BalanceErrorResponse{Error: "Unauthorized"})
			return
		}

		balances, err := reader.GetBalances(ctx, actorID)
		if err != nil {
			logger.Log.Errorw("failed to get balances", "actorID", actorID, "error", err)
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.BalanceErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.BalanceResponse{Wallets: balances})
	}
}
