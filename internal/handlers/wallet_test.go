package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chamapesa/chama-wallet/internal/models"
	"github.com/chamapesa/chama-wallet/internal/services"
)

func TestTopupHandler_Success(t *testing.T) {
	actorID := uuid.New()
	svc := new(mockWalletService)

	entry := &models.LedgerEntryDB{
		EntryID: uuid.New(),
		Kind:    models.OpTopup,
		ActorID: actorID,
		Amount:  decimal.RequireFromString("1000.00"),
		Status:  models.EntryCompleted,
	}
	svc.On("Topup", mock.Anything, actorID, mock.MatchedBy(func(req models.TopupRequest) bool {
		return req.Kind == models.WalletCentral && req.Amount.Equal(decimal.RequireFromString("1000.00"))
	})).Return(entry, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallets/topup",
		strings.NewReader(`{"amount":"1000.00","kind":"central"}`))

	authed(NewTopupHandler(svc), actorID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.TopupResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Wallet topped up successfully", resp.Message)
	assert.Equal(t, entry.EntryID, resp.Entry.EntryID)
	svc.AssertExpectations(t)
}

func TestTopupHandler_InvalidBody(t *testing.T) {
	svc := new(mockWalletService)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallets/topup", strings.NewReader("not json"))

	authed(NewTopupHandler(svc), uuid.New()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Topup")
}

func TestTopupHandler_MissingKind(t *testing.T) {
	svc := new(mockWalletService)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallets/topup",
		strings.NewReader(`{"amount":"1000.00"}`))

	authed(NewTopupHandler(svc), uuid.New()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Topup")
}

func TestTopupHandler_Unauthorized(t *testing.T) {
	svc := new(mockWalletService)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallets/topup",
		strings.NewReader(`{"amount":"1000.00","kind":"central"}`))

	// No auth middleware, so no user ID in context.
	NewTopupHandler(svc)(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "Topup")
}

func TestWithdrawHandler_Locked(t *testing.T) {
	actorID := uuid.New()
	chamaID := uuid.New()
	svc := new(mockWalletService)
	svc.On("Withdraw", mock.Anything, actorID, mock.Anything).
		Return(nil, services.ErrWithdrawalLocked)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallets/withdraw",
		strings.NewReader(`{"amount":"200.00","kind":"chama_mgr","chama_id":"`+chamaID.String()+`"}`))

	authed(NewWithdrawHandler(svc), actorID).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusLocked, rr.Code)

	var resp models.WithdrawErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, services.ErrWithdrawalLocked.Error(), resp.Error)
}

func TestWithdrawHandler_InsufficientFunds(t *testing.T) {
	actorID := uuid.New()
	svc := new(mockWalletService)
	svc.On("Withdraw", mock.Anything, actorID, mock.Anything).
		Return(nil, services.ErrInsufficientFunds)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallets/withdraw",
		strings.NewReader(`{"amount":"200.00","kind":"central"}`))

	authed(NewWithdrawHandler(svc), actorID).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendHandler_Success(t *testing.T) {
	actorID := uuid.New()
	svc := new(mockWalletService)

	entry := &models.LedgerEntryDB{EntryID: uuid.New(), Kind: models.OpSend, Status: models.EntryCompleted}
	svc.On("Send", mock.Anything, actorID, mock.Anything).Return(entry, nil)

	chamaID := uuid.New()
	recipientID := uuid.New()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallets/send",
		strings.NewReader(`{"amount":"50.00","chama_id":"`+chamaID.String()+
			`","from_kind":"chama_savings","to_member_id":"`+recipientID.String()+`","to_kind":"chama_savings"}`))

	authed(NewSendHandler(svc), actorID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestGetBalanceHandler(t *testing.T) {
	actorID := uuid.New()
	chamaID := uuid.New()
	svc := new(mockWalletService)

	svc.On("GetBalances", mock.Anything, actorID).Return([]models.WalletBalance{
		{Kind: models.WalletCentral, Balance: decimal.RequireFromString("120.00")},
		{Kind: models.WalletChamaSavings, ChamaID: &chamaID, Balance: decimal.RequireFromString("4500.00")},
	}, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/wallets/balance", nil)

	authed(NewGetBalanceHandler(svc), actorID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.BalanceResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Wallets, 2)
	assert.Equal(t, models.WalletCentral, resp.Wallets[0].Kind)
	assert.True(t, resp.Wallets[1].Balance.Equal(decimal.RequireFromString("4500.00")))
}

func TestGetBalanceHandler_InternalErrorNotLeaked(t *testing.T) {
	actorID := uuid.New()
	svc := new(mockWalletService)
	svc.On("GetBalances", mock.Anything, actorID).
		Return(nil, assert.AnError)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/wallets/balance", nil)

	authed(NewGetBalanceHandler(svc), actorID).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp models.BalanceErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Internal server error", resp.Error)
}
