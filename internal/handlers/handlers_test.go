package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/chamapesa/chama-wallet/internal/middlewares"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// fixedTokener authenticates every request as one user.
type fixedTokener struct {
	userID uuid.UUID
}

func (f fixedTokener) GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error) {
	return "test-token", nil
}

func (f fixedTokener) GetUserID(ctx context.Context, tokenString string) (uuid.UUID, error) {
	return f.userID, nil
}

// authed wraps a handler in the auth middleware so the request context
// carries the given user ID, the same way the router does in production.
func authed(h http.Handler, userID uuid.UUID) http.Handler {
	return middlewares.AuthMiddleware(fixedTokener{userID: userID})(h)
}

type mockWalletService struct {
	mock.Mock
}

func (m *mockWalletService) Topup(ctx context.Context, actorID uuid.UUID, req models.TopupRequest) (*models.LedgerEntryDB, error) {
	args := m.Called(ctx, actorID, req)
	entry, _ := args.Get(0).(*models.LedgerEntryDB)
	return entry, args.Error(1)
}

func (m *mockWalletService) Withdraw(ctx context.Context, actorID uuid.UUID, req models.WithdrawRequest) (*models.LedgerEntryDB, error) {
	args := m.Called(ctx, actorID, req)
	entry, _ := args.Get(0).(*models.LedgerEntryDB)
	return entry, args.Error(1)
}

func (m *mockWalletService) Send(ctx context.Context, actorID uuid.UUID, req models.SendRequest) (*models.LedgerEntryDB, error) {
	args := m.Called(ctx, actorID, req)
	entry, _ := args.Get(0).(*models.LedgerEntryDB)
	return entry, args.Error(1)
}

func (m *mockWalletService) GetBalances(ctx context.Context, actorID uuid.UUID) ([]models.WalletBalance, error) {
	args := m.Called(ctx, actorID)
	balances, _ := args.Get(0).([]models.WalletBalance)
	return balances, args.Error(1)
}

type mockContributionService struct {
	mock.Mock
}

func (m *mockContributionService) Submit(ctx context.Context, memberID uuid.UUID, req models.SubmitContributionRequest) (*models.ContributionDB, error) {
	args := m.Called(ctx, memberID, req)
	c, _ := args.Get(0).(*models.ContributionDB)
	return c, args.Error(1)
}

func (m *mockContributionService) Verify(ctx context.Context, actorID, contributionID uuid.UUID, notes string) (*models.ContributionDB, error) {
	args := m.Called(ctx, actorID, contributionID, notes)
	c, _ := args.Get(0).(*models.ContributionDB)
	return c, args.Error(1)
}

func (m *mockContributionService) Reject(ctx context.Context, actorID, contributionID uuid.UUID, notes string) (*models.ContributionDB, error) {
	args := m.Called(ctx, actorID, contributionID, notes)
	c, _ := args.Get(0).(*models.ContributionDB)
	return c, args.Error(1)
}

func (m *mockContributionService) List(ctx context.Context, actorID, chamaID uuid.UUID, status *models.ContributionStatus) ([]models.ContributionDB, error) {
	args := m.Called(ctx, actorID, chamaID, status)
	cs, _ := args.Get(0).([]models.ContributionDB)
	return cs, args.Error(1)
}

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) Initiate(ctx context.Context, actorID uuid.UUID, req models.InitiatePaymentRequest) (string, error) {
	args := m.Called(ctx, actorID, req)
	return args.String(0), args.Error(1)
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, req models.WebhookRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockPaymentService) Status(ctx context.Context, reference string) (*models.PaymentStatusResponse, error) {
	args := m.Called(ctx, reference)
	resp, _ := args.Get(0).(*models.PaymentStatusResponse)
	return resp, args.Error(1)
}

func (m *mockPaymentService) Review(ctx context.Context, actorID, chamaID uuid.UUID) ([]models.LedgerEntryDB, error) {
	args := m.Called(ctx, actorID, chamaID)
	entries, _ := args.Get(0).([]models.LedgerEntryDB)
	return entries, args.Error(1)
}
