package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/chamapesa/chama-wallet/internal/facades"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// runnerStub executes the transactional function directly.
type runnerStub struct{}

func (runnerStub) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockWalletLocker struct{ mock.Mock }

func (m *mockWalletLocker) LockForUpdate(ctx context.Context, keys ...models.WalletKey) (map[string]*models.WalletDB, error) {
	args := m.Called(ctx, keys)
	wallets, _ := args.Get(0).(map[string]*models.WalletDB)
	return wallets, args.Error(1)
}

func (m *mockWalletLocker) SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	return m.Called(ctx, walletID, balance).Error(0)
}

type mockEntryStore struct{ mock.Mock }

func (m *mockEntryStore) Insert(ctx context.Context, entry *models.LedgerEntryDB) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockEntryStore) GetByReferenceForUpdate(ctx context.Context, reference string) (*models.LedgerEntryDB, error) {
	args := m.Called(ctx, reference)
	entry, _ := args.Get(0).(*models.LedgerEntryDB)
	return entry, args.Error(1)
}

func (m *mockEntryStore) Complete(ctx context.Context, entryID uuid.UUID, destWalletID *uuid.UUID) error {
	return m.Called(ctx, entryID, destWalletID).Error(0)
}

type mockTurnLockChecker struct{ mock.Mock }

func (m *mockTurnLockChecker) IsLocked(ctx context.Context, chamaID, memberID uuid.UUID) (bool, error) {
	args := m.Called(ctx, chamaID, memberID)
	return args.Bool(0), args.Error(1)
}

type mockAuditWriter struct{ mock.Mock }

func (m *mockAuditWriter) Insert(ctx context.Context, entry *models.AuditEntryDB) error {
	return m.Called(ctx, entry).Error(0)
}

type mockRoleResolver struct{ mock.Mock }

func (m *mockRoleResolver) Resolve(ctx context.Context, chamaID *uuid.UUID, memberID uuid.UUID) (models.Role, error) {
	args := m.Called(ctx, chamaID, memberID)
	role, _ := args.Get(0).(models.Role)
	return role, args.Error(1)
}

type mockLedgerApplier struct{ mock.Mock }

func (m *mockLedgerApplier) Apply(ctx context.Context, op models.Operation) (*models.LedgerEntryDB, error) {
	args := m.Called(ctx, op)
	entry, _ := args.Get(0).(*models.LedgerEntryDB)
	return entry, args.Error(1)
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	events []models.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.Event) {
	p.events = append(p.events, event)
}

type mockContributionStore struct{ mock.Mock }

func (m *mockContributionStore) Insert(ctx context.Context, c *models.ContributionDB) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockContributionStore) GetForUpdate(ctx context.Context, contributionID uuid.UUID) (*models.ContributionDB, error) {
	args := m.Called(ctx, contributionID)
	c, _ := args.Get(0).(*models.ContributionDB)
	return c, args.Error(1)
}

func (m *mockContributionStore) SetStatus(ctx context.Context, contributionID uuid.UUID, status models.ContributionStatus, verifierID uuid.UUID, notes string) error {
	return m.Called(ctx, contributionID, status, verifierID, notes).Error(0)
}

func (m *mockContributionStore) List(ctx context.Context, chamaID uuid.UUID, memberID *uuid.UUID, status *models.ContributionStatus) ([]models.ContributionDB, error) {
	args := m.Called(ctx, chamaID, memberID, status)
	list, _ := args.Get(0).([]models.ContributionDB)
	return list, args.Error(1)
}

type mockScheduleStore struct{ mock.Mock }

func (m *mockScheduleStore) List(ctx context.Context, chamaID uuid.UUID) ([]models.TurnMemberDB, error) {
	args := m.Called(ctx, chamaID)
	members, _ := args.Get(0).([]models.TurnMemberDB)
	return members, args.Error(1)
}

func (m *mockScheduleStore) ListForUpdate(ctx context.Context, chamaID uuid.UUID) ([]models.TurnMemberDB, error) {
	args := m.Called(ctx, chamaID)
	members, _ := args.Get(0).([]models.TurnMemberDB)
	return members, args.Error(1)
}

func (m *mockScheduleStore) SetLocked(ctx context.Context, chamaID, memberID uuid.UUID, locked bool) error {
	return m.Called(ctx, chamaID, memberID, locked).Error(0)
}

func (m *mockScheduleStore) LockAll(ctx context.Context, chamaID uuid.UUID) error {
	return m.Called(ctx, chamaID).Error(0)
}

type mockGatewayEntryStore struct{ mock.Mock }

func (m *mockGatewayEntryStore) Insert(ctx context.Context, entry *models.LedgerEntryDB) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockGatewayEntryStore) GetByReference(ctx context.Context, reference string) (*models.LedgerEntryDB, error) {
	args := m.Called(ctx, reference)
	entry, _ := args.Get(0).(*models.LedgerEntryDB)
	return entry, args.Error(1)
}

func (m *mockGatewayEntryStore) Fail(ctx context.Context, entryID uuid.UUID) error {
	return m.Called(ctx, entryID).Error(0)
}

func (m *mockGatewayEntryStore) ListPendingGateway(ctx context.Context) ([]models.LedgerEntryDB, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]models.LedgerEntryDB)
	return entries, args.Error(1)
}

func (m *mockGatewayEntryStore) FlagStalePending(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockGatewayEntryStore) ListNeedsReview(ctx context.Context) ([]models.LedgerEntryDB, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]models.LedgerEntryDB)
	return entries, args.Error(1)
}

type mockWalletEnsurer struct{ mock.Mock }

func (m *mockWalletEnsurer) GetOrCreate(ctx context.Context, key models.WalletKey) (*models.WalletDB, error) {
	args := m.Called(ctx, key)
	w, _ := args.Get(0).(*models.WalletDB)
	return w, args.Error(1)
}

func (m *mockWalletEnsurer) GetByID(ctx context.Context, walletID uuid.UUID) (*models.WalletDB, error) {
	args := m.Called(ctx, walletID)
	w, _ := args.Get(0).(*models.WalletDB)
	return w, args.Error(1)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Initiate(ctx context.Context, req facades.InitiateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) QueryStatus(ctx context.Context, reference string) (facades.Status, error) {
	args := m.Called(ctx, reference)
	status, _ := args.Get(0).(facades.Status)
	return status, args.Error(1)
}

type mockRoleReader struct{ mock.Mock }

func (m *mockRoleReader) GetRole(ctx context.Context, chamaID, memberID uuid.UUID) (models.Role, error) {
	args := m.Called(ctx, chamaID, memberID)
	role, _ := args.Get(0).(models.Role)
	return role, args.Error(1)
}

type mockRoleWriter struct{ mock.Mock }

func (m *mockRoleWriter) SetRole(ctx context.Context, chamaID, memberID uuid.UUID, role models.Role) (models.Role, error) {
	args := m.Called(ctx, chamaID, memberID, role)
	previous, _ := args.Get(0).(models.Role)
	return previous, args.Error(1)
}

type mockRoleCache struct{ mock.Mock }

func (m *mockRoleCache) GetRole(ctx context.Context, chamaID, memberID uuid.UUID) (models.Role, error) {
	args := m.Called(ctx, chamaID, memberID)
	role, _ := args.Get(0).(models.Role)
	return role, args.Error(1)
}

func (m *mockRoleCache) SetRole(ctx context.Context, chamaID, memberID uuid.UUID, role models.Role) error {
	return m.Called(ctx, chamaID, memberID, role).Error(0)
}

func (m *mockRoleCache) Invalidate(ctx context.Context, chamaID, memberID uuid.UUID) error {
	return m.Called(ctx, chamaID, memberID).Error(0)
}

type mockScheduleAppender struct{ mock.Mock }

func (m *mockScheduleAppender) Append(ctx context.Context, chamaID, memberID uuid.UUID) error {
	return m.Called(ctx, chamaID, memberID).Error(0)
}

type mockWalletReader struct{ mock.Mock }

func (m *mockWalletReader) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.WalletDB, error) {
	args := m.Called(ctx, ownerID)
	wallets, _ := args.Get(0).([]models.WalletDB)
	return wallets, args.Error(1)
}
