package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chamapesa/chama-wallet/internal/models"
)

func newLedgerFixture() (*LedgerService, *mockWalletLocker, *mockEntryStore, *mockTurnLockChecker, *mockAuditWriter) {
	wallets := &mockWalletLocker{}
	entries := &mockEntryStore{}
	schedule := &mockTurnLockChecker{}
	audit := &mockAuditWriter{}
	svc := NewLedgerService(runnerStub{}, wallets, entries, schedule, audit)
	return svc, wallets, entries, schedule, audit
}

func walletRow(key models.WalletKey, balance string) *models.WalletDB {
	return &models.WalletDB{
		WalletID: uuid.New(),
		OwnerID:  key.OwnerID,
		ChamaID:  key.ChamaID,
		Kind:     key.Kind,
		Balance:  decimal.RequireFromString(balance),
	}
}

func TestLedgerApply_Topup(t *testing.T) {
	svc, wallets, entries, _, audit := newLedgerFixture()

	actorID := uuid.New()
	key := models.WalletKey{OwnerID: actorID, Kind: models.WalletCentral}
	dest := walletRow(key, "100.00")

	wallets.On("LockForUpdate", mock.Anything, mock.Anything).
		Return(map[string]*models.WalletDB{key.LockKey(): dest}, nil)
	wallets.On("SetBalance", mock.Anything, dest.WalletID, decimal.RequireFromString("150.00")).Return(nil)
	entries.On("Insert", mock.Anything, mock.Anything).Return(nil)
	audit.On("Insert", mock.Anything, mock.Anything).Return(nil)

	entry, err := svc.Apply(context.Background(), models.Operation{
		Kind:        models.OpTopup,
		ActorID:     actorID,
		Destination: &key,
		Amount:      decimal.RequireFromString("50.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, models.EntryCompleted, entry.Status)
	assert.Equal(t, &dest.WalletID, entry.DestWalletID)
	wallets.AssertExpectations(t)
	entries.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestLedgerApply_WithdrawInsufficientFunds(t *testing.T) {
	svc, wallets, _, schedule, _ := newLedgerFixture()

	actorID := uuid.New()
	chamaID := uuid.New()
	key := models.WalletKey{OwnerID: actorID, ChamaID: &chamaID, Kind: models.WalletChamaSavings}
	source := walletRow(key, "10.00")

	wallets.On("LockForUpdate", mock.Anything, mock.Anything).
		Return(map[string]*models.WalletDB{key.LockKey(): source}, nil)
	schedule.On("IsLocked", mock.Anything, chamaID, actorID).Return(false, nil).Maybe()

	_, err := svc.Apply(context.Background(), models.Operation{
		Kind:    models.OpWithdraw,
		ActorID: actorID,
		Source:  &key,
		Amount:  decimal.RequireFromString("25.00"),
	})

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	wallets.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerApply_WithdrawMGRLocked(t *testing.T) {
	svc, wallets, _, schedule, _ := newLedgerFixture()

	actorID := uuid.New()
	chamaID := uuid.New()
	key := models.WalletKey{OwnerID: actorID, ChamaID: &chamaID, Kind: models.WalletChamaMGR}
	source := walletRow(key, "500.00")

	wallets.On("LockForUpdate", mock.Anything, mock.Anything).
		Return(map[string]*models.WalletDB{key.LockKey(): source}, nil)
	schedule.On("IsLocked", mock.Anything, chamaID, actorID).Return(true, nil)

	_, err := svc.Apply(context.Background(), models.Operation{
		Kind:    models.OpWithdraw,
		ActorID: actorID,
		Source:  &key,
		Amount:  decimal.RequireFromString("100.00"),
	})

	assert.ErrorIs(t, err, ErrWithdrawalLocked)
	wallets.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerApply_SendMovesBothBalances(t *testing.T) {
	svc, wallets, entries, schedule, audit := newLedgerFixture()

	actorID := uuid.New()
	toMemberID := uuid.New()
	chamaID := uuid.New()
	sourceKey := models.WalletKey{OwnerID: actorID, ChamaID: &chamaID, Kind: models.WalletChamaSavings}
	destKey := models.WalletKey{OwnerID: toMemberID, ChamaID: &chamaID, Kind: models.WalletChamaSavings}
	source := walletRow(sourceKey, "300.00")
	dest := walletRow(destKey, "40.00")

	wallets.On("LockForUpdate", mock.Anything, mock.Anything).Return(map[string]*models.WalletDB{
		sourceKey.LockKey(): source,
		destKey.LockKey():   dest,
	}, nil)
	schedule.On("IsLocked", mock.Anything, chamaID, actorID).Return(false, nil).Maybe()
	wallets.On("SetBalance", mock.Anything, source.WalletID, decimal.RequireFromString("250.00")).Return(nil)
	wallets.On("SetBalance", mock.Anything, dest.WalletID, decimal.RequireFromString("90.00")).Return(nil)
	entries.On("Insert", mock.Anything, mock.Anything).Return(nil)
	audit.On("Insert", mock.Anything, mock.Anything).Return(nil)

	entry, err := svc.Apply(context.Background(), models.Operation{
		Kind:        models.OpSend,
		ActorID:     actorID,
		Source:      &sourceKey,
		Destination: &destKey,
		Amount:      decimal.RequireFromString("50.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, &source.WalletID, entry.SourceWalletID)
	assert.Equal(t, &dest.WalletID, entry.DestWalletID)
	wallets.AssertExpectations(t)
}

func TestLedgerApply_Validation(t *testing.T) {
	svc, _, _, _, _ := newLedgerFixture()
	actorID := uuid.New()
	chamaID := uuid.New()
	otherChamaID := uuid.New()
	central := models.WalletKey{OwnerID: actorID, Kind: models.WalletCentral}
	savings := models.WalletKey{OwnerID: actorID, ChamaID: &chamaID, Kind: models.WalletChamaSavings}
	otherSavings := models.WalletKey{OwnerID: uuid.New(), ChamaID: &otherChamaID, Kind: models.WalletChamaSavings}

	tests := []struct {
		name string
		op   models.Operation
	}{
		{
			name: "zero amount",
			op:   models.Operation{Kind: models.OpTopup, ActorID: actorID, Destination: &central, Amount: decimal.Zero},
		},
		{
			name: "negative amount",
			op:   models.Operation{Kind: models.OpTopup, ActorID: actorID, Destination: &central, Amount: decimal.RequireFromString("-5")},
		},
		{
			name: "missing actor",
			op:   models.Operation{Kind: models.OpTopup, Destination: &central, Amount: decimal.RequireFromString("5")},
		},
		{
			name: "central wallet with chama",
			op: models.Operation{Kind: models.OpTopup, ActorID: actorID, Amount: decimal.RequireFromString("5"),
				Destination: &models.WalletKey{OwnerID: actorID, ChamaID: &chamaID, Kind: models.WalletCentral}},
		},
		{
			name: "chama wallet without chama",
			op: models.Operation{Kind: models.OpTopup, ActorID: actorID, Amount: decimal.RequireFromString("5"),
				Destination: &models.WalletKey{OwnerID: actorID, Kind: models.WalletChamaSavings}},
		},
		{
			name: "withdraw with destination",
			op: models.Operation{Kind: models.OpWithdraw, ActorID: actorID, Amount: decimal.RequireFromString("5"),
				Source: &savings, Destination: &central},
		},
		{
			name: "send across chamas",
			op: models.Operation{Kind: models.OpSend, ActorID: actorID, Amount: decimal.RequireFromString("5"),
				Source: &savings, Destination: &otherSavings},
		},
		{
			name: "send to same wallet",
			op: models.Operation{Kind: models.OpSend, ActorID: actorID, Amount: decimal.RequireFromString("5"),
				Source: &savings, Destination: &savings},
		},
		{
			name: "unknown kind",
			op:   models.Operation{Kind: "split", ActorID: actorID, Destination: &central, Amount: decimal.RequireFromString("5")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(context.Background(), tt.op)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestLedgerApply_DuplicateReferenceReturnsPriorEntry(t *testing.T) {
	svc, wallets, entries, _, _ := newLedgerFixture()

	actorID := uuid.New()
	key := models.WalletKey{OwnerID: actorID, Kind: models.WalletCentral}
	reference := "MM-123"
	prior := &models.LedgerEntryDB{
		EntryID:           uuid.New(),
		Kind:              models.OpGatewayCredit,
		ActorID:           actorID,
		Amount:            decimal.RequireFromString("80.00"),
		Status:            models.EntryCompleted,
		ExternalReference: &reference,
	}

	entries.On("GetByReferenceForUpdate", mock.Anything, reference).Return(prior, nil)

	entry, err := svc.Apply(context.Background(), models.Operation{
		Kind:              models.OpGatewayCredit,
		ActorID:           actorID,
		Destination:       &key,
		Amount:            decimal.RequireFromString("80.00"),
		ExternalReference: &reference,
	})

	require.NoError(t, err)
	assert.Equal(t, prior.EntryID, entry.EntryID)
	wallets.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
	entries.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestLedgerApply_FailedReferenceRejected(t *testing.T) {
	svc, _, entries, _, _ := newLedgerFixture()

	actorID := uuid.New()
	key := models.WalletKey{OwnerID: actorID, Kind: models.WalletCentral}
	reference := "MM-456"
	prior := &models.LedgerEntryDB{
		EntryID:           uuid.New(),
		Status:            models.EntryFailed,
		ExternalReference: &reference,
	}

	entries.On("GetByReferenceForUpdate", mock.Anything, reference).Return(prior, nil)

	_, err := svc.Apply(context.Background(), models.Operation{
		Kind:              models.OpGatewayCredit,
		ActorID:           actorID,
		Destination:       &key,
		Amount:            decimal.RequireFromString("80.00"),
		ExternalReference: &reference,
	})

	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestLedgerApply_PendingReferenceCompleted(t *testing.T) {
	svc, wallets, entries, _, audit := newLedgerFixture()

	actorID := uuid.New()
	key := models.WalletKey{OwnerID: actorID, Kind: models.WalletCentral}
	dest := walletRow(key, "20.00")
	reference := "MM-789"
	prior := &models.LedgerEntryDB{
		EntryID:           uuid.New(),
		Kind:              models.OpGatewayCredit,
		ActorID:           actorID,
		Amount:            decimal.RequireFromString("80.00"),
		Status:            models.EntryPending,
		ExternalReference: &reference,
	}

	entries.On("GetByReferenceForUpdate", mock.Anything, reference).Return(prior, nil)
	wallets.On("LockForUpdate", mock.Anything, mock.Anything).
		Return(map[string]*models.WalletDB{key.LockKey(): dest}, nil)
	wallets.On("SetBalance", mock.Anything, dest.WalletID, decimal.RequireFromString("100.00")).Return(nil)
	entries.On("Complete", mock.Anything, prior.EntryID, &dest.WalletID).Return(nil)
	audit.On("Insert", mock.Anything, mock.Anything).Return(nil)

	entry, err := svc.Apply(context.Background(), models.Operation{
		Kind:              models.OpGatewayCredit,
		ActorID:           actorID,
		Destination:       &key,
		Amount:            decimal.RequireFromString("80.00"),
		ExternalReference: &reference,
	})

	require.NoError(t, err)
	assert.Equal(t, models.EntryCompleted, entry.Status)
	assert.Equal(t, prior.EntryID, entry.EntryID)
	wallets.AssertExpectations(t)
	entries.AssertExpectations(t)
}
