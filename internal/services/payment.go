package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-wallet/internal/authz"
	"github.com/chamapesa/chama-wallet/internal/facades"
	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
	"github.com/chamapesa/chama-wallet/internal/repositories"
)

// DetailVerificationTimedOut is surfaced on payments still pending after
// every automatic verification attempt ran out.
const DetailVerificationTimedOut = "verification timed out — contact support"

// errStillPending marks an inconclusive status query so backoff retries it.
var errStillPending = errors.New("gateway still pending")

// GatewayEntryStore persists gateway-keyed ledger entries for reconciliation.
type GatewayEntryStore interface {
	Insert(ctx context.Context, entry *models.LedgerEntryDB) error
	GetByReference(ctx context.Context, reference string) (*models.LedgerEntryDB, error)
	Fail(ctx context.Context, entryID uuid.UUID) error
	ListPendingGateway(ctx context.Context) ([]models.LedgerEntryDB, error)
	FlagStalePending(ctx context.Context, maxAge time.Duration) (int64, error)
	ListNeedsReview(ctx context.Context) ([]models.LedgerEntryDB, error)
}

// WalletEnsurer creates and resolves wallet rows without locking them.
type WalletEnsurer interface {
	GetOrCreate(ctx context.Context, key models.WalletKey) (*models.WalletDB, error)
	GetByID(ctx context.Context, walletID uuid.UUID) (*models.WalletDB, error)
}

// PaymentConfig bounds the reconciliation process.
type PaymentConfig struct {
	FeeBasisPoints   int64         // platform fee applied to every gateway credit
	PollInterval     time.Duration // wait between webhook polls
	PollAttempts     int           // webhook polls before active verification
	QueryAttempts    uint64        // status-query attempts during active verification
	InitiateAttempts uint64        // initiate retries on gateway timeout
	MaxPendingAge    time.Duration // pending age after which entries are flagged for review
}

// PaymentService bridges gateway confirmations to the ledger engine.
// Every payment gets a pending entry keyed by the gateway reference; the
// webhook path and the per-payment reconcile loop converge on the same
// idempotent ledger apply, so a payment is credited exactly once no
// matter which path confirms it first or how often.
type PaymentService struct {
	ledger   LedgerApplier
	entries  GatewayEntryStore
	wallets  WalletEnsurer
	gateways map[string]facades.Gateway
	roles    RoleResolver
	notifier EventPublisher
	cfg      PaymentConfig

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(ledger LedgerApplier, entries GatewayEntryStore, wallets WalletEnsurer, gateways map[string]facades.Gateway, roles RoleResolver, notifier EventPublisher, cfg PaymentConfig) *PaymentService {
	return &PaymentService{
		ledger:   ledger,
		entries:  entries,
		wallets:  wallets,
		gateways: gateways,
		roles:    roles,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Start binds reconcile loops to the given lifetime context and resumes
// reconciliation of payments left pending by a previous run.
func (s *PaymentService) Start(ctx context.Context) error {
	s.baseCtx, s.cancel = context.WithCancel(ctx)

	pending, err := s.entries.ListPendingGateway(ctx)
	if err != nil {
		return err
	}
	for _, entry := range pending {
		s.spawnReconcile(entry)
	}
	if len(pending) > 0 {
		logger.Log.Infow("resumed reconciliation for pending payments", "count", len(pending))
	}
	return nil
}

// Stop cancels all reconcile loops and waits for them to finish.
func (s *PaymentService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Initiate starts a gateway payment into one of the actor's own wallets
// and returns the gateway reference. A pending ledger entry keyed by the
// reference is written before the reconcile loop is launched; the loop is
// bound to the server lifetime, not the request.
func (s *PaymentService) Initiate(ctx context.Context, actorID uuid.UUID, req models.InitiatePaymentRequest) (string, error) {
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !req.Kind.Valid() {
		return "", fmt.Errorf("%w: unknown wallet kind %q", ErrValidation, req.Kind)
	}
	if (req.Kind == models.WalletCentral) != (req.ChamaID == nil) {
		return "", fmt.Errorf("%w: chama does not match wallet kind", ErrValidation)
	}

	target := req.Phone
	if req.Method == "card" {
		target = req.CardToken
	}
	if target == "" {
		return "", fmt.Errorf("%w: missing payment target", ErrValidation)
	}

	gateway, ok := s.gateways[req.Method]
	if !ok {
		return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.Method)
	}

	role, err := s.roles.Resolve(ctx, req.ChamaID, actorID)
	if err != nil {
		return "", err
	}
	if !authz.CanPerform(role, authz.ActionInitiatePayment) {
		return "", ErrForbidden
	}

	// Gateway timeouts are retried with backoff up to a fixed ceiling;
	// a definitive decline is terminal.
	var reference string
	initiate := func() error {
		ref, err := gateway.Initiate(ctx, facades.InitiateRequest{
			Target:  target,
			Amount:  req.Amount,
			Purpose: req.Purpose,
		})
		if err != nil {
			if errors.Is(err, facades.ErrGatewayRejected) {
				return backoff.Permanent(err)
			}
			return err
		}
		reference = ref
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.cfg.InitiateAttempts), ctx)
	if err := backoff.Retry(initiate, bo); err != nil {
		logger.Log.Errorw("failed to initiate gateway payment", "actorID", actorID, "method", req.Method, "error", err)
		return "", err
	}

	wallet, err := s.wallets.GetOrCreate(ctx, models.WalletKey{
		OwnerID: actorID,
		ChamaID: req.ChamaID,
		Kind:    req.Kind,
	})
	if err != nil {
		return "", err
	}

	method := req.Method
	entry := &models.LedgerEntryDB{
		EntryID:           uuid.New(),
		Kind:              models.OpGatewayCredit,
		DestWalletID:      &wallet.WalletID,
		ActorID:           actorID,
		Amount:            req.Amount,
		Status:            models.EntryPending,
		ExternalReference: &reference,
		Provider:          &method,
	}
	if err := s.entries.Insert(ctx, entry); err != nil {
		logger.Log.Errorw("failed to record pending payment", "reference", reference, "error", err)
		return "", err
	}

	s.spawnReconcile(*entry)
	return reference, nil
}

// HandleWebhook applies an asynchronous gateway confirmation.
func (s *PaymentService) HandleWebhook(ctx context.Context, req models.WebhookRequest) error {
	entry, err := s.entries.GetByReference(ctx, req.ExternalReference)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: payment %s", ErrNotFound, req.ExternalReference)
	}

	if req.Status == "failed" {
		return s.markFailed(ctx, entry)
	}
	return s.credit(ctx, entry)
}

// Status reports the state of an initiated payment.
func (s *PaymentService) Status(ctx context.Context, reference string) (*models.PaymentStatusResponse, error) {
	entry, err := s.entries.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, reference)
	}

	resp := &models.PaymentStatusResponse{
		ExternalReference: reference,
		Status:            entry.Status,
		Amount:            entry.Amount,
	}
	if entry.Status == models.EntryPending {
		if entry.NeedsReview || time.Since(entry.CreatedAt) > s.reconcileWindow() {
			resp.Detail = DetailVerificationTimedOut
		} else {
			resp.Detail = "confirmation pending"
		}
	}
	return resp, nil
}

// Review lists payments flagged for manual operator reconciliation.
// Admin only.
func (s *PaymentService) Review(ctx context.Context, actorID, chamaID uuid.UUID) ([]models.LedgerEntryDB, error) {
	role, err := s.roles.Resolve(ctx, &chamaID, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(role, authz.ActionReviewPayments) {
		return nil, ErrForbidden
	}
	return s.entries.ListNeedsReview(ctx)
}

// SweepStale flags pending payments older than the configured maximum age
// for manual reconciliation. Wired to the cron scheduler.
func (s *PaymentService) SweepStale() {
	ctx := s.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	flagged, err := s.entries.FlagStalePending(ctx, s.cfg.MaxPendingAge)
	if err != nil {
		logger.Log.Errorw("stale payment sweep failed", "error", err)
		return
	}
	if flagged > 0 {
		logger.Log.Warnw("flagged stale pending payments for manual review", "count", flagged)
	}
}

func (s *PaymentService) reconcileWindow() time.Duration {
	return time.Duration(s.cfg.PollAttempts) * s.cfg.PollInterval
}

func (s *PaymentService) spawnReconcile(entry models.LedgerEntryDB) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reconcile(entry)
	}()
}

// reconcile watches one pending payment. First it polls for the webhook
// to land; if the window passes it verifies actively against the gateway.
// Inconclusive payments stay pending for the sweep and the operator;
// nothing is dropped and nothing can apply twice.
func (s *PaymentService) reconcile(entry models.LedgerEntryDB) {
	ctx := s.baseCtx
	reference := *entry.ExternalReference

	for attempt := 0; attempt < s.cfg.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.PollInterval):
		}

		current, err := s.entries.GetByReference(ctx, reference)
		if err != nil {
			logger.Log.Errorw("reconcile poll failed", "reference", reference, "error", err)
			continue
		}
		if current == nil || current.Status != models.EntryPending {
			// Webhook landed, nothing left to do.
			return
		}
	}

	logger.Log.Infow("webhook window passed, verifying payment actively", "reference", reference)

	gateway, ok := s.gatewayFor(entry)
	if !ok {
		logger.Log.Errorw("no gateway for pending payment", "reference", reference)
		return
	}

	var final facades.Status
	query := func() error {
		status, err := gateway.QueryStatus(ctx, reference)
		if err != nil {
			if errors.Is(err, facades.ErrGatewayRejected) {
				return backoff.Permanent(err)
			}
			return err // timeout, retry
		}
		if status == facades.StatusPending {
			return errStillPending
		}
		final = status
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.cfg.QueryAttempts), ctx)
	err := backoff.Retry(query, bo)

	switch {
	case err == nil && final == facades.StatusSuccess:
		if err := s.credit(ctx, &entry); err != nil {
			logger.Log.Errorw("failed to credit verified payment", "reference", reference, "error", err)
		}
	case (err == nil && final == facades.StatusFailed) || errors.Is(err, facades.ErrGatewayRejected):
		if err := s.markFailed(ctx, &entry); err != nil {
			logger.Log.Errorw("failed to mark payment failed", "reference", reference, "error", err)
		}
	default:
		// Still inconclusive after every attempt. The entry stays
		// pending; the sweep flags it and the status endpoint tells the
		// user to contact support.
		logger.Log.Warnw("payment verification exhausted, leaving pending", "reference", reference, "error", err)
	}
}

func (s *PaymentService) gatewayFor(entry models.LedgerEntryDB) (facades.Gateway, bool) {
	if entry.Provider == nil {
		return nil, false
	}
	gateway, ok := s.gateways[*entry.Provider]
	return gateway, ok
}

// credit applies the gateway credit net of the platform fee. Safe to call
// from the webhook path and the reconcile loop concurrently: the ledger
// engine locks the entry row and applies at most once.
func (s *PaymentService) credit(ctx context.Context, entry *models.LedgerEntryDB) error {
	if entry.DestWalletID == nil {
		return fmt.Errorf("%w: payment entry has no destination wallet", ErrValidation)
	}
	wallet, err := s.wallets.GetByID(ctx, *entry.DestWalletID)
	if err != nil {
		return err
	}

	net := entry.Amount.Sub(s.fee(entry.Amount))
	applied, err := s.ledger.Apply(ctx, models.Operation{
		Kind:              models.OpGatewayCredit,
		ActorID:           entry.ActorID,
		Destination:       &models.WalletKey{OwnerID: wallet.OwnerID, ChamaID: wallet.ChamaID, Kind: wallet.Kind},
		Amount:            net,
		ExternalReference: entry.ExternalReference,
	})
	if err != nil {
		return err
	}

	chamaID := ""
	if wallet.ChamaID != nil {
		chamaID = wallet.ChamaID.String()
	}
	s.notifier.Publish(ctx, models.Event{
		Type:      models.EventPaymentCredited,
		Timestamp: time.Now().Unix(),
		ChamaID:   chamaID,
		SubjectID: wallet.OwnerID.String(),
		Amount:    net.String(),
		Reference: *applied.ExternalReference,
	})
	return nil
}

// markFailed records a definitive gateway decline. A race with a
// concurrent confirmation resolves in favor of whichever landed first.
func (s *PaymentService) markFailed(ctx context.Context, entry *models.LedgerEntryDB) error {
	if err := s.entries.Fail(ctx, entry.EntryID); err != nil {
		if errors.Is(err, repositories.ErrEntryNotPending) {
			return nil
		}
		return err
	}

	s.notifier.Publish(ctx, models.Event{
		Type:      models.EventPaymentFailed,
		Timestamp: time.Now().Unix(),
		SubjectID: entry.ActorID.String(),
		Amount:    entry.Amount.String(),
		Reference: *entry.ExternalReference,
	})
	return nil
}

// fee computes the platform fee on a gross gateway amount.
func (s *PaymentService) fee(gross decimal.Decimal) decimal.Decimal {
	if s.cfg.FeeBasisPoints <= 0 {
		return decimal.Zero
	}
	return gross.Mul(decimal.NewFromInt(s.cfg.FeeBasisPoints)).Div(decimal.NewFromInt(10000)).Round(2)
}
