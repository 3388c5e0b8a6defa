package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chamapesa/chama-wallet/internal/authz"
	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ContributionStore persists contribution claims.
type ContributionStore interface {
	Insert(ctx context.Context, c *models.ContributionDB) error
	GetForUpdate(ctx context.Context, contributionID uuid.UUID) (*models.ContributionDB, error)
	SetStatus(ctx context.Context, contributionID uuid.UUID, status models.ContributionStatus, verifierID uuid.UUID, notes string) error
	List(ctx context.Context, chamaID uuid.UUID, memberID *uuid.UUID, status *models.ContributionStatus) ([]models.ContributionDB, error)
}

// ContributionService runs the pending → verified/rejected workflow.
// Verification credits the member's chama savings wallet through the
// ledger engine inside the same transaction as the status flip.
type ContributionService struct {
	runner        TxRunner
	contributions ContributionStore
	ledger        LedgerApplier
	roles         RoleResolver
	audit         AuditWriter
	notifier      EventPublisher
}

// NewContributionService creates a new ContributionService.
func NewContributionService(runner TxRunner, contributions ContributionStore, ledger LedgerApplier, roles RoleResolver, audit AuditWriter, notifier EventPublisher) *ContributionService {
	return &ContributionService{
		runner:        runner,
		contributions: contributions,
		ledger:        ledger,
		roles:         roles,
		audit:         audit,
		notifier:      notifier,
	}
}

// Submit records a member's claimed deposit as a pending contribution.
func (s *ContributionService) Submit(ctx context.Context, memberID uuid.UUID, req models.SubmitContributionRequest) (*models.ContributionDB, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	role, err := s.roles.Resolve(ctx, &req.ChamaID, memberID)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(role, authz.ActionSubmitContribution) {
		return nil, ErrForbidden
	}

	c := &models.ContributionDB{
		ContributionID:    uuid.New(),
		ChamaID:           req.ChamaID,
		MemberID:          memberID,
		Amount:            req.Amount,
		PaymentMethod:     req.PaymentMethod,
		ExternalReference: req.ExternalReference,
		Status:            models.ContributionPending,
		Notes:             req.Notes,
	}
	if err := s.contributions.Insert(ctx, c); err != nil {
		logger.Log.Errorw("failed to insert contribution", "memberID", memberID, "chamaID", req.ChamaID, "error", err)
		return nil, err
	}
	return c, nil
}

// Verify transitions a pending contribution to verified and credits the
// member's chama savings wallet for the claimed amount. The status write
// and the ledger write succeed together or neither is observed.
func (s *ContributionService) Verify(ctx context.Context, actorID, contributionID uuid.UUID, notes string) (*models.ContributionDB, error) {
	var verified *models.ContributionDB

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		c, err := s.contributions.GetForUpdate(ctx, contributionID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: contribution %s", ErrNotFound, contributionID)
		}

		if err := s.authorizeReview(ctx, c.ChamaID, actorID); err != nil {
			return err
		}
		if c.Status != models.ContributionPending {
			return fmt.Errorf("%w: contribution is %s", ErrInvalidStateTransition, c.Status)
		}

		// Idempotency key ties the credit to this contribution, so a
		// retried verify can never credit twice.
		reference := "contribution:" + c.ContributionID.String()
		if _, err := s.ledger.Apply(ctx, models.Operation{
			Kind:    models.OpVerifyCredit,
			ActorID: actorID,
			Destination: &models.WalletKey{
				OwnerID: c.MemberID,
				ChamaID: &c.ChamaID,
				Kind:    models.WalletChamaSavings,
			},
			Amount:            c.Amount,
			ExternalReference: &reference,
		}); err != nil {
			return err
		}

		if err := s.contributions.SetStatus(ctx, c.ContributionID, models.ContributionVerified, actorID, notes); err != nil {
			return err
		}
		if err := s.auditTransition(ctx, actorID, c, models.ContributionVerified); err != nil {
			return err
		}

		updated := *c
		updated.Status = models.ContributionVerified
		updated.VerifierID = &actorID
		updated.Notes = notes
		updated.UpdatedAt = time.Now()
		verified = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, models.Event{
		Type:      models.EventContributionVerified,
		Timestamp: time.Now().Unix(),
		ChamaID:   verified.ChamaID.String(),
		SubjectID: verified.MemberID.String(),
		Amount:    verified.Amount.String(),
	})
	return verified, nil
}

// Reject transitions a pending contribution to rejected. Notes are
// required; no ledger effect.
func (s *ContributionService) Reject(ctx context.Context, actorID, contributionID uuid.UUID, notes string) (*models.ContributionDB, error) {
	if notes == "" {
		return nil, fmt.Errorf("%w: rejection requires notes", ErrValidation)
	}

	var rejected *models.ContributionDB

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		c, err := s.contributions.GetForUpdate(ctx, contributionID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: contribution %s", ErrNotFound, contributionID)
		}

		if err := s.authorizeReview(ctx, c.ChamaID, actorID); err != nil {
			return err
		}
		if c.Status != models.ContributionPending {
			return fmt.Errorf("%w: contribution is %s", ErrInvalidStateTransition, c.Status)
		}

		if err := s.contributions.SetStatus(ctx, c.ContributionID, models.ContributionRejected, actorID, notes); err != nil {
			return err
		}
		if err := s.auditTransition(ctx, actorID, c, models.ContributionRejected); err != nil {
			return err
		}

		updated := *c
		updated.Status = models.ContributionRejected
		updated.VerifierID = &actorID
		updated.Notes = notes
		updated.UpdatedAt = time.Now()
		rejected = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, models.Event{
		Type:      models.EventContributionRejected,
		Timestamp: time.Now().Unix(),
		ChamaID:   rejected.ChamaID.String(),
		SubjectID: rejected.MemberID.String(),
		Amount:    rejected.Amount.String(),
	})
	return rejected, nil
}

// List returns contributions in a chama. Treasurers and admins see all;
// everyone else sees only their own.
func (s *ContributionService) List(ctx context.Context, actorID, chamaID uuid.UUID, status *models.ContributionStatus) ([]models.ContributionDB, error) {
	role, err := s.roles.Resolve(ctx, &chamaID, actorID)
	if err != nil {
		return nil, err
	}

	var memberFilter *uuid.UUID
	if !authz.CanPerform(role, authz.ActionViewFinancials) {
		memberFilter = &actorID
	}
	return s.contributions.List(ctx, chamaID, memberFilter, status)
}

func (s *ContributionService) authorizeReview(ctx context.Context, chamaID, actorID uuid.UUID) error {
	role, err := s.roles.Resolve(ctx, &chamaID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanPerform(role, authz.ActionVerifyContribution) {
		return ErrForbidden
	}
	return nil
}

func (s *ContributionService) auditTransition(ctx context.Context, actorID uuid.UUID, c *models.ContributionDB, status models.ContributionStatus) error {
	oldValue, _ := json.Marshal(map[string]string{"status": string(c.Status)})
	newValue, _ := json.Marshal(map[string]string{"status": string(status), "amount": c.Amount.String()})

	return s.audit.Insert(ctx, &models.AuditEntryDB{
		AuditID:  uuid.New(),
		ActorID:  actorID,
		ChamaID:  &c.ChamaID,
		Action:   "contribution." + string(status),
		OldValue: oldValue,
		NewValue: newValue,
	})
}
