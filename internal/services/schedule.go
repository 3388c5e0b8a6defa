package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chamapesa/chama-wallet/internal/authz"
	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// ScheduleStore persists the per-chama rotation.
type ScheduleStore interface {
	List(ctx context.Context, chamaID uuid.UUID) ([]models.TurnMemberDB, error)
	ListForUpdate(ctx context.Context, chamaID uuid.UUID) ([]models.TurnMemberDB, error)
	SetLocked(ctx context.Context, chamaID, memberID uuid.UUID, locked bool) error
	LockAll(ctx context.Context, chamaID uuid.UUID) error
}

// ScheduleService advances the merry-go-round rotation. Mutations load
// the chama's rows under FOR UPDATE, so advance and lock-all are
// serialized per chama. At most one member is unlocked at any time.
type ScheduleService struct {
	runner   TxRunner
	schedule ScheduleStore
	roles    RoleResolver
	audit    AuditWriter
	notifier EventPublisher
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(runner TxRunner, schedule ScheduleStore, roles RoleResolver, audit AuditWriter, notifier EventPublisher) *ScheduleService {
	return &ScheduleService{
		runner:   runner,
		schedule: schedule,
		roles:    roles,
		audit:    audit,
		notifier: notifier,
	}
}

func (s *ScheduleService) authorize(ctx context.Context, chamaID, actorID uuid.UUID, action authz.Action) error {
	role, err := s.roles.Resolve(ctx, &chamaID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanPerform(role, action) {
		return ErrForbidden
	}
	return nil
}

// Advance moves the unlocked pointer to the next member in order,
// wrapping. The previous holder is locked, the new holder unlocked.
// Returns the newly unlocked member.
func (s *ScheduleService) Advance(ctx context.Context, actorID, chamaID uuid.UUID) (uuid.UUID, error) {
	if err := s.authorize(ctx, chamaID, actorID, authz.ActionAdvanceTurn); err != nil {
		return uuid.Nil, err
	}

	var next uuid.UUID
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		members, err := s.schedule.ListForUpdate(ctx, chamaID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return fmt.Errorf("%w: chama has no rotation", ErrValidation)
		}

		current := -1
		for i, m := range members {
			if !m.WithdrawalLocked {
				current = i
				break
			}
		}

		// With every member locked the rotation restarts at the front.
		nextIdx := 0
		if current >= 0 {
			nextIdx = (current + 1) % len(members)
			if err := s.schedule.SetLocked(ctx, chamaID, members[current].MemberID, true); err != nil {
				return err
			}
		}
		if err := s.schedule.SetLocked(ctx, chamaID, members[nextIdx].MemberID, false); err != nil {
			return err
		}
		next = members[nextIdx].MemberID

		var previous string
		if current >= 0 {
			previous = members[current].MemberID.String()
		}
		oldValue, _ := json.Marshal(map[string]string{"unlocked": previous})
		newValue, _ := json.Marshal(map[string]string{"unlocked": next.String()})
		return s.audit.Insert(ctx, &models.AuditEntryDB{
			AuditID:  uuid.New(),
			ActorID:  actorID,
			ChamaID:  &chamaID,
			Action:   "schedule.advance",
			OldValue: oldValue,
			NewValue: newValue,
		})
	})
	if err != nil {
		logger.Log.Errorw("failed to advance turn", "chamaID", chamaID, "error", err)
		return uuid.Nil, err
	}

	s.notifier.Publish(ctx, models.Event{
		Type:      models.EventTurnAdvanced,
		Timestamp: time.Now().Unix(),
		ChamaID:   chamaID.String(),
		SubjectID: next.String(),
	})
	return next, nil
}

// LockAll locks every member's withdrawal and clears the unlocked pointer.
func (s *ScheduleService) LockAll(ctx context.Context, actorID, chamaID uuid.UUID) error {
	if err := s.authorize(ctx, chamaID, actorID, authz.ActionLockAllTurns); err != nil {
		return err
	}

	return s.runner.Run(ctx, func(ctx context.Context) error {
		if _, err := s.schedule.ListForUpdate(ctx, chamaID); err != nil {
			return err
		}
		if err := s.schedule.LockAll(ctx, chamaID); err != nil {
			return err
		}

		newValue, _ := json.Marshal(map[string]string{"unlocked": ""})
		return s.audit.Insert(ctx, &models.AuditEntryDB{
			AuditID:  uuid.New(),
			ActorID:  actorID,
			ChamaID:  &chamaID,
			Action:   "schedule.lock_all",
			NewValue: newValue,
		})
	})
}

// Get returns the rotation view for members of the chama.
func (s *ScheduleService) Get(ctx context.Context, actorID, chamaID uuid.UUID) (*models.ScheduleResponse, error) {
	if _, err := s.roles.Resolve(ctx, &chamaID, actorID); err != nil {
		return nil, err
	}

	members, err := s.schedule.List(ctx, chamaID)
	if err != nil {
		return nil, err
	}

	resp := &models.ScheduleResponse{Members: members}
	for _, m := range members {
		if !m.WithdrawalLocked {
			id := m.MemberID
			resp.UnlockedMemberID = &id
			break
		}
	}
	return resp, nil
}
