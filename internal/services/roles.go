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
	"github.com/chamapesa/chama-wallet/internal/repositories"
)

// ErrForbidden is returned when the actor's role does not allow the action.
var ErrForbidden = errors.New("forbidden")

// RoleReader looks up a member's role in a chama.
type RoleReader interface {
	GetRole(ctx context.Context, chamaID, memberID uuid.UUID) (models.Role, error)
}

// RoleWriter mutates role assignments, returning the previous role.
type RoleWriter interface {
	SetRole(ctx context.Context, chamaID, memberID uuid.UUID, role models.Role) (models.Role, error)
}

// RoleCache caches role assignments.
type RoleCache interface {
	GetRole(ctx context.Context, chamaID, memberID uuid.UUID) (models.Role, error)
	SetRole(ctx context.Context, chamaID, memberID uuid.UUID, role models.Role) error
	Invalidate(ctx context.Context, chamaID, memberID uuid.UUID) error
}

// ScheduleAppender adds a member to a chama's rotation.
type ScheduleAppender interface {
	Append(ctx context.Context, chamaID, memberID uuid.UUID) error
}

// RoleResolver resolves the role an actor holds for an operation's scope.
type RoleResolver interface {
	Resolve(ctx context.Context, chamaID *uuid.UUID, memberID uuid.UUID) (models.Role, error)
}

// RoleService resolves roles with a cache-aside over the role store and
// lets admins assign roles.
type RoleService struct {
	runner    TxRunner
	readRepo  RoleReader
	writeRepo RoleWriter
	cacheRepo RoleCache
	schedule  ScheduleAppender
	audit     AuditWriter
	notifier  EventPublisher
}

// NewRoleService creates a new RoleService.
func NewRoleService(runner TxRunner, readRepo RoleReader, writeRepo RoleWriter, cacheRepo RoleCache, schedule ScheduleAppender, audit AuditWriter, notifier EventPublisher) *RoleService {
	return &RoleService{
		runner:    runner,
		readRepo:  readRepo,
		writeRepo: writeRepo,
		cacheRepo: cacheRepo,
		schedule:  schedule,
		audit:     audit,
		notifier:  notifier,
	}
}

// Resolve returns the member's role for the given scope. Operations on a
// user's own chama-independent wallets carry no chama and resolve to the
// member role. A member with no assignment in the chama is Forbidden.
func (s *RoleService) Resolve(ctx context.Context, chamaID *uuid.UUID, memberID uuid.UUID) (models.Role, error) {
	if chamaID == nil {
		return models.RoleMember, nil
	}

	if s.cacheRepo != nil {
		if role, err := s.cacheRepo.GetRole(ctx, *chamaID, memberID); err == nil {
			return role, nil
		}
	}

	role, err := s.readRepo.GetRole(ctx, *chamaID, memberID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoleNotFound) {
			return "", ErrForbidden
		}
		logger.Log.Errorw("failed to resolve role", "chamaID", chamaID, "memberID", memberID, "error", err)
		return "", err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetRole(ctx, *chamaID, memberID, role); err != nil {
			logger.Log.Errorw("failed to cache role", "chamaID", chamaID, "memberID", memberID, "error", err)
		}
	}

	return role, nil
}

// Assign sets a member's role in a chama. Admin only. New members are
// appended to the chama's merry-go-round rotation, locked.
func (s *RoleService) Assign(ctx context.Context, actorID, chamaID, memberID uuid.UUID, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	actorRole, err := s.Resolve(ctx, &chamaID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanPerform(actorRole, authz.ActionAssignRole) {
		return ErrForbidden
	}

	var previous models.Role
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		previous, err = s.writeRepo.SetRole(ctx, chamaID, memberID, role)
		if err != nil {
			return err
		}
		if previous == "" {
			if err := s.schedule.Append(ctx, chamaID, memberID); err != nil {
				return err
			}
		}

		oldValue, _ := json.Marshal(map[string]string{"role": string(previous)})
		newValue, _ := json.Marshal(map[string]string{"role": string(role)})
		return s.audit.Insert(ctx, &models.AuditEntryDB{
			AuditID:  uuid.New(),
			ActorID:  actorID,
			ChamaID:  &chamaID,
			Action:   "role.assign",
			OldValue: oldValue,
			NewValue: newValue,
		})
	})
	if err != nil {
		return err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.Invalidate(ctx, chamaID, memberID); err != nil {
			logger.Log.Errorw("failed to invalidate role cache", "chamaID", chamaID, "memberID", memberID, "error", err)
		}
	}

	s.notifier.Publish(ctx, models.Event{
		Type:      models.EventRoleAssigned,
		Timestamp: time.Now().Unix(),
		ChamaID:   chamaID.String(),
		SubjectID: memberID.String(),
	})
	return nil
}
