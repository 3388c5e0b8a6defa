package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chamapesa/chama-wallet/internal/middlewares"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// TurnScheduler defines the interface that the service must implement.
type TurnScheduler interface {
	Get(ctx context.Context, actorID, chamaID uuid.UUID) (*models.ScheduleResponse, error)
	Advance(ctx context.Context, actorID, chamaID uuid.UUID) (uuid.UUID, error)
	LockAll(ctx context.Context, actorID, chamaID uuid.UUID) error
}

// NewGetScheduleHandler returns an HTTP handler for viewing a chama's rotation.
// @Summary Get merry-go-round schedule
// @Description Returns the chama's rotation order and the member whose turn is unlocked.
// @Tags schedule
// @Produce json
// @Param chamaID path string true "Chama ID"
// @Success 200 {object} models.ScheduleResponse "Rotation"
// @Failure 401 {object} models.ScheduleErrorResponse "Unauthorized"
// @Failure 403 {object} models.ScheduleErrorResponse "Forbidden"
// @Router /chamas/{chamaID}/schedule [get]
// @Security BearerAuth
func NewGetScheduleHandler(svc TurnScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: "Unauthorized"})
			return
		}

		chamaID, err := uuid.Parse(chi.URLParam(r, "chamaID"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: "Invalid chama ID"})
			return
		}

		resp, err := svc.Get(ctx, actorID, chamaID)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}

// AdvanceTurnResponse confirms an advanced rotation
// swagger:model AdvanceTurnResponse
type AdvanceTurnResponse struct {
	// Success message
	// example: Turn advanced
	Message string `json:"message"`

	// Member whose withdrawal is now unlocked
	UnlockedMemberID uuid.UUID `json:"unlocked_member_id"`
}

// NewAdvanceTurnHandler returns an HTTP handler for advancing the rotation.
// @Summary Advance the merry-go-round turn
// @Description Locks the current holder and unlocks the next member in rotation order. Admin only.
// @Tags schedule
// @Produce json
// @Param chamaID path string true "Chama ID"
// @Success 200 {object} handlers.AdvanceTurnResponse "Turn advanced"
// @Failure 401 {object} models.ScheduleErrorResponse "Unauthorized"
// @Failure 403 {object} models.ScheduleErrorResponse "Forbidden"
// @Router /chamas/{chamaID}/schedule/advance [post]
// @Security BearerAuth
func NewAdvanceTurnHandler(svc TurnScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: "Unauthorized"})
			return
		}

		chamaID, err := uuid.Parse(chi.URLParam(r, "chamaID"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: "Invalid chama ID"})
			return
		}

		next, err := svc.Advance(ctx, actorID, chamaID)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(AdvanceTurnResponse{
			Message:          "Turn advanced",
			UnlockedMemberID: next,
		})
	}
}

// LockAllResponse confirms a lock-all
// swagger:model LockAllResponse
type LockAllResponse struct {
	// Success message
	// example: All turns locked
	Message string `json:"message"`
}

// NewLockAllTurnsHandler returns an HTTP handler locking every member's withdrawal.
// @Summary Lock all turns
// @Description Locks withdrawal for every member in the chama's rotation. Admin only.
// @Tags schedule
// @Produce json
// @Param chamaID path string true "Chama ID"
// @Success 200 {object} handlers.LockAllResponse "All turns locked"
// @Failure 401 {object} models.ScheduleErrorResponse "Unauthorized"
// @Failure 403 {object} models.ScheduleErrorResponse "Forbidden"
// @Router /chamas/{chamaID}/schedule/lock-all [post]
// @Security BearerAuth
func NewLockAllTurnsHandler(svc TurnScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: "Unauthorized"})
			return
		}

		chamaID, err := uuid.Parse(chi.URLParam(r, "chamaID"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: "Invalid chama ID"})
			return
		}

		if err := svc.LockAll(ctx, actorID, chamaID); err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.ScheduleErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(LockAllResponse{Message: "All turns locked"})
	}
}
