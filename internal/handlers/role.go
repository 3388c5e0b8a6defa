package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/middlewares"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// RoleAssigner defines the interface that the service must implement.
type RoleAssigner interface {
	Assign(ctx context.Context, actorID, chamaID, memberID uuid.UUID, role models.Role) error
}

// NewAssignRoleHandler returns an HTTP handler for assigning a member's role.
// @Summary Assign a role
// @Description Sets a member's role in the chama. New members join the merry-go-round rotation locked. Admin only.
// @Tags roles
// @Accept json
// @Produce json
// @Param chamaID path string true "Chama ID"
// @Param request body models.AssignRoleRequest true "Role assignment"
// @Success 200 {object} models.AssignRoleResponse "Role assigned"
// @Failure 400 {object} models.RoleErrorResponse "Invalid request"
// @Failure 401 {object} models.RoleErrorResponse "Unauthorized"
// @Failure 403 {object} models.RoleErrorResponse "Forbidden"
// @Router /chamas/{chamaID}/roles [post]
// @Security BearerAuth
func NewAssignRoleHandler(svc RoleAssigner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.RoleErrorResponse{Error: "Unauthorized"})
			return
		}

		chamaID, err := uuid.Parse(chi.URLParam(r, "chamaID"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.RoleErrorResponse{Error: "Invalid chama ID"})
			return
		}

		var req models.AssignRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode role request", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.RoleErrorResponse{Error: "Invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.RoleErrorResponse{Error: "Invalid request"})
			return
		}

		if err := svc.Assign(ctx, actorID, chamaID, req.MemberID, req.Role); err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.RoleErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.AssignRoleResponse{Message: "Role assigned"})
	}
}
