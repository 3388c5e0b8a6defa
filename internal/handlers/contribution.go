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

// ContributionWorkflow defines the interface that the service must implement.
type ContributionWorkflow interface {
	Submit(ctx context.Context, memberID uuid.UUID, req models.SubmitContributionRequest) (*models.ContributionDB, error)
	Verify(ctx context.Context, actorID, contributionID uuid.UUID, notes string) (*models.ContributionDB, error)
	Reject(ctx context.Context, actorID, contributionID uuid.UUID, notes string) (*models.ContributionDB, error)
	List(ctx context.Context, actorID, chamaID uuid.UUID, status *models.ContributionStatus) ([]models.ContributionDB, error)
}

// NewSubmitContributionHandler returns an HTTP handler for submitting a contribution claim.
// @Summary Submit a contribution
// @Description Records the caller's claimed deposit as a pending contribution awaiting verification.
// @Tags contributions
// @Accept json
// @Produce json
// @Param request body models.SubmitContributionRequest true "Contribution"
// @Success 201 {object} models.ContributionResponse "Contribution submitted"
// @Failure 400 {object} models.ContributionErrorResponse "Invalid request"
// @Failure 401 {object} models.ContributionErrorResponse "Unauthorized"
// @Failure 403 {object} models.ContributionErrorResponse "Forbidden"
// @Router /contributions [post]
// @Security BearerAuth
func NewSubmitContributionHandler(svc ContributionWorkflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: "Unauthorized"})
			return
		}

		var req models.SubmitContributionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode contribution request", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: "Invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: "Invalid request"})
			return
		}

		c, err := svc.Submit(ctx, actorID, req)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.ContributionResponse{Contribution: *c})
	}
}

// NewListContributionsHandler returns an HTTP handler listing a chama's contributions.
// @Summary List contributions
// @Description Lists contributions in a chama. Treasurers and admins see all members' contributions, everyone else sees their own.
// @Tags contributions
// @Produce json
// @Param chamaID path string true "Chama ID"
// @Param status query string false "Filter by status: pending, verified or rejected"
// @Success 200 {object} models.ContributionListResponse "Contributions"
// @Failure 400 {object} models.ContributionErrorResponse "Invalid chama ID"
// @Failure 401 {object} models.ContributionErrorResponse "Unauthorized"
// @Failure 403 {object} models.ContributionErrorResponse "Forbidden"
// @Router /chamas/{chamaID}/contributions [get]
// @Security BearerAuth
func NewListContributionsHandler(svc ContributionWorkflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: "Unauthorized"})
			return
		}

		chamaID, err := uuid.Parse(chi.URLParam(r, "chamaID"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: "Invalid chama ID"})
			return
		}

		var status *models.ContributionStatus
		if s := r.URL.Query().Get("status"); s != "" {
			cs := models.ContributionStatus(s)
			status = &cs
		}

		contributions, err := svc.List(ctx, actorID, chamaID, status)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.ContributionListResponse{Contributions: contributions})
	}
}

// NewVerifyContributionHandler returns an HTTP handler for verifying a contribution.
// @Summary Verify a contribution
// @Description Marks a pending contribution verified and credits the member's chama savings wallet in the same transaction.
// @Tags contributions
// @Accept json
// @Produce json
// @Param contributionID path string true "Contribution ID"
// @Param request body models.ContributionReviewRequest false "Reviewer notes"
// @Success 200 {object} models.ContributionResponse "Contribution verified"
// @Failure 401 {object} models.ContributionErrorResponse "Unauthorized"
// @Failure 403 {object} models.ContributionErrorResponse "Forbidden"
// @Failure 404 {object} models.ContributionErrorResponse "Contribution not found"
// @Failure 409 {object} models.ContributionErrorResponse "Contribution already reviewed"
// @Router /contributions/{contributionID}/verify [post]
// @Security BearerAuth
func NewVerifyContributionHandler(svc ContributionWorkflow) http.HandlerFunc {
	return reviewHandler(svc.Verify)
}

// NewRejectContributionHandler returns an HTTP handler for rejecting a contribution.
// @Summary Reject a contribution
// @Description Marks a pending contribution rejected. Notes are required; no wallet is credited.
// @Tags contributions
// @Accept json
// @Produce json
// @Param contributionID path string true "Contribution ID"
// @Param request body models.ContributionReviewRequest true "Reviewer notes"
// @Success 200 {object} models.ContributionResponse "Contribution rejected"
// @Failure 400 {object} models.ContributionErrorResponse "Notes required"
// @Failure 401 {object} models.ContributionErrorResponse "Unauthorized"
// @Failure 403 {object} models.ContributionErrorResponse "Forbidden"
// @Failure 404 {object} models.ContributionErrorResponse "Contribution not found"
// @Failure 409 {object} models.ContributionErrorResponse "Contribution already reviewed"
// @Router /contributions/{contributionID}/reject [post]
// @Security BearerAuth
func NewRejectContributionHandler(svc ContributionWorkflow) http.HandlerFunc {
	return reviewHandler(svc.Reject)
}

func reviewHandler(review func(ctx context.Context, actorID, contributionID uuid.UUID, notes string) (*models.ContributionDB, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: "Unauthorized"})
			return
		}

		contributionID, err := uuid.Parse(chi.URLParam(r, "contributionID"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: "Invalid contribution ID"})
			return
		}

		// Body is optional for verify, required notes are enforced by the service.
		var req models.ContributionReviewRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		c, err := review(ctx, actorID, contributionID, req.Notes)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.ContributionErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.ContributionResponse{Contribution: *c})
	}
}
