package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chamapesa/chama-wallet/internal/models"
	"github.com/chamapesa/chama-wallet/internal/services"
)

func contributionRouter(svc ContributionWorkflow, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Post("/contributions", NewSubmitContributionHandler(svc))
	r.Post("/contributions/{contributionID}/verify", NewVerifyContributionHandler(svc))
	r.Post("/contributions/{contributionID}/reject", NewRejectContributionHandler(svc))
	r.Get("/chamas/{chamaID}/contributions", NewListContributionsHandler(svc))
	return authed(r, userID)
}

func TestSubmitContributionHandler(t *testing.T) {
	memberID := uuid.New()
	chamaID := uuid.New()
	svc := new(mockContributionService)

	c := &models.ContributionDB{
		ContributionID: uuid.New(),
		ChamaID:        chamaID,
		MemberID:       memberID,
		Amount:         decimal.RequireFromString("5000.00"),
		Status:         models.ContributionPending,
	}
	svc.On("Submit", mock.Anything, memberID, mock.MatchedBy(func(req models.SubmitContributionRequest) bool {
		return req.ChamaID == chamaID && req.PaymentMethod == "mpesa"
	})).Return(c, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contributions",
		strings.NewReader(`{"chama_id":"`+chamaID.String()+`","amount":"5000.00","payment_method":"mpesa"}`))

	contributionRouter(svc, memberID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp models.ContributionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, c.ContributionID, resp.Contribution.ContributionID)
	assert.Equal(t, models.ContributionPending, resp.Contribution.Status)
	svc.AssertExpectations(t)
}

func TestVerifyContributionHandler(t *testing.T) {
	actorID := uuid.New()
	contributionID := uuid.New()
	svc := new(mockContributionService)

	c := &models.ContributionDB{ContributionID: contributionID, Status: models.ContributionVerified}
	svc.On("Verify", mock.Anything, actorID, contributionID, "checked statement").Return(c, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contributions/"+contributionID.String()+"/verify",
		strings.NewReader(`{"notes":"checked statement"}`))

	contributionRouter(svc, actorID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestVerifyContributionHandler_NotFound(t *testing.T) {
	actorID := uuid.New()
	contributionID := uuid.New()
	svc := new(mockContributionService)
	svc.On("Verify", mock.Anything, actorID, contributionID, "").
		Return(nil, services.ErrNotFound)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contributions/"+contributionID.String()+"/verify", nil)

	contributionRouter(svc, actorID).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVerifyContributionHandler_AlreadyReviewed(t *testing.T) {
	actorID := uuid.New()
	contributionID := uuid.New()
	svc := new(mockContributionService)
	svc.On("Verify", mock.Anything, actorID, contributionID, "").
		Return(nil, services.ErrInvalidStateTransition)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contributions/"+contributionID.String()+"/verify", nil)

	contributionRouter(svc, actorID).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestVerifyContributionHandler_InvalidID(t *testing.T) {
	svc := new(mockContributionService)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contributions/not-a-uuid/verify", nil)

	contributionRouter(svc, uuid.New()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Verify")
}

func TestRejectContributionHandler_Forbidden(t *testing.T) {
	actorID := uuid.New()
	contributionID := uuid.New()
	svc := new(mockContributionService)
	svc.On("Reject", mock.Anything, actorID, contributionID, "unverifiable").
		Return(nil, services.ErrForbidden)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contributions/"+contributionID.String()+"/reject",
		strings.NewReader(`{"notes":"unverifiable"}`))

	contributionRouter(svc, actorID).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestListContributionsHandler_StatusFilter(t *testing.T) {
	actorID := uuid.New()
	chamaID := uuid.New()
	svc := new(mockContributionService)

	pending := models.ContributionPending
	svc.On("List", mock.Anything, actorID, chamaID, &pending).
		Return([]models.ContributionDB{{ContributionID: uuid.New(), Status: pending}}, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chamas/"+chamaID.String()+"/contributions?status=pending", nil)

	contributionRouter(svc, actorID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ContributionListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Contributions, 1)
	svc.AssertExpectations(t)
}
