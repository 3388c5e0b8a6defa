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

// PaymentProcessor defines the interface that the service must implement.
type PaymentProcessor interface {
	Initiate(ctx context.Context, actorID uuid.UUID, req models.InitiatePaymentRequest) (string, error)
	HandleWebhook(ctx context.Context, req models.WebhookRequest) error
	Status(ctx context.Context, reference string) (*models.PaymentStatusResponse, error)
	Review(ctx context.Context, actorID, chamaID uuid.UUID) ([]models.LedgerEntryDB, error)
}

// NewInitiatePaymentHandler returns an HTTP handler for starting a gateway payment.
// @Summary Initiate a payment
// @Description Starts a mobile money or card payment into one of the caller's wallets. The wallet is credited only after the gateway confirms.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body models.InitiatePaymentRequest true "Payment Request"
// @Success 202 {object} models.InitiatePaymentResponse "Payment initiated, confirmation pending"
// @Failure 400 {object} models.PaymentErrorResponse "Invalid request"
// @Failure 401 {object} models.PaymentErrorResponse "Unauthorized"
// @Failure 502 {object} models.PaymentErrorResponse "Gateway rejected the payment"
// @Failure 504 {object} models.PaymentErrorResponse "Gateway unreachable"
// @Router /payments/initiate [post]
// @Security BearerAuth
func NewInitiatePaymentHandler(svc PaymentProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: "Unauthorized"})
			return
		}

		var req models.InitiatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode payment request", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: "Invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: "Invalid request"})
			return
		}

		reference, err := svc.Initiate(ctx, actorID, req)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(models.InitiatePaymentResponse{
			ExternalReference: reference,
			Message:           "Payment initiated, confirmation pending",
		})
	}
}

// NewPaymentWebhookHandler returns an HTTP handler for gateway confirmation callbacks.
// @Summary Payment gateway webhook
// @Description Applies an asynchronous gateway confirmation. Duplicate deliveries are acknowledged without double-crediting.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body models.WebhookRequest true "Gateway callback"
// @Success 200 {object} models.PaymentErrorResponse "Acknowledged"
// @Failure 400 {object} models.PaymentErrorResponse "Invalid payload"
// @Failure 401 {object} models.PaymentErrorResponse "Unauthorized"
// @Failure 404 {object} models.PaymentErrorResponse "Unknown reference"
// @Router /payments/webhook [post]
func NewPaymentWebhookHandler(svc PaymentProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.WebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode webhook payload", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: "Invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: "Invalid payload"})
			return
		}

		if err := svc.HandleWebhook(ctx, req); err != nil {
			logger.Log.Errorw("webhook handling failed", "reference", req.ExternalReference, "error", err)
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	}
}

// NewPaymentStatusHandler returns an HTTP handler for polling a payment's state.
// @Summary Get payment status
// @Description Reports the ledger state of an initiated payment by its gateway reference.
// @Tags payments
// @Produce json
// @Param reference path string true "Gateway reference"
// @Success 200 {object} models.PaymentStatusResponse "Payment status"
// @Failure 401 {object} models.PaymentErrorResponse "Unauthorized"
// @Failure 404 {object} models.PaymentErrorResponse "Unknown reference"
// @Router /payments/{reference} [get]
// @Security BearerAuth
func NewPaymentStatusHandler(svc PaymentProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if _, ok := middlewares.UserIDFromContext(ctx); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: "Unauthorized"})
			return
		}

		reference := chi.URLParam(r, "reference")
		resp, err := svc.Status(ctx, reference)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}

// NewPaymentReviewHandler returns an HTTP handler listing payments flagged for manual reconciliation.
// @Summary List payments needing review
// @Description Lists gateway payments that could not be verified automatically. Admin only.
// @Tags payments
// @Produce json
// @Param chamaID path string true "Chama ID"
// @Success 200 {object} models.PaymentReviewResponse "Flagged payments"
// @Failure 401 {object} models.PaymentErrorResponse "Unauthorized"
// @Failure 403 {object} models.PaymentErrorResponse "Forbidden"
// @Router /chamas/{chamaID}/payments/review [get]
// @Security BearerAuth
func NewPaymentReviewHandler(svc PaymentProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, ok := middlewares.UserIDFromContext(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: "Unauthorized"})
			return
		}

		chamaID, err := uuid.Parse(chi.URLParam(r, "chamaID"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: "Invalid chama ID"})
			return
		}

		entries, err := svc.Review(ctx, actorID, chamaID)
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(models.PaymentErrorResponse{Error: messageFor(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(models.PaymentReviewResponse{Entries: entries})
	}
}
