package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContributionStatus is the lifecycle state of a member contribution.
type ContributionStatus string

// Contribution statuses
const (
	ContributionPending  ContributionStatus = "pending"
	ContributionVerified ContributionStatus = "verified"
	ContributionRejected ContributionStatus = "rejected"
)

// ContributionDB represents a contribution row in the database
type ContributionDB struct {
	ContributionID    uuid.UUID          `json:"contribution_id" db:"contribution_id"`
	ChamaID           uuid.UUID          `json:"chama_id" db:"chama_id"`
	MemberID          uuid.UUID          `json:"member_id" db:"member_id"`
	Amount            decimal.Decimal    `json:"amount" db:"amount"`
	PaymentMethod     string             `json:"payment_method" db:"payment_method"`
	ExternalReference *string            `json:"external_reference,omitempty" db:"external_reference"`
	Status            ContributionStatus `json:"status" db:"status"`
	VerifierID        *uuid.UUID         `json:"verifier_id,omitempty" db:"verifier_id"`
	Notes             string             `json:"notes" db:"notes"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

// SubmitContributionRequest is the JSON body for submitting a contribution
// swagger:model SubmitContributionRequest
type SubmitContributionRequest struct {
	// Chama the contribution belongs to
	// required: true
	ChamaID uuid.UUID `json:"chama_id" validate:"required"`

	// Claimed amount
	// required: true
	// example: 5000.00
	Amount decimal.Decimal `json:"amount" validate:"required"`

	// Payment method used, e.g. mpesa, card, cash
	// required: true
	// example: mpesa
	PaymentMethod string `json:"payment_method" validate:"required"`

	// Gateway or receipt reference, if any
	ExternalReference *string `json:"external_reference,omitempty"`

	// Free-form note from the member
	Notes string `json:"notes"`
}

// ContributionReviewRequest is the JSON body for verifying or rejecting a contribution
// swagger:model ContributionReviewRequest
type ContributionReviewRequest struct {
	// Reviewer notes; required when rejecting
	// example: confirmed against M-PESA statement
	Notes string `json:"notes"`
}

// ContributionResponse wraps a single contribution
// swagger:model ContributionResponse
type ContributionResponse struct {
	Contribution ContributionDB `json:"contribution"`
}

// ContributionListResponse wraps a contribution listing
// swagger:model ContributionListResponse
type ContributionListResponse struct {
	Contributions []ContributionDB `json:"contributions"`
}

// ContributionErrorResponse represents an error response for contribution endpoints
// swagger:model ContributionErrorResponse
type ContributionErrorResponse struct {
	// Error message
	Error string `json:"error"`
}
