package models

// Notification event types published for the external notifier.
const (
	EventContributionVerified = "contribution.verified"
	EventContributionRejected = "contribution.rejected"
	EventPaymentCredited      = "payment.credited"
	EventPaymentFailed        = "payment.failed"
	EventTurnAdvanced         = "turn.advanced"
	EventRoleAssigned         = "role.assigned"
)

// Event is a notification published to the event topic. The external
// notifier formats and delivers user-facing messages; this service only
// states what happened.
type Event struct {
	EventID   string `json:"event_id"`   // Unique identifier for the event
	Type      string `json:"type"`       // One of the Event* constants
	Timestamp int64  `json:"timestamp"`  // Unix timestamp (in seconds) when the event occurred
	ChamaID   string `json:"chama_id"`   // Chama the event concerns, empty when not chama-scoped
	SubjectID string `json:"subject_id"` // Member or entity the event concerns
	Amount    string `json:"amount"`     // Monetary amount as a decimal string, empty when not monetary
	Reference string `json:"reference"`  // External reference, empty when none
}
