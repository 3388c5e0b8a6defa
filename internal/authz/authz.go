// Package authz maps chama roles to the operations they may invoke.
// Every mutating entry point checks the table first and fails closed.
package authz

import "github.com/chamapesa/chama-wallet/internal/models"

// Action names an operation guarded by the capability table.
type Action string

// Guarded actions
const (
	ActionMoveOwnFunds       Action = "move_own_funds"       // top-up, withdraw, send from own wallets
	ActionInitiatePayment    Action = "initiate_payment"     // start a gateway payment into own wallet
	ActionSubmitContribution Action = "submit_contribution"  // claim a deposit into group savings
	ActionVerifyContribution Action = "verify_contribution"  // verify or reject pending contributions
	ActionViewFinancials     Action = "view_financials"      // read group balances and ledgers
	ActionDownloadReports    Action = "download_reports"     // export group statements
	ActionSendAnnouncement   Action = "send_announcement"    // post to the group notice board
	ActionAdvanceTurn        Action = "advance_turn"         // move the merry-go-round pointer
	ActionLockAllTurns       Action = "lock_all_turns"       // lock every member's withdrawal
	ActionAssignRole         Action = "assign_role"          // change a member's role
	ActionReviewPayments     Action = "review_payments"      // list payments flagged for manual reconciliation
)

// capabilities is the static role → action table. Admin is handled in
// CanPerform and may invoke every defined action.
var capabilities = map[models.Role]map[Action]bool{
	models.RoleTreasurer: {
		ActionMoveOwnFunds:       true,
		ActionInitiatePayment:    true,
		ActionSubmitContribution: true,
		ActionVerifyContribution: true,
		ActionViewFinancials:     true,
		ActionDownloadReports:    true,
	},
	models.RoleSecretary: {
		ActionMoveOwnFunds:       true,
		ActionInitiatePayment:    true,
		ActionSubmitContribution: true,
		ActionSendAnnouncement:   true,
	},
	models.RoleMember: {
		ActionMoveOwnFunds:       true,
		ActionInitiatePayment:    true,
		ActionSubmitContribution: true,
	},
}

// defined guards the admin wildcard so unknown actions still fail closed.
var defined = map[Action]bool{
	ActionMoveOwnFunds:       true,
	ActionInitiatePayment:    true,
	ActionSubmitContribution: true,
	ActionVerifyContribution: true,
	ActionViewFinancials:     true,
	ActionDownloadReports:    true,
	ActionSendAnnouncement:   true,
	ActionAdvanceTurn:        true,
	ActionLockAllTurns:       true,
	ActionAssignRole:         true,
	ActionReviewPayments:     true,
}

// CanPerform reports whether a role may invoke an action.
// Unmapped role/action pairs are denied.
func CanPerform(role models.Role, action Action) bool {
	if !defined[action] {
		return false
	}
	if role == models.RoleAdmin {
		return true
	}
	return capabilities[role][action]
}
