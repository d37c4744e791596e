package audit

import (
	"time"

	"agegate/pkg/domain"
)

// Action names a step in the verification lifecycle.
type Action string

const (
	ActionFlowStarted           Action = "flow_started"
	ActionVerificationCompleted Action = "verification_completed"
	ActionVerificationFailed    Action = "verification_failed"
	ActionCartItemsRemoved      Action = "cart_items_removed"
	ActionVerificationCleared   Action = "verification_cleared"
)

// Event is a single audit record. It carries no token material or claim
// values, only identifiers and the outcome.
type Event struct {
	Action       Action              `json:"action"`
	Timestamp    time.Time           `json:"timestamp"`
	CartID       domain.CartID       `json:"cart_id"`
	AuthServerID domain.AuthServerID `json:"authorisation_server_id,omitempty"`
	RequestID    string              `json:"request_id,omitempty"`
	Decision     string              `json:"decision,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	SKUs         []string            `json:"skus,omitempty"`
}
