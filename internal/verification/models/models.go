package models

import (
	"time"

	"agegate/pkg/domain"
)

// PendingAuthorization is the in-flight half of a PAR flow for one cart. At
// most one exists per cart; a new flow for the same cart replaces it.
type PendingAuthorization struct {
	CartID                domain.CartID       `json:"cart_id"`
	AuthorisationServerID domain.AuthServerID `json:"authorisation_server_id"`
	State                 string              `json:"state"`
	Nonce                 string              `json:"nonce"`
	CodeVerifier          string              `json:"code_verifier"`
	CreatedAt             time.Time           `json:"created_at"`
	ExpiresAt             time.Time           `json:"expires_at"`
}

// IsExpired reports whether the pending flow can no longer be completed.
func (p *PendingAuthorization) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// VerificationResult proves a cart's shopper met the age requirement.
// Invariant: ExpiresAt > VerifiedAt. An expired result is absent, not negative.
type VerificationResult struct {
	CartID       domain.CartID       `json:"cart_id"`
	AuthServerID domain.AuthServerID `json:"authorisation_server_id"`
	VerifiedAt   time.Time           `json:"verified_at"`
	ExpiresAt    time.Time           `json:"expires_at"`
	SessionToken string              `json:"session_token"`
}

// IsExpired reports whether the result no longer counts as verification.
func (v *VerificationResult) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// FlowSecrets are the per-flow values the browser must present back on the
// callback. Empty fields are generated by the store.
type FlowSecrets struct {
	State        string
	Nonce        string
	CodeVerifier string
}

// PresentedSecrets are the values the callback request carried.
type PresentedSecrets struct {
	AuthorisationServerID domain.AuthServerID
	State                 string
	Nonce                 string
	CodeVerifier          string
}

// AuthResult is the relevant outcome of a token exchange: whether the age
// claim was satisfied, plus the raw claims for the response body.
type AuthResult struct {
	AgeSatisfied bool
	Claims       map[string]any
}

// FlowState is the per-cart position in the verification state machine.
type FlowState string

const (
	FlowStateNone     FlowState = "none"
	FlowStatePending  FlowState = "pending"
	FlowStateVerified FlowState = "verified"
)
