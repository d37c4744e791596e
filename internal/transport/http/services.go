package httptransport

//go:generate mockgen -source=services.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"agegate/internal/audit"
	"agegate/internal/diagnostics"
	"agegate/internal/flow"
	"agegate/internal/gate"
	"agegate/internal/oidc"
	"agegate/internal/verification/models"
	"agegate/pkg/domain"
)

// FlowService runs the bank verification round trip.
type FlowService interface {
	Begin(ctx context.Context, cartID domain.CartID, bankID domain.AuthServerID, claims []string, purpose string) (*flow.Started, error)
	Complete(ctx context.Context, cartID domain.CartID, cb oidc.CallbackParams, presented models.PresentedSecrets) (*flow.Completion, error)
	Reset(ctx context.Context, cartID domain.CartID) error
}

// StatusReader reports where a cart sits in the verification flow.
type StatusReader interface {
	Status(ctx context.Context, cartID domain.CartID) (models.FlowState, *models.VerificationResult, error)
}

// CartGate checks a cart for restricted items.
type CartGate interface {
	CheckCart(ctx context.Context, cartID domain.CartID, mode gate.Mode, bypassCode string) (*gate.Result, error)
}

// CatalogRefresher reloads the restricted SKU set on demand.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
	Size() int
	Loaded() (bool, time.Time)
}

// DiagnosticsSource runs the token diagnostics checks.
type DiagnosticsSource interface {
	Checks(now time.Time) []diagnostics.Check
}

// AuditReader lists recently emitted audit events, oldest first.
type AuditReader interface {
	Recent(n int) []audit.Event
}
