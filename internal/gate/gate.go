// Package gate decides whether restricted SKUs may stay in a cart.
//
// The gate has two modes with different security postures.
// ModeBlockIfUnverified reports offending SKUs and never touches the cart;
// it is the only mode that honours an out-of-band bypass code.
// ModeFilterRestricted deletes offending lines from the cart and never
// accepts a bypass code.
package gate

//go:generate mockgen -source=gate.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agegate/internal/audit"
	"agegate/internal/cart"
	"agegate/internal/restriction"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/requestcontext"
)

type Mode string

const (
	ModeBlockIfUnverified Mode = "blockIfUnverified"
	ModeFilterRestricted  Mode = "filterRestricted"
)

func (m Mode) valid() bool {
	return m == ModeBlockIfUnverified || m == ModeFilterRestricted
}

// SkipReason says why a check short-circuited.
type SkipReason string

const (
	SkipVerified   SkipReason = "verified"
	SkipBypassCode SkipReason = "bypass_code"
)

// Verifier reports whether a cart holds an unexpired verification.
type Verifier interface {
	IsVerified(ctx context.Context, cartID domain.CartID) (bool, error)
}

// Catalog is the restricted SKU set plus its lazy loader.
type Catalog interface {
	restriction.Set
	EnsureLoaded(ctx context.Context) error
	Size() int
}

// CartClient reads and mutates the live cart.
type CartClient interface {
	GetItems(ctx context.Context, cartID domain.CartID) ([]cart.LineItem, error)
	DeleteItem(ctx context.Context, cartID domain.CartID, itemID string) error
}

// Bypass judges an out-of-band bypass code.
type Bypass interface {
	Allow(code string) bool
}

// Result is the outcome of one CheckCart call.
type Result struct {
	Skipped        bool
	Reason         SkipReason
	RestrictedSKUs []domain.SKU
	RemovedItems   []cart.LineItem
	// FailedItems are offending lines whose deletion failed. They are still
	// in the cart.
	FailedItems []cart.LineItem
}

type Gate struct {
	verifier Verifier
	catalog  Catalog
	carts    CartClient
	bypass   Bypass
	audit    *audit.Publisher
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Gate)

// WithBypass enables bypass codes for ModeBlockIfUnverified. Without it
// every code is rejected.
func WithBypass(b Bypass) Option {
	return func(g *Gate) {
		g.bypass = b
	}
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(g *Gate) {
		g.audit = p
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func New(verifier Verifier, catalog Catalog, carts CartClient, opts ...Option) *Gate {
	g := &Gate{
		verifier: verifier,
		catalog:  catalog,
		carts:    carts,
		logger:   slog.Default(),
		tracer:   otel.Tracer("agegate/internal/gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckCart gates one cart. Verified carts, and carts presenting an accepted
// bypass code in ModeBlockIfUnverified, are skipped without any upstream
// call. Otherwise the live cart is intersected with the restricted set.
func (g *Gate) CheckCart(ctx context.Context, cartID domain.CartID, mode Mode, bypassCode string) (res *Result, err error) {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "gate.CheckCart", trace.WithAttributes(
		attribute.String("cart.id", string(cartID)),
		attribute.String("gate.mode", string(mode)),
	))
	defer func() {
		g.metrics.ObserveCheck(mode, outcomeOf(res, err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !mode.valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown gate mode")
	}

	if g.isVerified(ctx, cartID) {
		return &Result{Skipped: true, Reason: SkipVerified}, nil
	}
	if bypassCode != "" && g.acceptBypass(ctx, cartID, mode, bypassCode) {
		return &Result{Skipped: true, Reason: SkipBypassCode}, nil
	}

	if err := g.catalog.EnsureLoaded(ctx); err != nil {
		if g.catalog.Size() == 0 {
			return nil, err
		}
		g.logger.WarnContext(ctx, "catalog refresh failed, using cached restricted set",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}

	items, err := g.carts.GetItems(ctx, cartID)
	if err != nil {
		return nil, err
	}

	eval := restriction.Evaluate(items, g.catalog)
	res = &Result{RestrictedSKUs: eval.SKUs}
	span.SetAttributes(attribute.Int("gate.restricted_lines", len(eval.Items)))
	if eval.Empty() || mode == ModeBlockIfUnverified {
		return res, nil
	}

	g.removeItems(ctx, cartID, eval.Items, res)
	return res, nil
}

// isVerified fails closed: a store error is logged and the cart is gated.
func (g *Gate) isVerified(ctx context.Context, cartID domain.CartID) bool {
	verified, err := g.verifier.IsVerified(ctx, cartID)
	if err != nil {
		g.logger.ErrorContext(ctx, "verification lookup failed, gating cart",
			"request_id", requestcontext.RequestID(ctx),
			"cart_id", cartID,
			"error", err,
		)
		return false
	}
	return verified
}

func (g *Gate) acceptBypass(ctx context.Context, cartID domain.CartID, mode Mode, code string) bool {
	if mode != ModeBlockIfUnverified {
		g.logger.WarnContext(ctx, "bypass code ignored for filtering gate",
			"request_id", requestcontext.RequestID(ctx),
			"cart_id", cartID,
		)
		return false
	}
	if g.bypass == nil || !g.bypass.Allow(code) {
		g.logger.WarnContext(ctx, "bypass code rejected",
			"request_id", requestcontext.RequestID(ctx),
			"cart_id", cartID,
		)
		return false
	}
	g.logger.InfoContext(ctx, "cart gate bypassed",
		"request_id", requestcontext.RequestID(ctx),
		"cart_id", cartID,
	)
	return true
}

// removeItems deletes each offending line. A failed deletion is recorded
// and the remaining lines are still attempted.
func (g *Gate) removeItems(ctx context.Context, cartID domain.CartID, items []cart.LineItem, res *Result) {
	for _, item := range items {
		if err := g.carts.DeleteItem(ctx, cartID, item.ID); err != nil {
			g.logger.WarnContext(ctx, "failed to remove restricted item",
				"request_id", requestcontext.RequestID(ctx),
				"cart_id", cartID,
				"item_id", item.ID,
				"sku", item.NormalizedSKU(),
				"error", err,
			)
			res.FailedItems = append(res.FailedItems, item)
			continue
		}
		res.RemovedItems = append(res.RemovedItems, item)
	}
	g.metrics.AddRemoved(len(res.RemovedItems), len(res.FailedItems))

	if len(res.RemovedItems) == 0 {
		return
	}
	skus := make([]string, 0, len(res.RemovedItems))
	for _, item := range res.RemovedItems {
		skus = append(skus, item.NormalizedSKU().String())
	}
	g.audit.Emit(ctx, audit.Event{
		Action:   audit.ActionCartItemsRemoved,
		CartID:   cartID,
		Decision: "removed",
		SKUs:     skus,
	})
}

func outcomeOf(res *Result, err error) string {
	switch {
	case err != nil:
		return string(dErrors.CodeOf(err))
	case res.Skipped:
		return "skipped_" + string(res.Reason)
	case len(res.RestrictedSKUs) == 0:
		return "clean"
	default:
		return "restricted"
	}
}
