// Package flow drives the bank verification round trip for a cart:
// Begin pushes the authorisation request and records the pending flow,
// Complete exchanges the callback code and settles the flow.
//
// Per cart the states are none -> pending -> verified, or
// none -> pending -> failed -> none. Nothing is retried server-side; the
// shopper restarts by choosing a bank again.
package flow

//go:generate mockgen -source=flow.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agegate/internal/audit"
	"agegate/internal/oidc"
	"agegate/internal/platform/upstream"
	"agegate/internal/verification/models"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/requestcontext"
)

const defaultAgeClaim = "over18"

// ErrAbandoned is matched by Complete errors after which the cart has no
// pending flow left. The wrapped domain error still carries the code.
var ErrAbandoned = errors.New("pending flow abandoned")

type abandonedError struct{ err error }

func (e *abandonedError) Error() string   { return e.err.Error() }
func (e *abandonedError) Unwrap() []error { return []error{e.err, ErrAbandoned} }

// Authorizer is the external OIDC relying party.
type Authorizer interface {
	StartAuthorization(ctx context.Context, bankID domain.AuthServerID, claims []string, purpose string) (*oidc.Authorization, error)
	CompleteAuthorization(ctx context.Context, bankID domain.AuthServerID, cb oidc.CallbackParams, codeVerifier, state, nonce string) (*oidc.TokenSet, error)
}

// Sessions is the per-cart verification store.
type Sessions interface {
	BeginFlow(ctx context.Context, cartID domain.CartID, bankID domain.AuthServerID, secrets models.FlowSecrets) (*models.PendingAuthorization, error)
	CheckPending(ctx context.Context, cartID domain.CartID, presented models.PresentedSecrets) (*models.PendingAuthorization, error)
	CompleteFlow(ctx context.Context, cartID domain.CartID, presented models.PresentedSecrets, result models.AuthResult) (*models.VerificationResult, error)
	AbandonFlow(ctx context.Context, cartID domain.CartID) error
	Clear(ctx context.Context, cartID domain.CartID) error
}

// TokenRecorder keeps the latest token set for diagnostics.
type TokenRecorder interface {
	Record(ctx context.Context, set *oidc.TokenSet, nonce string)
}

// Started is the outcome of Begin.
type Started struct {
	AuthURL string
	Pending *models.PendingAuthorization
}

// Completion is the outcome of a successful Complete.
type Completion struct {
	Claims      map[string]any
	IDToken     string
	AccessToken string
	UserInfo    map[string]any
	Result      *models.VerificationResult
}

type Controller struct {
	auth     Authorizer
	sessions Sessions
	recorder TokenRecorder
	audit    *audit.Publisher
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	ageClaim string
}

type Option func(*Controller)

func WithTokenRecorder(r TokenRecorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(c *Controller) {
		c.audit = p
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithAgeClaim names the boolean claim that proves the age requirement.
func WithAgeClaim(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.ageClaim = name
		}
	}
}

func New(auth Authorizer, sessions Sessions, opts ...Option) *Controller {
	c := &Controller{
		auth:     auth,
		sessions: sessions,
		logger:   slog.Default(),
		tracer:   otel.Tracer("agegate/internal/flow"),
		ageClaim: defaultAgeClaim,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin starts a flow for cartID at bankID and returns the URL to redirect
// the shopper to. Any earlier pending flow for the cart is replaced.
func (c *Controller) Begin(ctx context.Context, cartID domain.CartID, bankID domain.AuthServerID, claims []string, purpose string) (started *Started, err error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "flow.Begin", cartID, bankID)
	defer func() { c.endSpan(span, "begin", start, err) }()

	authz, err := c.auth.StartAuthorization(ctx, bankID, claims, purpose)
	if err != nil {
		c.logger.WarnContext(ctx, "authorisation request failed",
			"request_id", requestcontext.RequestID(ctx),
			"cart_id", cartID,
			"authorisation_server_id", bankID,
			"error", err,
		)
		return nil, upstream.ToDomain(err, dErrors.CodeUpstreamUnavailable, "authorisation server unavailable")
	}

	pending, err := c.sessions.BeginFlow(ctx, cartID, bankID, models.FlowSecrets{
		State:        authz.State,
		Nonce:        authz.Nonce,
		CodeVerifier: authz.CodeVerifier,
	})
	if err != nil {
		return nil, err
	}

	c.audit.Emit(ctx, audit.Event{
		Action:       audit.ActionFlowStarted,
		CartID:       cartID,
		AuthServerID: bankID,
	})
	return &Started{AuthURL: authz.AuthURL, Pending: pending}, nil
}

// Complete settles the cart's pending flow with the bank callback. An empty
// cartID counts as a missing session cookie. The presented secrets must match
// the pending flow before the bank is called.
// Once they match, any failure abandons the flow so the shopper can retry.
func (c *Controller) Complete(ctx context.Context, cartID domain.CartID, cb oidc.CallbackParams, presented models.PresentedSecrets) (done *Completion, err error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "flow.Complete", cartID, presented.AuthorisationServerID)
	defer func() { c.endSpan(span, "complete", start, err) }()

	if strings.TrimSpace(cb.Code) == "" {
		e := dErrors.New(dErrors.CodeMissingAuthorizationCode, "authorization code is required")
		if cb.Error != "" {
			e = e.WithDetail("authorisation_error", cb.Error)
		}
		return nil, e
	}
	if cartID == "" || presented.AuthorisationServerID == "" || presented.State == "" ||
		presented.Nonce == "" || presented.CodeVerifier == "" {
		return nil, dErrors.New(dErrors.CodeMissingSessionCookies, "session cookies are missing or expired")
	}

	if _, err := c.sessions.CheckPending(ctx, cartID, presented); err != nil {
		return nil, err
	}

	set, err := c.auth.CompleteAuthorization(ctx, presented.AuthorisationServerID, cb,
		presented.CodeVerifier, presented.State, presented.Nonce)
	if err != nil {
		c.fail(ctx, cartID, presented.AuthorisationServerID, "token exchange failed", err)
		return nil, &abandonedError{err: upstream.ToDomain(err, dErrors.CodeUpstreamUnavailable, "token retrieval failed")}
	}
	if c.recorder != nil {
		c.recorder.Record(ctx, set, presented.Nonce)
	}

	result, err := c.sessions.CompleteFlow(ctx, cartID, presented, models.AuthResult{
		AgeSatisfied: ageSatisfied(set, c.ageClaim),
		Claims:       set.Claims,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAgeRequirementNotMet) {
			c.audit.Emit(ctx, audit.Event{
				Action:       audit.ActionVerificationFailed,
				CartID:       cartID,
				AuthServerID: presented.AuthorisationServerID,
				Decision:     "denied",
				Reason:       "age requirement not met",
			})
		}
		return nil, err
	}

	c.audit.Emit(ctx, audit.Event{
		Action:       audit.ActionVerificationCompleted,
		CartID:       cartID,
		AuthServerID: result.AuthServerID,
		Decision:     "verified",
	})
	return &Completion{
		Claims:      set.Claims,
		IDToken:     set.IDToken,
		AccessToken: set.AccessToken,
		UserInfo:    set.UserInfo,
		Result:      result,
	}, nil
}

// Reset drops all verification state for cartID.
func (c *Controller) Reset(ctx context.Context, cartID domain.CartID) error {
	if err := c.sessions.Clear(ctx, cartID); err != nil {
		return err
	}
	c.audit.Emit(ctx, audit.Event{Action: audit.ActionVerificationCleared, CartID: cartID})
	return nil
}

// fail abandons the pending flow after a terminal error.
func (c *Controller) fail(ctx context.Context, cartID domain.CartID, bankID domain.AuthServerID, reason string, cause error) {
	c.logger.WarnContext(ctx, reason,
		"request_id", requestcontext.RequestID(ctx),
		"cart_id", cartID,
		"authorisation_server_id", bankID,
		"error", cause,
	)
	if err := c.sessions.AbandonFlow(ctx, cartID); err != nil {
		c.logger.ErrorContext(ctx, "failed to abandon pending flow",
			"request_id", requestcontext.RequestID(ctx),
			"cart_id", cartID,
			"error", err,
		)
	}
	c.audit.Emit(ctx, audit.Event{
		Action:       audit.ActionVerificationFailed,
		CartID:       cartID,
		AuthServerID: bankID,
		Decision:     "failed",
		Reason:       reason,
	})
}

func (c *Controller) startSpan(ctx context.Context, name string, cartID domain.CartID, bankID domain.AuthServerID) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("cart.id", string(cartID)),
		attribute.String("authorisation_server.id", string(bankID)),
	))
}

func (c *Controller) endSpan(span trace.Span, step string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.metrics.ObserveStep(step, outcome, time.Since(start))
	span.End()
}

// ageSatisfied reads the age claim from the ID token, falling back to
// userinfo. Only boolean true or the string "true" count.
func ageSatisfied(set *oidc.TokenSet, claim string) bool {
	for _, source := range []map[string]any{set.Claims, set.UserInfo} {
		switch v := source[claim].(type) {
		case bool:
			return v
		case string:
			return strings.EqualFold(strings.TrimSpace(v), "true")
		}
	}
	return false
}
