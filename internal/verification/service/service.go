package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	jwttoken "agegate/internal/jwt_token"
	"agegate/internal/verification/models"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/platform/sentinel"
	"agegate/pkg/requestcontext"
)

const (
	DefaultPendingTTL      = 3 * time.Minute
	DefaultVerificationTTL = time.Hour
)

// Store persists per-cart verification state. Implementations live in
// internal/verification/store and follow its sentinel error contract.
type Store interface {
	Init(ctx context.Context) error
	Teardown(ctx context.Context) error

	SavePending(ctx context.Context, p *models.PendingAuthorization) error
	FindPending(ctx context.Context, cartID domain.CartID, now time.Time) (*models.PendingAuthorization, error)
	ConsumePending(ctx context.Context, cartID domain.CartID, now time.Time, validate func(*models.PendingAuthorization) error) (*models.PendingAuthorization, error)
	DeletePending(ctx context.Context, cartID domain.CartID) error

	SaveResult(ctx context.Context, r *models.VerificationResult) error
	FindResult(ctx context.Context, cartID domain.CartID, now time.Time) (*models.VerificationResult, error)
	DeleteResult(ctx context.Context, cartID domain.CartID) error
}

// TokenIssuer signs and checks session tokens bound to a cart.
type TokenIssuer interface {
	GenerateSessionToken(cartID domain.CartID, authServerID domain.AuthServerID, issuedAt, expiresAt time.Time) (string, error)
	ValidateToken(token string, now time.Time) (*jwttoken.Claims, error)
}

// Service owns the per-cart verification state machine:
// none -> pending (BeginFlow) -> verified (CompleteFlow) -> none (expiry or Clear).
// Every lookup is keyed by the CartID the caller passes in; callers must
// settle on one CartID per request before calling.
type Service struct {
	store           Store
	tokens          TokenIssuer
	pendingTTL      time.Duration
	verificationTTL time.Duration
	logger          *slog.Logger
}

type Option func(*Service)

func WithPendingTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pendingTTL = d
		}
	}
}

func WithVerificationTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.verificationTTL = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:           store,
		tokens:          tokens,
		pendingTTL:      DefaultPendingTTL,
		verificationTTL: DefaultVerificationTTL,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PendingTTL is how long a begun flow may be completed. Cookies carrying the
// flow secrets share this lifetime.
func (s *Service) PendingTTL() time.Duration {
	return s.pendingTTL
}

// BeginFlow records a new pending authorization for cartID, replacing any
// earlier one. Secrets left empty are generated.
func (s *Service) BeginFlow(ctx context.Context, cartID domain.CartID, bankID domain.AuthServerID, secrets models.FlowSecrets) (*models.PendingAuthorization, error) {
	filled, err := fillSecrets(secrets)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate flow secrets")
	}

	now := requestcontext.Now(ctx)
	pending := &models.PendingAuthorization{
		CartID:                cartID,
		AuthorisationServerID: bankID,
		State:                 filled.State,
		Nonce:                 filled.Nonce,
		CodeVerifier:          filled.CodeVerifier,
		CreatedAt:             now,
		ExpiresAt:             now.Add(s.pendingTTL),
	}
	if err := s.store.SavePending(ctx, pending); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save pending authorization")
	}
	return pending, nil
}

// CheckPending confirms the presented secrets match the cart's pending flow
// without consuming it.
func (s *Service) CheckPending(ctx context.Context, cartID domain.CartID, presented models.PresentedSecrets) (*models.PendingAuthorization, error) {
	pending, err := s.store.FindPending(ctx, cartID, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.translateLookupError(ctx, cartID, err)
	}
	if err := matchPending(pending, presented); err != nil {
		return nil, err
	}
	return pending, nil
}

// CompleteFlow consumes the cart's pending flow if the presented secrets match
// and, when the age claim is satisfied, stores a verification result. A
// mismatch leaves the pending flow untouched. An unsatisfied claim still
// consumes the flow.
func (s *Service) CompleteFlow(ctx context.Context, cartID domain.CartID, presented models.PresentedSecrets, result models.AuthResult) (*models.VerificationResult, error) {
	now := requestcontext.Now(ctx)
	pending, err := s.store.ConsumePending(ctx, cartID, now, func(p *models.PendingAuthorization) error {
		return matchPending(p, presented)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeSessionMismatch) {
			return nil, err
		}
		return nil, s.translateLookupError(ctx, cartID, err)
	}

	if !result.AgeSatisfied {
		return nil, dErrors.New(dErrors.CodeAgeRequirementNotMet, "age requirement not met")
	}

	expiresAt := now.Add(s.verificationTTL)
	token, err := s.tokens.GenerateSessionToken(cartID, pending.AuthorisationServerID, now, expiresAt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}
	verification := &models.VerificationResult{
		CartID:       cartID,
		AuthServerID: pending.AuthorisationServerID,
		VerifiedAt:   now,
		ExpiresAt:    expiresAt,
		SessionToken: token,
	}
	if err := s.store.SaveResult(ctx, verification); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification result")
	}
	return verification, nil
}

// AbandonFlow drops the cart's pending flow so the shopper can start over.
func (s *Service) AbandonFlow(ctx context.Context, cartID domain.CartID) error {
	if err := s.store.DeletePending(ctx, cartID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete pending authorization")
	}
	return nil
}

// IsVerified reports whether cartID holds an unexpired verification.
func (s *Service) IsVerified(ctx context.Context, cartID domain.CartID) (bool, error) {
	_, err := s.store.FindResult(ctx, cartID, requestcontext.Now(ctx))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		return false, nil
	default:
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification result")
	}
}

// Status reports where cartID sits in the flow, with the result when verified.
func (s *Service) Status(ctx context.Context, cartID domain.CartID) (models.FlowState, *models.VerificationResult, error) {
	now := requestcontext.Now(ctx)
	result, err := s.store.FindResult(ctx, cartID, now)
	if err == nil {
		return models.FlowStateVerified, result, nil
	}
	if !isAbsent(err) {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification result")
	}

	_, err = s.store.FindPending(ctx, cartID, now)
	if err == nil {
		return models.FlowStatePending, nil, nil
	}
	if !isAbsent(err) {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pending authorization")
	}
	return models.FlowStateNone, nil, nil
}

// Clear removes all verification state for cartID.
func (s *Service) Clear(ctx context.Context, cartID domain.CartID) error {
	if err := s.store.DeletePending(ctx, cartID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete pending authorization")
	}
	if err := s.store.DeleteResult(ctx, cartID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete verification result")
	}
	return nil
}

// ValidateSessionToken checks that token was issued for cartID, has not
// expired, and that the verification it stands for is still held.
func (s *Service) ValidateSessionToken(ctx context.Context, cartID domain.CartID, token string) (*models.VerificationResult, error) {
	now := requestcontext.Now(ctx)
	claims, err := s.tokens.ValidateToken(token, now)
	if err != nil {
		return nil, err
	}
	if claims.CartID() != cartID {
		return nil, dErrors.New(dErrors.CodeSessionMismatch, "session token bound to another cart")
	}
	result, err := s.store.FindResult(ctx, cartID, now)
	if err != nil {
		if isAbsent(err) {
			return nil, dErrors.New(dErrors.CodeSessionMismatch, "verification no longer held")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification result")
	}
	if subtle.ConstantTimeCompare([]byte(result.SessionToken), []byte(token)) != 1 {
		return nil, dErrors.New(dErrors.CodeSessionMismatch, "session token superseded")
	}
	return result, nil
}

func (s *Service) translateLookupError(ctx context.Context, cartID domain.CartID, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeSessionMismatch, "no pending authorization for cart")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeSessionMismatch, "authorization already completed")
	default:
		s.logger.ErrorContext(ctx, "verification store lookup failed",
			"error", err,
			"cart_id", cartID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pending authorization")
	}
}

// matchPending compares every presented value against the stored flow. All
// comparisons run regardless of earlier failures.
func matchPending(p *models.PendingAuthorization, presented models.PresentedSecrets) error {
	ok := p.AuthorisationServerID == presented.AuthorisationServerID
	ok = equalSecret(p.State, presented.State) && ok
	ok = equalSecret(p.Nonce, presented.Nonce) && ok
	ok = equalSecret(p.CodeVerifier, presented.CodeVerifier) && ok
	if !ok {
		return dErrors.New(dErrors.CodeSessionMismatch, "callback does not match pending authorization")
	}
	return nil
}

func equalSecret(stored, presented string) bool {
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func isAbsent(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired)
}
