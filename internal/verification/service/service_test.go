package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	jwttoken "agegate/internal/jwt_token"
	"agegate/internal/verification/models"
	"agegate/internal/verification/service/mocks"
	"agegate/internal/verification/store"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	service *Service
	now     time.Time
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory(store.WithSweepInterval(0))
	s.service = New(s.store, jwttoken.NewJWTService("test-secret", "agegate"),
		WithPendingTTL(3*time.Minute),
		WithVerificationTTL(time.Hour),
	)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func presentedFor(p *models.PendingAuthorization) models.PresentedSecrets {
	return models.PresentedSecrets{
		AuthorisationServerID: p.AuthorisationServerID,
		State:                 p.State,
		Nonce:                 p.Nonce,
		CodeVerifier:          p.CodeVerifier,
	}
}

var over18 = models.AuthResult{AgeSatisfied: true, Claims: map[string]any{"over18": true}}

func (s *ServiceSuite) TestBeginFlow() {
	s.Run("generates missing secrets", func() {
		p, err := s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)
		s.Len(p.State, 43)
		s.Len(p.Nonce, 43)
		s.NotEmpty(p.CodeVerifier)
		s.NotEqual(p.State, p.Nonce)
		s.Equal(s.now, p.CreatedAt)
		s.Equal(s.now.Add(3*time.Minute), p.ExpiresAt)
	})

	s.Run("keeps supplied secrets", func() {
		p, err := s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{
			State: "st", Nonce: "no", CodeVerifier: "cv",
		})
		s.Require().NoError(err)
		s.Equal("st", p.State)
		s.Equal("no", p.Nonce)
		s.Equal("cv", p.CodeVerifier)
	})

	s.Run("second begin supersedes the first", func() {
		first, err := s.service.BeginFlow(s.ctx, "cart-2", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)
		second, err := s.service.BeginFlow(s.ctx, "cart-2", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)

		_, err = s.service.CompleteFlow(s.ctx, "cart-2", presentedFor(first), over18)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))

		result, err := s.service.CompleteFlow(s.ctx, "cart-2", presentedFor(second), over18)
		s.Require().NoError(err)
		s.Equal(domain.CartID("cart-2"), result.CartID)
	})
}

func (s *ServiceSuite) TestCompleteFlow() {
	s.Run("absent pending flow is a session mismatch", func() {
		_, err := s.service.CompleteFlow(s.ctx, "nobody", models.PresentedSecrets{State: "x", Nonce: "y"}, over18)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))
	})

	s.Run("mismatched state leaves the flow usable", func() {
		p, err := s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)

		wrong := presentedFor(p)
		wrong.State = "forged"
		_, err = s.service.CompleteFlow(s.ctx, "cart-1", wrong, over18)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))

		_, err = s.service.CompleteFlow(s.ctx, "cart-1", presentedFor(p), over18)
		s.NoError(err)
	})

	s.Run("mismatched nonce, verifier or bank are rejected", func() {
		p, err := s.service.BeginFlow(s.ctx, "cart-2", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)

		for _, mutate := range []func(*models.PresentedSecrets){
			func(ps *models.PresentedSecrets) { ps.Nonce = "other" },
			func(ps *models.PresentedSecrets) { ps.CodeVerifier = "other" },
			func(ps *models.PresentedSecrets) { ps.AuthorisationServerID = "bank-2" },
			func(ps *models.PresentedSecrets) { ps.State = "" },
		} {
			presented := presentedFor(p)
			mutate(&presented)
			_, err := s.service.CompleteFlow(s.ctx, "cart-2", presented, over18)
			s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))
		}
	})

	s.Run("flow is single use", func() {
		p, err := s.service.BeginFlow(s.ctx, "cart-3", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)

		_, err = s.service.CompleteFlow(s.ctx, "cart-3", presentedFor(p), over18)
		s.Require().NoError(err)
		_, err = s.service.CompleteFlow(s.ctx, "cart-3", presentedFor(p), over18)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))
	})

	s.Run("expired pending flow is a session mismatch", func() {
		p, err := s.service.BeginFlow(s.ctx, "cart-4", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)

		_, err = s.service.CompleteFlow(s.at(4*time.Minute), "cart-4", presentedFor(p), over18)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))
	})

	s.Run("unsatisfied age claim stores nothing and consumes the flow", func() {
		p, err := s.service.BeginFlow(s.ctx, "cart-5", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)

		_, err = s.service.CompleteFlow(s.ctx, "cart-5", presentedFor(p), models.AuthResult{AgeSatisfied: false})
		s.True(dErrors.HasCode(err, dErrors.CodeAgeRequirementNotMet))

		verified, err := s.service.IsVerified(s.ctx, "cart-5")
		s.Require().NoError(err)
		s.False(verified)

		state, _, err := s.service.Status(s.ctx, "cart-5")
		s.Require().NoError(err)
		s.Equal(models.FlowStateNone, state)
	})

	s.Run("concurrent completions succeed at most once", func() {
		p, err := s.service.BeginFlow(s.ctx, "cart-6", "bank-1", models.FlowSecrets{})
		s.Require().NoError(err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var successes, mismatches int
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.service.CompleteFlow(s.ctx, "cart-6", presentedFor(p), over18)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
				} else if dErrors.HasCode(err, dErrors.CodeSessionMismatch) {
					mismatches++
				}
			}()
		}
		wg.Wait()
		s.Equal(1, successes)
		s.Equal(7, mismatches)
	})
}

func (s *ServiceSuite) TestVerificationLifetime() {
	verified, err := s.service.IsVerified(s.ctx, "cart-1")
	s.Require().NoError(err)
	s.False(verified, "not verified before any flow")

	p, err := s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
	s.Require().NoError(err)
	result, err := s.service.CompleteFlow(s.ctx, "cart-1", presentedFor(p), over18)
	s.Require().NoError(err)
	s.Equal(s.now.Add(time.Hour), result.ExpiresAt)
	s.NotEmpty(result.SessionToken)

	verified, err = s.service.IsVerified(s.ctx, "cart-1")
	s.Require().NoError(err)
	s.True(verified, "verified right after completion")

	verified, err = s.service.IsVerified(s.at(time.Hour), "cart-1")
	s.Require().NoError(err)
	s.False(verified, "not verified once the clock reaches expiry")

	_, err = s.service.BeginFlow(s.at(time.Hour), "cart-1", "bank-1", models.FlowSecrets{})
	s.NoError(err, "a fresh flow is allowed after expiry")
}

func (s *ServiceSuite) TestClear() {
	p, err := s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
	s.Require().NoError(err)
	_, err = s.service.CompleteFlow(s.ctx, "cart-1", presentedFor(p), over18)
	s.Require().NoError(err)
	_, err = s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Clear(s.ctx, "cart-1"))

	state, result, err := s.service.Status(s.ctx, "cart-1")
	s.Require().NoError(err)
	s.Equal(models.FlowStateNone, state)
	s.Nil(result)
}

func (s *ServiceSuite) TestStatus() {
	state, _, err := s.service.Status(s.ctx, "cart-1")
	s.Require().NoError(err)
	s.Equal(models.FlowStateNone, state)

	p, err := s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
	s.Require().NoError(err)
	state, _, err = s.service.Status(s.ctx, "cart-1")
	s.Require().NoError(err)
	s.Equal(models.FlowStatePending, state)

	_, err = s.service.CheckPending(s.ctx, "cart-1", presentedFor(p))
	s.Require().NoError(err)

	_, err = s.service.CompleteFlow(s.ctx, "cart-1", presentedFor(p), over18)
	s.Require().NoError(err)
	state, result, err := s.service.Status(s.ctx, "cart-1")
	s.Require().NoError(err)
	s.Equal(models.FlowStateVerified, state)
	s.Require().NotNil(result)
}

func (s *ServiceSuite) TestAbandonFlow() {
	p, err := s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
	s.Require().NoError(err)
	s.Require().NoError(s.service.AbandonFlow(s.ctx, "cart-1"))

	_, err = s.service.CheckPending(s.ctx, "cart-1", presentedFor(p))
	s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))
}

func (s *ServiceSuite) TestValidateSessionToken() {
	p, err := s.service.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
	s.Require().NoError(err)
	result, err := s.service.CompleteFlow(s.ctx, "cart-1", presentedFor(p), over18)
	s.Require().NoError(err)

	s.Run("valid for its own cart", func() {
		got, err := s.service.ValidateSessionToken(s.ctx, "cart-1", result.SessionToken)
		s.Require().NoError(err)
		s.Equal(result.ExpiresAt, got.ExpiresAt)
	})

	s.Run("rejected for another cart", func() {
		_, err := s.service.ValidateSessionToken(s.ctx, "cart-2", result.SessionToken)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))
	})

	s.Run("rejected after expiry", func() {
		_, err := s.service.ValidateSessionToken(s.at(2*time.Hour), "cart-1", result.SessionToken)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))
	})

	s.Run("rejected once cleared", func() {
		s.Require().NoError(s.service.Clear(s.ctx, "cart-1"))
		_, err := s.service.ValidateSessionToken(s.ctx, "cart-1", result.SessionToken)
		s.True(dErrors.HasCode(err, dErrors.CodeSessionMismatch))
	})
}

func (s *ServiceSuite) TestStoreFailures() {
	ctrl := gomock.NewController(s.T())
	mockStore := mocks.NewMockStore(ctrl)
	mockTokens := mocks.NewMockTokenIssuer(ctrl)
	svc := New(mockStore, mockTokens)
	boom := errors.New("connection refused")

	s.Run("save failure is internal", func() {
		mockStore.EXPECT().SavePending(gomock.Any(), gomock.Any()).Return(boom)
		_, err := svc.BeginFlow(s.ctx, "cart-1", "bank-1", models.FlowSecrets{})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("lookup failure is internal, not a mismatch", func() {
		mockStore.EXPECT().ConsumePending(gomock.Any(), domain.CartID("cart-1"), s.now, gomock.Any()).Return(nil, boom)
		_, err := svc.CompleteFlow(s.ctx, "cart-1", models.PresentedSecrets{}, over18)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("token failure stores no result", func() {
		mockStore.EXPECT().ConsumePending(gomock.Any(), domain.CartID("cart-1"), s.now, gomock.Any()).
			Return(&models.PendingAuthorization{CartID: "cart-1", AuthorisationServerID: "bank-1"}, nil)
		mockTokens.EXPECT().GenerateSessionToken(domain.CartID("cart-1"), domain.AuthServerID("bank-1"), s.now, s.now.Add(DefaultVerificationTTL)).
			Return("", boom)
		_, err := svc.CompleteFlow(s.ctx, "cart-1", models.PresentedSecrets{}, over18)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("read failure surfaces from IsVerified", func() {
		mockStore.EXPECT().FindResult(gomock.Any(), domain.CartID("cart-1"), s.now).Return(nil, boom)
		verified, err := svc.IsVerified(s.ctx, "cart-1")
		s.False(verified)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
