package httptransport_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agegate/internal/cart"
	"agegate/internal/diagnostics"
	"agegate/internal/flow"
	"agegate/internal/gate"
	httptransport "agegate/internal/transport/http"
	"agegate/internal/transport/http/mocks"
	"agegate/internal/verification/models"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	flow        *mocks.MockFlowService
	status      *mocks.MockStatusReader
	gate        *mocks.MockCartGate
	catalog     *mocks.MockCatalogRefresher
	diagnostics *mocks.MockDiagnosticsSource
	router      http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.flow = mocks.NewMockFlowService(ctrl)
	s.status = mocks.NewMockStatusReader(ctrl)
	s.gate = mocks.NewMockCartGate(ctrl)
	s.catalog = mocks.NewMockCatalogRefresher(ctrl)
	s.diagnostics = mocks.NewMockDiagnosticsSource(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = httptransport.NewRouter(
		httptransport.RouterConfig{Logger: logger},
		httptransport.NewFlowHandler(s.flow, s.status, s.diagnostics,
			httptransport.CookieConfig{Domain: "agegate.example", MaxAge: time.Minute}, []string{"over18"}, "age check", logger),
		httptransport.NewCartHandler(s.gate, s.catalog, "admin-secret", logger),
	)
}

func (s *HandlerSuite) serve(method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func withCookies(values map[string]string) func(*http.Request) {
	return func(r *http.Request) {
		for name, v := range values {
			r.AddCookie(&http.Cookie{Name: name, Value: v})
		}
	}
}

func flowCookieValues() map[string]string {
	return map[string]string{
		"state":                   "st",
		"nonce":                   "nn",
		"code_verifier":           "cv",
		"authorisation_server_id": "bank1",
		"cart_id":                 "cart1",
	}
}

func (s *HandlerSuite) TestSelectBankUpstreamFailure() {
	s.flow.EXPECT().Begin(gomock.Any(), domain.CartID("cart1"), domain.AuthServerID("bank1"), []string{"over18"}, "age check").
		Return(nil, dErrors.New(dErrors.CodeUpstreamUnavailable, "bank unreachable"))

	w := s.serve(http.MethodPost, "/select-bank", `{"authorisationServerId":"bank1","cartId":"cart1"}`)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Contains(w.Body.String(), "upstream_unavailable")
	s.Empty(w.Result().Cookies())
}

func (s *HandlerSuite) TestSelectBankCookieAttributes() {
	s.flow.EXPECT().Begin(gomock.Any(), domain.CartID("cart1"), domain.AuthServerID("bank1"), gomock.Any(), gomock.Any()).
		Return(&flow.Started{
			AuthURL: "https://bank1.example/authorize",
			Pending: &models.PendingAuthorization{
				CartID:                "cart1",
				AuthorisationServerID: "bank1",
				State:                 "st",
				Nonce:                 "nn",
				CodeVerifier:          "cv",
			},
		}, nil)

	w := s.serve(http.MethodPost, "/select-bank", `{"authorisationServerId":"bank1","cartId":"cart1"}`)

	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"authUrl":"https://bank1.example/authorize"}`, w.Body.String())
	cookies := w.Result().Cookies()
	s.Len(cookies, 5)
	for _, c := range cookies {
		s.Equal("agegate.example", c.Domain)
		s.Equal("/", c.Path)
		s.Equal(60, c.MaxAge)
	}
}

func (s *HandlerSuite) TestSelectBankMalformedBody() {
	w := s.serve(http.MethodPost, "/select-bank", `{not json`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "bad_request")
}

func (s *HandlerSuite) TestRetrieveTokensPassesCookies() {
	s.flow.EXPECT().Complete(gomock.Any(), domain.CartID("cart1"), gomock.Any(), models.PresentedSecrets{
		AuthorisationServerID: "bank1",
		State:                 "st",
		Nonce:                 "nn",
		CodeVerifier:          "cv",
	}).Return(nil, dErrors.New(dErrors.CodeSessionMismatch, "state does not match"))

	w := s.serve(http.MethodGet, "/retrieve-tokens?code=abc&state=st&cartId=cart1", "", withCookies(flowCookieValues()))

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "session_mismatch")
	s.Empty(w.Result().Cookies())
}

func (s *HandlerSuite) TestRetrieveTokensClearsCookiesWhenFlowEnds() {
	tests := []struct {
		name   string
		code   dErrors.Code
		status int
	}{
		{"age not met", dErrors.CodeAgeRequirementNotMet, http.StatusBadRequest},
		{"bank failed", dErrors.CodeUpstreamUnavailable, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.flow.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, dErrors.New(tc.code, "flow ended"))

			w := s.serve(http.MethodGet, "/retrieve-tokens?code=abc", "", withCookies(flowCookieValues()))

			s.Equal(tc.status, w.Code)
			s.Contains(w.Body.String(), string(tc.code))
			s.Len(w.Result().Cookies(), 5)
			for _, c := range w.Result().Cookies() {
				s.Negative(c.MaxAge)
			}
		})
	}
}

func (s *HandlerSuite) TestRetrieveTokensMalformedCartCookie() {
	s.flow.EXPECT().Complete(gomock.Any(), domain.CartID(""), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeMissingSessionCookies, "session cookies missing"))

	cookies := flowCookieValues()
	cookies["cart_id"] = "   "
	w := s.serve(http.MethodGet, "/retrieve-tokens?code=abc", "", withCookies(cookies))

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "missing_session_cookies")
}

func (s *HandlerSuite) TestVerificationStatusPending() {
	s.status.EXPECT().Status(gomock.Any(), domain.CartID("cart1")).Return(models.FlowStatePending, nil, nil)

	w := s.serve(http.MethodGet, "/verification-status?cartId=cart1", "")

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"verified":false,"state":"pending"}`, w.Body.String())
}

func (s *HandlerSuite) TestVerificationStatusRequiresCart() {
	w := s.serve(http.MethodGet, "/verification-status", "")

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "validation_error")
}

func (s *HandlerSuite) TestResetFailure() {
	s.flow.EXPECT().Reset(gomock.Any(), domain.CartID("cart1")).Return(errors.New("redis down"))

	w := s.serve(http.MethodPost, "/reset", `{"cartId":"cart1"}`)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "redis down")
}

func (s *HandlerSuite) TestLogs() {
	s.diagnostics.EXPECT().Checks(gomock.Any()).Return([]diagnostics.Check{
		{Name: "id_token_present", Passed: true},
		{Name: "over18_claim_present", Passed: false, Detail: "claim missing"},
	})

	w := s.serve(http.MethodGet, "/logs", "")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "id_token_present")
	s.Contains(w.Body.String(), "claim missing")
}

func (s *HandlerSuite) TestValidateCartIgnoresBypassCode() {
	s.gate.EXPECT().CheckCart(gomock.Any(), domain.CartID("cart1"), gate.ModeFilterRestricted, "").
		Return(&gate.Result{
			RemovedItems: []cart.LineItem{{ID: "li-1", SKU: "KNIFE-1"}},
			FailedItems:  []cart.LineItem{{ID: "li-2", SKU: "BLADE-2"}},
		}, nil)

	w := s.serve(http.MethodPost, "/validate-cart", `{"cartId":"cart1","code":"letmein"}`)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "removed 1 restricted item(s), 1 could not be removed")
	s.Contains(w.Body.String(), `"failedItems"`)
}

func (s *HandlerSuite) TestValidateCartCleanCart() {
	s.gate.EXPECT().CheckCart(gomock.Any(), gomock.Any(), gate.ModeFilterRestricted, "").Return(&gate.Result{}, nil)

	w := s.serve(http.MethodPost, "/validate-cart", `{"cartId":"cart1"}`)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"message":"no restricted items in cart","removedItems":[]}`, w.Body.String())
}

func (s *HandlerSuite) TestCartGateErrors() {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		code   string
	}{
		{"catalog down", "/validate-cart", dErrors.New(dErrors.CodeCatalogUnavailable, "catalog unavailable"), http.StatusInternalServerError, "catalog_unavailable"},
		{"cart missing", "/restricted-items", dErrors.New(dErrors.CodeNotFound, "cart not found"), http.StatusNotFound, "not_found"},
		{"cart api down", "/restricted-items", dErrors.New(dErrors.CodeCartServiceUnavailable, "cart service unavailable"), http.StatusInternalServerError, "cart_service_unavailable"},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.gate.EXPECT().CheckCart(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)

			w := s.serve(http.MethodPost, tc.path, `{"cartId":"cart1"}`)

			s.Equal(tc.status, w.Code)
			s.Contains(w.Body.String(), tc.code)
		})
	}
}

func (s *HandlerSuite) TestRestrictedItemsBypass() {
	s.gate.EXPECT().CheckCart(gomock.Any(), domain.CartID("cart1"), gate.ModeBlockIfUnverified, "letmein").
		Return(&gate.Result{Skipped: true, Reason: gate.SkipBypassCode}, nil)

	w := s.serve(http.MethodPost, "/restricted-items", `{"cartId":"cart1","code":"letmein"}`)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"message":"age check bypassed","skipped":true}`, w.Body.String())
}

func (s *HandlerSuite) TestRestrictedItemsEmptyList() {
	s.gate.EXPECT().CheckCart(gomock.Any(), gomock.Any(), gate.ModeBlockIfUnverified, "").Return(&gate.Result{}, nil)

	w := s.serve(http.MethodPost, "/restricted-items", `{"cartId":"cart1"}`)

	s.JSONEq(`{"restrictedSKUs":[]}`, w.Body.String())
}

func (s *HandlerSuite) TestCatalogRefreshRequiresAdminToken() {
	w := s.serve(http.MethodPost, "/catalog/refresh", "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.serve(http.MethodPost, "/catalog/refresh", "", func(r *http.Request) {
		r.Header.Set("X-Admin-Token", "wrong")
	})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerSuite) TestCatalogRefresh() {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.catalog.EXPECT().Refresh(gomock.Any()).Return(nil)
	s.catalog.EXPECT().Size().Return(42)
	s.catalog.EXPECT().Loaded().Return(true, at)

	w := s.serve(http.MethodPost, "/catalog/refresh", "", func(r *http.Request) {
		r.Header.Set("X-Admin-Token", "admin-secret")
	})

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"restrictedSkuCount":42,"refreshedAt":"2026-03-01T12:00:00Z"}`, w.Body.String())
}

func (s *HandlerSuite) TestMethodNotAllowed() {
	w := s.serve(http.MethodGet, "/select-bank", "")

	s.Equal(http.StatusMethodNotAllowed, w.Code)
	s.JSONEq(`{"error":"method_not_allowed"}`, w.Body.String())
}

func (s *HandlerSuite) TestRequestIDEchoed() {
	s.status.EXPECT().Status(gomock.Any(), gomock.Any()).Return(models.FlowStateNone, nil, nil)

	w := s.serve(http.MethodGet, "/verification-status?cartId=cart1", "", func(r *http.Request) {
		r.Header.Set("X-Request-ID", "req-123")
	})

	s.Equal("req-123", w.Header().Get("X-Request-ID"))
}

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("all checks pass", func(t *testing.T) {
		router := httptransport.NewRouter(httptransport.RouterConfig{Logger: logger},
			httptransport.NewHealthHandler(map[string]httptransport.HealthCheck{
				"redis": func(context.Context) error { return nil },
			}))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, w.Body.String())
	})

	t.Run("failing check degrades", func(t *testing.T) {
		router := httptransport.NewRouter(httptransport.RouterConfig{Logger: logger},
			httptransport.NewHealthHandler(map[string]httptransport.HealthCheck{
				"redis":   func(context.Context) error { return errors.New("connection refused") },
				"catalog": func(context.Context) error { return nil },
			}))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"redis":"connection refused","catalog":"ok"}}`, w.Body.String())
	})
}
