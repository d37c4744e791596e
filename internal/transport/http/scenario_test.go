package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agegate/internal/cart"
	"agegate/internal/diagnostics"
	"agegate/internal/flow"
	flowmocks "agegate/internal/flow/mocks"
	"agegate/internal/gate"
	gatemocks "agegate/internal/gate/mocks"
	jwttoken "agegate/internal/jwt_token"
	"agegate/internal/oidc"
	"agegate/internal/restriction"
	httptransport "agegate/internal/transport/http"
	"agegate/internal/verification/service"
	"agegate/internal/verification/store"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
)

type restrictedSet struct{ restriction.SKUSet }

func (restrictedSet) EnsureLoaded(context.Context) error { return nil }
func (s restrictedSet) Size() int                       { return len(s.SKUSet) }

// ScenarioSuite drives the real router, flow controller, verification
// service and gate. Only the bank and the commerce cart API are mocked.
type ScenarioSuite struct {
	suite.Suite
	auth   *flowmocks.MockAuthorizer
	carts  *gatemocks.MockCartClient
	router http.Handler
}

func TestScenarioSuite(t *testing.T) {
	suite.Run(t, new(ScenarioSuite))
}

func (s *ScenarioSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.auth = flowmocks.NewMockAuthorizer(ctrl)
	s.carts = gatemocks.NewMockCartClient(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessions := service.New(store.NewInMemory(store.WithSweepInterval(0)), jwttoken.NewJWTService("test-secret", "agegate"))
	recorder := diagnostics.NewRecorder()
	controller := flow.New(s.auth, sessions, flow.WithTokenRecorder(recorder), flow.WithLogger(logger))
	cartGate := gate.New(sessions, restrictedSet{restriction.NewSKUSet("KNIFE-1")}, s.carts, gate.WithLogger(logger))

	s.router = httptransport.NewRouter(
		httptransport.RouterConfig{AllowedOrigin: "https://shop.example", Timeout: 5 * time.Second, Logger: logger},
		httptransport.NewFlowHandler(controller, sessions, recorder,
			httptransport.CookieConfig{MaxAge: 3 * time.Minute}, []string{"over18"}, "age check", logger),
		httptransport.NewCartHandler(cartGate, nil, "", logger),
	)
}

func (s *ScenarioSuite) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ScenarioSuite) postJSON(path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *ScenarioSuite) getJSON(path string, out any) {
	w := s.do(httptest.NewRequest(http.MethodGet, path, nil))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out))
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func (s *ScenarioSuite) selectBank() map[string]*http.Cookie {
	s.auth.EXPECT().StartAuthorization(gomock.Any(), domain.AuthServerID("bank1"), []string{"over18"}, "age check").
		Return(&oidc.Authorization{
			AuthURL:      "https://auth.bank1.example/authorize?client_id=c&request_uri=urn%3Abank1%3Apar",
			CodeVerifier: "verifier-1",
			State:        "state-1",
			Nonce:        "nonce-1",
		}, nil)

	w := s.postJSON("/select-bank", map[string]string{"authorisationServerId": "bank1", "cartId": "cart1"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp httptransport.SelectBankResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Contains(resp.AuthURL, "bank1")
	return cookiesByName(w)
}

func (s *ScenarioSuite) TestSelectBankSetsFlowCookies() {
	cookies := s.selectBank()

	for name, want := range map[string]string{
		"state":                   "state-1",
		"nonce":                   "nonce-1",
		"code_verifier":           "verifier-1",
		"authorisation_server_id": "bank1",
		"cart_id":                 "cart1",
	} {
		c, ok := cookies[name]
		s.Require().True(ok, "cookie %s not set", name)
		s.Equal(want, c.Value, name)
		s.True(c.Secure, name)
		s.True(c.HttpOnly, name)
		s.Equal(http.SameSiteNoneMode, c.SameSite, name)
		s.Equal(180, c.MaxAge, name)
	}
}

func (s *ScenarioSuite) TestSelectBankRequiresFields() {
	w := s.postJSON("/select-bank", map[string]string{"cartId": "cart1"})

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "validation_error")
}

func (s *ScenarioSuite) TestSelectBankRejectsCartIDThatCannotBeACookie() {
	for _, cartID := range []string{`cart;"42`, `cart\42`, "carté"} {
		w := s.postJSON("/select-bank", map[string]string{"authorisationServerId": "bank1", "cartId": cartID})

		s.Equal(http.StatusBadRequest, w.Code, cartID)
		s.Contains(w.Body.String(), "validation_error", cartID)
		s.Empty(w.Result().Cookies(), cartID)
	}
}

func (s *ScenarioSuite) callback(query string, cookies map[string]*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/retrieve-tokens?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return s.do(req)
}

func (s *ScenarioSuite) TestTamperedStateCookieIsRejected() {
	cookies := s.selectBank()
	cookies["state"].Value = "tampered"

	w := s.callback("code=abc", cookies)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "session_mismatch")
	s.Empty(w.Result().Cookies(), "the shopper's real flow is still pending")
}

func (s *ScenarioSuite) TestBankSideMismatchEndsFlowAndClearsCookies() {
	cookies := s.selectBank()
	s.auth.EXPECT().CompleteAuthorization(gomock.Any(), domain.AuthServerID("bank1"), gomock.Any(), "verifier-1", "state-1", "nonce-1").
		Return(nil, dErrors.New(dErrors.CodeSessionMismatch, "id_token nonce does not match"))

	w := s.callback("code=abc&state=other", cookies)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "session_mismatch")
	cleared := cookiesByName(w)
	for _, name := range []string{"state", "nonce", "code_verifier", "authorisation_server_id", "cart_id"} {
		s.Require().Contains(cleared, name)
		s.Equal(-1, cleared[name].MaxAge, name)
	}

	var status httptransport.VerificationStatusResponse
	s.getJSON("/verification-status?cartId=cart1", &status)
	s.Equal("none", status.State)
}

func (s *ScenarioSuite) TestCallbackWithoutCode() {
	cookies := s.selectBank()

	w := s.callback("state=state-1", cookies)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "missing_authorization_code")
}

func (s *ScenarioSuite) TestCallbackWithoutCookies() {
	w := s.callback("code=abc", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "missing_session_cookies")
}

func (s *ScenarioSuite) TestCallbackForAnotherCart() {
	cookies := s.selectBank()

	w := s.callback("code=abc&cartId=cart2", cookies)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "session_mismatch")
}

func (s *ScenarioSuite) TestVerifiedCartSkipsGate() {
	cookies := s.selectBank()
	s.auth.EXPECT().CompleteAuthorization(gomock.Any(), domain.AuthServerID("bank1"), gomock.Any(), "verifier-1", "state-1", "nonce-1").
		Return(&oidc.TokenSet{Claims: map[string]any{"over18": true}, IDToken: "id.token.sig", AccessToken: "at"}, nil)

	w := s.callback("code=abc&state=state-1", cookies)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var tokens httptransport.RetrieveTokensResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &tokens))
	s.Equal("id.token.sig", tokens.Token)
	s.NotEmpty(tokens.SessionToken)
	for _, c := range w.Result().Cookies() {
		s.Negative(c.MaxAge, "cookie %s should be cleared", c.Name)
	}

	var status httptransport.VerificationStatusResponse
	s.getJSON("/verification-status?cartId=cart1", &status)
	s.True(status.Verified)
	s.Equal("verified", status.State)
	s.Require().NotNil(status.ExpiresAt)
	s.True(status.ExpiresAt.Equal(tokens.ExpiresAt))

	// No cart lookup happens once the cart is verified.
	w = s.postJSON("/restricted-items", map[string]string{"cartId": "cart1"})
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"message":"cart is age verified","skipped":true}`, w.Body.String())

	w = s.postJSON("/reset", map[string]string{"cartId": "cart1"})
	s.Equal(http.StatusOK, w.Code)
	w = s.do(httptest.NewRequest(http.MethodGet, "/verification-status?cartId=cart1", nil))
	s.JSONEq(`{"verified":false,"state":"none"}`, w.Body.String())
}

func (s *ScenarioSuite) TestFilterRemovesRestrictedItem() {
	cartID := domain.CartID("cart42")
	knife := cart.LineItem{ID: "li-1", SKU: "KNIFE-1", Name: "Chef knife", Quantity: 1}
	shirt := cart.LineItem{ID: "li-2", SKU: "shirt-9", Name: "Shirt", Quantity: 2}
	s.carts.EXPECT().GetItems(gomock.Any(), cartID).Return([]cart.LineItem{knife, shirt}, nil)
	s.carts.EXPECT().DeleteItem(gomock.Any(), cartID, "li-1").Return(nil)

	w := s.postJSON("/validate-cart", map[string]string{"cartId": "cart42"})

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp httptransport.ValidateCartResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.RemovedItems, 1)
	s.Equal("KNIFE-1", resp.RemovedItems[0].SKU)
	s.Equal("removed 1 restricted item(s)", resp.Message)
}

func (s *ScenarioSuite) TestRestrictedItemsLeavesCartAlone() {
	cartID := domain.CartID("cart42")
	s.carts.EXPECT().GetItems(gomock.Any(), cartID).Return([]cart.LineItem{
		{ID: "li-1", SKU: " knife-1 "},
		{ID: "li-2", SKU: "SHIRT-9"},
	}, nil)

	w := s.postJSON("/restricted-items", map[string]string{"cartId": "cart42", "code": "whatever"})

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"restrictedSKUs":["KNIFE-1"]}`, w.Body.String())
}

func (s *ScenarioSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/select-bank", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := s.do(req)

	s.Equal("https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func (s *ScenarioSuite) TestUnknownRoute() {
	w := s.do(httptest.NewRequest(http.MethodGet, "/nope", nil))

	s.Equal(http.StatusNotFound, w.Code)
	s.Contains(w.Body.String(), "not_found")
}
