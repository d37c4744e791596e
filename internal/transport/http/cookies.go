package httptransport

import (
	"net/http"
	"time"

	"agegate/internal/verification/models"
	"agegate/pkg/domain"
)

const (
	cookieState        = "state"
	cookieNonce        = "nonce"
	cookieCodeVerifier = "code_verifier"
	cookieAuthServer   = "authorisation_server_id"
	cookieCartID       = "cart_id"
)

var flowCookies = []string{cookieState, cookieNonce, cookieCodeVerifier, cookieAuthServer, cookieCartID}

// CookieConfig scopes the flow cookies. The storefront and this service sit
// on different sites, so cookies are SameSite=None and therefore Secure.
type CookieConfig struct {
	Domain string
	MaxAge time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	}
}

// setFlowCookies hands the pending flow's secrets to the browser so the
// callback request can present them back.
func (c CookieConfig) setFlowCookies(w http.ResponseWriter, p *models.PendingAuthorization) {
	maxAge := int(c.MaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Until(p.ExpiresAt).Seconds())
	}
	values := map[string]string{
		cookieState:        p.State,
		cookieNonce:        p.Nonce,
		cookieCodeVerifier: p.CodeVerifier,
		cookieAuthServer:   string(p.AuthorisationServerID),
		cookieCartID:       string(p.CartID),
	}
	for _, name := range flowCookies {
		http.SetCookie(w, c.cookie(name, values[name], maxAge))
	}
}

func (c CookieConfig) clearFlowCookies(w http.ResponseWriter) {
	for _, name := range flowCookies {
		http.SetCookie(w, c.cookie(name, "", -1))
	}
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func presentedSecrets(r *http.Request) models.PresentedSecrets {
	return models.PresentedSecrets{
		AuthorisationServerID: domainAuthServer(cookieValue(r, cookieAuthServer)),
		State:                 cookieValue(r, cookieState),
		Nonce:                 cookieValue(r, cookieNonce),
		CodeVerifier:          cookieValue(r, cookieCodeVerifier),
	}
}

// domainAuthServer treats a malformed cookie as absent.
func domainAuthServer(raw string) domain.AuthServerID {
	id, err := domain.ParseAuthServerID(raw)
	if err != nil {
		return ""
	}
	return id
}
