// Package oidc is the relying-party side of the bank PAR flow: it pushes the
// authorisation request, builds the redirect URL, and exchanges the callback
// code for tokens. ID token signatures are not verified here; the token
// endpoint is reached over TLS with client authentication.
package oidc

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/oauth2"

	"agegate/internal/platform/config"
	"agegate/internal/platform/upstream"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/requestcontext"
)

const (
	upstreamName        = "oidc"
	defaultDiscoveryTTL = time.Hour
	secretBytes         = 32
)

// Authorization is what the browser needs to be redirected to the bank, plus
// the secrets the callback must present back.
type Authorization struct {
	AuthURL      string
	RequestURI   string
	CodeVerifier string
	State        string
	Nonce        string
}

// CallbackParams are the query parameters the bank redirects back with.
type CallbackParams struct {
	Code             string
	State            string
	Issuer           string
	Error            string
	ErrorDescription string
}

// TokenSet is the outcome of a successful code exchange.
type TokenSet struct {
	Claims      map[string]any
	IDToken     string
	AccessToken string
	UserInfo    map[string]any
	Issuer      string
	ClientID    string
}

// Client talks to the configured authorisation servers.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	servers      map[domain.AuthServerID]string

	httpClient   *http.Client
	discovery    *ttlcache.Cache[domain.AuthServerID, *Metadata]
	discoveryTTL time.Duration
	logger       *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithDiscoveryTTL(d time.Duration) Option {
	return func(c *Client) {
		c.discoveryTTL = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(cfg config.OIDCConfig, opts ...Option) *Client {
	servers := make(map[domain.AuthServerID]string, len(cfg.AuthServers))
	for id, issuer := range cfg.AuthServers {
		servers[domain.AuthServerID(id)] = issuer
	}
	c := &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		servers:      servers,
		httpClient:   upstream.NewHTTPClient(10 * time.Second),
		discoveryTTL: defaultDiscoveryTTL,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.discovery = ttlcache.New(
		ttlcache.WithTTL[domain.AuthServerID, *Metadata](c.discoveryTTL),
		ttlcache.WithDisableTouchOnHit[domain.AuthServerID, *Metadata](),
	)
	return c
}

// AuthServers lists the configured authorisation server ids in stable order.
func (c *Client) AuthServers() []domain.AuthServerID {
	ids := make([]domain.AuthServerID, 0, len(c.servers))
	for id := range c.servers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ClientID is the relying party's registered client id.
func (c *Client) ClientID() string {
	return c.clientID
}

// StartAuthorization pushes an authorisation request for bankID asking for
// claims as essential ID token claims, and returns the redirect URL along
// with freshly generated state, nonce and PKCE verifier.
func (c *Client) StartAuthorization(ctx context.Context, bankID domain.AuthServerID, claims []string, purpose string) (*Authorization, error) {
	md, err := c.metadata(ctx, bankID)
	if err != nil {
		return nil, err
	}

	state, err := randomSecret()
	if err != nil {
		return nil, err
	}
	nonce, err := randomSecret()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	claimsParam, err := essentialClaims(claims)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"client_id":             {c.clientID},
		"response_type":         {"code"},
		"scope":                 {"openid"},
		"redirect_uri":          {c.redirectURI},
		"state":                 {state},
		"nonce":                 {nonce},
		"code_challenge":        {oauth2.S256ChallengeFromVerifier(verifier)},
		"code_challenge_method": {"S256"},
		"claims":                {claimsParam},
	}
	if purpose != "" {
		form.Set("purpose", purpose)
	}

	requestURI, err := c.pushAuthorizationRequest(ctx, md.PAREndpoint, form)
	if err != nil {
		return nil, err
	}

	authURL, err := url.Parse(md.AuthorizationEndpoint)
	if err != nil {
		return nil, upstream.New(upstream.CategoryBadData, upstreamName, "invalid authorization endpoint", err)
	}
	q := authURL.Query()
	q.Set("client_id", c.clientID)
	q.Set("request_uri", requestURI)
	authURL.RawQuery = q.Encode()

	c.logger.InfoContext(ctx, "pushed authorisation request",
		"authorisation_server_id", bankID,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &Authorization{
		AuthURL:      authURL.String(),
		RequestURI:   requestURI,
		CodeVerifier: verifier,
		State:        state,
		Nonce:        nonce,
	}, nil
}

type parResponse struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int    `json:"expires_in"`
}

func (c *Client) pushAuthorizationRequest(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build PAR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(url.QueryEscape(c.clientID), url.QueryEscape(c.clientSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", upstream.FromTransport(upstreamName, err)
	}
	body, err := upstream.ReadBody(resp)
	if err != nil {
		return "", upstream.FromTransport(upstreamName, err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", upstream.FromStatus(upstreamName, resp.StatusCode, body)
	}

	var par parResponse
	if err := json.Unmarshal(body, &par); err != nil {
		return "", upstream.New(upstream.CategoryBadData, upstreamName, "decode PAR response", err)
	}
	if par.RequestURI == "" {
		return "", upstream.New(upstream.CategoryBadData, upstreamName, "PAR response lacks request_uri", nil)
	}
	return par.RequestURI, nil
}

// CompleteAuthorization exchanges the callback code using the PKCE verifier
// and checks the ID token's nonce against the one sent at start.
func (c *Client) CompleteAuthorization(ctx context.Context, bankID domain.AuthServerID, cb CallbackParams, codeVerifier, state, nonce string) (*TokenSet, error) {
	if cb.Error != "" {
		return nil, upstream.New(upstream.CategoryRejected, upstreamName,
			"authorisation server returned "+cb.Error+": "+cb.ErrorDescription, nil)
	}
	if cb.State != "" && subtle.ConstantTimeCompare([]byte(cb.State), []byte(state)) != 1 {
		return nil, dErrors.New(dErrors.CodeSessionMismatch, "callback state does not match")
	}

	md, err := c.metadata(ctx, bankID)
	if err != nil {
		return nil, err
	}
	if cb.Issuer != "" && cb.Issuer != md.Issuer {
		return nil, dErrors.New(dErrors.CodeSessionMismatch, "callback issuer does not match")
	}

	conf := &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURL:  c.redirectURI,
		Scopes:       []string{"openid"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   md.AuthorizationEndpoint,
			TokenURL:  md.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := conf.Exchange(exchangeCtx, cb.Code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, exchangeError(err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, upstream.New(upstream.CategoryBadData, upstreamName, "token response lacks id_token", nil)
	}
	claims, err := parseIDTokenClaims(rawIDToken)
	if err != nil {
		return nil, err
	}
	if err := checkNonce(claims, nonce); err != nil {
		return nil, err
	}

	set := &TokenSet{
		Claims:      claims,
		IDToken:     rawIDToken,
		AccessToken: token.AccessToken,
		Issuer:      md.Issuer,
		ClientID:    c.clientID,
	}
	if md.UserinfoEndpoint != "" && token.AccessToken != "" {
		info, err := c.fetchUserInfo(ctx, md.UserinfoEndpoint, token)
		if err != nil {
			c.logger.WarnContext(ctx, "userinfo fetch failed",
				"error", err,
				"authorisation_server_id", bankID,
				"request_id", requestcontext.RequestID(ctx),
			)
		} else {
			set.UserInfo = info
		}
	}
	return set, nil
}

func (c *Client) fetchUserInfo(ctx context.Context, endpoint string, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstream.FromTransport(upstreamName, err)
	}
	body, err := upstream.ReadBody(resp)
	if err != nil {
		return nil, upstream.FromTransport(upstreamName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstream.FromStatus(upstreamName, resp.StatusCode, body)
	}
	var info map[string]any
	if err := json.Unmarshal(body, &info); err != nil {
		// Some banks answer userinfo as a signed JWT.
		if claims, jwtErr := parseIDTokenClaims(strings.TrimSpace(string(body))); jwtErr == nil {
			return claims, nil
		}
		return nil, upstream.New(upstream.CategoryBadData, upstreamName, "decode userinfo", err)
	}
	return info, nil
}

func exchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		ue := upstream.FromStatus(upstreamName, re.Response.StatusCode, re.Body)
		if re.ErrorCode != "" {
			ue.Message = re.ErrorCode
		}
		return ue
	}
	return upstream.FromTransport(upstreamName, err)
}

// parseIDTokenClaims decodes the ID token payload without verifying its
// signature.
func parseIDTokenClaims(raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, upstream.New(upstream.CategoryBadData, upstreamName, "malformed id_token", err)
	}
	return map[string]any(claims), nil
}

func checkNonce(claims map[string]any, nonce string) error {
	got, _ := claims["nonce"].(string)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(nonce)) != 1 {
		return dErrors.New(dErrors.CodeSessionMismatch, "id_token nonce does not match")
	}
	return nil
}

// essentialClaims renders {"id_token": {"<claim>": {"essential": true}}}.
func essentialClaims(names []string) (string, error) {
	idToken := make(map[string]any, len(names))
	for _, name := range names {
		idToken[name] = map[string]bool{"essential": true}
	}
	raw, err := json.Marshal(map[string]any{"id_token": idToken})
	if err != nil {
		return "", fmt.Errorf("encode claims parameter: %w", err)
	}
	return string(raw), nil
}
