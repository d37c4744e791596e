package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"agegate/internal/platform/upstream"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
)

const wellKnownPath = "/.well-known/openid-configuration"

// Metadata is the subset of an authorisation server's discovery document the
// PAR flow needs.
type Metadata struct {
	Issuer                 string `json:"issuer"`
	AuthorizationEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint          string `json:"token_endpoint"`
	PAREndpoint            string `json:"pushed_authorization_request_endpoint"`
	UserinfoEndpoint       string `json:"userinfo_endpoint,omitempty"`
	JWKSURI                string `json:"jwks_uri,omitempty"`
	RequirePushedAuthReqs  bool   `json:"require_pushed_authorization_requests,omitempty"`
	ClaimsParameterSupport bool   `json:"claims_parameter_supported,omitempty"`
}

// metadata returns the cached discovery document for bankID, fetching it on
// a miss or after the cache entry expires.
func (c *Client) metadata(ctx context.Context, bankID domain.AuthServerID) (*Metadata, error) {
	issuer, ok := c.servers[bankID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown authorisation server").
			WithDetail("authorisation_server_id", string(bankID))
	}
	if item := c.discovery.Get(bankID); item != nil {
		return item.Value(), nil
	}

	md, err := c.fetchMetadata(ctx, issuer)
	if err != nil {
		return nil, err
	}
	c.discovery.Set(bankID, md, c.discoveryTTL)
	return md, nil
}

func (c *Client) fetchMetadata(ctx context.Context, issuer string) (*Metadata, error) {
	url := strings.TrimSuffix(issuer, "/") + wellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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

	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, upstream.New(upstream.CategoryBadData, upstreamName, "decode discovery document", err)
	}
	if md.AuthorizationEndpoint == "" || md.TokenEndpoint == "" || md.PAREndpoint == "" {
		return nil, upstream.New(upstream.CategoryBadData, upstreamName, "discovery document lacks PAR endpoints", nil)
	}
	if md.Issuer == "" {
		md.Issuer = issuer
	}
	return &md, nil
}
