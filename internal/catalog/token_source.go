package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"agegate/internal/platform/config"
	"agegate/internal/platform/upstream"
)

const (
	tokenCacheKey   = "storefront"
	tokenExpirySkew = 5 * time.Minute
	managementAPI   = "bigcommerce-management"
)

// StorefrontTokens mints storefront GraphQL tokens through the management
// REST API and caches one until shortly before it expires.
type StorefrontTokens struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
	channelID   int
	origins     []string
	ttl         time.Duration
	cache       *ttlcache.Cache[string, string]
	metrics     *Metrics
	now         func() time.Time
}

// NewStorefrontTokens builds a token source for the configured store.
func NewStorefrontTokens(cfg config.StoreConfig, httpClient *http.Client, metrics *Metrics) *StorefrontTokens {
	ttl := cfg.StorefrontTokenTTL
	if ttl <= tokenExpirySkew {
		ttl = 24 * time.Hour
	}
	var origins []string
	if cfg.Domain != "" {
		origins = []string{storefrontOrigin(cfg.Domain)}
	}
	return &StorefrontTokens{
		httpClient:  httpClient,
		endpoint:    strings.TrimSuffix(cfg.APIBase, "/") + "/stores/" + cfg.Hash + "/v3/storefront/api-token",
		accessToken: cfg.AccessToken,
		channelID:   cfg.ChannelID,
		origins:     origins,
		ttl:         ttl,
		cache: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
		metrics: metrics,
		now:     time.Now,
	}
}

// Token returns the cached token, minting a new one on a miss.
func (t *StorefrontTokens) Token(ctx context.Context) (string, error) {
	if item := t.cache.Get(tokenCacheKey); item != nil {
		return item.Value(), nil
	}
	expiresAt := t.now().Add(t.ttl)
	token, err := t.mint(ctx, expiresAt)
	if err != nil {
		t.metrics.IncTokenMint("error")
		return "", err
	}
	t.metrics.IncTokenMint("ok")
	t.cache.Set(tokenCacheKey, token, t.ttl-tokenExpirySkew)
	return token, nil
}

// Invalidate drops the cached token so the next Token call mints afresh.
func (t *StorefrontTokens) Invalidate() {
	t.cache.Delete(tokenCacheKey)
}

type mintRequest struct {
	ChannelID          int      `json:"channel_id"`
	ExpiresAt          int64    `json:"expires_at"`
	AllowedCORSOrigins []string `json:"allowed_cors_origins,omitempty"`
}

type mintResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

func (t *StorefrontTokens) mint(ctx context.Context, expiresAt time.Time) (string, error) {
	payload, err := json.Marshal(mintRequest{
		ChannelID:          t.channelID,
		ExpiresAt:          expiresAt.Unix(),
		AllowedCORSOrigins: t.origins,
	})
	if err != nil {
		return "", fmt.Errorf("encode token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Auth-Token", t.accessToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", upstream.FromTransport(managementAPI, err)
	}
	body, err := upstream.ReadBody(resp)
	if err != nil {
		return "", upstream.FromTransport(managementAPI, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", upstream.FromStatus(managementAPI, resp.StatusCode, body)
	}
	var out mintResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", upstream.New(upstream.CategoryBadData, managementAPI, "decode token response", err)
	}
	if out.Data.Token == "" {
		return "", upstream.New(upstream.CategoryBadData, managementAPI, "token response lacks token", nil)
	}
	return out.Data.Token, nil
}

// storefrontOrigin accepts a bare host or a full origin.
func storefrontOrigin(domain string) string {
	domain = strings.TrimSuffix(domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}
