// Package catalog keeps the set of age-restricted SKUs, loaded from a
// BigCommerce storefront category. Refreshes build a complete new set before
// swapping it in, so readers see either the old set or the new one.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"agegate/internal/platform/config"
	"agegate/internal/platform/upstream"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/platform/sentinel"
	"agegate/pkg/requestcontext"
)

// TokenSource supplies the storefront API token. Invalidate is called when
// the upstream rejects the current one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Cache is the process-wide restricted SKU set.
type Cache struct {
	mu          sync.RWMutex
	skus        map[domain.SKU]struct{}
	loaded      bool
	refreshedAt time.Time

	group          singleflight.Group
	refreshTimeout time.Duration
	tokens         TokenSource
	client         *graphQLClient
	metrics        *Metrics
	logger         *slog.Logger
}

type Option func(*Cache)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cache) {
		c.client.httpClient = hc
	}
}

// WithGraphQLEndpoint overrides the storefront GraphQL URL derived from the
// store domain.
func WithGraphQLEndpoint(endpoint string) Option {
	return func(c *Cache) {
		c.client.endpoint = endpoint
	}
}

// WithRefreshTimeout bounds one shared walk of the category. The walk is
// detached from the caller that started it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New builds an empty cache for the configured restricted category.
func New(cfg config.StoreConfig, tokens TokenSource, opts ...Option) *Cache {
	pageSize := cfg.CatalogPageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	c := &Cache{
		skus:   make(map[domain.SKU]struct{}),
		tokens: tokens,
		client: &graphQLClient{
			httpClient: upstream.NewHTTPClient(10 * time.Second),
			endpoint:   storefrontOrigin(cfg.Domain) + "/graphql",
			categoryID: cfg.RestrictedCategoryID,
			pageSize:   pageSize,
		},
		refreshTimeout: 30 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reloads the restricted set from the storefront API. Concurrent
// calls share one upstream walk. On failure the previous set is kept and a
// CatalogUnavailable error is returned. A caller that gives up early does
// not cancel the walk for the callers sharing it.
func (c *Cache) Refresh(ctx context.Context) error {
	ch := c.group.DoChan("refresh", func() (any, error) {
		walkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return nil, c.refresh(walkCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeCatalogUnavailable, "catalog refresh abandoned")
	}
}

func (c *Cache) refresh(ctx context.Context) error {
	start := time.Now()
	next, err := c.load(ctx)
	if err != nil {
		c.metrics.ObserveRefresh("error", time.Since(start))
		c.logger.ErrorContext(ctx, "catalog refresh failed, keeping previous set",
			"error", err,
			"previous_size", c.Size(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return upstream.ToDomain(err, dErrors.CodeCatalogUnavailable, "catalog unavailable")
	}

	c.mu.Lock()
	c.skus = next
	c.loaded = true
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	c.metrics.ObserveRefresh("ok", time.Since(start))
	c.metrics.SetRestrictedSKUs(len(next))
	c.logger.InfoContext(ctx, "catalog refreshed",
		"restricted_skus", len(next),
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// load walks every page into a fresh set. A rejected token is replaced and
// the same page fetched again, once per load.
func (c *Cache) load(ctx context.Context) (map[domain.SKU]struct{}, error) {
	next := make(map[domain.SKU]struct{})
	cursor := ""
	retried := false

	for {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		p, err := c.client.fetchPage(ctx, token, cursor)
		if errors.Is(err, sentinel.ErrUnauthorized) && !retried {
			retried = true
			c.metrics.IncTokenRetry()
			c.tokens.Invalidate()
			c.logger.WarnContext(ctx, "storefront token rejected, minting a new one",
				"cursor", cursor,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, product := range p.Products {
			addSKU(next, product.BaseSKU)
			for _, v := range product.VariantSKUs {
				addSKU(next, v)
			}
		}
		if !p.HasNextPage {
			return next, nil
		}
		cursor = p.EndCursor
	}
}

func addSKU(set map[domain.SKU]struct{}, raw string) {
	if sku := domain.NormalizeSKU(raw); !sku.IsZero() {
		set[sku] = struct{}{}
	}
}

// EnsureLoaded refreshes only while the restricted set is empty.
func (c *Cache) EnsureLoaded(ctx context.Context) error {
	if c.Size() > 0 {
		return nil
	}
	return c.Refresh(ctx)
}

// IsRestricted reports membership after trim and upper-case normalization.
func (c *Cache) IsRestricted(sku string) bool {
	normalized := domain.NormalizeSKU(sku)
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.skus[normalized]
	return ok
}

// Snapshot returns the current set in sorted order.
func (c *Cache) Snapshot() []domain.SKU {
	c.mu.RLock()
	out := make([]domain.SKU, 0, len(c.skus))
	for sku := range c.skus {
		out = append(out, sku)
	}
	c.mu.RUnlock()
	slices.Sort(out)
	return out
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.skus)
}

// Loaded reports whether any refresh has succeeded, and when the last one did.
func (c *Cache) Loaded() (bool, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded, c.refreshedAt
}

// Run refreshes every interval until ctx is cancelled. Failures are logged
// and leave the current set in place.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}
