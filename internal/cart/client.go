// Package cart reads and edits BigCommerce carts through the management
// REST API.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agegate/internal/platform/config"
	"agegate/internal/platform/upstream"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/platform/circuit"
	"agegate/pkg/requestcontext"
)

const upstreamName = "bigcommerce-cart"

// Client is the cart API client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	breaker     *circuit.Breaker
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBreaker fails calls fast while the cart API is down.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func New(cfg config.StoreConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:  upstream.NewHTTPClient(10 * time.Second),
		baseURL:     strings.TrimSuffix(cfg.APIBase, "/") + "/stores/" + cfg.Hash + "/v3/carts/",
		accessToken: cfg.AccessToken,
		breaker:     circuit.New(upstreamName),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetItems returns every line item in the cart, physical, digital and custom.
// An unknown cart yields a NotFound error; any other failure yields
// CartServiceUnavailable.
func (c *Client) GetItems(ctx context.Context, cartID domain.CartID) ([]LineItem, error) {
	resp, body, err := c.do(ctx, http.MethodGet, url.PathEscape(string(cartID)))
	if err != nil {
		return nil, c.domainError(ctx, err, cartID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.domainError(ctx, upstream.FromStatus(upstreamName, resp.StatusCode, body), cartID)
	}

	var out cartResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, c.domainError(ctx, upstream.New(upstream.CategoryBadData, upstreamName, "decode cart", err), cartID)
	}
	items := out.Data.LineItems
	all := make([]LineItem, 0, len(items.PhysicalItems)+len(items.DigitalItems)+len(items.CustomItems))
	for _, group := range [][]upstreamItem{items.PhysicalItems, items.DigitalItems, items.CustomItems} {
		for _, item := range group {
			all = append(all, item.toLineItem())
		}
	}
	return all, nil
}

// DeleteItem removes one line item. Removing the last item deletes the cart
// upstream, which answers 204; that counts as success.
func (c *Client) DeleteItem(ctx context.Context, cartID domain.CartID, itemID string) error {
	path := url.PathEscape(string(cartID)) + "/items/" + url.PathEscape(itemID)
	resp, body, err := c.do(ctx, http.MethodDelete, path)
	if err != nil {
		return c.domainError(ctx, err, cartID)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.domainError(ctx, upstream.FromStatus(upstreamName, resp.StatusCode, body), cartID)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build cart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Auth-Token", c.accessToken)

	if !c.breaker.Allow() {
		return nil, nil, upstream.New(upstream.CategoryOutage, upstreamName, "circuit open", nil)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordOutcome(ctx, false)
		return nil, nil, upstream.FromTransport(upstreamName, err)
	}
	body, err := upstream.ReadBody(resp)
	if err != nil {
		c.recordOutcome(ctx, false)
		return nil, nil, upstream.FromTransport(upstreamName, err)
	}
	c.recordOutcome(ctx, resp.StatusCode < http.StatusInternalServerError)
	return resp, body, nil
}

func (c *Client) recordOutcome(ctx context.Context, ok bool) {
	if ok {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "cart service recovered", "breaker", c.breaker.Name())
		}
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "cart service circuit opened",
			"breaker", c.breaker.Name(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (c *Client) domainError(ctx context.Context, err error, cartID domain.CartID) error {
	if upstream.CategoryOf(err) == upstream.CategoryNotFound {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "cart not found").
			WithDetail("cart_id", string(cartID))
	}
	c.logger.WarnContext(ctx, "cart service call failed",
		"error", err,
		"cart_id", cartID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return upstream.ToDomain(err, dErrors.CodeCartServiceUnavailable, "cart service unavailable")
}
