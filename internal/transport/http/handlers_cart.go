package httptransport

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agegate/internal/cart"
	"agegate/internal/gate"
	"agegate/internal/platform/middleware"
	"agegate/pkg/platform/httputil"
	"agegate/pkg/requestcontext"
)

// CartHandler serves the cart gate and catalog endpoints.
type CartHandler struct {
	gate       CartGate
	catalog    CatalogRefresher
	adminToken string
	logger     *slog.Logger
}

func NewCartHandler(gate CartGate, catalog CatalogRefresher, adminToken string, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		gate:       gate,
		catalog:    catalog,
		adminToken: adminToken,
		logger:     logger,
	}
}

func (h *CartHandler) Register(r chi.Router) {
	r.Post("/validate-cart", h.handleValidateCart)
	r.Post("/restricted-items", h.handleRestrictedItems)
	r.With(middleware.RequireAdminToken(h.adminToken, h.logger)).
		Post("/catalog/refresh", h.handleCatalogRefresh)
}

// handleValidateCart removes restricted lines from an unverified cart. A
// bypass code in the body is ignored.
func (h *CartHandler) handleValidateCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.gate.CheckCart(ctx, req.cartID, gate.ModeFilterRestricted, "")
	if err != nil {
		h.logger.ErrorContext(ctx, "cart validation failed",
			"request_id", requestID,
			"cart_id", req.cartID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := ValidateCartResponse{
		Skipped:      res.Skipped,
		RemovedItems: res.RemovedItems,
		FailedItems:  res.FailedItems,
	}
	if resp.RemovedItems == nil {
		resp.RemovedItems = []cart.LineItem{}
	}
	switch {
	case res.Skipped:
		resp.Message = "cart is age verified"
	case len(res.FailedItems) > 0:
		resp.Message = fmt.Sprintf("removed %d restricted item(s), %d could not be removed",
			len(res.RemovedItems), len(res.FailedItems))
	case len(res.RemovedItems) > 0:
		resp.Message = fmt.Sprintf("removed %d restricted item(s)", len(res.RemovedItems))
	default:
		resp.Message = "no restricted items in cart"
	}
	if len(res.RemovedItems) > 0 || len(res.FailedItems) > 0 {
		h.logger.InfoContext(ctx, "restricted items removed from cart",
			"request_id", requestID,
			"cart_id", req.cartID,
			"removed", len(res.RemovedItems),
			"failed", len(res.FailedItems),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleRestrictedItems lists restricted SKUs in an unverified cart without
// changing it. An accepted bypass code skips the check.
func (h *CartHandler) handleRestrictedItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.gate.CheckCart(ctx, req.cartID, gate.ModeBlockIfUnverified, req.Code)
	if err != nil {
		h.logger.ErrorContext(ctx, "restricted item check failed",
			"request_id", requestID,
			"cart_id", req.cartID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if res.Skipped {
		msg := "cart is age verified"
		if res.Reason == gate.SkipBypassCode {
			msg = "age check bypassed"
		}
		httputil.WriteJSON(w, http.StatusOK, SkippedResponse{Message: msg, Skipped: true})
		return
	}

	skus := make([]string, 0, len(res.RestrictedSKUs))
	for _, sku := range res.RestrictedSKUs {
		skus = append(skus, sku.String())
	}
	httputil.WriteJSON(w, http.StatusOK, RestrictedItemsResponse{RestrictedSKUs: skus})
}

func (h *CartHandler) handleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.catalog.Refresh(ctx); err != nil {
		h.logger.ErrorContext(ctx, "catalog refresh failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	_, at := h.catalog.Loaded()
	httputil.WriteJSON(w, http.StatusOK, CatalogRefreshResponse{
		RestrictedSKUCount: h.catalog.Size(),
		RefreshedAt:        at,
	})
}
