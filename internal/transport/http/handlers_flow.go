package httptransport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agegate/internal/flow"
	"agegate/internal/oidc"
	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/platform/httputil"
	"agegate/pkg/requestcontext"
)

// FlowHandler serves the bank verification endpoints.
type FlowHandler struct {
	flow        FlowService
	status      StatusReader
	diagnostics DiagnosticsSource
	cookies     CookieConfig
	claims      []string
	purpose     string
	logger      *slog.Logger
}

func NewFlowHandler(
	flow FlowService,
	status StatusReader,
	diagnostics DiagnosticsSource,
	cookies CookieConfig,
	claims []string,
	purpose string,
	logger *slog.Logger,
) *FlowHandler {
	return &FlowHandler{
		flow:        flow,
		status:      status,
		diagnostics: diagnostics,
		cookies:     cookies,
		claims:      claims,
		purpose:     purpose,
		logger:      logger,
	}
}

func (h *FlowHandler) Register(r chi.Router) {
	r.Post("/select-bank", h.handleSelectBank)
	r.Get("/retrieve-tokens", h.handleRetrieveTokens)
	r.Post("/reset", h.handleReset)
	r.Get("/verification-status", h.handleVerificationStatus)
	r.Get("/logs", h.handleLogs)
}

// handleSelectBank pushes an authorisation request to the chosen bank and
// sets the flow cookies the callback must present back.
func (h *FlowHandler) handleSelectBank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SelectBankRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	started, err := h.flow.Begin(ctx, req.cartID, req.bankID, h.claims, h.purpose)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start verification flow",
			"request_id", requestID,
			"cart_id", req.cartID,
			"authorisation_server_id", req.bankID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.cookies.setFlowCookies(w, started.Pending)
	h.logger.InfoContext(ctx, "verification flow started",
		"request_id", requestID,
		"cart_id", req.cartID,
		"authorisation_server_id", req.bankID,
	)
	httputil.WriteJSON(w, http.StatusOK, SelectBankResponse{AuthURL: started.AuthURL})
}

// handleRetrieveTokens completes the flow from the bank redirect. The cart is
// identified by the cart_id cookie set at select-bank time.
func (h *FlowHandler) handleRetrieveTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	q := r.URL.Query()

	cartID, err := callbackCartID(r)
	if err != nil {
		h.logger.WarnContext(ctx, "callback cart does not match cookie",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	cb := oidc.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Issuer:           q.Get("iss"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
	done, err := h.flow.Complete(ctx, cartID, cb, presentedSecrets(r))
	if err != nil {
		if flowEnded(err) {
			h.cookies.clearFlowCookies(w)
		}
		h.logger.WarnContext(ctx, "verification flow not completed",
			"request_id", requestID,
			"cart_id", cartID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.cookies.clearFlowCookies(w)
	h.logger.InfoContext(ctx, "cart verified",
		"request_id", requestID,
		"cart_id", cartID,
		"expires_at", done.Result.ExpiresAt,
	)
	httputil.WriteJSON(w, http.StatusOK, RetrieveTokensResponse{
		Claims:       done.Claims,
		Token:        done.IDToken,
		UserInfo:     done.UserInfo,
		SessionToken: done.Result.SessionToken,
		ExpiresAt:    done.Result.ExpiresAt,
	})
}

func (h *FlowHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.flow.Reset(ctx, req.cartID); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset verification",
			"request_id", requestID,
			"cart_id", req.cartID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.cookies.clearFlowCookies(w)
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "verification cleared"})
}

func (h *FlowHandler) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cartID, err := domain.ParseCartID(r.URL.Query().Get("cartId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	state, result, err := h.status.Status(ctx, cartID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read verification status",
			"request_id", requestcontext.RequestID(ctx),
			"cart_id", cartID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := VerificationStatusResponse{State: string(state)}
	if result != nil {
		resp.Verified = true
		resp.ExpiresAt = &result.ExpiresAt
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *FlowHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	checks := h.diagnostics.Checks(requestcontext.Now(r.Context()))
	httputil.WriteJSON(w, http.StatusOK, LogsResponse{Checks: checks})
}

// callbackCartID reads the cart from the cart_id cookie. A cartId query
// parameter is accepted only when it names the same cart. A missing or
// malformed cookie yields an empty CartID, which the flow reports as a
// missing session cookie.
func callbackCartID(r *http.Request) (domain.CartID, error) {
	cartID, err := domain.ParseCartID(cookieValue(r, cookieCartID))
	if err != nil {
		return "", nil
	}
	if raw := r.URL.Query().Get("cartId"); raw != "" {
		queried, err := domain.ParseCartID(raw)
		if err != nil || queried != cartID {
			return "", dErrors.New(dErrors.CodeSessionMismatch, "cartId does not match the verification session")
		}
	}
	return cartID, nil
}

// flowEnded reports whether a completion error left no pending flow behind,
// so the browser's flow cookies are useless.
func flowEnded(err error) bool {
	if errors.Is(err, flow.ErrAbandoned) {
		return true
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeAgeRequirementNotMet, dErrors.CodeUpstreamUnavailable:
		return true
	default:
		return false
	}
}
