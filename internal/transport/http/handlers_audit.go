package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agegate/internal/audit"
	"agegate/internal/platform/middleware"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/platform/httputil"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditHandler exposes the in-memory audit trail to operators.
type AuditHandler struct {
	events     AuditReader
	adminToken string
	logger     *slog.Logger
}

func NewAuditHandler(events AuditReader, adminToken string, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{events: events, adminToken: adminToken, logger: logger}
}

func (h *AuditHandler) Register(r chi.Router) {
	r.With(middleware.RequireAdminToken(h.adminToken, h.logger)).
		Get("/audit/events", h.handleRecent)
}

type AuditEventsResponse struct {
	Events []audit.Event `json:"events"`
}

func (h *AuditHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	events := h.events.Recent(limit)
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, AuditEventsResponse{Events: events})
}
