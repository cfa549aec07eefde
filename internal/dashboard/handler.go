package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/platform/httpx"
	"github.com/assetverse/assetverse/internal/session"
)

// Handler serves the dashboard summaries.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountHRRoutes registers the manager dashboard.
func (h *Handler) MountHRRoutes(r chi.Router) {
	r.Get("/dashboard", h.hr)
}

// MountEmployeeRoutes registers the employee dashboard.
func (h *Handler) MountEmployeeRoutes(r chi.Router) {
	r.Get("/dashboard", h.employee)
}

func (h *Handler) hr(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	summary, err := h.service.HR(r.Context(), sess.AccountID)
	if err != nil {
		h.logger.Error("hr dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) employee(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	summary, err := h.service.Employee(r.Context(), sess.AccountID)
	if err != nil {
		h.logger.Error("employee dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
