package payments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetverse/assetverse/internal/platform/gateway"
	"github.com/assetverse/assetverse/internal/platform/httpx"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/internal/shared"
)

// CheckoutRequest starts a package checkout.
type CheckoutRequest struct {
	PackageID  int64  `json:"package_id" validate:"required,gt=0"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

// ConfirmRequest settles a returned checkout session.
type ConfirmRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// Handler wires the package and payment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountPublicRoutes registers the package catalog.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/packages", h.packages)
}

// MountHRRoutes registers the manager-side payment endpoints.
func (h *Handler) MountHRRoutes(r chi.Router) {
	r.Post("/payments/checkout", h.checkout)
	r.Post("/payments/confirm", h.confirm)
	r.Get("/payments", h.history)
}

func (h *Handler) packages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.service.Packages(r.Context())
	if err != nil {
		h.respondErr(w, "list packages", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"packages": pkgs})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sess := session.FromContext(r.Context())
	resp, err := h.service.StartCheckout(r.Context(), sess.AccountID, req.PackageID, req.SuccessURL, req.CancelURL)
	if err != nil {
		h.respondErr(w, "start checkout", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sess := session.FromContext(r.Context())
	payment, err := h.service.Confirm(r.Context(), sess.AccountID, req.SessionID)
	if err != nil {
		h.respondErr(w, "confirm payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	q := shared.ParseListQuery(r)
	resp, err := h.service.History(r.Context(), sess.AccountID, q)
	if err != nil {
		h.respondErr(w, "payment history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	var statusErr *gateway.StatusError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrNotSettled):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, gateway.ErrUnreachable):
		httpx.RespondError(w, httpx.ErrUnavailable)
	case errors.As(err, &statusErr):
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUpstream)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
