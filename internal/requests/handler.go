package requests

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetverse/assetverse/internal/platform/httpx"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/internal/shared"
)

// Handler wires the request lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountEmployeeRoutes registers the requester-side endpoints.
func (h *Handler) MountEmployeeRoutes(r chi.Router) {
	r.Post("/requests", h.create)
	r.Get("/requests", h.listMine)
	r.Get("/requests/monthly", h.monthly)
	r.Post("/requests/{id}/cancel", h.cancel)
	r.Post("/requests/{id}/return", h.returnAsset)
}

// MountHRRoutes registers the approver-side endpoints.
func (h *Handler) MountHRRoutes(r chi.Router) {
	r.Get("/requests", h.listTeam)
	r.Get("/requests/pending", h.listPending)
	r.Post("/requests/{id}/approve", h.approve)
	r.Post("/requests/{id}/reject", h.reject)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sess := session.FromContext(r.Context())
	created, err := h.service.Create(r.Context(), sess.AccountID, req)
	if err != nil {
		h.respondErr(w, "create request", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	q := shared.ParseListQuery(r, "request_date", "asset_name", "status")
	resp, err := h.service.ListForEmployee(r.Context(), sess.AccountID, q)
	if err != nil {
		h.respondErr(w, "list my requests", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	items, err := h.service.Monthly(r.Context(), sess.AccountID)
	if err != nil {
		h.respondErr(w, "monthly requests", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": items})
}

func (h *Handler) listTeam(w http.ResponseWriter, r *http.Request) {
	h.listForHR(w, r, false)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	h.listForHR(w, r, true)
}

func (h *Handler) listForHR(w http.ResponseWriter, r *http.Request, pendingOnly bool) {
	sess := session.FromContext(r.Context())
	q := shared.ParseListQuery(r, "request_date", "asset_name", "status")
	resp, err := h.service.ListForHR(r.Context(), sess.AccountID, pendingOnly, q)
	if err != nil {
		h.respondErr(w, "list team requests", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) returnAsset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Return)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request id")
		return
	}
	sess := session.FromContext(r.Context())
	if err := fn(r.Context(), id, sess.AccountID); err != nil {
		h.respondErr(w, "request transition", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrNotApproved),
		errors.Is(err, ErrNotReturnable), errors.Is(err, ErrOutOfStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
