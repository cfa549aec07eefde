package assets

import (
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

// Handler wires HTTP endpoints for the asset catalog and HR asset CRUD.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountPublicRoutes registers the browse endpoints.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/assets", h.list)
	r.Get("/assets/{id}", h.show)
}

// MountHRRoutes registers the HR-gated CRUD endpoints.
func (h *Handler) MountHRRoutes(r chi.Router) {
	r.Get("/assets", h.listMine)
	r.Post("/assets", h.create)
	r.Patch("/assets/{id}", h.update)
	r.Delete("/assets/{id}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := shared.ParseListQuery(r, "created_at", "name", "quantity")
	resp, err := h.service.List(r.Context(), 0, q)
	if err != nil {
		h.logger.Error("list assets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	q := shared.ParseListQuery(r, "created_at", "name", "quantity")
	resp, err := h.service.List(r.Context(), sess.AccountID, q)
	if err != nil {
		h.logger.Error("list hr assets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid asset id")
		return
	}
	asset, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, "show asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	sess := session.FromContext(r.Context())
	asset, err := h.service.Create(r.Context(), sess.AccountID, req)
	if err != nil {
		respondDomainError(w, h.logger, "create asset", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid asset id")
		return
	}
	var req UpdateAssetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	sess := session.FromContext(r.Context())
	asset, err := h.service.Update(r.Context(), id, sess.AccountID, req)
	if err != nil {
		respondDomainError(w, h.logger, "update asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid asset id")
		return
	}
	sess := session.FromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, sess.AccountID); err != nil {
		respondDomainError(w, h.logger, "delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondDomainError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if logger != nil {
		logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func validationDetail(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return errs[0].Error()
	}
	return err.Error()
}
