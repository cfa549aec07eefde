package employees

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/platform/httpx"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/internal/shared"
)

// Handler wires team affiliation endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountHRRoutes registers the manager-side roster endpoints.
func (h *Handler) MountHRRoutes(r chi.Router) {
	r.Get("/team", h.roster)
	r.Get("/team/unaffiliated", h.unaffiliated)
	r.Post("/team/{id}", h.add)
	r.Delete("/team/{id}", h.remove)
}

// MountEmployeeRoutes registers the member-side endpoints.
func (h *Handler) MountEmployeeRoutes(r chi.Router) {
	r.Get("/team", h.myTeam)
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	q := shared.ParseListQuery(r)
	resp, err := h.service.Roster(r.Context(), sess.AccountID, q)
	if err != nil {
		h.respondErr(w, "team roster", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) unaffiliated(w http.ResponseWriter, r *http.Request) {
	q := shared.ParseListQuery(r)
	resp, err := h.service.Unaffiliated(r.Context(), q)
	if err != nil {
		h.respondErr(w, "unaffiliated employees", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	sess := session.FromContext(r.Context())
	if err := h.service.AddMember(r.Context(), sess.AccountID, employeeID); err != nil {
		h.respondErr(w, "add team member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	sess := session.FromContext(r.Context())
	if err := h.service.RemoveMember(r.Context(), sess.AccountID, employeeID); err != nil {
		h.respondErr(w, "remove team member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) myTeam(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	team, members, err := h.service.MyTeam(r.Context(), sess.AccountID)
	if err != nil {
		h.respondErr(w, "my team", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"team": team, "members": members})
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrNoTeam):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrTeamFull), errors.Is(err, ErrAlreadyAffiliated):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
