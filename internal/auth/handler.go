package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/platform/gateway"
	"github.com/assetverse/assetverse/internal/platform/httpx"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/internal/shared"
)

// maxPhotoBytes caps the in-memory part of the registration upload.
const maxPhotoBytes = 10 << 20

// LoginRequest carries the sign-in credentials plus the path the client was
// bounced away from, echoed back verbatim on success.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	ReturnTo string `json:"return_to"`
}

// ForgotRequest starts credential recovery.
type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetRequest finishes credential recovery.
type ResetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is the successful login or registration payload.
type AuthResponse struct {
	Token    string           `json:"token"`
	Session  *session.Session `json:"session"`
	ReturnTo string           `json:"return_to,omitempty"`
}

// Handler wires the authentication endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountPublicRoutes registers the unauthenticated endpoints.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/forgot-password", h.forgotPassword)
	r.Post("/auth/reset-password", h.resetPassword)
}

// MountSessionRoutes registers the endpoints that need a live session.
func (h *Handler) MountSessionRoutes(r chi.Router) {
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/me", h.me)
	r.Patch("/auth/me", h.updateProfile)
}

// register accepts a multipart form so the profile photo travels with the
// signup fields in one request.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expected multipart form data")
		return
	}

	reg := Registration{
		Email:       strings.TrimSpace(r.FormValue("email")),
		Password:    r.FormValue("password"),
		DisplayName: strings.TrimSpace(r.FormValue("name")),
		Role:        strings.TrimSpace(r.FormValue("role")),
		CompanyName: strings.TrimSpace(r.FormValue("company_name")),
		CompanyLogo: strings.TrimSpace(r.FormValue("company_logo")),
	}
	if raw := r.FormValue("date_of_birth"); raw != "" {
		dob, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_of_birth must be YYYY-MM-DD")
			return
		}
		reg.DateOfBirth = &dob
	}
	if err := h.validator.Var(reg.Email, "required,email"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "That email address doesn't look right.")
		return
	}
	if reg.DisplayName == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "name is required")
		return
	}
	if reg.Role == string(accounts.RoleHR) && reg.CompanyName == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_name is required for HR accounts")
		return
	}

	var photo io.Reader
	var photoName string
	file, header, err := r.FormFile("photo")
	switch {
	case err == nil:
		defer file.Close()
		photo = file
		photoName = header.Filename
	case errors.Is(err, http.ErrMissingFile):
		// Photo is optional.
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "photo field is malformed")
		return
	}

	token, sess, err := h.service.Register(r.Context(), reg, photo, photoName)
	if err != nil {
		h.respondAuthError(w, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, AuthResponse{Token: token, Session: sess})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", loginValidationDetail(err))
		return
	}

	token, sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, AuthResponse{
		Token:    token,
		Session:  sess,
		ReturnTo: sanitizeReturnTo(req.ReturnTo),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := h.service.Logout(r.Context(), sess.ID); err != nil {
		h.respondAuthError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, session.FromContext(r.Context()))
}

// updateProfile takes the same multipart shape as registration so a new
// photo can ride along with the name change.
func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expected multipart form data")
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "name is required")
		return
	}

	var photo io.Reader
	var photoName string
	file, header, err := r.FormFile("photo")
	switch {
	case err == nil:
		defer file.Close()
		photo = file
		photoName = header.Filename
	case errors.Is(err, http.ErrMissingFile):
		// Keeping the current photo.
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "photo field is malformed")
		return
	}

	sess := session.FromContext(r.Context())
	account, err := h.service.UpdateProfile(r.Context(), sess.AccountID, sess.ID, name, photo, photoName)
	if err != nil {
		h.respondAuthError(w, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "That email address doesn't look right.")
		return
	}
	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.respondAuthError(w, "forgot password", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token and password are required")
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.respondAuthError(w, "reset password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondAuthError translates pipeline failures into the friendly messages
// the client renders, keeping the raw error as a server-side log line.
func (h *Handler) respondAuthError(w http.ResponseWriter, op string, err error) {
	var statusErr *gateway.StatusError
	switch {
	case errors.Is(err, shared.ErrEmailTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict",
			"This email is already registered. Try signing in instead.")
	case errors.Is(err, ErrWeakPassword):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
			"Passwords need six characters including an upper-case letter and a special character.")
	case errors.Is(err, accounts.ErrRoleUnresolved):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role must be hr or employee")
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Wrong email or password.")
	case errors.Is(err, shared.ErrTokenInvalid):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
			"This reset link is invalid or has expired. Request a new one.")
	case errors.Is(err, gateway.ErrUnreachable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Temporarily Unavailable",
			"Network problem. Check your connection and try again.")
	case errors.As(err, &statusErr):
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUpstream)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// loginValidationDetail names the failing credential field instead of
// blaming the email address for every miss.
func loginValidationDetail(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err.Error()
	}
	switch f := errs[0]; f.Field() {
	case "Email":
		if f.Tag() == "email" {
			return "That email address doesn't look right."
		}
		return "Email is required."
	case "Password":
		return "Password is required."
	}
	return errs[0].Error()
}

// sanitizeReturnTo only echoes same-origin relative paths; anything else
// falls back to the root so login can never redirect off-site.
func sanitizeReturnTo(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" || !strings.HasPrefix(parsed.Path, "/") {
		return "/"
	}
	return parsed.String()
}
