package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/authz"
)

// Handler exposes the admin session endpoints.
type Handler struct {
	svc      *AdminService
	cookies  *authz.Cookies
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

func NewHandler(svc *AdminService, cookies *authz.Cookies, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, cookies: cookies, validate: validator.New(), logger: logger}
}

// LoginRequest is read from the form body (OAuth2 password-flow style).
type LoginRequest struct {
	Username string `validate:"required,max=254"`
	Password string `validate:"required,max=128"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Debugw("invalid login form", "err", err)
		apperr.WriteError(w, apperr.ErrInvalidRequest)
		return
	}
	req := LoginRequest{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}
	if err := h.validate.Struct(req); err != nil {
		apperr.WriteError(w, fmt.Errorf("%w: username and password are required", apperr.ErrInvalidRequest))
		return
	}
	pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, "login failed", err)
		return
	}
	h.cookies.SetAccess(w, pair.AccessToken)
	h.cookies.SetRefresh(w, pair.RefreshToken)
	apperr.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := authz.RefreshToken(r)
	if raw == "" {
		apperr.WriteError(w, apperr.ErrCredentialsInvalid)
		return
	}
	pair, err := h.svc.Refresh(r.Context(), raw)
	if err != nil {
		h.fail(w, "refresh failed", err)
		return
	}
	h.cookies.SetAccess(w, pair.AccessToken)
	apperr.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Expire(w)
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me returns the identity resolved by the auth middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		apperr.WriteError(w, apperr.ErrCredentialsInvalid)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, id)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("uuid")
	id, err := uuid.Parse(raw)
	if err != nil {
		apperr.WriteError(w, fmt.Errorf("%w: uuid must be a valid UUID", apperr.ErrInvalidRequest))
		return
	}
	view, err := h.svc.Info(r.Context(), id.String())
	if err != nil {
		h.fail(w, "find admin", err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, view)
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,max=4096"`
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || h.validate.Struct(req) != nil {
		apperr.WriteError(w, fmt.Errorf("%w: code is required", apperr.ErrInvalidRequest))
		return
	}
	payload, err := h.svc.VerifyCode(req.Code)
	if err != nil {
		h.fail(w, "verify code", err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, payload)
}

type issueCodeRequest struct {
	Payload    map[string]any `json:"payload"`
	TTLMinutes int            `json:"ttl_minutes" validate:"gte=0,lte=10080"`
}

// IssueCode mints a verification code for an arbitrary payload.
func (h *Handler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req issueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || h.validate.Struct(req) != nil {
		apperr.WriteError(w, fmt.Errorf("%w: payload object expected", apperr.ErrInvalidRequest))
		return
	}
	code, err := h.svc.IssueCode(req.Payload, time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		h.fail(w, "issue code", err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, map[string]string{"code": code})
}

// fail logs err in full, at warn level for 5xx, and writes the client-safe form.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Warnw(msg, "err", err)
	} else {
		h.logger.Debugw(msg, "err", err)
	}
	apperr.WriteError(w, err)
}
