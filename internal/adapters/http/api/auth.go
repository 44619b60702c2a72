package api

import (
	"context"
	"net/http"

	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/pkg/logger"
)

// AuthDependencies defines the email verification and access code operations.
type AuthDependencies interface {
	ResendVerification(ctx context.Context, email, locale string) (bool, error)
	VerifyEmail(ctx context.Context, email, token string) (model.Participant, error)
	ValidateAccessCode(ctx context.Context, code string) (model.AccessCode, error)
}

// AuthHandler handles /auth requests.
type AuthHandler struct {
	deps   AuthDependencies
	logger logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps AuthDependencies, log logger.Logger) *AuthHandler {
	return &AuthHandler{deps: deps, logger: log}
}

type sendVerificationRequest struct {
	Email  string `json:"email"`
	Locale string `json:"locale"`
}

type sendVerificationResponse struct {
	Success         bool   `json:"success"`
	AlreadyVerified bool   `json:"already_verified"`
	Message         string `json:"message"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type verifyEmailResponse struct {
	Success bool              `json:"success"`
	User    model.Participant `json:"user"`
}

type validateCodeRequest struct {
	Code string `json:"code"`
}

type validateCodeResponse struct {
	Valid       bool                 `json:"valid"`
	CodeType    model.ConnectionType `json:"code_type"`
	Description string               `json:"description,omitempty"`
	Message     string               `json:"message"`
}

// HandleSendVerification handles POST /auth/send-verification.
func (h *AuthHandler) HandleSendVerification(w http.ResponseWriter, r *http.Request) {
	const op = "api.send_verification"
	var req sendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = requestLocale(r)
	}

	already, err := h.deps.ResendVerification(r.Context(), req.Email, locale)
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	msg := "Verification email sent"
	if already {
		msg = "Email is already verified"
	}
	writeJSON(w, http.StatusOK, sendVerificationResponse{Success: true, AlreadyVerified: already, Message: msg})
}

// HandleVerifyEmail handles POST /auth/verify-email. Unknown and expired
// tokens are both client errors.
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify_email"
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.VerifyEmail(r.Context(), req.Email, req.Token)
	if err != nil {
		status, code := classify(err)
		if status == http.StatusNotFound {
			writeError(w, http.StatusBadRequest, "invalid_token", WrapKind(op, ErrBadRequest, err))
			return
		}
		if status >= http.StatusInternalServerError {
			respondError(r.Context(), h.logger, w, Wrap(op, err))
			return
		}
		writeError(w, status, code, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, verifyEmailResponse{Success: true, User: p})
}

// HandleValidateCode handles POST /auth/validate-code.
func (h *AuthHandler) HandleValidateCode(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_code"
	var req validateCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	c, err := h.deps.ValidateAccessCode(r.Context(), req.Code)
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, validateCodeResponse{
		Valid:       true,
		CodeType:    c.Type,
		Description: c.Description,
		Message:     "Access granted",
	})
}

// HandleLogout handles POST /auth/logout. Sessions live on the client, so
// there is nothing to revoke.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Logged out successfully"})
}
