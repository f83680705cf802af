package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/yamdb/internal/service"
)

// AuthHandler serves the two steps of the passwordless login:
//
//	POST /auth/signup  {email, username}           → code sent by email
//	POST /auth/token   {username, confirmation_code} → {"token": "<JWT>"}
type AuthHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAuthHandler(accounts *service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

// HandleSignup registers an account or re-sends a code. It answers 200 in
// both cases: repeating a signup is how a user asks for a new code.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, SignupView{
		Email:    res.Account.Email,
		Username: res.Account.Username,
		Warning:  res.Warning,
	})
}

// HandleToken exchanges a confirmation code for an access token.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var in service.TokenInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.accounts.ExchangeCode(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, TokenView{Token: token})
}
