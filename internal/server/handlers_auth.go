package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
)

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Consent  bool   `json:"consent"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token             string    `json:"token,omitempty"`
	ExpiresAt         time.Time `json:"expiresAt,omitempty"`
	TwoFactorRequired bool      `json:"twoFactorRequired,omitempty"`
	Note              string    `json:"note,omitempty"`
}

type loginVerifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type tokenReq struct {
	Token string `json:"token"`
}

type emailReq struct {
	Email string `json:"email"`
}

type resetPasswordReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rlRegisterIP.allow(getClientIP(r)) {
		tooMany(w, 3600)
		return
	}

	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !isValidEmail(req.Email) {
		http.Error(w, "valid email required", http.StatusBadRequest)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.account.Register(r.Context(), req.Email, req.Password, strings.TrimSpace(req.Name), req.Consent); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]string{
		"message": "registered; check your email to verify the account",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rlLoginIP.allow(getClientIP(r)) {
		tooMany(w, 900)
		return
	}

	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	res, err := s.account.Login(r.Context(), req.Email, req.Password, clientMeta(r))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if res.TwoFactorRequired {
		writeJSON(w, loginResp{TwoFactorRequired: true, Note: "verification code sent by email"})
		return
	}
	writeJSON(w, loginResp{Token: res.Token, ExpiresAt: res.ExpiresAt})
}

func (s *Server) handleLoginVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rlVerify2FA.allow(getClientIP(r)) {
		tooMany(w, 600)
		return
	}

	var req loginVerifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	res, err := s.account.VerifyTwoFactor(r.Context(), req.Email, req.Code, clientMeta(r))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, loginResp{Token: res.Token, ExpiresAt: res.ExpiresAt})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req tokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.account.VerifyEmail(r.Context(), req.Token); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "email verified"})
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rlResendIP.allow(getClientIP(r)) {
		tooMany(w, 900)
		return
	}

	var req emailReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.account.ResendVerification(r.Context(), req.Email); err != nil {
		s.serviceError(w, err)
		return
	}
	// Same body whether or not the address is registered.
	writeJSON(w, map[string]string{"message": "if the address is registered and unverified, a new link has been sent"})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rlForgotIP.allow(getClientIP(r)) {
		tooMany(w, 900)
		return
	}

	var req emailReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.account.ForgotPassword(r.Context(), req.Email); err != nil {
		s.serviceError(w, err)
		return
	}
	// Same body whether or not the address is registered.
	writeJSON(w, map[string]string{"message": "if the address is registered, a reset link has been sent"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resetPasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.account.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "password reset"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err := s.account.Logout(r.Context(), id.UserID, id.SID); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
