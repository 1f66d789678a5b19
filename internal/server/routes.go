package server

import "net/http"

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	s.mux.HandleFunc("/auth/register", s.handleRegister)
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.HandleFunc("/auth/login/verify", s.handleLoginVerify)
	s.mux.HandleFunc("/auth/verify-email", s.handleVerifyEmail)
	s.mux.HandleFunc("/auth/resend-verification", s.handleResendVerification)
	s.mux.HandleFunc("/auth/forgot-password", s.handleForgotPassword)
	s.mux.HandleFunc("/auth/reset-password", s.handleResetPassword)
	s.mux.HandleFunc("/auth/logout", s.handleLogout)

	s.mux.HandleFunc("/users/me", s.handleMe)
	s.mux.HandleFunc("/users/change-password", s.handleChangePassword)
	s.mux.HandleFunc("/users/two-factor", s.handleTwoFactor)

	s.mux.HandleFunc("/vault", s.handleVault)
	s.mux.HandleFunc("/vault/", s.handleVaultItem)

	s.mux.HandleFunc("/sessions", s.handleSessions)
	s.mux.HandleFunc("/sessions/", s.handleSessionByID)

	s.mux.HandleFunc("/gdpr/export", s.handleExport)
	s.mux.HandleFunc("/gdpr/deleteAll", s.handleEraseAll)
	s.mux.HandleFunc("/gdpr/consent", s.handleConsent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
