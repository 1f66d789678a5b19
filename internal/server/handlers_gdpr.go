package server

import (
	"encoding/json"
	"net/http"

	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
)

type consentReq struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	exp, err := s.account.ExportData(r.Context(), id.UserID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="vault-export.json"`)
	writeJSON(w, exp)
}

func (s *Server) handleEraseAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if err := s.account.DeleteAccount(r.Context(), id.UserID); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req consentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.account.RecordConsent(r.Context(), id.UserID, req.Accepted); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"consentAccepted": req.Accepted})
}
