package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
)

type updateProfileReq struct {
	Name string `json:"name"`
}

type changePasswordReq struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

type twoFactorReq struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.account.Profile(r.Context(), id.UserID)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		writeJSON(w, p)

	case http.MethodPut:
		var req updateProfileReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		p, err := s.account.UpdateProfile(r.Context(), id.UserID, req.Name)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		writeJSON(w, p)

	case http.MethodDelete:
		if err := s.account.DeleteAccount(r.Context(), id.UserID); err != nil {
			s.serviceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req changePasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := validatePassword(req.Next); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.account.ChangePassword(r.Context(), id.UserID, req.Current, req.Next); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "password changed"})
}

func (s *Server) handleTwoFactor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req twoFactorReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.account.SetTwoFactor(r.Context(), id.UserID, req.Enabled); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"twoFactorEnabled": req.Enabled})
}
