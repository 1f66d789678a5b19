package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
	"github.com/tesnimSatouri/Secure-data-vault/internal/crypto"
	"github.com/tesnimSatouri/Secure-data-vault/internal/vault"
)

type createItemReq struct {
	Label    string `json:"label"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

type updateItemReq struct {
	Label    *string `json:"label"`
	Category *string `json:"category"`
	Content  *string `json:"content"`
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.vault.List(r.Context(), id.UserID)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		writeJSON(w, items)

	case http.MethodPost:
		var req createItemReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Label) == "" {
			http.Error(w, "label required", http.StatusBadRequest)
			return
		}
		if req.Content == "" {
			http.Error(w, "content required", http.StatusBadRequest)
			return
		}
		sum, err := s.vault.Create(r.Context(), id.UserID, req.Label, req.Category, req.Content)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, sum)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleVaultItem(w http.ResponseWriter, r *http.Request) {
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	itemID := strings.TrimPrefix(r.URL.Path, "/vault/")
	if itemID == "" || strings.Contains(itemID, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		det, err := s.vault.Get(r.Context(), id.UserID, itemID)
		if err != nil {
			// Tag failures must leave a trace, not just a generic 500.
			if errors.Is(err, crypto.ErrIntegrity) {
				s.log.Error().Str("user", id.UserID).Str("item", itemID).
					Msg("integrity check failed on read")
			}
			s.serviceError(w, err)
			return
		}
		writeJSON(w, det)

	case http.MethodPut:
		var req updateItemReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Label == nil && req.Category == nil && req.Content == nil {
			http.Error(w, "nothing to update", http.StatusBadRequest)
			return
		}
		if req.Content != nil && *req.Content == "" {
			http.Error(w, "content must not be empty", http.StatusBadRequest)
			return
		}
		sum, err := s.vault.Update(r.Context(), id.UserID, itemID, vault.Update{
			Label:    req.Label,
			Category: req.Category,
			Content:  req.Content,
		})
		if err != nil {
			s.serviceError(w, err)
			return
		}
		writeJSON(w, sum)

	case http.MethodDelete:
		if err := s.vault.Delete(r.Context(), id.UserID, itemID); err != nil {
			s.serviceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
