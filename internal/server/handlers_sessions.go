package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
	"github.com/tesnimSatouri/Secure-data-vault/internal/session"
)

// sessionView is the listing shape: no sid, no raw user agent. IsCurrent marks
// the session the request itself rode in on.
type sessionView struct {
	ID         string         `json:"id"`
	IP         string         `json:"ip,omitempty"`
	Device     session.Device `json:"device"`
	CreatedAt  time.Time      `json:"createdAt"`
	LastActive time.Time      `json:"lastActive"`
	ExpiresAt  time.Time      `json:"expiresAt"`
	IsCurrent  bool           `json:"isCurrent"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	recs, err := s.sessions.ListByUser(r.Context(), id.UserID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	out := make([]sessionView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, sessionView{
			ID:         rec.ID,
			IP:         rec.IP,
			Device:     rec.Device,
			CreatedAt:  rec.CreatedAt,
			LastActive: rec.LastActive,
			ExpiresAt:  rec.ExpiresAt,
			IsCurrent:  rec.SID == id.SID,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := auth.MustIdentity(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.NotFound(w, r)
		return
	}

	if err := s.sessions.DeleteByID(r.Context(), id.UserID, sessionID); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
