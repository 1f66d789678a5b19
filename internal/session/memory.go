package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore backs tests and local development. Expired records are filtered
// on every read and lazily dropped, standing in for the Mongo TTL reaper.
type MemoryStore struct {
	mu    sync.Mutex
	bySID map[string]Record
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySID: map[string]Record{}, now: time.Now}
}

// WithClock overrides the store's clock. Tests only.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Create(_ context.Context, userID string, meta Meta) (Record, error) {
	sid, err := NewSID()
	if err != nil {
		return Record{}, err
	}
	now := s.now()
	rec := Record{
		ID:         uuid.NewString(),
		UserID:     userID,
		SID:        sid,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		Device:     SummarizeUserAgent(meta.UserAgent),
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(Lifetime),
	}
	s.mu.Lock()
	s.bySID[sid] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *MemoryStore) FindBySID(_ context.Context, sid string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.bySID[sid]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.expired(s.now()) {
		delete(s.bySID, sid)
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Exists(ctx context.Context, sid string) (bool, error) {
	_, err := s.FindBySID(ctx, sid)
	if err == nil {
		return true, nil
	}
	if err == ErrNotFound {
		return false, nil
	}
	return false, err
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Record, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for sid, rec := range s.bySID {
		if rec.expired(now) {
			delete(s.bySID, sid)
			continue
		}
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out, nil
}

func (s *MemoryStore) Touch(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.bySID[sid]
	if !ok || rec.expired(s.now()) {
		return ErrNotFound
	}
	rec.LastActive = s.now()
	s.bySID[sid] = rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySID[sid]; !ok {
		return ErrNotFound
	}
	delete(s.bySID, sid)
	return nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, rec := range s.bySID {
		if rec.ID == id && rec.UserID == userID {
			delete(s.bySID, sid)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, rec := range s.bySID {
		if rec.UserID == userID {
			delete(s.bySID, sid)
		}
	}
	return nil
}
