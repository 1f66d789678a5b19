package vault

import (
	"context"
	"sync"
)

type MemoryItemStore struct {
	mu    sync.RWMutex
	items map[string]Item
	order []string
}

func NewMemoryItemStore() *MemoryItemStore {
	return &MemoryItemStore{items: map[string]Item{}}
}

func (s *MemoryItemStore) Insert(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return nil
}

func (s *MemoryItemStore) FindByOwner(_ context.Context, userID, id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok || it.UserID != userID {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (s *MemoryItemStore) ListByOwner(_ context.Context, userID string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, id := range s.order {
		if it, ok := s.items[id]; ok && it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *MemoryItemStore) Replace(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.items[item.ID]
	if !ok || old.UserID != item.UserID {
		return ErrNotFound
	}
	s.items[item.ID] = item
	return nil
}

func (s *MemoryItemStore) DeleteByOwner(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.UserID != userID {
		return ErrNotFound
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryItemStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, id := range s.order {
		if it, ok := s.items[id]; ok && it.UserID == userID {
			delete(s.items, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}
