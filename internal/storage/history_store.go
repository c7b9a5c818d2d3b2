package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/BetterCallFirewall/ssti-master/internal/limits"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
)

// HistoryKey is the single key the serialized history lives under
const HistoryKey = "ssti_master_history"

// HistoryStore is the newest-first, size-capped log of completed operations.
// The full list is written to the backend after every mutation.
type HistoryStore struct {
	backend Backend
	limiter *limits.HistoryLimiter
	log     logger.Logger

	mu    sync.RWMutex
	items []models.HistoryItem
}

func NewHistoryStore(backend Backend, limiter *limits.HistoryLimiter, log logger.Logger) *HistoryStore {
	if limiter == nil {
		limiter = limits.NewHistoryLimiter(nil)
	}
	return &HistoryStore{
		backend: backend,
		limiter: limiter,
		log:     log,
		items:   []models.HistoryItem{},
	}
}

// Load replaces the in-memory list with the persisted one.
// Missing or corrupt data leaves the history empty and is not an error.
func (s *HistoryStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []models.HistoryItem{}

	raw, err := s.backend.Get(ctx, HistoryKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	var items []models.HistoryItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("⚠️ Discarding corrupt history", "error", err.Error(), "bytes", len(raw))
		return nil
	}
	if items == nil {
		return nil
	}

	s.items = limits.Truncate(s.limiter, items)
	s.log.Debug("📚 History loaded", "items", len(s.items))
	return nil
}

// Append prepends item and evicts the oldest entries past the cap
func (s *HistoryStore) Append(ctx context.Context, item models.HistoryItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.HistoryItem, 0, len(s.items)+1)
	items = append(items, item)
	items = append(items, s.items...)
	s.items = limits.Truncate(s.limiter, items)

	return s.save(ctx)
}

// Remove deletes the item with id. Unknown ids are a no-op.
func (s *HistoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.items {
		if s.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	items := make([]models.HistoryItem, 0, len(s.items)-1)
	items = append(items, s.items[:idx]...)
	items = append(items, s.items[idx+1:]...)
	s.items = items

	return s.save(ctx)
}

// All returns a copy of the history, newest first
func (s *HistoryStore) All() []models.HistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.HistoryItem, len(s.items))
	copy(out, s.items)
	return out
}

// Get finds an item by id
func (s *HistoryStore) Get(id string) (models.HistoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.HistoryItem{}, false
}

func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// save overwrites the persisted list; caller holds mu
func (s *HistoryStore) save(ctx context.Context) error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.backend.Set(ctx, HistoryKey, string(data)); err != nil {
		s.log.Err(err, "❌ Failed to persist history", "items", len(s.items))
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}
