package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/killwatch/internal/domain/model"
	"github.com/okian/killwatch/pkg/metrics"
)

const defaultNormalAge = 45 * time.Second

// RetentionStore keeps killmails in memory until their value-weighted
// lifetime runs out. A single mutex covers the map and the focus so that
// trim and focus clearing are observed together.
type RetentionStore struct {
	mu        sync.RWMutex
	byID      map[int64]model.Killmail
	focused   int64
	hasFocus  bool
	normalAge time.Duration
}

var _ Store = (*RetentionStore)(nil)

// NewRetentionStore constructs an empty store with configuration options.
func NewRetentionStore(opts ...Option) *RetentionStore {
	s := &RetentionStore{
		byID:      make(map[int64]model.Killmail),
		normalAge: defaultNormalAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalAge returns the retention window for a scaled value of 1.
func (s *RetentionStore) NormalAge() time.Duration {
	return s.normalAge
}

// Insert implements Store.Insert. Last write wins.
func (s *RetentionStore) Insert(_ context.Context, k model.Killmail) {
	s.mu.Lock()
	s.byID[k.ID] = k
	n := len(s.byID)
	s.mu.Unlock()

	metrics.RecordKillmailInserted()
	metrics.UpdateKillmailsRetained(n)
}

// Contains implements Store.Contains.
func (s *RetentionStore) Contains(_ context.Context, id int64) bool {
	s.mu.RLock()
	_, ok := s.byID[id]
	s.mu.RUnlock()
	return ok
}

// Trim implements Store.Trim.
func (s *RetentionStore) Trim(_ context.Context, now time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, k := range s.byID {
		if k.Expired(now, s.normalAge) {
			delete(s.byID, id)
			removed++
		}
	}
	if s.hasFocus {
		if _, ok := s.byID[s.focused]; !ok {
			s.hasFocus = false
			s.focused = 0
		}
	}
	n := len(s.byID)
	focused := s.hasFocus
	s.mu.Unlock()

	if removed > 0 {
		metrics.RecordKillmailsTrimmed(removed)
	}
	metrics.UpdateKillmailsRetained(n)
	metrics.UpdateFocused(focused)
	return removed
}

// Focus implements Store.Focus.
func (s *RetentionStore) Focus(_ context.Context, id int64) {
	s.mu.Lock()
	_, ok := s.byID[id]
	s.focused, s.hasFocus = 0, false
	if ok {
		s.focused, s.hasFocus = id, true
	}
	s.mu.Unlock()

	metrics.UpdateFocused(ok)
}

// Unfocus implements Store.Unfocus.
func (s *RetentionStore) Unfocus(_ context.Context, id int64) {
	s.mu.Lock()
	if s.hasFocus && s.focused == id {
		s.focused, s.hasFocus = 0, false
	}
	focused := s.hasFocus
	s.mu.Unlock()

	metrics.UpdateFocused(focused)
}

// Get implements Store.Get.
func (s *RetentionStore) Get(_ context.Context, id int64) (model.Killmail, error) {
	s.mu.RLock()
	k, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return model.Killmail{}, ErrNotFound
	}
	return k, nil
}

// All implements Store.All. The returned slice is a copy.
func (s *RetentionStore) All(_ context.Context) []model.Killmail {
	s.mu.RLock()
	out := make([]model.Killmail, 0, len(s.byID))
	for _, k := range s.byID {
		out = append(out, k)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.After(out[j].ReceivedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Focused implements Store.Focused.
func (s *RetentionStore) Focused(_ context.Context) (model.Killmail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasFocus {
		return model.Killmail{}, false
	}
	k, ok := s.byID[s.focused]
	return k, ok
}

// Count implements Store.Count.
func (s *RetentionStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
