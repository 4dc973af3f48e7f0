// Package memory provides the in-memory ThoughtRepository, optionally
// persisted to a JSON snapshot file.
package memory

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"thoughtnet/domain"
)

// Store keeps all thoughts in a map guarded by a RWMutex. When a snapshot
// path is configured, the full record set is rewritten to it after every
// mutation and reloaded at startup; a missing or unreadable snapshot means
// starting empty, never a startup failure.
type Store struct {
	mu           sync.RWMutex
	thoughts     map[string]*domain.Thought
	snapshotPath string
	logger       *zap.Logger

	now func() time.Time
}

// NewStore creates a Store. snapshotPath may be empty to disable
// persistence entirely.
func NewStore(snapshotPath string, logger *zap.Logger) *Store {
	s := &Store{
		thoughts:     make(map[string]*domain.Thought),
		snapshotPath: snapshotPath,
		logger:       logger,
		now:          time.Now,
	}
	s.loadSnapshot()
	return s
}

func (s *Store) loadSnapshot() {
	if s.snapshotPath == "" {
		return
	}
	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("No snapshot file, starting with an empty store",
				zap.String("path", s.snapshotPath))
		} else {
			s.logger.Warn("Failed to read snapshot, starting with an empty store",
				zap.String("path", s.snapshotPath), zap.Error(err))
		}
		return
	}

	var records []*domain.Thought
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("Failed to parse snapshot, starting with an empty store",
			zap.String("path", s.snapshotPath), zap.Error(err))
		return
	}

	for _, t := range records {
		s.thoughts[t.ID] = t.Clone()
	}
	s.logger.Info("Loaded thoughts from snapshot",
		zap.String("path", s.snapshotPath), zap.Int("count", len(records)))
}

// saveSnapshot rewrites the snapshot file wholesale. Callers must hold at
// least a read lock. Write failures are logged and swallowed; the
// in-memory state remains authoritative.
func (s *Store) saveSnapshot() {
	if s.snapshotPath == "" {
		return
	}
	data, err := json.MarshalIndent(s.sortedLocked(), "", "  ")
	if err != nil {
		s.logger.Error("Failed to encode snapshot", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.snapshotPath, data, 0o644); err != nil {
		s.logger.Error("Failed to write snapshot",
			zap.String("path", s.snapshotPath), zap.Error(err))
	}
}

// sortedLocked returns all records newest first. Callers must hold at
// least a read lock.
func (s *Store) sortedLocked() []*domain.Thought {
	all := make([]*domain.Thought, 0, len(s.thoughts))
	for _, t := range s.thoughts {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// GetThought returns the thought with the given id, or nil.
func (s *Store) GetThought(_ context.Context, id string) (*domain.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.thoughts[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

// GetAllThoughts returns every thought, newest first.
func (s *Store) GetAllThoughts(_ context.Context) ([]*domain.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedLocked()
	out := make([]*domain.Thought, len(all))
	for i, t := range all {
		out[i] = t.Clone()
	}
	return out, nil
}

// CreateThought stores a new thought and returns it.
func (s *Store) CreateThought(_ context.Context, content, author string) (*domain.Thought, error) {
	t := domain.NewThought(content, author)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.thoughts[t.ID] = t
	s.saveSnapshot()
	return t.Clone(), nil
}

// SearchThoughts matches the query case-insensitively against content and
// tags. No ranking; results come back in list order.
func (s *Store) SearchThoughts(_ context.Context, query string) ([]*domain.Thought, error) {
	term := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Thought
	for _, t := range s.sortedLocked() {
		if matchesQuery(t, term) {
			out = append(out, t.Clone())
		}
	}
	if out == nil {
		out = []*domain.Thought{}
	}
	return out, nil
}

func matchesQuery(t *domain.Thought, term string) bool {
	if strings.Contains(strings.ToLower(t.Content), term) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// LikeThought increments the like counter, or returns nil for an unknown
// id.
func (s *Store) LikeThought(_ context.Context, id string) (*domain.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.thoughts[id]
	if !ok {
		return nil, nil
	}
	t.Likes++
	s.saveSnapshot()
	return t.Clone(), nil
}

// UpdateThoughtConnections replaces the connections list wholesale.
func (s *Store) UpdateThoughtConnections(_ context.Context, id string, connections []string) (*domain.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.thoughts[id]
	if !ok {
		return nil, nil
	}
	t.Connections = append([]string{}, connections...)
	s.saveSnapshot()
	return t.Clone(), nil
}

// UpdateThoughtTags replaces the tags list wholesale.
func (s *Store) UpdateThoughtTags(_ context.Context, id string, tags []string) (*domain.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.thoughts[id]
	if !ok {
		return nil, nil
	}
	t.Tags = append([]string{}, tags...)
	s.saveSnapshot()
	return t.Clone(), nil
}

// GetConnectedThoughts resolves the thought's connection ids, dropping
// ids that no longer resolve.
func (s *Store) GetConnectedThoughts(_ context.Context, id string) ([]*domain.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.thoughts[id]
	if !ok {
		return []*domain.Thought{}, nil
	}
	out := make([]*domain.Thought, 0, len(t.Connections))
	for _, cid := range t.Connections {
		if c, ok := s.thoughts[cid]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// GetNetworkStats computes totals over the whole store. Each side of a
// mutual link counts separately.
func (s *Store) GetNetworkStats(_ context.Context) (*domain.NetworkStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.NetworkStats{TotalThoughts: len(s.thoughts)}
	for _, t := range s.thoughts {
		stats.ActiveConnections += len(t.Connections)
		if t.Author != domain.AnonymousAuthor {
			stats.UserContributions++
		}
	}
	return stats, nil
}

// GetThoughtOfTheDay picks one thought from the calendar date seed, or
// nil when the store is empty.
func (s *Store) GetThoughtOfTheDay(_ context.Context) (*domain.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedLocked()
	if len(all) == 0 {
		return nil, nil
	}
	idx := domain.DateSeed(s.now()) % len(all)
	return all[idx].Clone(), nil
}

// Close writes a final snapshot.
func (s *Store) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.saveSnapshot()
	return nil
}
