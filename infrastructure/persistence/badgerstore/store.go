// Package badgerstore provides a BadgerDB-backed ThoughtRepository. Each
// thought is one JSON-encoded value keyed by id, so the store survives
// restarts without the wholesale snapshot file the memory backend uses.
package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"thoughtnet/domain"
)

const keyPrefix = "thought#"

// Store implements ports.ThoughtRepository on top of Badger. Every
// operation runs in its own transaction, which gives the per-call
// atomicity the repository contract requires.
type Store struct {
	db     *badger.DB
	logger *zap.Logger

	now func() time.Time
}

// NewStore opens (or creates) the Badger database at path.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logging is too chatty for this service

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db at %s: %w", path, err)
	}
	logger.Info("Badger store opened", zap.String("path", path))

	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func thoughtKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// runUpdate commits fn, retrying when badger's optimistic concurrency
// aborts the transaction. Conflicting writes to the same id must land as
// a serialized sequence, not surface as errors to the caller.
func (s *Store) runUpdate(fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
	}
}

func decodeThought(val []byte) (*domain.Thought, error) {
	var t domain.Thought
	if err := json.Unmarshal(val, &t); err != nil {
		return nil, fmt.Errorf("decoding thought: %w", err)
	}
	return &t, nil
}

// getTxn reads one thought inside txn, returning nil when absent.
func getTxn(txn *badger.Txn, id string) (*domain.Thought, error) {
	item, err := txn.Get(thoughtKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t *domain.Thought
	err = item.Value(func(val []byte) error {
		t, err = decodeThought(val)
		return err
	})
	return t, err
}

func setTxn(txn *badger.Txn, t *domain.Thought) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding thought %s: %w", t.ID, err)
	}
	return txn.Set(thoughtKey(t.ID), data)
}

// allTxn reads every thought inside txn, newest first.
func allTxn(txn *badger.Txn) ([]*domain.Thought, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(keyPrefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var all []*domain.Thought
	for it.Rewind(); it.Valid(); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			t, err := decodeThought(val)
			if err != nil {
				return err
			}
			all = append(all, t)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

// GetThought returns the thought with the given id, or nil.
func (s *Store) GetThought(_ context.Context, id string) (*domain.Thought, error) {
	var t *domain.Thought
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		t, err = getTxn(txn, id)
		return err
	})
	return t, err
}

// GetAllThoughts returns every thought, newest first.
func (s *Store) GetAllThoughts(_ context.Context) ([]*domain.Thought, error) {
	var all []*domain.Thought
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		all, err = allTxn(txn)
		return err
	})
	if all == nil {
		all = []*domain.Thought{}
	}
	return all, err
}

// CreateThought stores a new thought and returns it.
func (s *Store) CreateThought(_ context.Context, content, author string) (*domain.Thought, error) {
	t := domain.NewThought(content, author)
	err := s.runUpdate(func(txn *badger.Txn) error {
		return setTxn(txn, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SearchThoughts matches the query case-insensitively against content and
// tags.
func (s *Store) SearchThoughts(ctx context.Context, query string) ([]*domain.Thought, error) {
	all, err := s.GetAllThoughts(ctx)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(query)
	out := []*domain.Thought{}
	for _, t := range all {
		if matchesQuery(t, term) {
			out = append(out, t)
		}
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

// LikeThought increments the like counter inside one transaction, or
// returns nil for an unknown id.
func (s *Store) LikeThought(_ context.Context, id string) (*domain.Thought, error) {
	var updated *domain.Thought
	err := s.runUpdate(func(txn *badger.Txn) error {
		t, err := getTxn(txn, id)
		if err != nil || t == nil {
			return err
		}
		t.Likes++
		if err := setTxn(txn, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	return updated, err
}

// UpdateThoughtConnections replaces the connections list wholesale.
func (s *Store) UpdateThoughtConnections(_ context.Context, id string, connections []string) (*domain.Thought, error) {
	return s.mutate(id, func(t *domain.Thought) {
		t.Connections = append([]string{}, connections...)
	})
}

// UpdateThoughtTags replaces the tags list wholesale.
func (s *Store) UpdateThoughtTags(_ context.Context, id string, tags []string) (*domain.Thought, error) {
	return s.mutate(id, func(t *domain.Thought) {
		t.Tags = append([]string{}, tags...)
	})
}

func (s *Store) mutate(id string, fn func(*domain.Thought)) (*domain.Thought, error) {
	var updated *domain.Thought
	err := s.runUpdate(func(txn *badger.Txn) error {
		t, err := getTxn(txn, id)
		if err != nil || t == nil {
			return err
		}
		fn(t)
		if err := setTxn(txn, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	return updated, err
}

// GetConnectedThoughts resolves the thought's connection ids, dropping
// ids that no longer resolve.
func (s *Store) GetConnectedThoughts(_ context.Context, id string) ([]*domain.Thought, error) {
	out := []*domain.Thought{}
	err := s.db.View(func(txn *badger.Txn) error {
		t, err := getTxn(txn, id)
		if err != nil || t == nil {
			return err
		}
		for _, cid := range t.Connections {
			c, err := getTxn(txn, cid)
			if err != nil {
				return err
			}
			if c != nil {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

// GetNetworkStats computes totals over the whole store.
func (s *Store) GetNetworkStats(ctx context.Context) (*domain.NetworkStats, error) {
	all, err := s.GetAllThoughts(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.NetworkStats{TotalThoughts: len(all)}
	for _, t := range all {
		stats.ActiveConnections += len(t.Connections)
		if t.Author != domain.AnonymousAuthor {
			stats.UserContributions++
		}
	}
	return stats, nil
}

// GetThoughtOfTheDay picks one thought from the calendar date seed.
func (s *Store) GetThoughtOfTheDay(ctx context.Context) (*domain.Thought, error) {
	all, err := s.GetAllThoughts(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	idx := domain.DateSeed(s.now()) % len(all)
	return all[idx], nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.logger.Info("Closing badger store")
	return s.db.Close()
}
