// Package ports defines the interfaces between the application layer and
// the infrastructure that backs it.
package ports

import (
	"context"

	"thoughtnet/domain"
)

// ThoughtRepository is the storage contract for thoughts. All methods are
// safe for concurrent use and each call is individually atomic; there is
// no cross-call transaction scope. A missing id is reported as a nil
// record with a nil error, not as a failure.
type ThoughtRepository interface {
	// GetThought returns the thought with the given id, or nil.
	GetThought(ctx context.Context, id string) (*domain.Thought, error)

	// GetAllThoughts returns every thought, newest first.
	GetAllThoughts(ctx context.Context) ([]*domain.Thought, error)

	// CreateThought stores a new thought built from content and author
	// (empty author gets the anonymous default) and returns it.
	CreateThought(ctx context.Context, content, author string) (*domain.Thought, error)

	// SearchThoughts returns thoughts whose content or any tag contains
	// the query, case-insensitively.
	SearchThoughts(ctx context.Context, query string) ([]*domain.Thought, error)

	// LikeThought increments the like counter and returns the updated
	// record, or nil when the id is unknown.
	LikeThought(ctx context.Context, id string) (*domain.Thought, error)

	// UpdateThoughtConnections replaces the connections list wholesale.
	UpdateThoughtConnections(ctx context.Context, id string, connections []string) (*domain.Thought, error)

	// UpdateThoughtTags replaces the tags list wholesale. Callers are
	// responsible for capping to domain.MaxTags first.
	UpdateThoughtTags(ctx context.Context, id string, tags []string) (*domain.Thought, error)

	// GetConnectedThoughts resolves the thought's connection ids,
	// silently dropping ids that no longer resolve. An unknown id yields
	// an empty list.
	GetConnectedThoughts(ctx context.Context, id string) ([]*domain.Thought, error)

	// GetNetworkStats computes totals over the whole store.
	GetNetworkStats(ctx context.Context) (*domain.NetworkStats, error)

	// GetThoughtOfTheDay picks one thought deterministically from the
	// calendar date, or nil when the store is empty.
	GetThoughtOfTheDay(ctx context.Context) (*domain.Thought, error)

	// Close releases the backing resources.
	Close() error
}

// Candidate is an existing thought offered to the enrichment service for
// connection discovery.
type Candidate struct {
	ID      string
	Content string
}

// DiscoveredConnection is one suggested link, with the service's
// confidence in it.
type DiscoveredConnection struct {
	ID       string  `json:"id"`
	Reason   string  `json:"reason"`
	Strength float64 `json:"strength"`
}

// ConnectionResult is the enrichment service's answer for a new thought.
type ConnectionResult struct {
	ConnectedThoughts []DiscoveredConnection `json:"connectedThoughts"`
	SuggestedTags     []string               `json:"suggestedTags"`
}

// Analysis is the per-thought theme breakdown.
type Analysis struct {
	Themes    []string `json:"themes"`
	Keywords  []string `json:"keywords"`
	Sentiment string   `json:"sentiment"`
	Category  string   `json:"category"`
}

// EnrichmentService wraps the external text-understanding service. Every
// operation is best-effort: failures are absorbed and a neutral or empty
// result comes back, never an error.
type EnrichmentService interface {
	Analyze(ctx context.Context, content string) Analysis
	FindConnections(ctx context.Context, content string, candidates []Candidate) ConnectionResult
	Summarize(ctx context.Context, thoughts []*domain.Thought) string
}
