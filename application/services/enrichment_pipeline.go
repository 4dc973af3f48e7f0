// Package services holds the application services that sit between the
// HTTP surface and the repositories.
package services

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"thoughtnet/application/ports"
	"thoughtnet/domain"
)

const (
	// connectionStrengthThreshold is the minimum confidence a suggested
	// connection needs to be kept.
	connectionStrengthThreshold = 0.2

	// maxConnectionsPerRun caps how many discovered connections a single
	// enrichment run applies.
	maxConnectionsPerRun = 5
)

// EnrichmentPipeline runs the background work that follows a thought
// creation: ask the enrichment service for connections against all
// existing thoughts, link both ends of every accepted connection, and
// attach the suggested tags.
//
// A run is dispatched exactly once per created thought and is never
// awaited by the request that triggered it. Runs for different thoughts
// may interleave; all read-modify-write cycles on a thought id go through
// a per-id mutex so concurrent runs cannot lose each other's appends to a
// shared target's connection list. The store's duplicate-preserving
// behavior is unchanged: repeated links produce repeated ids.
type EnrichmentPipeline struct {
	repo     ports.ThoughtRepository
	enricher ports.EnrichmentService
	locks    *keyedMutex
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewEnrichmentPipeline creates a pipeline over the given store and
// enrichment service.
func NewEnrichmentPipeline(repo ports.ThoughtRepository, enricher ports.EnrichmentService, logger *zap.Logger) *EnrichmentPipeline {
	return &EnrichmentPipeline{
		repo:     repo,
		enricher: enricher,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// Dispatch starts the enrichment run for a newly created thought and
// returns immediately. The run uses its own context; it cannot be
// cancelled by the request that created the thought.
func (p *EnrichmentPipeline) Dispatch(t *domain.Thought) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(context.Background(), t)
	}()
}

// Wait blocks until all dispatched runs have finished. Used at shutdown
// and by tests.
func (p *EnrichmentPipeline) Wait() {
	p.wg.Wait()
}

func (p *EnrichmentPipeline) run(ctx context.Context, newThought *domain.Thought) {
	log := p.logger.With(zap.String("thoughtID", newThought.ID))

	all, err := p.repo.GetAllThoughts(ctx)
	if err != nil {
		log.Error("Enrichment aborted: listing thoughts failed", zap.Error(err))
		return
	}

	candidates := make([]ports.Candidate, 0, len(all))
	for _, t := range all {
		if t.ID != newThought.ID {
			candidates = append(candidates, ports.Candidate{ID: t.ID, Content: t.Content})
		}
	}
	if len(candidates) == 0 {
		log.Debug("No existing thoughts to analyze for connections")
		return
	}

	result := p.enricher.FindConnections(ctx, newThought.Content, candidates)
	accepted := selectConnections(result.ConnectedThoughts)
	log.Info("Connection discovery finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("suggested", len(result.ConnectedThoughts)),
		zap.Int("accepted", len(accepted)),
	)

	if len(accepted) > 0 {
		ids := make([]string, len(accepted))
		for i, c := range accepted {
			ids[i] = c.ID
		}
		p.applyConnections(ctx, log, newThought.ID, ids)

		for _, c := range accepted {
			p.linkBack(ctx, log, c.ID, newThought.ID)
		}
	}

	if len(result.SuggestedTags) > 0 {
		tags := result.SuggestedTags
		if len(tags) > domain.MaxTags {
			tags = tags[:domain.MaxTags]
		}
		p.locks.Lock(newThought.ID)
		_, err := p.repo.UpdateThoughtTags(ctx, newThought.ID, tags)
		p.locks.Unlock(newThought.ID)
		if err != nil {
			log.Error("Failed to write suggested tags", zap.Error(err))
		}
	}
}

// applyConnections writes the accepted connection ids onto the new
// thought. The current list is re-read under the id's lock so a reverse
// link appended by a concurrent run is not clobbered.
func (p *EnrichmentPipeline) applyConnections(ctx context.Context, log *zap.Logger, id string, connectionIDs []string) {
	p.locks.Lock(id)
	defer p.locks.Unlock(id)

	current, err := p.repo.GetThought(ctx, id)
	if err != nil || current == nil {
		log.Error("Failed to re-read thought before writing connections", zap.Error(err))
		return
	}
	if _, err := p.repo.UpdateThoughtConnections(ctx, id, append(current.Connections, connectionIDs...)); err != nil {
		log.Error("Failed to write connections", zap.Error(err))
	}
}

// linkBack appends the new thought's id to one connected thought,
// establishing the reverse edge. A failure here only skips this target.
func (p *EnrichmentPipeline) linkBack(ctx context.Context, log *zap.Logger, targetID, newID string) {
	p.locks.Lock(targetID)
	defer p.locks.Unlock(targetID)

	target, err := p.repo.GetThought(ctx, targetID)
	if err != nil {
		log.Error("Failed to read connected thought", zap.String("targetID", targetID), zap.Error(err))
		return
	}
	if target == nil {
		log.Warn("Suggested connection no longer exists", zap.String("targetID", targetID))
		return
	}
	if _, err := p.repo.UpdateThoughtConnections(ctx, targetID, append(target.Connections, newID)); err != nil {
		log.Error("Failed to write reverse connection", zap.String("targetID", targetID), zap.Error(err))
	}
}

// selectConnections filters suggestions by the strength threshold, sorts
// strongest first, and caps the result.
func selectConnections(found []ports.DiscoveredConnection) []ports.DiscoveredConnection {
	kept := make([]ports.DiscoveredConnection, 0, len(found))
	for _, c := range found {
		if c.Strength > connectionStrengthThreshold {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Strength > kept[j].Strength
	})
	if len(kept) > maxConnectionsPerRun {
		kept = kept[:maxConnectionsPerRun]
	}
	return kept
}
