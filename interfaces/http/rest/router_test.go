package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thoughtnet/application/ports"
	"thoughtnet/application/services"
	"thoughtnet/domain"
	"thoughtnet/infrastructure/persistence/memory"
)

// noopEnricher never finds anything, so handler tests stay deterministic.
type noopEnricher struct{}

func (noopEnricher) Analyze(context.Context, string) ports.Analysis {
	return ports.Analysis{Themes: []string{}, Keywords: []string{}, Sentiment: "neutral", Category: "general"}
}

func (noopEnricher) FindConnections(context.Context, string, []ports.Candidate) ports.ConnectionResult {
	return ports.ConnectionResult{ConnectedThoughts: []ports.DiscoveredConnection{}, SuggestedTags: []string{}}
}

func (noopEnricher) Summarize(context.Context, []*domain.Thought) string {
	return "Connected thoughts exploring various perspectives and ideas."
}

type fixture struct {
	handler  http.Handler
	store    *memory.Store
	pipeline *services.EnrichmentPipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore("", zap.NewNop())
	enricher := noopEnricher{}
	pipeline := services.NewEnrichmentPipeline(store, enricher, zap.NewNop())
	router := NewRouter(store, pipeline, enricher, zap.NewNop(), []string{"*"})
	return &fixture{handler: router.Setup(), store: store, pipeline: pipeline}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeThought(t *testing.T, rec *httptest.ResponseRecorder) domain.Thought {
	t.Helper()
	var thought domain.Thought
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thought))
	return thought
}

func TestCreateThought(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/thoughts", `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	thought := decodeThought(t, rec)
	assert.NotEmpty(t, thought.ID)
	assert.Equal(t, "hello", thought.Content)
	assert.Equal(t, domain.AnonymousAuthor, thought.Author)
	assert.Equal(t, 0, thought.Likes)
	assert.Equal(t, []string{}, thought.Tags)
	assert.Equal(t, []string{}, thought.Connections)

	f.pipeline.Wait()
}

func TestCreateThoughtValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "missing content", body: `{}`, want: http.StatusBadRequest},
		{name: "empty content", body: `{"content":""}`, want: http.StatusBadRequest},
		{name: "281 characters", body: `{"content":"` + strings.Repeat("a", 281) + `"}`, want: http.StatusBadRequest},
		{name: "280 characters", body: `{"content":"` + strings.Repeat("a", 280) + `"}`, want: http.StatusCreated},
		{name: "long author accepted", body: `{"content":"x","author":"` + strings.Repeat("b", 200) + `"}`, want: http.StatusCreated},
		{name: "not json", body: `{{`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/thoughts", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusBadRequest {
				assert.Contains(t, rec.Body.String(), "message")
			}
		})
	}

	f.pipeline.Wait()
}

func TestListThoughts(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/thoughts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	f.do(t, http.MethodPost, "/api/thoughts", `{"content":"one"}`)
	f.do(t, http.MethodPost, "/api/thoughts", `{"content":"two"}`)
	f.pipeline.Wait()

	rec = f.do(t, http.MethodGet, "/api/thoughts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var thoughts []domain.Thought
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thoughts))
	assert.Len(t, thoughts, 2)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/thoughts", `{"content":"Hello World"}`)
	f.pipeline.Wait()

	rec := f.do(t, http.MethodGet, "/api/thoughts/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Search query is required")

	rec = f.do(t, http.MethodGet, "/api/thoughts/search?q=hello", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []domain.Thought
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Hello World", results[0].Content)
}

func TestLike(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/thoughts", `{"content":"likeable"}`)
	created := decodeThought(t, rec)
	f.pipeline.Wait()

	rec = f.do(t, http.MethodPost, "/api/thoughts/"+created.ID+"/like", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeThought(t, rec).Likes)

	rec = f.do(t, http.MethodPost, "/api/thoughts/"+created.ID+"/like", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeThought(t, rec).Likes)

	rec = f.do(t, http.MethodPost, "/api/thoughts/unknown/like", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thought not found")
}

func TestConnections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.store.CreateThought(ctx, "a", "")
	require.NoError(t, err)
	b, err := f.store.CreateThought(ctx, "b", "")
	require.NoError(t, err)
	_, err = f.store.UpdateThoughtConnections(ctx, a.ID, []string{b.ID, "ghost"})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/thoughts/"+a.ID+"/connections", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var connected []domain.Thought
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &connected))
	require.Len(t, connected, 1, "unresolved ids are dropped")
	assert.Equal(t, b.ID, connected[0].ID)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/thoughts/unknown/summary", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	created, err := f.store.CreateThought(context.Background(), "deep", "")
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/thoughts/"+created.ID+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "summary")
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/thoughts", `{"content":"one","author":"ada"}`)
	f.do(t, http.MethodPost, "/api/thoughts", `{"content":"two"}`)
	f.do(t, http.MethodPost, "/api/thoughts", `{"content":"three"}`)
	f.pipeline.Wait()

	rec := f.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats domain.NetworkStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalThoughts)
	assert.Equal(t, 0, stats.ActiveConnections)
	assert.Equal(t, 1, stats.UserContributions)
}

func TestThoughtOfTheDay(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/thought-of-the-day", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.do(t, http.MethodPost, "/api/thoughts", `{"content":"the one"}`)
	f.pipeline.Wait()

	rec = f.do(t, http.MethodGet, "/api/thought-of-the-day", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "the one", decodeThought(t, rec).Content)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
