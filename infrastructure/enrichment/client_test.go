package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"thoughtnet/application/ports"
	"thoughtnet/domain"
)

// stubModel fakes the LLM endpoint with a fixed response or error.
type stubModel struct {
	response string
	err      error
}

func (s *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.response}},
	}, nil
}

func (s *stubModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return s.response, s.err
}

func newTestClient(response string, err error) *Client {
	return NewClientWithModel(&stubModel{response: response, err: err}, zap.NewNop())
}

// promptRecorder captures the prompt text the client sends upstream.
type promptRecorder struct {
	stubModel
	prompt string
}

func (p *promptRecorder) GenerateContent(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range msgs {
		for _, part := range m.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				p.prompt += tc.Text
			}
		}
	}
	return p.stubModel.GenerateContent(ctx, msgs, opts...)
}

// The endpoint is not forced into a JSON output mode, so the prompt text
// itself has to demand bare JSON.
func TestPromptsRequestBareJSON(t *testing.T) {
	rec := &promptRecorder{stubModel: stubModel{response: "{}"}}
	c := NewClientWithModel(rec, zap.NewNop())

	c.Analyze(context.Background(), "time flies")
	assert.Contains(t, rec.prompt, "No prose outside the JSON")

	rec.prompt = ""
	c.FindConnections(context.Background(), "time flies", []ports.Candidate{{ID: "a", Content: "b"}})
	assert.Contains(t, rec.prompt, "No prose outside the JSON")
}

func TestAnalyzeParsesResponse(t *testing.T) {
	c := newTestClient(`{"themes":["time"],"keywords":["clock"],"sentiment":"positive","category":"philosophy"}`, nil)

	analysis := c.Analyze(context.Background(), "time flies")

	assert.Equal(t, []string{"time"}, analysis.Themes)
	assert.Equal(t, []string{"clock"}, analysis.Keywords)
	assert.Equal(t, "positive", analysis.Sentiment)
	assert.Equal(t, "philosophy", analysis.Category)
}

func TestAnalyzeDegradesOnFailure(t *testing.T) {
	neutral := ports.Analysis{Themes: []string{}, Keywords: []string{}, Sentiment: "neutral", Category: "general"}

	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "transport error", err: errors.New("connection refused")},
		{name: "malformed json", response: "not json at all"},
		{name: "empty response", response: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.response, tt.err)
			assert.Equal(t, neutral, c.Analyze(context.Background(), "anything"))
		})
	}
}

func TestAnalyzeFillsMissingFields(t *testing.T) {
	c := newTestClient(`{"themes":["x"]}`, nil)

	analysis := c.Analyze(context.Background(), "partial")

	assert.Equal(t, []string{"x"}, analysis.Themes)
	assert.Equal(t, []string{}, analysis.Keywords)
	assert.Equal(t, "neutral", analysis.Sentiment)
	assert.Equal(t, "general", analysis.Category)
}

func TestFindConnectionsParsesResponse(t *testing.T) {
	c := newTestClient(`{"connectedThoughts":[{"id":"b","reason":"both about time","strength":0.9}],"suggestedTags":["time"]}`, nil)

	result := c.FindConnections(context.Background(), "time flies", []ports.Candidate{
		{ID: "b", Content: "the nature of time"},
	})

	require.Len(t, result.ConnectedThoughts, 1)
	assert.Equal(t, "b", result.ConnectedThoughts[0].ID)
	assert.Equal(t, 0.9, result.ConnectedThoughts[0].Strength)
	assert.Equal(t, []string{"time"}, result.SuggestedTags)
}

func TestFindConnectionsToleratesCodeFences(t *testing.T) {
	c := newTestClient("```json\n{\"connectedThoughts\":[],\"suggestedTags\":[\"t\"]}\n```", nil)

	result := c.FindConnections(context.Background(), "x", nil)

	assert.Empty(t, result.ConnectedThoughts)
	assert.Equal(t, []string{"t"}, result.SuggestedTags)
}

func TestFindConnectionsDegradesOnFailure(t *testing.T) {
	c := newTestClient("", errors.New("upstream down"))

	result := c.FindConnections(context.Background(), "x", []ports.Candidate{{ID: "a", Content: "y"}})

	assert.Equal(t, []ports.DiscoveredConnection{}, result.ConnectedThoughts)
	assert.Equal(t, []string{}, result.SuggestedTags)
}

func TestSummarize(t *testing.T) {
	thoughts := []*domain.Thought{
		{ID: "a", Content: "one"},
		{ID: "b", Content: "two"},
	}

	c := newTestClient("A reflection on counting.", nil)
	assert.Equal(t, "A reflection on counting.", c.Summarize(context.Background(), thoughts))

	c = newTestClient("", errors.New("upstream down"))
	assert.Equal(t, summaryFallback, c.Summarize(context.Background(), thoughts))

	c = newTestClient("   ", nil)
	assert.Equal(t, summaryFallback, c.Summarize(context.Background(), thoughts))
}
