// Package enrichment wraps the external LLM service that discovers
// thematic connections between thoughts and suggests tags.
//
// The client talks to any OpenAI-compatible chat completion endpoint via
// langchaingo. Every operation is best-effort: a network failure, an
// empty response, or malformed JSON all degrade to a neutral result and
// are logged, never returned as errors. By the time these calls run the
// HTTP response that triggered them has already been sent.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"thoughtnet/application/ports"
	"thoughtnet/domain"
)

// summaryFallback is returned when the summary call fails.
const summaryFallback = "Connected thoughts exploring various perspectives and ideas."

const analyzePrompt = `You are an expert at analyzing short thoughts and identifying themes,
keywords, sentiment, and categories. Respond with a JSON object with keys
"themes" (array of strings), "keywords" (array of strings), "sentiment"
(string), and "category" (string). No prose outside the JSON.

Analyze this thought: %q`

const connectionsPrompt = `You find meaningful connections between short thoughts. Given a new
thought and a list of existing thoughts, identify which existing thoughts
relate to it and why. Look for conceptual similarities, shared themes
(spirituality, emotional states, life concepts, social topics, abstract
ideas), and shared keywords. Subtle thematic links are valuable too.

Respond with a JSON object with keys "connectedThoughts" (array of
objects with "id", "reason", and "strength", where strength is a number
from 0.1 to 1.0) and "suggestedTags" (array of short strings for the new
thought). No prose outside the JSON.

New thought: %q

Existing thoughts:
%s`

// Config holds the connection settings for the enrichment endpoint.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
}

// Client implements ports.EnrichmentService.
type Client struct {
	llm    llms.Model
	logger *zap.Logger
}

// NewClient creates a Client for the configured endpoint.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		// Some compatible endpoints accept any token.
		apiKey = "unused"
	}
	opts := []openai.Option{openai.WithToken(apiKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	return &Client{llm: llm, logger: logger}, nil
}

// NewClientWithModel wraps an existing model, mainly for tests.
func NewClientWithModel(model llms.Model, logger *zap.Logger) *Client {
	return &Client{llm: model, logger: logger}
}

func neutralAnalysis() ports.Analysis {
	return ports.Analysis{
		Themes:    []string{},
		Keywords:  []string{},
		Sentiment: "neutral",
		Category:  "general",
	}
}

func emptyConnections() ports.ConnectionResult {
	return ports.ConnectionResult{
		ConnectedThoughts: []ports.DiscoveredConnection{},
		SuggestedTags:     []string{},
	}
}

// Analyze derives themes, keywords, sentiment, and a category for one
// thought. Any failure yields the neutral default.
func (c *Client) Analyze(ctx context.Context, content string) ports.Analysis {
	raw, err := llms.GenerateFromSinglePrompt(ctx, c.llm,
		fmt.Sprintf(analyzePrompt, content))
	if err != nil {
		c.logger.Warn("Thought analysis call failed", zap.Error(err))
		return neutralAnalysis()
	}

	var analysis ports.Analysis
	if err := decodeJSON(raw, &analysis); err != nil {
		c.logger.Warn("Thought analysis returned malformed JSON", zap.Error(err))
		return neutralAnalysis()
	}
	if analysis.Themes == nil {
		analysis.Themes = []string{}
	}
	if analysis.Keywords == nil {
		analysis.Keywords = []string{}
	}
	if analysis.Sentiment == "" {
		analysis.Sentiment = "neutral"
	}
	if analysis.Category == "" {
		analysis.Category = "general"
	}
	return analysis
}

// FindConnections asks the service which candidates relate to the new
// content. The raw result comes back unfiltered; the pipeline applies the
// strength threshold and cap. Any failure yields an empty result.
func (c *Client) FindConnections(ctx context.Context, content string, candidates []ports.Candidate) ports.ConnectionResult {
	lines := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		lines = append(lines, fmt.Sprintf("ID: %s | %q", cand.ID, cand.Content))
	}

	raw, err := llms.GenerateFromSinglePrompt(ctx, c.llm,
		fmt.Sprintf(connectionsPrompt, content, strings.Join(lines, "\n")))
	if err != nil {
		c.logger.Warn("Connection discovery call failed", zap.Error(err))
		return emptyConnections()
	}

	var result ports.ConnectionResult
	if err := decodeJSON(raw, &result); err != nil {
		c.logger.Warn("Connection discovery returned malformed JSON", zap.Error(err))
		return emptyConnections()
	}
	if result.ConnectedThoughts == nil {
		result.ConnectedThoughts = []ports.DiscoveredConnection{}
	}
	if result.SuggestedTags == nil {
		result.SuggestedTags = []string{}
	}
	return result
}

// Summarize produces a short theme summary of a set of connected
// thoughts, falling back to a fixed sentence on failure.
func (c *Client) Summarize(ctx context.Context, thoughts []*domain.Thought) string {
	contents := make([]string, 0, len(thoughts))
	for _, t := range thoughts {
		contents = append(contents, t.Content)
	}
	prompt := "Provide a brief, insightful summary of the main themes and ideas in these connected thoughts: " +
		strings.Join(contents, " | ")

	raw, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		c.logger.Warn("Summary call failed", zap.Error(err))
		return summaryFallback
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return summaryFallback
	}
	return summary
}

// decodeJSON tolerates models that wrap their JSON in markdown fences.
func decodeJSON(raw string, v interface{}) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return json.Unmarshal([]byte(s), v)
}
