// Package domain holds the core entities of the thought network.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// AnonymousAuthor is the author recorded when a thought is posted
	// without one.
	AnonymousAuthor = "Anonymous Thinker"

	// MaxContentLength is the maximum thought length in characters.
	MaxContentLength = 280

	// MaxTags is the maximum number of tags the enrichment pipeline may
	// attach to a thought.
	MaxTags = 3
)

// Thought is a single user-submitted post and its metadata.
//
// Connections holds the ids of thematically related thoughts. The list is
// append-only from the enrichment pipeline's point of view and may contain
// duplicates; the store never deduplicates it.
type Thought struct {
	ID          string    `json:"id" dynamodbav:"ID"`
	Content     string    `json:"content" dynamodbav:"Content"`
	Author      string    `json:"author" dynamodbav:"Author"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
	Likes       int       `json:"likes" dynamodbav:"Likes"`
	Tags        []string  `json:"tags" dynamodbav:"Tags"`
	Connections []string  `json:"connections" dynamodbav:"Connections"`
}

// NewThought builds a thought with a fresh id, the author default applied,
// and empty tag and connection lists. Content validation happens at the
// HTTP boundary, not here.
func NewThought(content, author string) *Thought {
	if strings.TrimSpace(author) == "" {
		author = AnonymousAuthor
	}
	return &Thought{
		ID:          uuid.New().String(),
		Content:     content,
		Author:      author,
		CreatedAt:   time.Now().UTC(),
		Likes:       0,
		Tags:        []string{},
		Connections: []string{},
	}
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate the canonical record behind the store's back.
func (t *Thought) Clone() *Thought {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Connections = append([]string(nil), t.Connections...)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Connections == nil {
		c.Connections = []string{}
	}
	return &c
}

// NetworkStats summarizes the state of the thought network.
// ActiveConnections counts each side of a mutual link separately.
type NetworkStats struct {
	TotalThoughts     int `json:"totalThoughts"`
	ActiveConnections int `json:"activeConnections"`
	UserContributions int `json:"userContributions"`
}

// DateSeed derives the thought-of-the-day seed from a calendar date:
// year*10000 + month*100 + day. Stable within a day, different the next.
func DateSeed(t time.Time) int {
	year, month, day := t.Date()
	return year*10000 + int(month)*100 + day
}
