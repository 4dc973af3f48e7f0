package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThoughtDefaults(t *testing.T) {
	thought := NewThought("hello", "")

	require.NotEmpty(t, thought.ID)
	assert.Equal(t, "hello", thought.Content)
	assert.Equal(t, AnonymousAuthor, thought.Author)
	assert.Equal(t, 0, thought.Likes)
	assert.Equal(t, []string{}, thought.Tags)
	assert.Equal(t, []string{}, thought.Connections)
	assert.WithinDuration(t, time.Now(), thought.CreatedAt, time.Minute)
}

func TestNewThoughtUniqueIDs(t *testing.T) {
	a := NewThought("one", "")
	b := NewThought("two", "")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewThoughtKeepsAuthor(t *testing.T) {
	thought := NewThought("hello", "ada")
	assert.Equal(t, "ada", thought.Author)

	// Whitespace-only authors fall back to the default too.
	thought = NewThought("hello", "   ")
	assert.Equal(t, AnonymousAuthor, thought.Author)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := NewThought("hello", "ada")
	orig.Tags = []string{"a"}
	orig.Connections = []string{"x"}

	clone := orig.Clone()
	clone.Tags[0] = "changed"
	clone.Connections = append(clone.Connections, "y")
	clone.Likes = 7

	assert.Equal(t, []string{"a"}, orig.Tags)
	assert.Equal(t, []string{"x"}, orig.Connections)
	assert.Equal(t, 0, orig.Likes)
}

func TestDateSeed(t *testing.T) {
	day := time.Date(2024, time.March, 7, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, 20240307, DateSeed(day))

	// Stable within the day, different the next.
	later := day.Add(8 * time.Hour)
	assert.Equal(t, DateSeed(day), DateSeed(later))
	assert.NotEqual(t, DateSeed(day), DateSeed(day.AddDate(0, 0, 1)))
}
