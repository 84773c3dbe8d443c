package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPostExtractsTags(t *testing.T) {
	p := NewPost("A", PostContent{Text: "Sunset at #Beach with @bob and @alice. #beach #summer"}, t0)

	assert.Equal(t, []string{"beach", "summer"}, p.Hashtags)
	assert.Equal(t, []string{"bob", "alice"}, p.Mentions)
	assert.Equal(t, PostActive, p.Status)
	assert.True(t, p.IsActive())
}

func TestPostLifecycle(t *testing.T) {
	p := NewPost("A", PostContent{Text: "hello #go"}, t0)

	edited := p.EditText("bye #rust", t0)
	assert.Equal(t, []string{"rust"}, edited.Hashtags)
	assert.Equal(t, []string{"go"}, p.Hashtags)
	assert.True(t, edited.IsEdited)

	assert.Equal(t, PostArchived, p.Archive(t0).Status)
	assert.Equal(t, PostDeleted, p.SoftDelete(t0).Status)
	assert.True(t, p.Pin(true, t0).IsPinned)
}

func TestPostCanView(t *testing.T) {
	p := NewPost("A", PostContent{Text: "x"}, t0)

	deleted := p.SoftDelete(t0)
	assert.True(t, deleted.CanView("A", Relations{}))
	assert.False(t, deleted.CanView("B", Relations{}))

	draft := p
	draft.Status = PostDraft
	assert.False(t, draft.CanView("B", Relations{}))

	p.Visibility = VisibilityPrivate
	assert.False(t, p.CanView("B", Relations{Friends: []string{"A"}}))
	assert.True(t, p.CanView("A", Relations{}))
}
