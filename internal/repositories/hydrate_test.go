package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

type MockAuthorFetcher struct {
	mock.Mock
}

func (m *MockAuthorFetcher) FetchByID(ctx context.Context, id string, force bool) (models.User, error) {
	args := m.Called(ctx, id, force)
	return args.Get(0).(models.User), args.Error(1)
}

func TestHydrateAuthors(t *testing.T) {
	users := new(MockAuthorFetcher)
	users.On("FetchByID", mock.Anything, "a", false).
		Return(models.User{ID: "a", Profile: models.Profile{Username: "alice"}}, nil).Once()
	users.On("FetchByID", mock.Anything, "b", false).
		Return(models.User{ID: "b", Profile: models.Profile{Username: "bob"}}, nil).Once()
	users.On("FetchByID", mock.Anything, "ghost", false).
		Return(models.User{}, models.ErrNotFound).Once()

	stories := []models.Story{
		{ID: "1", AuthorID: "b"},
		{ID: "2", AuthorID: "a"},
		{ID: "3", AuthorID: "ghost"},
		{ID: "4", AuthorID: "b"},
		{ID: "5", AuthorID: "a"},
	}

	out := HydrateAuthors(context.Background(), users, stories,
		func(s models.Story) string { return s.AuthorID },
		func(s models.Story, a models.UserCompact) models.StoryWithAuthor {
			return models.StoryWithAuthor{Story: s, Author: a}
		}, 2)

	var ids, names []string
	for _, s := range out {
		ids = append(ids, s.ID)
		names = append(names, s.Author.Username)
	}
	assert.Equal(t, []string{"1", "2", "4", "5"}, ids)
	assert.Equal(t, []string{"bob", "alice", "bob", "alice"}, names)
	users.AssertExpectations(t)
	users.AssertNumberOfCalls(t, "FetchByID", 3)
}

func TestHydrateAuthorsEmpty(t *testing.T) {
	users := new(MockAuthorFetcher)
	out := HydrateAuthors(context.Background(), users, nil,
		func(s models.Story) string { return s.AuthorID },
		func(s models.Story, a models.UserCompact) models.StoryWithAuthor {
			return models.StoryWithAuthor{Story: s, Author: a}
		}, 0)
	assert.Empty(t, out)
	users.AssertNotCalled(t, "FetchByID", mock.Anything, mock.Anything, mock.Anything)
}
