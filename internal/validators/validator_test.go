package validators

import (
	"errors"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructReturnsValidationError(t *testing.T) {
	v := NewValidator()

	err := v.Struct(models.NewUser(models.Profile{Username: "ab"}, time.Now()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Field, "username")
}

func TestStructAcceptsValidStory(t *testing.T) {
	v := NewValidator()
	s := models.NewStory("author-1", models.StoryContent{Caption: "hi"}, time.Now())
	assert.NoError(t, v.Struct(s))
}

func TestValidateReturnsHTTPError(t *testing.T) {
	v := NewValidator()
	err := v.Validate(models.BanRequest{})
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 400, he.Code)
}
