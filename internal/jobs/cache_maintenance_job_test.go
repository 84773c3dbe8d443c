package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockTrimmer struct {
	mock.Mock
}

func (m *MockTrimmer) Trim(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestCacheMaintenanceJobRun(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		stories, users := new(MockSweeper), new(MockTrimmer)
		stories.On("SweepExpired", mock.Anything).Return(int64(3), nil).Once()
		users.On("Trim", mock.Anything).Return(int64(1), nil).Once()

		NewCacheMaintenanceJob(stories, users).Run()

		stories.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	t.Run("SweepFailureStillTrims", func(t *testing.T) {
		stories, users := new(MockSweeper), new(MockTrimmer)
		stories.On("SweepExpired", mock.Anything).Return(int64(0), errors.New("disk full")).Once()
		users.On("Trim", mock.Anything).Return(int64(0), nil).Once()

		NewCacheMaintenanceJob(stories, users).Run()

		users.AssertExpectations(t)
	})
}

func TestSchedule(t *testing.T) {
	j := NewCacheMaintenanceJob(new(MockSweeper), new(MockTrimmer))

	c, err := Schedule("", j)
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = Schedule("not a schedule", j)
	assert.Error(t, err)

	c, err = Schedule("@every 1h", j)
	require.NoError(t, err)
	require.NotNil(t, c)
	c.Stop()
}
