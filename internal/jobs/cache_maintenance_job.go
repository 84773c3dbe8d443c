package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron"
)

// ExpirySweeper removes expired stories from the local cache.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// UserTrimmer evicts least recently accessed users beyond the cache limit.
type UserTrimmer interface {
	Trim(ctx context.Context) (int64, error)
}

type CacheMaintenanceJob struct {
	stories ExpirySweeper
	users   UserTrimmer
	timeout time.Duration
}

func NewCacheMaintenanceJob(stories ExpirySweeper, users UserTrimmer) *CacheMaintenanceJob {
	return &CacheMaintenanceJob{
		stories: stories,
		users:   users,
		timeout: time.Minute,
	}
}

// Run sweeps expired stories and trims the user cache. Failures are logged; the next
// run retries.
func (j *CacheMaintenanceJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	swept, err := j.stories.SweepExpired(ctx)
	if err != nil {
		slog.Warn("expired story sweep failed", "error", err)
	} else if swept > 0 {
		slog.Info("expired stories swept", "count", swept)
	}

	trimmed, err := j.users.Trim(ctx)
	if err != nil {
		slog.Warn("user cache trim failed", "error", err)
	} else if trimmed > 0 {
		slog.Info("user cache trimmed", "count", trimmed)
	}
}

// Schedule starts a cron runner calling Run on schedule, e.g. "@every 10m".
// An empty schedule disables the job and returns nil.
func Schedule(schedule string, j *CacheMaintenanceJob) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}
	c := cron.New()
	if err := c.AddFunc(schedule, j.Run); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
