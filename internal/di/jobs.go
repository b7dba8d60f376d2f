// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/clientdata"
	"github.com/aristath/market-confidence/internal/config"
	"github.com/aristath/market-confidence/internal/scheduler"
)

// walCheckpointSchedule runs the WAL check every hour on the hour
const walCheckpointSchedule = "0 0 * * * *"

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	CacheCleanup  *clientdata.CleanupJob
	WALCheckpoint *scheduler.WALCheckpointJob
}

// RegisterJobs creates the scheduler and registers the maintenance jobs.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{
		CacheCleanup:  clientdata.NewCleanupJob(container.CacheRepo, log),
		WALCheckpoint: scheduler.NewWALCheckpointJob(log, container.Databases()...),
	}

	if err := container.Scheduler.AddJob(cfg.CacheCleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
	}
	if err := container.Scheduler.AddJob(walCheckpointSchedule, instances.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	log.Info().
		Str("cache_cleanup", cfg.CacheCleanupSchedule).
		Str("wal_checkpoint", walCheckpointSchedule).
		Msg("Jobs registered")

	return instances, nil
}
