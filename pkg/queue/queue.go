package queue

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-stockroom/pkg/config"
)

// Queue names, highest priority first.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
	}
}

func NewClient(cfg *config.RedisConfig) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

func NewServer(cfg *config.RedisConfig, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
		},
	)
}

// NewScheduler returns a periodic task scheduler whose cron specs are
// evaluated in loc.
func NewScheduler(cfg *config.RedisConfig, loc *time.Location) *asynq.Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{
		Location: loc,
	})
}
