package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-stockroom/pkg/util"
)

// RegisterPeriodic registers the recurring cart prune on scheduler.
func RegisterPeriodic(scheduler *asynq.Scheduler, pruneCron string) (string, error) {
	if err := util.ValidateCronExpr(pruneCron); err != nil {
		return "", fmt.Errorf("cart prune schedule: %w", err)
	}
	id, err := scheduler.Register(pruneCron, NewCartPruneTask())
	if err != nil {
		return "", fmt.Errorf("register cart prune: %w", err)
	}
	return id, nil
}
