package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-stockroom/pkg/queue"
)

// Task type names
const (
	TypeInviteNotify     = "invite:notify"
	TypeCartPruneOrphans = "cart:prune_orphans"
)

// Enqueuer is the part of *asynq.Client the services use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// InviteNotifyPayload identifies the pending invite to email about.
type InviteNotifyPayload struct {
	TeamNum int    `json:"team_num"`
	Inviter string `json:"inviter"`
	Invitee string `json:"invitee"`
}

func NewInviteNotifyTask(payload InviteNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInviteNotify, data,
		asynq.Queue(queue.QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewCartPruneTask deletes cart entries left pointing at deleted items.
// Only one can be queued at a time.
func NewCartPruneTask() *asynq.Task {
	return asynq.NewTask(TypeCartPruneOrphans, nil,
		asynq.Queue(queue.QueueLow),
		asynq.Unique(10*time.Minute),
	)
}
