package dispatch

import (
	"context"

	"github.com/syncdeck/syncdeck/pkg/jobs"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/uptrace/bun"
)

// Event is a named request for the background job runner.
type Event struct {
	Name    string
	Payload models.JobSyncData
}

// Dispatcher hands events to the background job runner. Dispatch is
// fire-and-forget: it returns once the event is accepted, not once the pull
// completes. No retry or ordering guarantee is provided; idempotency of
// repeated pulls is the runner's responsibility.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// OutboxDispatcher accepts events by enqueueing them as pending jobs. The
// worker polls the jobs table and executes them.
type OutboxDispatcher struct {
	jobService *jobs.Service
}

func NewOutboxDispatcher(db *bun.DB) *OutboxDispatcher {
	return &OutboxDispatcher{jobService: jobs.NewService(db)}
}

func (d *OutboxDispatcher) Dispatch(ctx context.Context, event Event) error {
	payload := event.Payload
	job := &models.Job{
		Type:       event.Name,
		Status:     models.JobStatusPending,
		DataParsed: &payload,
	}
	return d.jobService.CreateJob(ctx, job)
}
