package conductor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/engagic/pipeline/pkg/queue"
)

// idlePause is how long a worker sleeps after finding the queue empty,
// before trying to claim again.
const idlePause = 2 * time.Second

// worker repeatedly claims one job at a time and hands it to the Executor,
// the same claim/process/report loop shape as the teacher's pkg/queue
// Worker, generalized from "agent session" jobs to meeting/matter jobs.
type worker struct {
	id       int
	queue    *queue.Queue
	executor Executor
}

func newWorker(id int, q *queue.Queue, executor Executor) *worker {
	return &worker{id: id, queue: q, executor: executor}
}

func (w *worker) run(ctx context.Context, stopCh <-chan struct{}) {
	log := slog.With("worker_id", w.id)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		entries, err := w.queue.Claim(ctx, 1)
		if err != nil {
			if !errors.Is(err, queue.ErrNoJobsAvailable) {
				log.Error("claiming job failed", "error", err)
			}
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(idlePause):
			}
			continue
		}

		for _, entry := range entries {
			if err := w.executor.Process(ctx, entry); err != nil {
				log.Error("processing job failed", "job_id", entry.ID, "job_type", entry.JobType, "error", err)
			}
		}
	}
}
