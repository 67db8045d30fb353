package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const dequeueWait = 5 * time.Second

// Worker drains the queue and dispatches tasks to their runners. Task
// failures are logged and the loop keeps going; only context
// cancellation stops it.
type Worker struct {
	queue    *RedisQueue
	assigner *Assigner
	exporter *ExportRunner
	logger   *zap.Logger
}

// NewWorker builds a worker.
func NewWorker(queue *RedisQueue, assigner *Assigner, exporter *ExportRunner, logger *zap.Logger) *Worker {
	return &Worker{queue: queue, assigner: assigner, exporter: exporter, logger: logger}
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("task worker started")
	for {
		task, err := w.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("task worker stopped")
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			if ctx.Err() != nil {
				w.logger.Info("task worker stopped")
				return
			}
			continue
		}
		w.handle(ctx, task)
	}
}

func (w *Worker) handle(ctx context.Context, task *Task) {
	var err error
	switch task.Type {
	case TaskAssignTicket:
		if task.Assignment == nil {
			w.logger.Error("assignment task without payload", zap.String("task_id", task.ID))
			return
		}
		err = w.assigner.Assign(ctx, task.Assignment.TicketID)
	case TaskExportTickets:
		if task.Export == nil {
			w.logger.Error("export task without payload", zap.String("task_id", task.ID))
			return
		}
		err = w.exporter.Run(ctx, task.Export)
	default:
		w.logger.Error("unknown task type",
			zap.String("task_id", task.ID),
			zap.String("task_type", string(task.Type)))
		return
	}
	if err != nil {
		w.logger.Error("task failed",
			zap.String("task_id", task.ID),
			zap.String("task_type", string(task.Type)),
			zap.Error(err))
	}
}
