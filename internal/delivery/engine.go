// Package delivery runs non-blocking request processing off the inbound
// request path. Jobs go through a bounded worker pool so shutdown can
// drain in-flight pushes and a burst of requests cannot spawn unbounded
// goroutines.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/atlasbot/country-agent/internal/a2a"
	"github.com/atlasbot/country-agent/internal/heartbeat"
)

var ErrQueueFull = errors.New("delivery queue is full")

// Responder is the aggregation pipeline the workers re-run per job.
type Responder interface {
	Respond(ctx context.Context, text string) string
}

// Job identifies one deferred request/response cycle.
type Job struct {
	TaskID    string
	ContextID string
	MessageID string
	UserText  string
	Push      a2a.PushNotificationConfig
	CreatedAt time.Time
}

type Engine struct {
	responder Responder
	pusher    Pusher
	budget    time.Duration
	workers   int
	jobs      chan Job
	logger    *slog.Logger
	reporter  heartbeat.Reporter
	startOnce sync.Once
}

func NewEngine(responder Responder, pusher Pusher, workers, queueSize int, budget time.Duration, logger *slog.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers * 16
	}
	if budget <= 0 {
		budget = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		responder: responder,
		pusher:    pusher,
		budget:    budget,
		workers:   workers,
		jobs:      make(chan Job, queueSize),
		logger:    logger,
	}
}

func (e *Engine) SetHeartbeatReporter(reporter heartbeat.Reporter) {
	e.reporter = reporter
}

// Start runs the worker pool until ctx is cancelled, then waits for
// in-flight deliveries to finish.
func (e *Engine) Start(ctx context.Context) error {
	var workers sync.WaitGroup
	e.startOnce.Do(func() {
		for index := 0; index < e.workers; index++ {
			workers.Add(1)
			go func(workerID int) {
				defer workers.Done()
				e.worker(ctx, workerID)
			}(index + 1)
		}
	})
	if e.reporter != nil {
		e.reporter.Beat("delivery", "workers running")
	}

	<-ctx.Done()
	workers.Wait()
	if e.reporter != nil {
		e.reporter.Stopped("delivery", "stopped")
	}
	return nil
}

// Enqueue accepts a job without blocking the inbound request; a full
// queue is surfaced to the protocol layer as an internal error.
func (e *Engine) Enqueue(job Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	select {
	case e.jobs <- job:
		e.logger.Info("delivery queued", "task_id", job.TaskID, "context_id", job.ContextID)
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *Engine) worker(ctx context.Context, workerID int) {
	e.logger.Info("delivery worker started", "worker_id", workerID)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("delivery worker stopped", "worker_id", workerID)
			return
		case job := <-e.jobs:
			e.process(ctx, workerID, job)
		}
	}
}

// process re-runs the aggregation with a budget tighter than the blocking
// path, leaving headroom for the outbound push, then performs exactly one
// POST. Failures are logged only; the inbound request already returned a
// running acknowledgment.
func (e *Engine) process(ctx context.Context, workerID int, job Job) {
	budgetCtx, cancel := context.WithTimeout(ctx, e.budget)
	resultText := e.responder.Respond(budgetCtx, job.UserText)
	cancel()

	agentMsg := a2a.NewAgentMessage(job.TaskID, resultText)
	userMsg := a2a.NewUserMessage(job.UserText, job.MessageID)
	task := a2a.CompletedTask(job.TaskID, job.ContextID, userMsg, agentMsg, time.Now())
	response := a2a.SuccessResponse(job.TaskID, task)

	// The push gets its own timeout detached from the run context: once a
	// job reaches this point, shutdown waits for the POST instead of
	// aborting it mid-delivery.
	pushCtx, cancelPush := context.WithTimeout(context.Background(), e.budget)
	defer cancelPush()
	if err := e.pusher.Push(pushCtx, job.Push.URL, job.Push.Token, response); err != nil {
		if e.reporter != nil {
			e.reporter.Degrade("delivery", "push failed", err)
		}
		e.logger.Error("delivery push failed", "worker_id", workerID, "task_id", job.TaskID, "url", job.Push.URL, "error", err)
		return
	}
	if e.reporter != nil {
		e.reporter.Beat("delivery", "push delivered")
	}
	e.logger.Info("delivery push completed", "worker_id", workerID, "task_id", job.TaskID)
}
