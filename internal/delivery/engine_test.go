package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/atlasbot/country-agent/internal/a2a"
)

type fakeResponder struct {
	reply string
}

func (f *fakeResponder) Respond(ctx context.Context, text string) string {
	return f.reply
}

type fakePusher struct {
	mu        sync.Mutex
	pushed    chan struct{}
	url       string
	token     string
	response  a2a.Response
	returnErr error
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushed: make(chan struct{}, 1)}
}

func (f *fakePusher) Push(ctx context.Context, url, token string, response a2a.Response) error {
	f.mu.Lock()
	f.url = url
	f.token = token
	f.response = response
	f.mu.Unlock()
	f.pushed <- struct{}{}
	return f.returnErr
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineProcessesJobAndPushes(t *testing.T) {
	pusher := newFakePusher()
	engine := NewEngine(&fakeResponder{reply: "Japan [JP]\n..."}, pusher, 1, 4, time.Second, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = engine.Start(ctx)
		close(done)
	}()

	job := Job{
		TaskID:    "task-1",
		ContextID: "ctx-1",
		MessageID: "msg-1",
		UserText:  "tell me about Japan",
		Push:      a2a.PushNotificationConfig{URL: "https://callback.example/hook", Token: "secret"},
	}
	if err := engine.Enqueue(job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-pusher.pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("push never happened")
	}

	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	if pusher.url != "https://callback.example/hook" || pusher.token != "secret" {
		t.Fatalf("unexpected push target %q token %q", pusher.url, pusher.token)
	}
	if pusher.response.ID != "task-1" {
		t.Fatalf("unexpected response id %q", pusher.response.ID)
	}
	task := pusher.response.Result
	if task == nil || task.Status.State != a2a.StateCompleted {
		t.Fatalf("expected completed task result, got %+v", task)
	}
	if len(task.History) != 2 {
		t.Fatalf("expected two-entry history, got %d", len(task.History))
	}
	if task.History[0].MessageID != "msg-1" {
		t.Fatalf("expected inbound message id preserved, got %q", task.History[0].MessageID)
	}
	if text, ok := task.Status.Message.FirstText(); !ok || text != "Japan [JP]\n..." {
		t.Fatalf("unexpected agent text %q", text)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	// Engine never started, so the single queue slot fills immediately.
	engine := NewEngine(&fakeResponder{}, newFakePusher(), 1, 1, time.Second, newTestLogger())

	if err := engine.Enqueue(Job{TaskID: "task-1"}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := engine.Enqueue(Job{TaskID: "task-2"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

type shutdownPusher struct {
	cancelRun context.CancelFunc
	ctxErr    chan error
}

func (p *shutdownPusher) Push(ctx context.Context, url, token string, response a2a.Response) error {
	p.cancelRun()
	p.ctxErr <- ctx.Err()
	return nil
}

func TestShutdownDoesNotAbortInFlightPush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pusher := &shutdownPusher{cancelRun: cancel, ctxErr: make(chan error, 1)}
	engine := NewEngine(&fakeResponder{reply: "text"}, pusher, 1, 4, time.Second, newTestLogger())

	done := make(chan struct{})
	go func() {
		_ = engine.Start(ctx)
		close(done)
	}()

	if err := engine.Enqueue(Job{TaskID: "task-1", Push: a2a.PushNotificationConfig{URL: "https://x.example", Token: "secret"}}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case err := <-pusher.ctxErr:
		if err != nil {
			t.Fatalf("push context cancelled during shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("push never attempted")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestPushFailureIsSwallowed(t *testing.T) {
	pusher := newFakePusher()
	pusher.returnErr = errors.New("callback unreachable")
	engine := NewEngine(&fakeResponder{reply: "text"}, pusher, 1, 4, time.Second, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = engine.Start(ctx) }()

	if err := engine.Enqueue(Job{TaskID: "task-1", Push: a2a.PushNotificationConfig{URL: "https://x.example"}}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case <-pusher.pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("push never attempted")
	}
	// Nothing to assert beyond the attempt: failure must not propagate.
}
