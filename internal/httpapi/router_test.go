package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atlasbot/country-agent/internal/a2a"
	"github.com/atlasbot/country-agent/internal/config"
	"github.com/atlasbot/country-agent/internal/countryinfo"
	"github.com/atlasbot/country-agent/internal/delivery"
)

type fakeResponder struct {
	reply string
	texts []string
}

func (f *fakeResponder) Respond(ctx context.Context, text string) string {
	f.texts = append(f.texts, text)
	return f.reply
}

type fakeEnqueuer struct {
	jobs []delivery.Job
	err  error
}

func (f *fakeEnqueuer) Enqueue(job delivery.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeSubscriber struct {
	subscribed   []string
	unsubscribed []string
	err          error
}

func (f *fakeSubscriber) Subscribe(channelID, timeHHMM, country string) error {
	if f.err != nil {
		return f.err
	}
	f.subscribed = append(f.subscribed, channelID+"|"+timeHHMM+"|"+country)
	return nil
}

func (f *fakeSubscriber) Unsubscribe(channelID string) error {
	if f.err != nil {
		return f.err
	}
	f.unsubscribed = append(f.unsubscribed, channelID)
	return nil
}

type fakeLookup struct {
	details *countryinfo.Details
	err     error
}

func (f *fakeLookup) Lookup(ctx context.Context, name string) (*countryinfo.Details, error) {
	return f.details, f.err
}

type testDeps struct {
	agent    *fakeResponder
	delivery *fakeEnqueuer
	subs     *fakeSubscriber
	lookup   *fakeLookup
}

func newTestRouter(t *testing.T) (http.Handler, *testDeps) {
	t.Helper()
	deps := &testDeps{
		agent:    &fakeResponder{reply: "Kenya [KE]\n- Capital: Nairobi"},
		delivery: &fakeEnqueuer{},
		subs:     &fakeSubscriber{},
		lookup:   &fakeLookup{},
	}
	cfg := config.Config{SchedulerTimezone: "UTC"}
	handler := NewRouter(Dependencies{
		Config:   cfg,
		Agent:    deps.agent,
		Delivery: deps.delivery,
		Subs:     deps.subs,
		Country:  deps.lookup,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return handler, deps
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeRPC(t *testing.T, recorder *httptest.ResponseRecorder) a2a.Response {
	t.Helper()
	var response a2a.Response
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return response
}

func rpcRequest(id, method string, params any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}
}

func sendParams(text string, configuration map[string]any) map[string]any {
	params := map[string]any{
		"message": map[string]any{
			"kind":      "message",
			"role":      "user",
			"messageId": "msg-1",
			"parts":     []map[string]any{{"kind": "text", "text": text}},
		},
	}
	if configuration != nil {
		params["configuration"] = configuration
	}
	return params
}

func TestHealthEndpoints(t *testing.T) {
	handler, _ := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, recorder.Code)
		}
	}
}

func TestSendReturnsPlainTextReply(t *testing.T) {
	handler, deps := newTestRouter(t)

	recorder := postJSON(t, handler, "/send", map[string]string{"text": "tell me about kenya"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	if got := recorder.Body.String(); got != deps.agent.reply {
		t.Fatalf("unexpected reply %q", got)
	}
	if len(deps.agent.texts) != 1 || deps.agent.texts[0] != "tell me about kenya" {
		t.Fatalf("agent received %v", deps.agent.texts)
	}
}

func TestSendRejectsEmptyText(t *testing.T) {
	handler, _ := newTestRouter(t)

	recorder := postJSON(t, handler, "/send", map[string]string{"text": "   "})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestSendHandlesSubscribeCommand(t *testing.T) {
	handler, deps := newTestRouter(t)

	recorder := postJSON(t, handler, "/send", map[string]string{
		"text":       "/subscribe 09:30 Kenya",
		"channel_id": "chan-1",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	want := "Subscribed to daily facts at 09:30 UTC about Kenya."
	if got := recorder.Body.String(); got != want {
		t.Fatalf("unexpected confirmation %q", got)
	}
	if len(deps.subs.subscribed) != 1 || deps.subs.subscribed[0] != "chan-1|09:30|Kenya" {
		t.Fatalf("subscriber received %v", deps.subs.subscribed)
	}
	if len(deps.agent.texts) != 0 {
		t.Fatal("command must not reach the agent pipeline")
	}
}

func TestSendSubscribeUsageOnBadTime(t *testing.T) {
	handler, _ := newTestRouter(t)

	recorder := postJSON(t, handler, "/send", map[string]string{
		"text":       "/subscribe tomorrow",
		"channel_id": "chan-1",
	})
	if got := recorder.Body.String(); got != subscribeUsage {
		t.Fatalf("expected usage string, got %q", got)
	}
}

func TestSendHandlesUnsubscribeCommand(t *testing.T) {
	handler, deps := newTestRouter(t)

	recorder := postJSON(t, handler, "/send", map[string]string{
		"text":       "/unsubscribe",
		"channel_id": "chan-1",
	})
	if got := recorder.Body.String(); got != "Unsubscribed from daily country facts." {
		t.Fatalf("unexpected confirmation %q", got)
	}
	if len(deps.subs.unsubscribed) != 1 || deps.subs.unsubscribed[0] != "chan-1" {
		t.Fatalf("subscriber received %v", deps.subs.unsubscribed)
	}
}

func TestRPCParseError(t *testing.T) {
	handler, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader("{not json"))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	response := decodeRPC(t, recorder)
	if response.Error == nil || response.Error.Code != a2a.CodeParseError {
		t.Fatalf("expected parse error, got %+v", response.Error)
	}
}

func TestRPCInvalidRequest(t *testing.T) {
	handler, _ := newTestRouter(t)

	recorder := postJSON(t, handler, "/rpc", map[string]any{
		"jsonrpc": "1.0",
		"id":      "req-1",
		"method":  "message/send",
		"params":  sendParams("hi", nil),
	})
	response := decodeRPC(t, recorder)
	if response.Error == nil || response.Error.Code != a2a.CodeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", response.Error)
	}

	recorder = postJSON(t, handler, "/rpc", map[string]any{
		"jsonrpc": "2.0",
		"method":  "message/send",
		"params":  sendParams("hi", nil),
	})
	response = decodeRPC(t, recorder)
	if response.Error == nil || response.Error.Code != a2a.CodeInvalidRequest {
		t.Fatalf("expected invalid request for missing id, got %+v", response.Error)
	}
}

func TestRPCMethodNotFound(t *testing.T) {
	handler, _ := newTestRouter(t)

	recorder := postJSON(t, handler, "/rpc", rpcRequest("req-1", "tasks/get", sendParams("hi", nil)))
	response := decodeRPC(t, recorder)
	if response.Error == nil || response.Error.Code != a2a.CodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", response.Error)
	}
	if response.ID != "req-1" {
		t.Fatalf("response id must echo the request, got %q", response.ID)
	}
}

func TestRPCMissingTextPart(t *testing.T) {
	handler, _ := newTestRouter(t)

	params := map[string]any{
		"message": map[string]any{
			"kind":      "message",
			"role":      "user",
			"messageId": "msg-1",
			"parts":     []map[string]any{{"kind": "data", "data": []any{}}},
		},
	}
	recorder := postJSON(t, handler, "/rpc", rpcRequest("req-1", "message/send", params))
	response := decodeRPC(t, recorder)
	if response.Error == nil || response.Error.Code != a2a.CodeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", response.Error)
	}
}

func TestRPCBlockingCompletesInline(t *testing.T) {
	handler, deps := newTestRouter(t)

	recorder := postJSON(t, handler, "/rpc", rpcRequest("req-1", "message/send", sendParams("tell me about kenya", nil)))
	response := decodeRPC(t, recorder)
	if response.Error != nil {
		t.Fatalf("unexpected error %+v", response.Error)
	}
	task := response.Result
	if task == nil || task.Status.State != a2a.StateCompleted {
		t.Fatalf("expected completed task, got %+v", task)
	}
	if task.Kind != "task" {
		t.Fatalf("unexpected task kind %q", task.Kind)
	}
	if len(task.History) != 2 {
		t.Fatalf("expected two-entry history, got %d", len(task.History))
	}
	if task.History[0].Role != "user" || task.History[1].Role != "agent" {
		t.Fatalf("unexpected history roles %q/%q", task.History[0].Role, task.History[1].Role)
	}
	reply, ok := task.Status.Message.FirstText()
	if !ok || reply != deps.agent.reply {
		t.Fatalf("unexpected reply %q", reply)
	}
	if task.Artifacts == nil {
		t.Fatal("artifacts must serialize as an empty array, not null")
	}
	if len(deps.delivery.jobs) != 0 {
		t.Fatal("blocking requests must not enqueue delivery jobs")
	}
}

func TestRPCNonBlockingWithoutPushConfigIsRejected(t *testing.T) {
	handler, deps := newTestRouter(t)

	configurations := []map[string]any{
		{"blocking": false},
		{"blocking": false, "pushNotificationConfig": map[string]any{"token": "secret-token"}},
		{"blocking": false, "pushNotificationConfig": map[string]any{"url": "https://callbacks.example.com/hook"}},
	}
	for _, configuration := range configurations {
		recorder := postJSON(t, handler, "/rpc", rpcRequest("req-1", "message/send", sendParams("tell me about kenya", configuration)))
		response := decodeRPC(t, recorder)
		if response.Error == nil || response.Error.Code != a2a.CodeInvalidParams {
			t.Fatalf("configuration %v: expected invalid params, got %+v", configuration, response.Error)
		}
		if response.Result != nil {
			t.Fatalf("configuration %v: a rejected non-blocking request must never acknowledge as running", configuration)
		}
	}
	if len(deps.delivery.jobs) != 0 {
		t.Fatal("nothing should be enqueued")
	}
}

func TestRPCNonBlockingAcknowledgesRunning(t *testing.T) {
	handler, deps := newTestRouter(t)

	recorder := postJSON(t, handler, "/rpc", rpcRequest("req-1", "message/send", sendParams("tell me about kenya", map[string]any{
		"blocking": false,
		"pushNotificationConfig": map[string]any{
			"url":   "https://callbacks.example.com/hook",
			"token": "secret-token",
		},
	})))
	response := decodeRPC(t, recorder)
	if response.Error != nil {
		t.Fatalf("unexpected error %+v", response.Error)
	}
	task := response.Result
	if task == nil || task.Status.State != a2a.StateRunning {
		t.Fatalf("expected running acknowledgment, got %+v", task)
	}
	if len(task.History) != 0 {
		t.Fatalf("running acknowledgment carries no history, got %d entries", len(task.History))
	}
	if len(deps.delivery.jobs) != 1 {
		t.Fatalf("expected one queued job, got %d", len(deps.delivery.jobs))
	}
	job := deps.delivery.jobs[0]
	if job.UserText != "tell me about kenya" {
		t.Fatalf("unexpected job text %q", job.UserText)
	}
	if job.Push.URL != "https://callbacks.example.com/hook" || job.Push.Token != "secret-token" {
		t.Fatalf("unexpected push config %+v", job.Push)
	}
	if job.TaskID != task.ID || job.ContextID != task.ContextID {
		t.Fatal("job identity must match the acknowledged task")
	}
	if len(deps.agent.texts) != 0 {
		t.Fatal("non-blocking requests must not run the pipeline inline")
	}
}

func TestRPCQueueFullSurfacesInternalError(t *testing.T) {
	handler, deps := newTestRouter(t)
	deps.delivery.err = delivery.ErrQueueFull

	recorder := postJSON(t, handler, "/rpc", rpcRequest("req-1", "message/send", sendParams("tell me about kenya", map[string]any{
		"blocking": false,
		"pushNotificationConfig": map[string]any{
			"url":   "https://callbacks.example.com/hook",
			"token": "secret-token",
		},
	})))
	response := decodeRPC(t, recorder)
	if response.Error == nil || response.Error.Code != a2a.CodeInternalError {
		t.Fatalf("expected internal error, got %+v", response.Error)
	}
}

func TestRPCSubscribeCommandCompletesInline(t *testing.T) {
	handler, deps := newTestRouter(t)

	params := sendParams("/subscribe 07:45 Peru", map[string]any{"blocking": false, "pushNotificationConfig": map[string]any{"url": "https://callbacks.example.com/hook"}})
	params["contextId"] = "chan-9"
	recorder := postJSON(t, handler, "/rpc", rpcRequest("req-1", "message/send", params))
	response := decodeRPC(t, recorder)
	if response.Error != nil {
		t.Fatalf("unexpected error %+v", response.Error)
	}
	if response.Result == nil || response.Result.Status.State != a2a.StateCompleted {
		t.Fatalf("commands complete inline, got %+v", response.Result)
	}
	reply, _ := response.Result.Status.Message.FirstText()
	if reply != "Subscribed to daily facts at 07:45 UTC about Peru." {
		t.Fatalf("unexpected confirmation %q", reply)
	}
	if len(deps.subs.subscribed) != 1 || deps.subs.subscribed[0] != "chan-9|07:45|Peru" {
		t.Fatalf("subscriber received %v", deps.subs.subscribed)
	}
	if len(deps.delivery.jobs) != 0 {
		t.Fatal("commands must not be deferred")
	}
}

func TestCountryEndpoint(t *testing.T) {
	handler, deps := newTestRouter(t)
	deps.lookup.details = &countryinfo.Details{Name: "Kenya", CCA2: "KE", Region: "Africa"}

	req := httptest.NewRequest(http.MethodGet, "/country?name=tell+me+about+kenya", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	var payload struct {
		Country string               `json:"country"`
		Info    *countryinfo.Details `json:"info"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Country != "Kenya" {
		t.Fatalf("unexpected country %q", payload.Country)
	}
	if payload.Info == nil || payload.Info.CCA2 != "KE" {
		t.Fatalf("unexpected info %+v", payload.Info)
	}
}

func TestCountryEndpointRequiresName(t *testing.T) {
	handler, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/country", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}
