// Package a2a carries the JSON-RPC 2.0 shaped agent-to-agent envelope the
// chat platform speaks: message parts, task status and the request and
// response frames. Payloads are typed and validated at the boundary;
// anything that does not match the schema is rejected with a protocol
// error rather than passed through loosely.
package a2a

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

const Version = "2.0"

// Task states.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Message part kinds.
const (
	PartKindText = "text"
	PartKindData = "data"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

const MethodMessageSend = "message/send"

type MessagePart struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
	Data []any  `json:"data,omitempty"`
}

type Message struct {
	Kind      string         `json:"kind"`
	Role      string         `json:"role"`
	Parts     []MessagePart  `json:"parts"`
	MessageID string         `json:"messageId"`
	TaskID    string         `json:"taskId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type TaskStatus struct {
	State     string   `json:"state"`
	Timestamp string   `json:"timestamp"`
	Message   *Message `json:"message,omitempty"`
}

type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Artifacts []any      `json:"artifacts"`
	History   []Message  `json:"history"`
	Kind      string     `json:"kind"`
}

type PushNotificationConfig struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

type Configuration struct {
	AcceptedOutputModes    []string                `json:"acceptedOutputModes,omitempty"`
	HistoryLength          int                     `json:"historyLength,omitempty"`
	Blocking               *bool                   `json:"blocking,omitempty"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitempty"`
}

// IsBlocking reports the dispatch mode; an absent flag means blocking.
func (c *Configuration) IsBlocking() bool {
	if c == nil || c.Blocking == nil {
		return true
	}
	return *c.Blocking
}

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type SendParams struct {
	Message       Message        `json:"message"`
	Configuration *Configuration `json:"configuration,omitempty"`
	ContextID     string         `json:"contextId,omitempty"`
}

type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Result  *Task  `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// FirstText returns the first text-bearing part of the message.
func (m Message) FirstText() (string, bool) {
	for _, part := range m.Parts {
		if part.Kind == PartKindText && strings.TrimSpace(part.Text) != "" {
			return part.Text, true
		}
	}
	return "", false
}

func NewUserMessage(text, messageID string) Message {
	if strings.TrimSpace(messageID) == "" {
		messageID = uuid.NewString()
	}
	return Message{
		Kind:      "message",
		Role:      "user",
		Parts:     []MessagePart{{Kind: PartKindText, Text: text}},
		MessageID: messageID,
	}
}

func NewAgentMessage(taskID, text string) Message {
	return Message{
		Kind:      "message",
		Role:      "agent",
		Parts:     []MessagePart{{Kind: PartKindText, Text: text}},
		MessageID: uuid.NewString(),
		TaskID:    taskID,
	}
}

// CompletedTask builds the terminal task envelope with the two-entry
// exchange history.
func CompletedTask(taskID, contextID string, userMsg, agentMsg Message, now time.Time) *Task {
	return &Task{
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     StateCompleted,
			Timestamp: now.UTC().Format(time.RFC3339),
			Message:   &agentMsg,
		},
		Artifacts: []any{},
		History:   []Message{userMsg, agentMsg},
		Kind:      "task",
	}
}

// RunningTask builds the immediate acknowledgment for non-blocking mode.
func RunningTask(taskID, contextID string, now time.Time) *Task {
	return &Task{
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     StateRunning,
			Timestamp: now.UTC().Format(time.RFC3339),
		},
		Artifacts: []any{},
		History:   []Message{},
		Kind:      "task",
	}
}

func SuccessResponse(id string, task *Task) Response {
	return Response{JSONRPC: Version, ID: id, Result: task}
}

func ErrorResponse(id string, code int, message string, data any) Response {
	return Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}
