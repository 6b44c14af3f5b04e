package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atlasbot/country-agent/internal/a2a"
	"github.com/atlasbot/country-agent/internal/delivery"
)

const subscribeUsage = "Usage: /subscribe HH:MM [country]"

// handleRPC implements the JSON-RPC shaped message/send surface. Only
// validation failures produce protocol error objects; provider trouble
// degrades the reply text instead.
func (r *router) handleRPC(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var rpcReq a2a.Request
	if err := json.NewDecoder(req.Body).Decode(&rpcReq); err != nil {
		writeJSON(w, http.StatusOK, a2a.ErrorResponse("", a2a.CodeParseError, "parse error", err.Error()))
		return
	}
	if rpcReq.JSONRPC != a2a.Version || strings.TrimSpace(rpcReq.ID) == "" {
		writeJSON(w, http.StatusOK, a2a.ErrorResponse(rpcReq.ID, a2a.CodeInvalidRequest, "invalid request: jsonrpc version and id are required", nil))
		return
	}
	if rpcReq.Method != a2a.MethodMessageSend {
		writeJSON(w, http.StatusOK, a2a.ErrorResponse(rpcReq.ID, a2a.CodeMethodNotFound,
			fmt.Sprintf("method %q not found", rpcReq.Method),
			map[string]any{"supported": []string{a2a.MethodMessageSend}},
		))
		return
	}

	var params a2a.SendParams
	if err := json.Unmarshal(rpcReq.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, a2a.ErrorResponse(rpcReq.ID, a2a.CodeInvalidParams, "invalid params", err.Error()))
		return
	}
	text, ok := params.Message.FirstText()
	if !ok {
		writeJSON(w, http.StatusOK, a2a.ErrorResponse(rpcReq.ID, a2a.CodeInvalidParams, "no text content in message parts", nil))
		return
	}

	taskID := strings.TrimSpace(params.Message.TaskID)
	if taskID == "" {
		taskID = "task-" + uuid.NewString()
	}
	contextID := strings.TrimSpace(params.ContextID)
	if contextID == "" {
		contextID = uuid.NewString()
	}
	userMsg := params.Message
	if strings.TrimSpace(userMsg.MessageID) == "" {
		userMsg.MessageID = uuid.NewString()
	}

	// Commands are recognized ahead of the on-demand path and always
	// complete inline; there is nothing to defer.
	if reply, handled := r.commandReply(text, contextID); handled {
		r.writeCompleted(w, rpcReq.ID, taskID, contextID, userMsg, reply)
		return
	}

	if params.Configuration.IsBlocking() {
		reply := r.deps.Agent.Respond(req.Context(), text)
		r.writeCompleted(w, rpcReq.ID, taskID, contextID, userMsg, reply)
		return
	}

	push := params.Configuration.PushNotificationConfig
	if push == nil || strings.TrimSpace(push.URL) == "" || strings.TrimSpace(push.Token) == "" {
		writeJSON(w, http.StatusOK, a2a.ErrorResponse(rpcReq.ID, a2a.CodeInvalidParams,
			"pushNotificationConfig with url and token is required for non-blocking requests", nil))
		return
	}

	job := delivery.Job{
		TaskID:    taskID,
		ContextID: contextID,
		MessageID: userMsg.MessageID,
		UserText:  text,
		Push:      *push,
	}
	if err := r.deps.Delivery.Enqueue(job); err != nil {
		if errors.Is(err, delivery.ErrQueueFull) {
			writeJSON(w, http.StatusOK, a2a.ErrorResponse(rpcReq.ID, a2a.CodeInternalError, "delivery queue is full, try again later", nil))
			return
		}
		writeJSON(w, http.StatusOK, a2a.ErrorResponse(rpcReq.ID, a2a.CodeInternalError, "failed to schedule delivery", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, a2a.SuccessResponse(rpcReq.ID, a2a.RunningTask(taskID, contextID, time.Now())))
}

func (r *router) writeCompleted(w http.ResponseWriter, requestID, taskID, contextID string, userMsg a2a.Message, reply string) {
	agentMsg := a2a.NewAgentMessage(taskID, reply)
	task := a2a.CompletedTask(taskID, contextID, userMsg, agentMsg, time.Now())
	writeJSON(w, http.StatusOK, a2a.SuccessResponse(requestID, task))
}

// commandReply short-circuits the subscription chat commands. The second
// return reports whether the text was a command at all.
func (r *router) commandReply(text, channelID string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lowered, "/unsubscribe"):
		if r.deps.Subs == nil || strings.TrimSpace(channelID) == "" {
			return "Unsubscribing requires a channel context.", true
		}
		if err := r.deps.Subs.Unsubscribe(channelID); err != nil {
			r.deps.Logger.Error("unsubscribe failed", "channel_id", channelID, "error", err)
			return "Sorry, I couldn't update your subscription. Please try again.", true
		}
		return "Unsubscribed from daily country facts.", true

	case strings.HasPrefix(lowered, "/subscribe"):
		fields := strings.Fields(trimmed)
		if len(fields) < 2 || !strings.Contains(fields[1], ":") {
			return subscribeUsage, true
		}
		if r.deps.Subs == nil || strings.TrimSpace(channelID) == "" {
			return "Subscribing requires a channel context.", true
		}
		timeHHMM := fields[1]
		country := strings.Join(fields[2:], " ")
		if err := r.deps.Subs.Subscribe(channelID, timeHHMM, country); err != nil {
			r.deps.Logger.Warn("subscribe rejected", "channel_id", channelID, "time", timeHHMM, "error", err)
			return subscribeUsage, true
		}
		confirmation := fmt.Sprintf("Subscribed to daily facts at %s %s", timeHHMM, r.deps.Config.SchedulerTimezone)
		if strings.TrimSpace(country) != "" {
			confirmation += fmt.Sprintf(" about %s", country)
		}
		return confirmation + ".", true
	}
	return "", false
}
