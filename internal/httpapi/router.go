package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atlasbot/country-agent/internal/config"
	"github.com/atlasbot/country-agent/internal/countryinfo"
	"github.com/atlasbot/country-agent/internal/delivery"
	"github.com/atlasbot/country-agent/internal/extract"
	"github.com/atlasbot/country-agent/internal/heartbeat"
)

// Responder runs the extraction + aggregation + formatting pipeline.
type Responder interface {
	Respond(ctx context.Context, text string) string
}

// Enqueuer accepts deferred delivery jobs.
type Enqueuer interface {
	Enqueue(job delivery.Job) error
}

// Subscriber applies subscription side effects for chat commands.
type Subscriber interface {
	Subscribe(channelID, timeHHMM, country string) error
	Unsubscribe(channelID string) error
}

// DetailsLookup backs the debug passthrough endpoint.
type DetailsLookup interface {
	Lookup(ctx context.Context, name string) (*countryinfo.Details, error)
}

type Dependencies struct {
	Config    config.Config
	Agent     Responder
	Delivery  Enqueuer
	Subs      Subscriber
	Country   DetailsLookup
	Heartbeat *heartbeat.Registry
	Logger    *slog.Logger
}

type router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/status", rt.handleStatus)
	mux.HandleFunc("/send", rt.handleSend)
	mux.HandleFunc("/rpc", rt.handleRPC)
	mux.HandleFunc("/country", rt.handleCountry)
	return mux
}

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *router) handleReady(w http.ResponseWriter, req *http.Request) {
	if r.deps.Agent == nil || r.deps.Delivery == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (r *router) handleStatus(w http.ResponseWriter, req *http.Request) {
	if r.deps.Heartbeat == nil {
		writeJSON(w, http.StatusOK, map[string]string{"overall": "unknown"})
		return
	}
	writeJSON(w, http.StatusOK, r.deps.Heartbeat.Snapshot())
}

type sendRequest struct {
	Text      string `json:"text"`
	ChannelID string `json:"channel_id,omitempty"`
}

// handleSend is the plain-text blocking surface: the reply is computed
// within the request's lifetime, commands included.
func (r *router) handleSend(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload sendRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	reply, handled := r.commandReply(text, payload.ChannelID)
	if !handled {
		reply = r.deps.Agent.Respond(req.Context(), text)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(reply))
}

func (r *router) handleCountry(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	name := strings.TrimSpace(req.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name query parameter is required"})
		return
	}

	country := extract.Country(name)
	var info *countryinfo.Details
	if country != "" && r.deps.Country != nil {
		details, err := r.deps.Country.Lookup(req.Context(), country)
		if err != nil {
			r.deps.Logger.Warn("debug country lookup failed", "country", country, "error", err)
		} else {
			info = details
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"country": country,
		"info":    info,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
