// Package heartbeat tracks the liveness of the runtime's long-running
// components (delivery engine, scheduler, subscription watcher, HTTP
// server) and renders a snapshot for the status endpoint.
package heartbeat

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	StateStarting = "starting"
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateStopped  = "stopped"
)

type Reporter interface {
	Starting(component, message string)
	Beat(component, message string)
	Degrade(component, message string, err error)
	Stopped(component, message string)
}

type ComponentStatus struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	UpdatedAtUnix int64  `json:"updated_at_unix"`
}

type Snapshot struct {
	GeneratedAtUnix int64             `json:"generated_at_unix"`
	Overall         string            `json:"overall"`
	Components      []ComponentStatus `json:"components"`
}

type record struct {
	state     string
	message   string
	lastError string
	updatedAt time.Time
}

type Registry struct {
	mu         sync.RWMutex
	components map[string]record
}

func NewRegistry() *Registry {
	return &Registry{components: map[string]record{}}
}

func (r *Registry) Starting(component, message string) {
	r.set(component, StateStarting, message, "")
}

func (r *Registry) Beat(component, message string) {
	r.set(component, StateHealthy, message, "")
}

func (r *Registry) Degrade(component, message string, err error) {
	errorText := ""
	if err != nil {
		errorText = strings.TrimSpace(err.Error())
	}
	r.set(component, StateDegraded, message, errorText)
}

func (r *Registry) Stopped(component, message string) {
	r.set(component, StateStopped, message, "")
}

func (r *Registry) set(component, state, message, errorText string) {
	name := strings.ToLower(strings.TrimSpace(component))
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = record{
		state:     state,
		message:   strings.TrimSpace(message),
		lastError: errorText,
		updatedAt: time.Now().UTC(),
	}
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]ComponentStatus, 0, len(r.components))
	for name, rec := range r.components {
		results = append(results, ComponentStatus{
			Name:          name,
			State:         rec.state,
			Message:       rec.message,
			Error:         rec.lastError,
			UpdatedAtUnix: rec.updatedAt.Unix(),
		})
	}
	sort.Slice(results, func(left, right int) bool {
		return results[left].Name < results[right].Name
	})

	return Snapshot{
		GeneratedAtUnix: time.Now().UTC().Unix(),
		Overall:         overall(results),
		Components:      results,
	}
}

func overall(items []ComponentStatus) string {
	if len(items) == 0 {
		return "unknown"
	}
	hasHealthy := false
	hasStarting := false
	for _, item := range items {
		switch item.State {
		case StateDegraded:
			return StateDegraded
		case StateHealthy:
			hasHealthy = true
		case StateStarting:
			hasStarting = true
		}
	}
	if hasStarting {
		return StateStarting
	}
	if hasHealthy {
		return StateHealthy
	}
	return "idle"
}
