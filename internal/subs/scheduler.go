package subs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/atlasbot/country-agent/internal/heartbeat"
)

var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Summarizer produces the daily country report.
type Summarizer interface {
	Summarize(ctx context.Context, country string) string
}

// Notifier delivers the report to a chat channel.
type Notifier interface {
	SendMessage(ctx context.Context, channelID, text string) error
}

// Service schedules daily facts for subscribed channels. It polls the
// store on an interval and fires every subscription whose next run has
// passed, computing run times from the "HH:MM" entry via a cron spec.
type Service struct {
	store    *Store
	agent    Summarizer
	notifier Notifier
	poll     time.Duration
	location *time.Location
	logger   *slog.Logger
	reporter heartbeat.Reporter

	mu       sync.Mutex
	nextRuns map[string]time.Time
}

func NewService(store *Store, agent Summarizer, notifier Notifier, poll time.Duration, timezone string, logger *slog.Logger) (*Service, error) {
	if poll < time.Second {
		poll = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	location, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}
	return &Service{
		store:    store,
		agent:    agent,
		notifier: notifier,
		poll:     poll,
		location: location,
		logger:   logger,
		nextRuns: map[string]time.Time{},
	}, nil
}

func (s *Service) SetHeartbeatReporter(reporter heartbeat.Reporter) {
	s.reporter = reporter
}

// Subscribe validates and persists a daily-fact registration. The side
// effect is immediate: the next poll cycle picks the new time up.
func (s *Service) Subscribe(channelID, timeHHMM, country string) error {
	if _, err := nextRunAfter(timeHHMM, time.Now().In(s.location)); err != nil {
		return err
	}
	if err := s.store.Upsert(Subscription{
		ChannelID: strings.TrimSpace(channelID),
		Time:      strings.TrimSpace(timeHHMM),
		Country:   strings.TrimSpace(country),
	}); err != nil {
		return err
	}
	s.forget(channelID)
	s.logger.Info("subscription saved", "channel_id", channelID, "time", timeHHMM, "country", country)
	return nil
}

// Unsubscribe removes a channel's registration; removing a channel that
// never subscribed is not an error.
func (s *Service) Unsubscribe(channelID string) error {
	removed, err := s.store.Remove(strings.TrimSpace(channelID))
	if err != nil {
		return err
	}
	s.forget(channelID)
	s.logger.Info("subscription removed", "channel_id", channelID, "existed", removed)
	return nil
}

// Reload drops cached run times so the next poll re-reads the store. The
// file watcher calls this when the subscriptions file changes on disk.
func (s *Service) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRuns = map[string]time.Time{}
	s.logger.Info("subscription schedule reloaded")
}

func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	if s.reporter != nil {
		s.reporter.Starting("scheduler", "started")
	}
	s.logger.Info("subscription scheduler started", "poll_interval", s.poll.String(), "timezone", s.location.String())
	for {
		select {
		case <-ctx.Done():
			if s.reporter != nil {
				s.reporter.Stopped("scheduler", "stopped")
			}
			s.logger.Info("subscription scheduler stopped")
			return nil
		case <-ticker.C:
			if err := s.processDue(ctx); err != nil {
				if s.reporter != nil {
					s.reporter.Degrade("scheduler", "poll cycle failed", err)
				}
				s.logger.Error("subscription poll failed", "error", err)
			} else if s.reporter != nil {
				s.reporter.Beat("scheduler", "poll cycle completed")
			}
		}
	}
}

func (s *Service) processDue(ctx context.Context) error {
	subscriptions, err := s.store.List()
	if err != nil {
		return err
	}
	now := time.Now().In(s.location)
	for _, sub := range subscriptions {
		due, err := s.advance(sub, now)
		if err != nil {
			s.logger.Warn("skipping subscription with bad time", "channel_id", sub.ChannelID, "time", sub.Time, "error", err)
			continue
		}
		if due {
			s.deliver(ctx, sub)
		}
	}
	return nil
}

// advance reports whether the subscription is due and rolls its next run
// forward. A subscription seen for the first time is armed for its next
// occurrence rather than fired retroactively.
func (s *Service) advance(sub Subscription, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, tracked := s.nextRuns[sub.ChannelID]
	if !tracked {
		upcoming, err := nextRunAfter(sub.Time, now)
		if err != nil {
			return false, err
		}
		s.nextRuns[sub.ChannelID] = upcoming
		return false, nil
	}
	if now.Before(next) {
		return false, nil
	}
	upcoming, err := nextRunAfter(sub.Time, now)
	if err != nil {
		return false, err
	}
	s.nextRuns[sub.ChannelID] = upcoming
	return true, nil
}

func (s *Service) deliver(ctx context.Context, sub Subscription) {
	target := strings.TrimSpace(sub.Country)
	if target == "" {
		target = "a random country"
	}
	text := s.agent.Summarize(ctx, target)
	if err := s.notifier.SendMessage(ctx, sub.ChannelID, text); err != nil {
		if s.reporter != nil {
			s.reporter.Degrade("scheduler", "daily fact delivery failed", err)
		}
		s.logger.Error("daily fact delivery failed", "channel_id", sub.ChannelID, "error", err)
		return
	}
	s.logger.Info("daily fact delivered", "channel_id", sub.ChannelID, "country", target)
}

func (s *Service) forget(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nextRuns, strings.TrimSpace(channelID))
}

// nextRunAfter resolves the next occurrence of a daily "HH:MM" entry by
// parsing it as a cron spec, which also validates the field ranges.
func nextRunAfter(timeHHMM string, from time.Time) (time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(timeHHMM), ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("time must be HH:MM, got %q", timeHHMM)
	}
	spec, err := scheduleParser.Parse(fmt.Sprintf("%s %s * * *", parts[1], parts[0]))
	if err != nil {
		return time.Time{}, fmt.Errorf("time must be HH:MM, got %q: %w", timeHHMM, err)
	}
	return spec.Next(from), nil
}
