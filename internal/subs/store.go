// Package subs owns the daily-fact subscription model: a flat-file store
// keyed by chat channel, a polling scheduler that fires each channel's
// daily summary, and a file watcher that picks up external edits.
package subs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Subscription is one channel's daily-fact registration. Time is "HH:MM"
// in the scheduler's timezone; an empty country means a rotating pick.
type Subscription struct {
	ChannelID string `json:"channel_id"`
	Time      string `json:"time"`
	Country   string `json:"country,omitempty"`
}

type subscriptionFile struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

// Store persists subscriptions to a single JSON file. One entry per
// channel, last write wins. Reads tolerate `//` comment lines so the
// file stays hand-editable.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) List() ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	return data.Subscriptions, nil
}

// Upsert replaces any existing entry for the subscription's channel.
func (s *Store) Upsert(sub Subscription) error {
	if strings.TrimSpace(sub.ChannelID) == "" {
		return fmt.Errorf("channel id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return err
	}
	kept := make([]Subscription, 0, len(data.Subscriptions)+1)
	for _, existing := range data.Subscriptions {
		if existing.ChannelID != sub.ChannelID {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, sub)
	data.Subscriptions = kept
	return s.write(data)
}

// Remove deletes a channel's entry and reports whether one existed.
func (s *Store) Remove(channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read()
	if err != nil {
		return false, err
	}
	kept := make([]Subscription, 0, len(data.Subscriptions))
	removed := false
	for _, existing := range data.Subscriptions {
		if existing.ChannelID == channelID {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return false, nil
	}
	data.Subscriptions = kept
	return true, s.write(data)
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) read() (subscriptionFile, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return subscriptionFile{}, nil
	}
	if err != nil {
		return subscriptionFile{}, fmt.Errorf("read subscriptions: %w", err)
	}

	kept := make([]string, 0, 16)
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		kept = append(kept, line)
	}
	content := strings.TrimSpace(strings.Join(kept, "\n"))
	if content == "" {
		return subscriptionFile{}, nil
	}

	var data subscriptionFile
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return subscriptionFile{}, fmt.Errorf("decode subscriptions: %w", err)
	}
	return data, nil
}

func (s *Store) write(data subscriptionFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create subscriptions directory: %w", err)
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}
	return os.WriteFile(s.path, encoded, 0o644)
}
