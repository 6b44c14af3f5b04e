// Package app assembles the country agent: the aggregation pipeline,
// the delivery worker pool, the subscription scheduler and the HTTP
// surface, supervised as one unit.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/atlasbot/country-agent/internal/agent"
	"github.com/atlasbot/country-agent/internal/chat"
	"github.com/atlasbot/country-agent/internal/config"
	"github.com/atlasbot/country-agent/internal/countryinfo"
	"github.com/atlasbot/country-agent/internal/delivery"
	"github.com/atlasbot/country-agent/internal/heartbeat"
	"github.com/atlasbot/country-agent/internal/httpapi"
	"github.com/atlasbot/country-agent/internal/llm/groq"
	"github.com/atlasbot/country-agent/internal/subs"
)

type Runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	agent      *agent.Service
	engine     *delivery.Engine
	scheduler  *subs.Service
	watcher    *subs.Watcher
	heartbeat  *heartbeat.Registry
	httpServer *http.Server
}

func New(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	registry := heartbeat.NewRegistry()

	countryClient := countryinfo.New(countryinfo.Config{
		BaseURL: cfg.CountryAPIBase,
		Timeout: time.Duration(cfg.CountryTimeoutSec) * time.Second,
	}, logger.With("component", "countryinfo"))
	factClient := groq.New(groq.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}, logger.With("component", "llm-groq"))
	agentService := agent.New(
		countryClient,
		factClient,
		time.Duration(cfg.AggregateTimeoutSec)*time.Second,
		logger.With("component", "agent"),
	)

	pusher := delivery.NewWebhookPusher(time.Duration(cfg.DeliveryTimeoutSec) * time.Second)
	engine := delivery.NewEngine(
		agentService,
		pusher,
		cfg.DeliveryWorkers,
		cfg.DeliveryQueueSize,
		time.Duration(cfg.DeliveryTimeoutSec)*time.Second,
		logger.With("component", "delivery"),
	)
	engine.SetHeartbeatReporter(registry)

	store := subs.NewStore(cfg.SubsPath)
	notifier := chat.New(chat.Config{
		APIBase:  cfg.ChatAPIBase,
		SendPath: cfg.ChatSendPath,
		BotToken: cfg.ChatBotToken,
	}, logger.With("component", "chat"))
	schedulerService, err := subs.NewService(
		store,
		agentService,
		notifier,
		time.Duration(cfg.SchedulerPollSec)*time.Second,
		cfg.SchedulerTimezone,
		logger.With("component", "scheduler"),
	)
	if err != nil {
		return nil, err
	}
	schedulerService.SetHeartbeatReporter(registry)

	var watchService *subs.Watcher
	if cfg.WatchSubsFile {
		watchService, err = subs.NewWatcher(cfg.SubsPath, logger.With("component", "subs-watcher"), schedulerService.Reload)
		if err != nil {
			return nil, err
		}
	}

	handler := httpapi.NewRouter(httpapi.Dependencies{
		Config:    cfg,
		Agent:     agentService,
		Delivery:  engine,
		Subs:      schedulerService,
		Country:   countryClient,
		Heartbeat: registry,
		Logger:    logger.With("component", "api"),
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		agent:      agentService,
		engine:     engine,
		scheduler:  schedulerService,
		watcher:    watchService,
		heartbeat:  registry,
		httpServer: httpServer,
	}, nil
}
