package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DataDir     string
	SubsPath    string

	CountryAPIBase    string
	CountryTimeoutSec int

	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeoutSec int

	AggregateTimeoutSec int
	DeliveryTimeoutSec  int
	DeliveryWorkers     int
	DeliveryQueueSize   int

	ChatAPIBase  string
	ChatSendPath string
	ChatBotToken string

	SchedulerPollSec  int
	SchedulerTimezone string
	WatchSubsFile     bool
}

func FromEnv() Config {
	dataDir := stringOrDefault("COUNTRY_AGENT_DATA_DIR", "./data")

	return Config{
		Environment: stringOrDefault("COUNTRY_AGENT_ENV", "development"),
		HTTPAddr:    stringOrDefault("COUNTRY_AGENT_HTTP_ADDR", ":8080"),
		DataDir:     dataDir,
		SubsPath:    stringOrDefault("COUNTRY_AGENT_SUBSCRIPTIONS_PATH", filepath.Join(dataDir, "subscriptions.json")),

		CountryAPIBase:    stringOrDefault("COUNTRY_AGENT_COUNTRY_API_BASE", "https://restcountries.com/v3.1"),
		CountryTimeoutSec: intOrDefault("COUNTRY_AGENT_COUNTRY_TIMEOUT_SECONDS", 15),

		LLMBaseURL:    stringOrDefault("COUNTRY_AGENT_LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:     strings.TrimSpace(os.Getenv("COUNTRY_AGENT_LLM_API_KEY")),
		LLMModel:      stringOrDefault("COUNTRY_AGENT_LLM_MODEL", "llama-3.1-8b-instant"),
		LLMTimeoutSec: intOrDefault("COUNTRY_AGENT_LLM_TIMEOUT_SECONDS", 15),

		AggregateTimeoutSec: intOrDefault("COUNTRY_AGENT_AGGREGATE_TIMEOUT_SECONDS", 20),
		DeliveryTimeoutSec:  intOrDefault("COUNTRY_AGENT_DELIVERY_TIMEOUT_SECONDS", 15),
		DeliveryWorkers:     intOrDefault("COUNTRY_AGENT_DELIVERY_WORKERS", 4),
		DeliveryQueueSize:   intOrDefault("COUNTRY_AGENT_DELIVERY_QUEUE", 64),

		ChatAPIBase:  stringOrDefault("COUNTRY_AGENT_CHAT_API_BASE", "https://api.telex.im"),
		ChatSendPath: stringOrDefault("COUNTRY_AGENT_CHAT_SEND_PATH", "/v1/messages"),
		ChatBotToken: os.Getenv("COUNTRY_AGENT_CHAT_BOT_TOKEN"),

		SchedulerPollSec:  intOrDefault("COUNTRY_AGENT_SCHEDULER_POLL_SECONDS", 30),
		SchedulerTimezone: stringOrDefault("COUNTRY_AGENT_SCHEDULER_TIMEZONE", "UTC"),
		WatchSubsFile:     boolOrDefault("COUNTRY_AGENT_WATCH_SUBSCRIPTIONS", true),
	}
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
