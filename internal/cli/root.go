package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlasbot/country-agent/internal/agent"
	"github.com/atlasbot/country-agent/internal/app"
	"github.com/atlasbot/country-agent/internal/config"
	"github.com/atlasbot/country-agent/internal/countryinfo"
	"github.com/atlasbot/country-agent/internal/llm/groq"
	"github.com/atlasbot/country-agent/internal/subs"
)

const version = "0.1.0"

func NewRoot(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "country-agent",
		Short: "Country Agent answers country questions with facts and figures",
	}

	root.AddCommand(newServeCommand(logger))
	root.AddCommand(newAskCommand(logger))
	root.AddCommand(newSubscriptionsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newServeCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server, delivery workers and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			runtime, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runtime.Run(ctx)
		},
	}
}

// newAskCommand runs one request through the full pipeline from the
// terminal, which is the quickest way to sanity-check credentials and
// upstream reachability.
func newAskCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [text]",
		Short: "Run a single question through the pipeline and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
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
			service := agent.New(
				countryClient,
				factClient,
				time.Duration(cfg.AggregateTimeoutSec)*time.Second,
				logger.With("component", "agent"),
			)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			cmd.Println(service.Respond(ctx, strings.Join(args, " ")))
			return nil
		},
	}
}

func newSubscriptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions",
		Short: "List daily-fact subscriptions from the store file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			store := subs.NewStore(cfg.SubsPath)
			subscriptions, err := store.List()
			if err != nil {
				return err
			}
			if len(subscriptions) == 0 {
				cmd.Println("no subscriptions")
				return nil
			}
			for _, sub := range subscriptions {
				target := sub.Country
				if strings.TrimSpace(target) == "" {
					target = "a random country"
				}
				cmd.Println(fmt.Sprintf("%s\t%s\t%s", sub.ChannelID, sub.Time, target))
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
