package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/atlasbot/country-agent/internal/countryinfo"
	"github.com/atlasbot/country-agent/internal/extract"
	"github.com/atlasbot/country-agent/internal/llm"
	"golang.org/x/sync/errgroup"
)

// Fixed user-facing strings. The timeout and fact fallbacks are part of
// the response contract, not placeholders.
const (
	MissingCountryMessage = "Please specify a country (e.g., 'tell me about Kenya')."
	TimeoutMessage        = "Sorry, that took too long. Please try again."
	FactUnavailable       = "Sorry, I couldn't find a cultural fact right now."
)

// DetailsProvider is the structured country-data upstream.
type DetailsProvider interface {
	Lookup(ctx context.Context, name string) (*countryinfo.Details, error)
}

// Service runs the extraction, aggregation and formatting pipeline. It
// never returns an error to its callers: provider failures degrade the
// reply, they do not fail the request.
type Service struct {
	details DetailsProvider
	facts   llm.FactProvider
	budget  time.Duration
	logger  *slog.Logger
}

func New(details DetailsProvider, facts llm.FactProvider, budget time.Duration, logger *slog.Logger) *Service {
	if budget <= 0 {
		budget = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		details: details,
		facts:   facts,
		budget:  budget,
		logger:  logger,
	}
}

// Respond answers free-form chat text. An earlier deadline on ctx tightens
// the aggregation budget, which the delivery dispatcher relies on.
func (s *Service) Respond(ctx context.Context, text string) string {
	country := extract.Country(text)
	if country == "" {
		return MissingCountryMessage
	}
	return s.Summarize(ctx, country)
}

// Summarize fans out to both providers concurrently and joins the
// results. Each provider is attempted exactly once; either may fail
// independently without failing the request.
func (s *Service) Summarize(ctx context.Context, country string) string {
	budgetCtx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	var (
		details *countryinfo.Details
		fact    string
	)

	group, groupCtx := errgroup.WithContext(budgetCtx)
	group.Go(func() error {
		result, err := s.details.Lookup(groupCtx, country)
		if err != nil {
			s.logger.Warn("country details lookup failed", "country", country, "error", err)
			return nil
		}
		details = result
		return nil
	})
	group.Go(func() error {
		result, err := s.facts.CulturalFact(groupCtx, country)
		if err != nil {
			s.logger.Warn("cultural fact fetch failed", "country", country, "error", err)
			fact = FactUnavailable
			return nil
		}
		fact = result
		return nil
	})
	_ = group.Wait()

	if budgetCtx.Err() == context.DeadlineExceeded {
		return TimeoutMessage
	}
	return Format(details, fact)
}
