package countryinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const detailFields = "name,capital,region,subregion,population,languages,currencies,timezones,cca2,cca3"

// Details is the structured record the details provider returns. Every
// field is independently optional; absence of the whole record is a valid
// state the formatter handles.
type Details struct {
	Name       string
	Capital    []string
	Region     string
	Subregion  string
	Population int64
	Languages  []string
	Currencies []string
	Timezones  []string
	CCA2       string
	CCA3       string
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://restcountries.com/v3.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Lookup fetches structured details for a country by name. The upstream
// returns an array of candidate matches; the first one wins.
func (c *Client) Lookup(ctx context.Context, name string) (*Details, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("country name is required")
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/name/" + url.PathEscape(name) + "?fields=" + detailFields
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("country lookup failed with status %d", res.StatusCode)
	}

	var records []countryRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode country response: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no country matched %q", name)
	}
	return records[0].toDetails(), nil
}

type countryRecord struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Capital    []string                  `json:"capital"`
	Region     string                    `json:"region"`
	Subregion  string                    `json:"subregion"`
	Population int64                     `json:"population"`
	Languages  map[string]string         `json:"languages"`
	Currencies map[string]currencyRecord `json:"currencies"`
	Timezones  []string                  `json:"timezones"`
	CCA2       string                    `json:"cca2"`
	CCA3       string                    `json:"cca3"`
}

type currencyRecord struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

func (r countryRecord) toDetails() *Details {
	name := strings.TrimSpace(r.Name.Common)
	if name == "" {
		name = strings.TrimSpace(r.Name.Official)
	}

	languages := make([]string, 0, len(r.Languages))
	for _, language := range r.Languages {
		if strings.TrimSpace(language) != "" {
			languages = append(languages, language)
		}
	}
	sort.Strings(languages)

	currencies := make([]string, 0, len(r.Currencies))
	for _, currency := range r.Currencies {
		if strings.TrimSpace(currency.Name) == "" {
			continue
		}
		if strings.TrimSpace(currency.Symbol) != "" {
			currencies = append(currencies, fmt.Sprintf("%s (%s)", currency.Name, currency.Symbol))
		} else {
			currencies = append(currencies, currency.Name)
		}
	}
	sort.Strings(currencies)

	return &Details{
		Name:       name,
		Capital:    r.Capital,
		Region:     r.Region,
		Subregion:  r.Subregion,
		Population: r.Population,
		Languages:  languages,
		Currencies: currencies,
		Timezones:  r.Timezones,
		CCA2:       strings.TrimSpace(r.CCA2),
		CCA3:       strings.TrimSpace(r.CCA3),
	}
}
