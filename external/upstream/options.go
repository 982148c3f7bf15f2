package upstream

import (
	"strings"
	"time"

	"github.com/riskibarqy/contest-feed/internal/platform/logging"
)

const (
	DefaultAPITimeout    = 10 * time.Second
	DefaultScrapeTimeout = 15 * time.Second
	DefaultLookback      = 30 * 24 * time.Hour
)

// SourceOptions is shared by every platform adapter.
type SourceOptions struct {
	Client *Client
	// BaseURL overrides the platform host, mostly for tests.
	BaseURL       string
	APITimeout    time.Duration
	ScrapeTimeout time.Duration
	// Lookback bounds how long finished contests are kept.
	Lookback time.Duration
	Now      func() time.Time
	Logger   *logging.Logger
}

func (o SourceOptions) WithDefaults(source, baseURL string) SourceOptions {
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	if o.Client == nil {
		o.Client = NewClient(ClientConfig{Source: source, Logger: o.Logger})
	}
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.APITimeout <= 0 {
		o.APITimeout = DefaultAPITimeout
	}
	if o.ScrapeTimeout <= 0 {
		o.ScrapeTimeout = DefaultScrapeTimeout
	}
	if o.Lookback <= 0 {
		o.Lookback = DefaultLookback
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Chain builds a fallback chain bound to these options.
func (o SourceOptions) Chain(source string, strategies ...Strategy) Chain {
	return Chain{
		Source:     source,
		Strategies: strategies,
		Keep:       EndedAfter(o.Now, o.Lookback),
		Logger:     o.Logger,
		Now:        o.Now,
	}
}
