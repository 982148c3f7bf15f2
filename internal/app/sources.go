package app

import (
	"net/http"

	"github.com/riskibarqy/contest-feed/external/atcoder"
	"github.com/riskibarqy/contest-feed/external/clist"
	"github.com/riskibarqy/contest-feed/external/codechef"
	"github.com/riskibarqy/contest-feed/external/codeforces"
	"github.com/riskibarqy/contest-feed/external/hackerearth"
	"github.com/riskibarqy/contest-feed/external/leetcode"
	"github.com/riskibarqy/contest-feed/external/topcoder"
	"github.com/riskibarqy/contest-feed/external/upstream"
	"github.com/riskibarqy/contest-feed/internal/config"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"github.com/riskibarqy/contest-feed/internal/platform/resilience"
	"github.com/riskibarqy/contest-feed/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// sourceFactory builds adapters that share one transport but own their
// client, limiter and breaker.
type sourceFactory struct {
	cfg       config.Config
	logger    *logging.Logger
	transport http.RoundTripper
	onCircuit resilience.StateChangeFunc
}

func newSourceFactory(cfg config.Config, logger *logging.Logger, onCircuit resilience.StateChangeFunc) sourceFactory {
	return sourceFactory{
		cfg:       cfg,
		logger:    logger,
		transport: otelhttp.NewTransport(http.DefaultTransport),
		onCircuit: onCircuit,
	}
}

func (f sourceFactory) options(name string, secrets ...string) upstream.SourceOptions {
	logger := f.logger.Named(name)
	breakerCfg := resilience.CircuitBreakerConfig{
		Enabled:          f.cfg.CircuitEnabled,
		FailureThreshold: f.cfg.CircuitFailureCount,
		OpenTimeout:      f.cfg.CircuitOpenTimeout,
		HalfOpenMaxReq:   f.cfg.CircuitHalfOpenMaxReq,
	}

	client := upstream.NewClient(upstream.ClientConfig{
		Source:     name,
		HTTPClient: &http.Client{Transport: f.transport, Timeout: f.cfg.SourceTimeout},
		MaxRetries: f.cfg.UpstreamMaxRetries,
		RateLimit:  f.cfg.UpstreamRateLimit,
		RateBurst:  f.cfg.UpstreamRateBurst,
		Logger:     logger,
		Breaker:    breakerCfg.Build(name, f.onCircuit),
		Secrets:    secrets,
	})

	return upstream.SourceOptions{
		Client:        client,
		APITimeout:    f.cfg.APITimeout,
		ScrapeTimeout: f.cfg.ScrapeTimeout,
		Lookback:      f.cfg.RecentLookback,
		Logger:        logger,
	}
}

// build returns every adapter in merge order. CLIST is last so first-seen
// de-duplication prefers the platforms' own records.
func (f sourceFactory) build() []usecase.ContestSource {
	return []usecase.ContestSource{
		codeforces.NewSource(f.options(codeforces.Name)),
		atcoder.NewSource(atcoder.Config{SourceOptions: f.options(atcoder.Name)}),
		leetcode.NewSource(f.options(leetcode.Name)),
		codechef.NewSource(f.options(codechef.Name)),
		topcoder.NewSource(topcoder.Config{SourceOptions: f.options(topcoder.Name)}),
		hackerearth.NewSource(f.options(hackerearth.Name)),
		clist.NewSource(clist.Config{
			SourceOptions: f.options(clist.Name, f.cfg.ClistAPIKey),
			Username:      f.cfg.ClistUsername,
			APIKey:        f.cfg.ClistAPIKey,
		}),
	}
}

// defaultSources is the configured aggregate set, or every registered source
// except CLIST when it has no credentials.
func defaultSources(cfg config.Config, sources []usecase.ContestSource) []string {
	if len(cfg.ContestSources) > 0 {
		return cfg.ContestSources
	}

	clistConfigured := cfg.ClistUsername != "" && cfg.ClistAPIKey != ""
	out := make([]string, 0, len(sources))
	for _, source := range sources {
		if source.Name() == clist.Name && !clistConfigured {
			continue
		}
		out = append(out, source.Name())
	}
	return out
}
