package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/contest-feed/internal/config"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
)

// Telemetry owns the optional process-wide tracing and profiling exporters.
type Telemetry struct {
	logger        *logging.Logger
	traceShutdown func(context.Context) error
	profiler      *pyroscope.Profiler
	pprofServer   *http.Server
}

func Start(cfg config.Config, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Telemetry{logger: logger}

	t.startTracing(cfg)
	if err := t.startProfiling(cfg); err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	t.startPprof(cfg)

	return t, nil
}

func (t *Telemetry) startTracing(cfg config.Config) {
	switch {
	case !cfg.UptraceEnabled:
		t.logger.Info("uptrace disabled", "reason", "UPTRACE_ENABLED=false")
		return
	case strings.TrimSpace(cfg.UptraceDSN) == "":
		t.logger.Info("uptrace disabled", "reason", "UPTRACE_DSN empty")
		return
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
	)
	t.traceShutdown = uptrace.Shutdown
	t.logger.Info("uptrace enabled", "service_name", cfg.ServiceName, "environment", cfg.AppEnv)
}

func (t *Telemetry) startProfiling(cfg config.Config) error {
	if !cfg.PyroscopeEnabled {
		t.logger.Info("pyroscope disabled", "reason", "PYROSCOPE_ENABLED=false")
		return nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.PyroscopeAppName,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Tags: map[string]string{
			"env":     cfg.AppEnv,
			"service": cfg.ServiceName,
			"version": cfg.ServiceVersion,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return err
	}
	t.profiler = profiler
	t.logger.Info("pyroscope enabled", "server_address", cfg.PyroscopeServerAddress, "application", cfg.PyroscopeAppName)
	return nil
}

func (t *Telemetry) startPprof(cfg config.Config) {
	if !cfg.PprofEnabled {
		t.logger.Info("pprof disabled", "reason", "PPROF_ENABLED=false")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	t.pprofServer = &http.Server{
		Addr:              cfg.PprofAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func(srv *http.Server) {
		t.logger.Info("pprof server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("pprof server failed", "error", err)
		}
	}(t.pprofServer)
}

// Shutdown stops everything Start enabled and joins their errors.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.pprofServer != nil {
		if err := t.pprofServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop pprof server: %w", err))
		}
	}
	if t.profiler != nil {
		if err := t.profiler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop pyroscope: %w", err))
		}
	}
	if t.traceShutdown != nil {
		if err := t.traceShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown uptrace: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PprofAddr reports the side server address, empty when disabled.
func (t *Telemetry) PprofAddr() string {
	if t == nil || t.pprofServer == nil {
		return ""
	}
	return t.pprofServer.Addr
}
