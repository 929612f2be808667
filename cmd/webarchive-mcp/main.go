// Command webarchive-mcp serves Wayback Machine tools over the Model
// Context Protocol on stdio, with an HTTP sidecar for health, limiter
// status, and metrics.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/waymcp/waymcp/config"
	"github.com/waymcp/waymcp/logging"
	"github.com/waymcp/waymcp/mcp"
	"github.com/waymcp/waymcp/metrics"
	"github.com/waymcp/waymcp/notify"
	"github.com/waymcp/waymcp/ratelimit"
	"github.com/waymcp/waymcp/server"
	"github.com/waymcp/waymcp/shutdown"
	"github.com/waymcp/waymcp/tools"
	"github.com/waymcp/waymcp/wayback"
)

const version = "1.0.0"

// Shutdown phases: stop routing first, then the protocol loop, then the
// limiter so queued callers get a clean close error.
const (
	phaseSidecar  = 10
	phaseProtocol = 20
	phaseLimiter  = 30
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "webarchive-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, cfgPath, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New()
	logger.SetLevel(logging.ParseLevel(cfg.Server.LogLevel))
	if cfgPath != "" {
		logger.Info("config loaded", map[string]interface{}{"path": cfgPath})
	}

	limiter := ratelimit.New(ratelimit.LoadConfig(cfg.Server.RateLimitsFile))

	mtr := metrics.New()
	mtr.RegisterQueueDepth(func() float64 {
		return float64(limiter.Status().QueueDepth)
	})

	clientOpts := []wayback.ClientOption{wayback.WithLogger(logger)}
	if proxyURL := wayback.BuildProxyURL(cfg.Proxy.Username, cfg.Proxy.Password); proxyURL != "" {
		logger.Info("routing archive requests through proxy")
		clientOpts = append(clientOpts, wayback.WithProxy(proxyURL))
	}
	client := wayback.NewClient(clientOpts...)

	notifier := notify.New(cfg.Slack.WebhookURL, cfg.Server.Name, notify.WithLogger(logger))

	registry := tools.NewRegistry()
	tools.RegisterWebArchive(registry, client,
		tools.RateLimited(limiter, logger, mtr),
		tools.Instrumented(logger, mtr),
		tools.NotifyOnError(notifier),
	)

	var sidecar *server.HTTP
	if cfg.Server.HTTPAddr != "" {
		sidecar = server.New(cfg.Server.HTTPAddr, limiter, mtr, logger)
		go func() {
			if err := sidecar.Start(); err != nil {
				logger.Error("sidecar failed", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coord := shutdown.New(0, func(p shutdown.Progress) {
		fields := map[string]interface{}{
			"component": p.Name,
			"duration":  p.Duration.String(),
		}
		if p.Err != nil {
			fields["error"] = p.Err.Error()
			logger.Warn("shutdown step failed", fields)
		} else {
			logger.Info("shutdown step complete", fields)
		}
	})
	if sidecar != nil {
		coord.Register("sidecar", phaseSidecar, shutdown.HandlerFunc(sidecar.Shutdown))
	}
	coord.RegisterFunc("protocol", phaseProtocol, func(context.Context) error {
		cancel()
		return nil
	})
	coord.RegisterFunc("limiter", phaseLimiter, func(context.Context) error {
		limiter.Close()
		return nil
	})
	coord.HandleSignals()

	mcpServer := mcp.NewServer(cfg.Server.Name, version, cfg.Server.Instructions, registry, logger)
	serveErr := mcpServer.Serve(ctx, os.Stdin, os.Stdout)

	if err := coord.Shutdown(); err != nil {
		logger.Warn("shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}

	if serveErr != nil && serveErr != context.Canceled {
		return serveErr
	}
	return nil
}
