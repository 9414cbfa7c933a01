package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logspool/src/internal/config"
	"logspool/src/internal/middleware"
	"logspool/src/internal/spool"
	"logspool/src/internal/syslog"
	"logspool/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

var logger *log.Logger

func main() {
	if err := parseFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if *configFile != "" {
		os.Setenv("LOGSPOOL_CONFIG_FILE", *configFile)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := initializeLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer shutdownLogger()

	logger.Info("msg", "LogSpool starting",
		"version", version.String(),
		"config_file", *configFile,
		"collector", fmt.Sprintf("%s:%d", cfg.Syslog.IP, cfg.Syslog.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	client, err := syslog.NewClient(cfg.Syslog.Options(), logger)
	if err != nil {
		logger.Error("msg", "Failed to create syslog client", "error", err)
		os.Exit(1)
	}

	sink := spool.New(client, logger)
	if err := sink.Start(ctx); err != nil {
		logger.Error("msg", "Failed to start spool", "error", err)
		os.Exit(1)
	}

	var server *fasthttp.Server
	if cfg.Server.Enabled {
		server = &fasthttp.Server{
			Handler:         middleware.AccessLog(sink, requestHandler),
			CloseOnShutdown: true,
		}
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			logger.Info("msg", "HTTP server starting", "port", cfg.Server.Port)
			if err := server.ListenAndServe(addr); err != nil {
				logger.Error("msg", "HTTP server failed", "error", err)
			}
		}()
	}

	<-sigChan
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		if server != nil {
			if err := server.Shutdown(); err != nil {
				logger.Error("msg", "Error shutting down HTTP server", "error", err)
			}
		}
		// No flush on shutdown: undelivered entries are abandoned,
		// delivery is best-effort.
		sink.Stop()
		client.Close()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		os.Exit(1)
	}
}

// requestHandler is the user-side handler whose execution is timed as the
// "user" phase of the access line.
func requestHandler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	default:
		ctx.SetContentType("text/plain; charset=utf-8")
		fmt.Fprintf(ctx, "logspool %s\n", version.Short())
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
		}
	}
}
