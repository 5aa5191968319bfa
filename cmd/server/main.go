package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/andy6609/room-chat-server/internal/chat"
)

func main() {
	metricsAddr := flag.String("metrics-addr", getEnv("CHAT_METRICS_ADDR", ":9090"), "metrics listen address (empty disables)")
	logLevel := flag.String("log-level", getEnv("CHAT_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	mailboxWait := flag.Duration("mailbox-wait", getEnvDuration("CHAT_MAILBOX_WAIT", chat.DefaultMailboxWait), "longest single wait of a receiver's delivery loop")
	writeTimeout := flag.Duration("write-timeout", getEnvDuration("CHAT_WRITE_TIMEOUT", 10*time.Second), "per-write deadline for client sockets (0 disables)")
	shutdownTimeout := flag.Duration("shutdown-timeout", getEnvDuration("CHAT_SHUTDOWN_TIMEOUT", 10*time.Second), "how long to wait for sessions on shutdown")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <port>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil || port < 0 || port > 65535 {
		fmt.Fprintf(os.Stderr, "invalid port %q\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))

	srv := chat.NewServer(chat.Config{
		Addr:         net.JoinHostPort("", strconv.Itoa(port)),
		MailboxWait:  *mailboxWait,
		WriteTimeout: *writeTimeout,
		Logger:       logger,
	})
	if err := srv.Listen(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not listen on port %d: %v\n", port, err)
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	var metricsSrv *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              *metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := srv.Serve(gctx)
		if errors.Is(err, chat.ErrServerClosed) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info("metrics listening", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		*shutdownTimeout,
		map[string]gfshutdown.Operation{
			"chat-server": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		},
	)

	errCh := make(chan error, 1)
	go func() { errCh <- g.Wait() }()

	os.Exit(awaitExit(logger, wait, errCh, stop, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}))
}

// awaitExit blocks until the process should exit and returns its status.
// wait delivers the signal-driven shutdown result and errCh the result of
// the serving goroutines. A nil from errCh is the listener closing under
// Shutdown, so the status still comes from wait; a non-nil error runs
// abort and yields 1.
func awaitExit(logger *slog.Logger, wait <-chan int, errCh <-chan error, stop, abort func()) int {
	select {
	case code := <-wait:
		stop()
		if err := <-errCh; err != nil {
			logger.Error("stopped with error", "error", err)
		}
		logger.Info("exited", "code", code)
		return code
	case err := <-errCh:
		if err == nil {
			code := <-wait
			stop()
			logger.Info("exited", "code", code)
			return code
		}
		logger.Error("server stopped", "error", err)
		stop()
		abort()
		return 1
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		fmt.Fprintf(os.Stderr, "Warning: invalid duration for %s: %s, using default: %s\n", key, value, defaultValue)
	}
	return defaultValue
}
