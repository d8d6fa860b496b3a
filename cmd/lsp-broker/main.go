// Package main provides the entry point for the lsp-broker process.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/simon-lentz/lspbroker/broker"
	"github.com/simon-lentz/lspbroker/dispatch"
	"github.com/simon-lentz/lspbroker/editor"
	"github.com/simon-lentz/lspbroker/transport"
)

var version = "dev"

// LevelTrace is a custom log level below debug for verbose per-request
// tracing.
const LevelTrace = slog.Level(-8)

// isCleanShutdown reports whether err represents a normal editor
// disconnect (stdin closed, pipe broken) rather than a real failure.
func isCleanShutdown(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, os.ErrClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "broken pipe") || strings.Contains(errStr, "EPIPE")
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lsp-broker: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("lsp-broker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		logLevel   = fs.String("log-level", "info", "log level: error|warn|info|debug|trace")
		logFile    = fs.String("log-file", "", "log file path (empty to log to stderr)")
		serversCfg = fs.String("servers", "", "path to the server launch config (required)")
		showVer    = fs.Bool("version", false, "print version and exit")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lsp-broker -servers <path> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Multi-server LSP broker between a text editor and its language servers.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.SetOutput(os.Stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		fs.Usage()
		return fmt.Errorf("parse flags: %w", err)
	}

	if *showVer {
		fmt.Printf("lsp-broker %s\n", version)
		return nil
	}

	logger, cleanup, err := setupLogger(*logLevel, *logFile)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer cleanup()

	commonlog.Configure(0, nil)

	if *serversCfg == "" {
		fs.Usage()
		return fmt.Errorf("-servers is required")
	}

	logger.Info("starting lsp-broker", slog.String("version", version), slog.String("log_level", *logLevel))

	cfg, err := broker.LoadSessionConfig(*serversCfg)
	if err != nil {
		return fmt.Errorf("load servers config: %w", err)
	}
	reg, procs, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	out := editor.NewChannel(os.Stdout, logger)
	// b is constructed with no transport so it can be handed to
	// NewStdioCaller as the NotificationHandler; its Dispatcher and
	// Notifier are wired in immediately after the servers are spawned.
	b := broker.New(reg, nil, nil, out, logger)

	caller, err := transport.NewStdioCaller(procs, b, logger)
	if err != nil {
		return fmt.Errorf("start servers: %w", err)
	}
	defer caller.Close()
	b.Dispatcher = dispatch.NewDispatcher(logger, caller)
	b.Notifier = caller

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, b, os.Stdin) }()

	logger.Info("serving on stdio")

	select {
	case err := <-errCh:
		if err != nil {
			if isCleanShutdown(err) {
				logger.Debug("editor closed connection")
			} else {
				return fmt.Errorf("serve: %w", err)
			}
		}
		logger.Info("broker shutdown complete")
		return nil
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
		if err := os.Stdin.Close(); err != nil {
			logger.Debug("error closing stdin", slog.String("error", err.Error()))
		}
		select {
		case err := <-errCh:
			if err != nil {
				logger.Debug("serve returned after cancel", slog.String("error", err.Error()))
			}
		case <-time.After(5 * time.Second):
			logger.Warn("shutdown timed out, forcing exit")
		}
		logger.Info("broker shutdown complete")
		return nil
	}
}

type syncParams struct {
	Text    string `json:"text"`
	Version int    `json:"version"`
}

// serve reads newline-delimited requests from r until EOF or ctx is done,
// routing document-sync methods to the broker's store hooks and every
// other method to Handle.
func serve(ctx context.Context, b *broker.Broker, r io.Reader) error {
	sc := editor.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		req, err := sc.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		switch req.Method {
		case "textDocument/didOpen":
			var p syncParams
			if err := json.Unmarshal(req.Params, &p); err == nil {
				b.SyncOpen(req.Meta.Buffile, p.Text, p.Version)
			}
		case "textDocument/didChange":
			var p syncParams
			if err := json.Unmarshal(req.Params, &p); err == nil {
				b.SyncChange(req.Meta.Buffile, p.Text, p.Version)
			}
		case "textDocument/didClose":
			b.SyncClose(req.Meta.Buffile)
		default:
			if err := b.Handle(ctx, req); err != nil {
				b.Logger.Error("handle request", slog.String("method", req.Method), slog.Any("error", err))
			}
		}
	}
}

func setupLogger(level, logFile string) (*slog.Logger, func(), error) {
	var slogLevel slog.Level
	switch level {
	case "error":
		slogLevel = slog.LevelError
	case "warn":
		slogLevel = slog.LevelWarn
	case "info":
		slogLevel = slog.LevelInfo
	case "debug":
		slogLevel = slog.LevelDebug
	case "trace":
		slogLevel = LevelTrace
	default:
		return nil, nil, fmt.Errorf("invalid log level: %q", level)
	}

	var w io.Writer
	var cleanup func()
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		cleanup = func() { _ = f.Close() }
	} else {
		w = os.Stderr
		cleanup = func() {}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel, AddSource: true})
	return slog.New(handler), cleanup, nil
}
