package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/firstcall/internal/config"
	"github.com/rpggio/firstcall/internal/mcp"
	"github.com/rpggio/firstcall/internal/transport"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the First Call server over HTTP or stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			switch mode {
			case "":
			case "http", "stdio":
				cfg.Transport.Mode = mode
			default:
				return fmt.Errorf("invalid --transport %q (want http or stdio)", mode)
			}

			// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
			logWriter := io.Writer(os.Stdout)
			if cfg.Transport.Mode == "stdio" {
				logWriter = os.Stderr
			}
			logger, closeLog := newLogger(cfg, logWriter)
			defer closeLog()

			a, err := newApp(cfg, logger)
			if err != nil {
				logger.Error("failed to start", "error", err)
				return err
			}
			defer a.Close()

			return serve(cmd.Context(), cfg, a, logger)
		},
	}
	cmd.Flags().StringVar(&mode, "transport", "", "Transport mode: http or stdio (env: FIRSTCALL_TRANSPORT)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, a *app, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := a.dispatcher.Run(ctx, cfg.Outbox.Interval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox dispatcher stopped", "error", err)
		}
	}()

	handler := mcp.NewHandler(a.services())
	mcpServer := mcp.NewServerWithHandler(handler, mcp.Config{
		Services:      a.services(),
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	if cfg.Transport.Mode == "stdio" {
		return runStdioMode(ctx, logger, mcpServer)
	}
	return runHTTPMode(ctx, logger, a, handler, mcpServer, cfg.Server.Host, cfg.Server.Port)
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport")

	// Run blocks until stdin closes or ctx is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, a *app, handler *mcp.Handler, mcpServer *sdkmcp.Server, host string, port int) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		nil,
	)

	router := transport.NewServer(handler, transport.Options{
		MCP:     mcpHandler,
		Metrics: a.metrics.Handler(),
		Logger:  logger,
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}

// newLogger builds the text logger. FIRSTCALL_LOG_PATH redirects output from
// logWriter to a size-capped file.
func newLogger(cfg config.Config, logWriter io.Writer) (*slog.Logger, func()) {
	closeLog := func() {}
	if logPath := os.Getenv("FIRSTCALL_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			logWriter = fileWriter
			closeLog = func() { file.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, closeLog
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
