package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"campus-chat/internal/app"
	"campus-chat/internal/config"
	"campus-chat/internal/telemetry"
)

var (
	serveConfigPath         string
	serveEnvFile            string
	serveListenAddrOverride string
)

var rootCmd = &cobra.Command{
	Use:   "campus-chat-local",
	Short: "Run the campus guide chat proxy outside Lambda",
}

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /api/chat over HTTP",
		PreRun: func(cmd *cobra.Command, _ []string) {
			if err := godotenv.Load(serveEnvFile); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "No %s file loaded, using environment variables\n", serveEnvFile)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(serveConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("listen-addr") {
				cfg.ListenAddr = serveListenAddrOverride
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Optional TOML config path")
	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	serveCmd.Flags().StringVar(&serveListenAddrOverride, "listen-addr", "", "Override listen address (e.g. 127.0.0.1:8080)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("create tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	apiKey := app.ResolveAPIKey(ctx, cfg, app.SSMGetter)
	h, err := app.NewHandler(cfg, apiKey, tel.TracerProvider())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("chat proxy listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("chat server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newRouter(chat http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	// Every method reaches the handler so it can answer 405 with its own body.
	r.Handle("/api/chat", chat)
	return r
}
