package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"campus-chat/internal/app"
	"campus-chat/internal/config"
	"campus-chat/internal/telemetry"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	// ---- Tracing ----
	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		slog.Error("failed to create tracer provider", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	apiKey := app.ResolveAPIKey(ctx, cfg, app.SSMGetter)
	h, err := app.NewHandler(cfg, apiKey, tel.TracerProvider())
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.StartWithOptions(h.Handle, lambda.WithEnableSIGTERM(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to flush traces", "err", err)
		}
	}))
}
