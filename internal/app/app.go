// Package app wires configuration into the chat handler. Both the Lambda
// entrypoint and the local server build their handler here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.opentelemetry.io/otel/trace"

	"campus-chat/handler"
	"campus-chat/internal/config"
	"campus-chat/internal/integrations/openai"
	"campus-chat/internal/integrations/paramstore"
	"campus-chat/internal/usecase"
)

// TokenGetterFactory builds the parameter store reader used when the API key
// is configured by parameter name.
type TokenGetterFactory func(ctx context.Context) (paramstore.Getter, error)

// SSMGetter loads the default AWS configuration and returns an SSM reader.
func SSMGetter(ctx context.Context) (paramstore.Getter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	return paramstore.New(awsssm.NewFromConfig(awsCfg))
}

// ResolveAPIKey returns the directly configured key, or reads it from the
// parameter store. Failures are logged and yield an empty key so the process
// still starts and reports the configuration error per request.
func ResolveAPIKey(ctx context.Context, cfg config.Config, getter TokenGetterFactory) string {
	if !cfg.HasAPIKeySource() {
		slog.Warn("no OpenAI API key configured; chat requests will fail with a configuration error")
		return ""
	}
	if key := strings.TrimSpace(cfg.OpenAIAPIKey); key != "" {
		return key
	}
	name := strings.TrimSpace(cfg.OpenAIAPIKeyParam)
	if getter == nil {
		getter = SSMGetter
	}
	ps, err := getter(ctx)
	if err != nil {
		slog.Error("failed to create parameter store client", "err", err)
		return ""
	}
	key, err := paramstore.ResolveToken(ctx, ps, name)
	if err != nil {
		slog.Error("failed to resolve OpenAI API key", "param", name, "err", err)
		return ""
	}
	return key
}

// NewHandler builds the OpenAI client, the chat service and the handler.
func NewHandler(cfg config.Config, apiKey string, tp trace.TracerProvider) (*handler.Handler, error) {
	client, err := openai.NewClient(apiKey,
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithTimeout(cfg.OpenAITimeout),
		openai.WithTracerProvider(tp),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create OpenAI client: %w", err)
	}
	svc, err := usecase.NewChatService(client, cfg.OpenAIModel, cfg.MaxMessages)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}
	h, err := handler.NewHandler(svc)
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return h, nil
}
