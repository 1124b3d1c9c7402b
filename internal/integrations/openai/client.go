package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"campus-chat/internal/domain"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 30 * time.Second

	temperature     = 0.6
	maxErrorBody    = 4 << 10
	maxResponseBody = 1 << 20
	tracerName      = "campus-chat/openai"
)

var (
	// ErrMissingAPIKey is returned before any network call when no credential
	// was configured.
	ErrMissingAPIKey = errors.New("openai: API key is not configured")
	// ErrEmptyReply means the provider answered 2xx without usable content.
	ErrEmptyReply = errors.New("openai: empty reply")
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	// Body is the start of the response body, for logging.
	Body string
	// Message is the best human-readable description found in the full body.
	Message string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// TransportError means no HTTP response was obtained: DNS, connect, TLS,
// timeout or cancellation of the caller's context.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("openai: request failed: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client is a focused OpenAI-compatible client for chat completions.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	tracer     trace.Tracer
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each Chat call. Zero or negative disables the bound and
// leaves only the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewClient creates a Client. An empty apiKey is accepted so the service can
// start and report the missing credential per request.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("openai: parse base URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("openai: base URL %q must be http or https", c.baseURL)
		}
	}
	return c, nil
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Chat sends exactly one chat completion request and returns the trimmed text
// of the first choice. It never retries.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	if !c.HasCredential() {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	ctx, span := c.tracer.Start(ctx, "openai.chat_completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("llm.message_count", len(messages)),
		),
	)
	defer span.End()

	reply, err := c.chat(ctx, span, model, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorKind(err))
		return "", err
	}
	return reply, nil
}

func (c *Client) chat(ctx context.Context, span trace.Span, model string, messages []domain.ChatMessage) (string, error) {
	body, err := json.Marshal(goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toWireMessages(messages),
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := chatURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("openai: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return "", &TransportError{URL: endpoint, Err: doErr}
	}
	defer func() { _ = res.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
		return "", &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       truncate(buf, maxErrorBody),
			Message:    providerMessage(res.StatusCode, buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return "", &TransportError{URL: endpoint, Err: fmt.Errorf("read response body: %w", err)}
	}
	return extractReply(buf)
}

func toWireMessages(messages []domain.ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    wireRole(m.Role),
			Content: m.Content,
		})
	}
	return out
}

func wireRole(role string) string {
	switch role {
	case domain.RoleSystem:
		return goopenai.ChatMessageRoleSystem
	case domain.RoleAssistant:
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}

// extractReply reads choices[0].message.content without requiring the rest
// of the response to match any schema.
func extractReply(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: response is not valid JSON", ErrEmptyReply)
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if content.Type != gjson.String {
		return "", fmt.Errorf("%w: first choice has no text content", ErrEmptyReply)
	}
	reply := strings.TrimSpace(content.Str)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// providerMessage picks error.message from a JSON error body, falls back to
// the raw body when it is not JSON, and to a generic text when nothing usable
// was sent.
func providerMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("OpenAI API error (%d).", status)
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return fallback
	}
	if !gjson.Valid(raw) {
		return raw
	}
	msg := gjson.Get(raw, "error.message")
	if msg.Type == gjson.String && strings.TrimSpace(msg.Str) != "" {
		return msg.Str
	}
	return fallback
}

// truncate bounds the body kept on HTTPStatusError, which ends up in logs.
func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}

func errorKind(err error) string {
	var statusErr *HTTPStatusError
	var transportErr *TransportError
	switch {
	case errors.As(err, &statusErr):
		return "provider_error"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.Is(err, ErrEmptyReply):
		return "empty_reply"
	default:
		return "error"
	}
}
