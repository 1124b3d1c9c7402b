package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"campus-chat/internal/config"
	"campus-chat/internal/integrations/paramstore"
)

type fakeGetter struct {
	val   string
	err   error
	calls int
	name  string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.calls++
	f.name = name
	return f.val, f.err
}

func factoryFor(g paramstore.Getter, err error) TokenGetterFactory {
	return func(context.Context) (paramstore.Getter, error) {
		return g, err
	}
}

func TestResolveAPIKey_DirectKeyWins(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-ssm"}`}
	cfg := config.Default()
	cfg.OpenAIAPIKey = " sk-direct "
	cfg.OpenAIAPIKeyParam = "/campus-chat/openai-api-key"

	require.Equal(t, "sk-direct", ResolveAPIKey(context.Background(), cfg, factoryFor(g, nil)))
	require.Zero(t, g.calls)
}

func TestResolveAPIKey_FromParameterStore(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-ssm"}`}
	cfg := config.Default()
	cfg.OpenAIAPIKeyParam = "/campus-chat/openai-api-key"

	require.Equal(t, "sk-ssm", ResolveAPIKey(context.Background(), cfg, factoryFor(g, nil)))
	require.Equal(t, 1, g.calls)
	require.Equal(t, "/campus-chat/openai-api-key", g.name)
}

func TestResolveAPIKey_NoSourceSkipsParameterStore(t *testing.T) {
	g := &fakeGetter{val: "sk-unused"}
	cfg := config.Default()
	cfg.OpenAIAPIKey = "   "

	require.Empty(t, ResolveAPIKey(context.Background(), cfg, factoryFor(g, nil)))
	require.Zero(t, g.calls)
}

func TestResolveAPIKey_FailuresLeaveKeyEmpty(t *testing.T) {
	cfg := config.Default()

	cfg.OpenAIAPIKeyParam = "/campus-chat/openai-api-key"
	require.Empty(t, ResolveAPIKey(context.Background(), cfg, factoryFor(nil, errors.New("no credentials"))))
	require.Empty(t, ResolveAPIKey(context.Background(), cfg, factoryFor(&fakeGetter{err: errors.New("ssm down")}, nil)))
	require.Empty(t, ResolveAPIKey(context.Background(), cfg, factoryFor(&fakeGetter{val: `{"token":""}`}, nil)))
}

func TestNewHandler_WiresUpstream(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"반가워요"}}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.OpenAIBaseURL = srv.URL
	h, err := NewHandler(cfg, "sk-wired", noop.NewTracerProvider())
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{"messages":[{"content":"안녕"}]}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer sk-wired", auth)

	var out struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	require.Equal(t, "반가워요", out.Reply)
}

func TestNewHandler_BadBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAIBaseURL = "ftp://example.com"
	_, err := NewHandler(cfg, "sk", noop.NewTracerProvider())
	require.ErrorContains(t, err, "create OpenAI client")
}
