package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"campus-chat/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 1 << 20
)

type ChatUseCase interface {
	Reply(ctx context.Context, in usecase.ReplyInput) (usecase.ReplyOutput, error)
}

type replyResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handler adapts the chat usecase to API Gateway proxy events and to
// net/http. Both transports share the same status and body mapping.
type Handler struct {
	uc ChatUseCase
}

func NewHandler(uc ChatUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: chat usecase must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// result is a transport-neutral response.
type result struct {
	status  int
	headers map[string]string
	body    string
}

// Handle serves POST /api/chat behind API Gateway. It never returns an error;
// every outcome is a JSON response. The integration must use the REST API
// (payload format 1.0) event, whose HTTPMethod is set; a missing method is a 405.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(headerValue(event.Headers, correlationHeader))

	var res result
	if !strings.EqualFold(event.HTTPMethod, http.MethodPost) {
		res = h.failure(ctx, corrID, usecase.MethodNotAllowed(event.HTTPMethod))
	} else if body, err := eventBody(event); err != nil {
		res = h.failure(ctx, corrID, usecase.InvalidInput("invalid_base64", usecase.MessageInvalidJSON, err))
	} else {
		res = h.reply(ctx, corrID, body)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers:    res.headers,
		Body:       res.body,
	}, nil
}

func (h *Handler) reply(ctx context.Context, corrID string, body []byte) result {
	out, err := h.uc.Reply(ctx, usecase.ReplyInput{Body: body})
	if err != nil {
		return h.failure(ctx, corrID, err)
	}
	slog.InfoContext(ctx, "chat reply sent", "correlation_id", corrID, "reply_len", len(out.Reply))
	return respond(http.StatusOK, corrID, replyResponse{Reply: out.Reply})
}

func (h *Handler) failure(ctx context.Context, corrID string, err error) result {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		ucErr = &usecase.Error{Code: usecase.ErrorInternal, Reason: "unexpected_error", Err: err}
	}
	status := ucErr.HTTPStatus()
	logFailure(ctx, corrID, status, ucErr)

	res := respond(status, corrID, errorResponse{
		Error: ucErr.DisplayMessage(),
		Code:  string(ucErr.Code),
	})
	if ucErr.Code == usecase.ErrorMethodNotAllowed {
		res.headers["Allow"] = http.MethodPost
	}
	return res
}

func logFailure(ctx context.Context, corrID string, status int, e *usecase.Error) {
	attrs := []any{
		"correlation_id", corrID,
		"status", status,
		"code", e.Code,
		"reason", e.Reason,
	}
	if e.Err != nil {
		attrs = append(attrs, "err", e.Err)
	}
	switch e.Code {
	case usecase.ErrorInvalidInput, usecase.ErrorMethodNotAllowed:
		slog.InfoContext(ctx, "chat request rejected", attrs...)
	case usecase.ErrorUpstream:
		slog.WarnContext(ctx, "chat upstream returned error", attrs...)
	default:
		slog.ErrorContext(ctx, "chat request failed", attrs...)
	}
}

func respond(status int, corrID string, payload any) result {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + usecase.MessageInternal + `","code":"` + string(usecase.ErrorInternal) + `"}`)
	}
	return result{
		status: status,
		headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		body: string(body),
	}
}

func eventBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if !event.IsBase64Encoded {
		return []byte(event.Body), nil
	}
	return base64.StdEncoding.DecodeString(event.Body)
}

// headerValue looks a header up case-insensitively; API Gateway forwards
// whatever casing the client sent.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func correlationID(inbound string) string {
	if id := strings.TrimSpace(inbound); id != "" {
		return id
	}
	return newUUID()
}

var newUUID = func() string {
	return uuid.NewString()
}
