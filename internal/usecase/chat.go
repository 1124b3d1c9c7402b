package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-chat/internal/domain"
	"campus-chat/internal/integrations/openai"
)

type LLMClient interface {
	HasCredential() bool
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type ChatService struct {
	llm         LLMClient
	model       string
	maxMessages int
}

type ReplyInput struct {
	Body []byte
}

type ReplyOutput struct {
	Reply string
}

func NewChatService(llm LLMClient, model string, maxMessages int) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = openai.DefaultModel
	}
	// Zero forwards the whole conversation.
	if maxMessages < 0 {
		maxMessages = 0
	}
	return &ChatService{
		llm:         llm,
		model:       model,
		maxMessages: maxMessages,
	}, nil
}

// Reply validates the request body and forwards the conversation upstream.
// Every failure is returned as *Error.
func (s *ChatService) Reply(ctx context.Context, in ReplyInput) (ReplyOutput, error) {
	if !s.llm.HasCredential() {
		return ReplyOutput{}, newError(ErrorConfiguration, "missing_api_key", MessageMissingAPIKey, nil)
	}

	conversation, err := NormalizeConversation(in.Body)
	if err != nil {
		return ReplyOutput{}, err
	}

	reply, err := s.llm.Chat(ctx, s.model, buildPromptMessages(recentWindow(conversation, s.maxMessages)))
	if err != nil {
		return ReplyOutput{}, classifyUpstreamError(err)
	}
	return ReplyOutput{Reply: reply}, nil
}

func classifyUpstreamError(err error) *Error {
	var statusErr *openai.HTTPStatusError
	var transportErr *openai.TransportError
	switch {
	case errors.Is(err, openai.ErrMissingAPIKey):
		return newError(ErrorConfiguration, "missing_api_key", MessageMissingAPIKey, err)
	case errors.As(err, &statusErr):
		message := statusErr.Message
		if message == "" {
			message = fmt.Sprintf("OpenAI API error (%d).", statusErr.StatusCode)
		}
		e := newError(ErrorUpstream, "openai_status", message, err)
		e.Status = statusErr.StatusCode
		return e
	case errors.As(err, &transportErr):
		return newError(ErrorUpstreamUnreachable, "openai_unreachable", MessageRequestFailed, err)
	case errors.Is(err, openai.ErrEmptyReply):
		return newError(ErrorEmptyReply, "openai_empty_reply", MessageEmptyReply, err)
	default:
		return newError(ErrorUpstreamUnreachable, "openai_error", MessageRequestFailed, err)
	}
}
