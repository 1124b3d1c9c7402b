package usecase

import (
	"strings"

	"campus-chat/internal/domain"
)

// buildPromptMessages prefixes the canonical conversation with the system
// directive. The directive is always the single system turn and always first.
func buildPromptMessages(conversation []domain.ChatMessage) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(conversation)+1)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: systemDirective(),
	})
	for _, m := range conversation {
		messages = append(messages, domain.ChatMessage{
			Role:    domain.NormalizeRole(m.Role),
			Content: m.Content,
		})
	}
	return messages
}

func systemDirective() string {
	return strings.Join([]string{
		"You are the official PNU GUIDE assistant.",
		"Answer in Korean.",
		"Be concise and helpful.",
		"Do not share personal or sensitive information.",
	}, " ")
}

// recentWindow keeps the last limit turns of a conversation. A limit of zero
// keeps every turn.
func recentWindow(conversation []domain.ChatMessage, limit int) []domain.ChatMessage {
	if limit <= 0 || len(conversation) <= limit {
		return conversation
	}
	return conversation[len(conversation)-limit:]
}
