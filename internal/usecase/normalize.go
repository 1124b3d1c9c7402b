package usecase

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"

	"campus-chat/internal/domain"
)

// NormalizeConversation turns an untrusted request body into the canonical
// message list. Entries that are not objects, or whose content is not a
// non-blank string, are dropped; order is preserved.
//
// An empty or whitespace-only body is treated like a body without messages.
// A body that is present but not JSON is rejected as invalid_json.
func NormalizeConversation(body []byte) ([]domain.ChatMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, messagesRequired()
	}
	if !gjson.ValidBytes(body) {
		return nil, newError(ErrorInvalidInput, "invalid_json", MessageInvalidJSON, nil)
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, messagesRequired()
	}

	messages := normalizeMessages(lastField(root, "messages"))
	if len(messages) == 0 {
		return nil, messagesRequired()
	}
	return messages, nil
}

// lastField returns the last member named key. gjson's Get stops at the first
// one, while encoding/json lets a repeated key override earlier ones.
func lastField(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			found = v
		}
		return true
	})
	return found
}

func normalizeMessages(raw gjson.Result) []domain.ChatMessage {
	if !raw.IsArray() {
		return nil
	}
	var out []domain.ChatMessage
	raw.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		content := item.Get("content")
		if content.Type != gjson.String {
			return true
		}
		text := strings.TrimSpace(content.Str)
		if text == "" {
			return true
		}
		role := item.Get("role")
		var roleValue string
		if role.Type == gjson.String {
			roleValue = role.Str
		}
		out = append(out, domain.ChatMessage{
			Role:    domain.NormalizeRole(roleValue),
			Content: text,
		})
		return true
	})
	return out
}

func messagesRequired() *Error {
	return newError(ErrorInvalidInput, "messages_required", MessageMessagesRequired, nil)
}
