package domain

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape used by the handler
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NormalizeRole keeps "assistant" and folds every other value into "user".
// Callers can never inject a system turn.
func NormalizeRole(role string) string {
	if role == RoleAssistant {
		return RoleAssistant
	}
	return RoleUser
}
