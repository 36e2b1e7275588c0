package domain

import (
	"strings"

	"github.com/goccy/go-json"
)

// MessageDelimiter separates messages in multi-message text. The mailbox
// extractor joins with it and the classification engine splits on it, so
// both sides must use this exact value.
const MessageDelimiter = "\n\n---\n\n"

// SplitMessages splits text on MessageDelimiter, trims each segment and drops
// empty ones. Order is preserved.
func SplitMessages(text string) []string {
	parts := strings.Split(text, MessageDelimiter)
	messages := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			messages = append(messages, p)
		}
	}
	return messages
}

// JoinMessages is the inverse of SplitMessages for already trimmed messages.
func JoinMessages(messages []string) string {
	return strings.Join(messages, MessageDelimiter)
}

// Analysis is the structured insight extraction output.
type Analysis struct {
	Resumo string   `json:"resumo"`
	Temas  []string `json:"temas"`
	Acoes  []string `json:"acoes"`
}

// IsZero reports whether no analysis was produced.
func (a Analysis) IsZero() bool {
	return a.Resumo == "" && a.Temas == nil && a.Acoes == nil
}

// MarshalJSON writes the zero Analysis as {}.
func (a Analysis) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return []byte("{}"), nil
	}
	type plain Analysis
	return json.Marshal(plain(a))
}

// GenerationMeta describes how a reply or analysis was produced.
type GenerationMeta struct {
	Source           string `json:"source"`
	Model            string `json:"model,omitempty"`
	Raw              string `json:"raw,omitempty"`
	Usage            *Usage `json:"usage,omitempty"`
	Error            string `json:"error,omitempty"`
	FallbackResponse bool   `json:"fallback_response,omitempty"`
	Truncated        bool   `json:"truncated,omitempty"`
}
