package transport

import (
	"encoding/json"
	"strings"
)

// Part is one typed segment of a structured message.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Message is a single conversation entry, owned by the caller and only
// read here. Content carries the legacy shape (a flat string or an
// array of parts) for callers that predate structured Parts.
type Message struct {
	Role    string          `json:"role"`
	Parts   []Part          `json:"parts,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// wireMessage is the flattened form sent to the completions endpoint.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func allowedRole(role string) bool {
	switch role {
	case "system", "user", "assistant":
		return true
	}
	return false
}

// messageText extracts the text of a message, preferring the structured
// parts representation and falling back to the legacy content shape.
func messageText(m Message) string {
	if len(m.Parts) > 0 {
		var texts []string
		for _, p := range m.Parts {
			if p.Type == "text" {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	if len(m.Content) == 0 {
		return ""
	}

	var flat string
	if err := json.Unmarshal(m.Content, &flat); err == nil {
		return flat
	}

	var legacyParts []Part
	if err := json.Unmarshal(m.Content, &legacyParts); err == nil {
		var texts []string
		for _, p := range legacyParts {
			if p.Type == "text" {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	return ""
}

// toWireMessages filters to the supported roles and drops messages
// whose extracted text is empty after trimming.
func toWireMessages(msgs []Message) []wireMessage {
	wire := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		if !allowedRole(m.Role) {
			continue
		}
		text := messageText(m)
		if strings.TrimSpace(text) == "" {
			continue
		}
		wire = append(wire, wireMessage{Role: m.Role, Content: text})
	}
	return wire
}

// latestUserText returns the text of the most recent user message.
func latestUserText(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return messageText(msgs[i])
		}
	}
	return ""
}
