package transport

import (
	"encoding/json"
	"testing"
)

func TestMessageText_PrefersStructuredParts(t *testing.T) {
	m := Message{
		Role: "user",
		Parts: []Part{
			{Type: "text", Text: "first"},
			{Type: "image", Text: "ignored"},
			{Type: "text", Text: "second"},
		},
		Content: json.RawMessage(`"legacy ignored"`),
	}
	if got := messageText(m); got != "first\nsecond" {
		t.Errorf("messageText = %q, want text parts joined by newline", got)
	}
}

func TestMessageText_LegacyString(t *testing.T) {
	m := Message{Role: "user", Content: json.RawMessage(`"plain text"`)}
	if got := messageText(m); got != "plain text" {
		t.Errorf("messageText = %q, want plain text", got)
	}
}

func TestMessageText_LegacyPartsArray(t *testing.T) {
	m := Message{Role: "user", Content: json.RawMessage(`[{"type":"text","text":"a"},{"type":"text","text":"b"}]`)}
	if got := messageText(m); got != "a\nb" {
		t.Errorf("messageText = %q, want a\\nb", got)
	}
}

func TestMessageText_UnrecognizedContent(t *testing.T) {
	m := Message{Role: "user", Content: json.RawMessage(`{"weird": true}`)}
	if got := messageText(m); got != "" {
		t.Errorf("messageText = %q, want empty for unrecognized shapes", got)
	}
}

func TestToWireMessages_FiltersAndDrops(t *testing.T) {
	msgs := []Message{
		{Role: "system", Parts: []Part{{Type: "text", Text: "sys"}}},
		{Role: "tool", Parts: []Part{{Type: "text", Text: "dropped role"}}},
		{Role: "user", Parts: []Part{{Type: "text", Text: "  "}}},
		{Role: "assistant", Content: json.RawMessage(`"prev answer"`)},
		{Role: "user", Parts: []Part{{Type: "text", Text: "question"}}},
	}

	wire := toWireMessages(msgs)

	want := []wireMessage{
		{Role: "system", Content: "sys"},
		{Role: "assistant", Content: "prev answer"},
		{Role: "user", Content: "question"},
	}
	if len(wire) != len(want) {
		t.Fatalf("got %d wire messages %v, want %d", len(wire), wire, len(want))
	}
	for i := range want {
		if wire[i] != want[i] {
			t.Errorf("wire[%d] = %v, want %v", i, wire[i], want[i])
		}
	}
}

func TestLatestUserText(t *testing.T) {
	msgs := []Message{
		userMessage("first"),
		{Role: "assistant", Content: json.RawMessage(`"answer"`)},
		userMessage("latest"),
		{Role: "assistant", Content: json.RawMessage(`"another"`)},
	}
	if got := latestUserText(msgs); got != "latest" {
		t.Errorf("latestUserText = %q, want latest", got)
	}

	if got := latestUserText(nil); got != "" {
		t.Errorf("latestUserText(nil) = %q, want empty", got)
	}
}
