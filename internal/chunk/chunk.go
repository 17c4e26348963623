// Package chunk defines the normalized event stream consumed by a UI
// rendering layer. A logical turn is a strictly ordered sequence: start,
// start-step, one or more text turns (text-start, text-delta..., text-end),
// finish-step, finish. An error chunk may appear before the closing
// sequence but never replaces it.
package chunk

import "github.com/google/uuid"

// Kind discriminates the chunk variants.
type Kind string

const (
	KindStart      Kind = "start"
	KindStartStep  Kind = "start-step"
	KindTextStart  Kind = "text-start"
	KindTextDelta  Kind = "text-delta"
	KindTextEnd    Kind = "text-end"
	KindFinishStep Kind = "finish-step"
	KindFinish     Kind = "finish"
	KindError      Kind = "error"
)

// Chunk is one discrete event in the output stream. Only the fields
// relevant to its Kind are populated: ID for the text-* variants, Delta
// for text-delta, ErrorText for error.
type Chunk struct {
	Type      Kind   `json:"type"`
	ID        string `json:"id,omitempty"`
	Delta     string `json:"delta,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}

// NewTextID returns a fresh id for a text turn. A text id must be
// started before any deltas reference it and ended before reuse.
func NewTextID() string {
	return uuid.NewString()
}

func Start() Chunk     { return Chunk{Type: KindStart} }
func StartStep() Chunk { return Chunk{Type: KindStartStep} }

func TextStart(id string) Chunk { return Chunk{Type: KindTextStart, ID: id} }

func TextDelta(id, delta string) Chunk {
	return Chunk{Type: KindTextDelta, ID: id, Delta: delta}
}

func TextEnd(id string) Chunk { return Chunk{Type: KindTextEnd, ID: id} }

func FinishStep() Chunk { return Chunk{Type: KindFinishStep} }
func Finish() Chunk     { return Chunk{Type: KindFinish} }

func Error(text string) Chunk { return Chunk{Type: KindError, ErrorText: text} }
