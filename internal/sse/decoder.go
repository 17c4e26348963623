// Package sse decodes a server-sent-event byte stream into incremental
// text deltas. Frames are blank-line delimited blocks of "data:" lines;
// each payload is either a JSON chat-completion chunk or the literal
// [DONE] sentinel.
package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

const doneSentinel = "[DONE]"

var frameDelim = []byte("\n\n")

// Option configures the decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for skipped malformed payloads.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// Decoder is a pull-based state machine over an upstream byte source.
// Bytes accumulate in buf and frames are sliced off at each blank-line
// delimiter. Splitting happens on byte boundaries, so a multi-byte
// UTF-8 character arriving across two reads stays intact in the buffer
// until its frame completes.
//
// The delta sequence is restartable per call but not replayable.
type Decoder struct {
	body    io.ReadCloser
	logger  *slog.Logger
	buf     []byte
	scratch []byte
	pending []string
	readErr error
	done    bool
	closed  bool
}

// NewDecoder wraps an upstream SSE body.
func NewDecoder(body io.ReadCloser, opts ...Option) *Decoder {
	d := &Decoder{
		body:    body,
		logger:  slog.Default(),
		scratch: make([]byte, 4096),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next text delta. It returns io.EOF once the stream
// has terminated, either via the [DONE] sentinel or upstream close.
// Deltas already decoded before upstream termination are drained first;
// an explicit Close discards them instead.
func (d *Decoder) Next() (string, error) {
	for {
		if len(d.pending) > 0 {
			delta := d.pending[0]
			d.pending = d.pending[1:]
			return delta, nil
		}

		if d.done {
			if d.readErr != nil {
				return "", d.readErr
			}
			return "", io.EOF
		}

		n, err := d.body.Read(d.scratch)
		if n > 0 {
			d.buf = append(d.buf, d.scratch[:n]...)
			d.drainFrames()
		}
		if err != nil {
			if err != io.EOF {
				d.readErr = err
			}
			d.finish()
		}
	}
}

// Close terminates the delta sequence and cancels the upstream reader.
// Deltas still buffered are discarded, so the next Next call returns
// io.EOF immediately. Teardown errors from the upstream are swallowed.
func (d *Decoder) Close() error {
	d.done = true
	d.pending = nil
	d.buf = nil
	if !d.closed {
		d.closed = true
		_ = d.body.Close()
	}
	return nil
}

// drainFrames slices complete frames off the buffer and processes each
// in arrival order. Processing stops once the sentinel is seen.
func (d *Decoder) drainFrames() {
	for !d.done {
		i := bytes.Index(d.buf, frameDelim)
		if i < 0 {
			return
		}
		frame := string(d.buf[:i])
		d.buf = d.buf[i+len(frameDelim):]
		d.processFrame(frame)
	}
}

// finish handles upstream end-of-stream: one trailing partial frame is
// still processed if the sentinel was never seen, then the upstream is
// released.
func (d *Decoder) finish() {
	if !d.done {
		if rest := strings.TrimSpace(string(d.buf)); rest != "" {
			d.processFrame(rest)
		}
	}
	d.buf = nil
	d.done = true
	if !d.closed {
		d.closed = true
		_ = d.body.Close()
	}
}

// processFrame extracts data payloads from one frame. A [DONE] payload
// terminates the stream immediately; deltas collected earlier in the
// same frame are kept, later lines are not processed.
func (d *Decoder) processFrame(frame string) {
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == doneSentinel {
			d.done = true
			if !d.closed {
				d.closed = true
				_ = d.body.Close()
			}
			return
		}
		if payload == "" {
			continue
		}
		if delta, ok := d.decodePayload(payload); ok {
			d.pending = append(d.pending, delta)
		}
	}
}

// decodePayload pulls choices[0].delta.content out of a JSON payload.
// Malformed payloads are logged and skipped; the stream continues.
func (d *Decoder) decodePayload(payload string) (string, bool) {
	var event struct {
		Choices []struct {
			Delta struct {
				Content *string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		d.logger.Warn("skipping malformed SSE payload", slog.String("error", err.Error()))
		return "", false
	}
	if len(event.Choices) == 0 || event.Choices[0].Delta.Content == nil {
		return "", false
	}
	return *event.Choices[0].Delta.Content, true
}
