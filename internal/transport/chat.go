package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/strm-labs/uistream/internal/chunk"
	"github.com/strm-labs/uistream/internal/sse"
)

// startChat issues the streaming completion request and, on success,
// returns a channel republishing decoded deltas inside the fixed chunk
// envelope. Pre-stream failures are returned before any chunk exists.
func (c *Client) startChat(ctx context.Context, req SendRequest, hdrs map[string]string, authed bool, sub *int) (<-chan chunk.Chunk, error) {
	body := map[string]any{
		"model":    c.model,
		"messages": toWireMessages(req.Messages),
		"stream":   true,
	}
	for k, v := range c.extraBody {
		body[k] = v
	}
	// Caller-supplied fields win over the configured extras.
	for k, v := range req.Body {
		body[k] = v
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range hdrs {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.reporter.ReportError(ErrorInfo{
			Status:  0,
			Authed:  authed,
			Sub:     sub,
			Message: err.Error(),
		})
		return nil, fmt.Errorf("completion request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorText(resp)
		resp.Body.Close()
		c.reporter.ReportError(ErrorInfo{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Authed:     authed,
			Sub:        sub,
			Message:    detail,
		})
		return nil, errCompletionFailed
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}

	decoder := sse.NewDecoder(resp.Body, sse.WithLogger(c.logger))
	out := make(chan chunk.Chunk)
	go c.pumpChat(ctx, decoder, out)
	return out, nil
}

// pumpChat drives the decoder and wraps its deltas in the envelope:
// start, start-step, text-start, deltas..., text-end, finish-step,
// finish. A mid-stream decode error ends the deltas but still closes
// the envelope, leaving partial text visible.
func (c *Client) pumpChat(ctx context.Context, decoder *sse.Decoder, out chan<- chunk.Chunk) {
	defer close(out)
	defer decoder.Close()

	emit := func(ch chunk.Chunk) bool {
		select {
		case out <- ch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	id := chunk.NewTextID()
	if !emit(chunk.Start()) || !emit(chunk.StartStep()) || !emit(chunk.TextStart(id)) {
		return
	}

	for {
		delta, err := decoder.Next()
		if err != nil {
			if err != io.EOF {
				c.logger.Warn("completion stream read failed", slog.String("error", err.Error()))
			}
			break
		}
		if !emit(chunk.TextDelta(id, delta)) {
			return
		}
	}

	if !emit(chunk.TextEnd(id)) {
		return
	}
	if !emit(chunk.FinishStep()) {
		return
	}
	emit(chunk.Finish())
}

// readErrorText derives a human-readable message from a failed
// response, falling back to the status line when the body is empty.
func readErrorText(resp *http.Response) string {
	if resp.Body != nil {
		if b, err := io.ReadAll(resp.Body); err == nil {
			if text := strings.TrimSpace(string(b)); text != "" {
				return text
			}
		}
	}
	return resp.Status
}
