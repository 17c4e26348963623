package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/strm-labs/uistream/internal/chunk"
)

const (
	imageModel       = "flux"
	imagePlaceholder = "🖼️ Generating image..."
	defaultMediaType = "image/png"
	maxSeed          = 1_000_000
)

var errNoUsableImage = errors.New("no usable image in response")

// startImage produces the image-generation chunk sequence: an immediate
// placeholder text turn, then either a second text turn carrying the
// final image as a markdown reference, or an in-band error chunk. The
// closing sequence text-end, finish-step, finish is emitted on every
// path so the consumer always observes a well-formed turn.
func (c *Client) startImage(ctx context.Context, prompt string, hdrs map[string]string, authed bool, sub *int, nologo bool) (<-chan chunk.Chunk, error) {
	out := make(chan chunk.Chunk)
	go c.pumpImage(ctx, prompt, hdrs, authed, sub, nologo, out)
	return out, nil
}

func (c *Client) pumpImage(ctx context.Context, prompt string, hdrs map[string]string, authed bool, sub *int, nologo bool, out chan<- chunk.Chunk) {
	defer close(out)

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
	if !emit(chunk.TextDelta(id, imagePlaceholder)) {
		return
	}

	markdown, err := c.generateImage(ctx, prompt, hdrs, authed, sub, nologo)
	if err != nil {
		if !emit(chunk.Error(err.Error())) || !emit(chunk.TextEnd(id)) {
			return
		}
	} else {
		if !emit(chunk.TextEnd(id)) {
			return
		}
		resultID := chunk.NewTextID()
		if !emit(chunk.TextStart(resultID)) || !emit(chunk.TextDelta(resultID, markdown)) || !emit(chunk.TextEnd(resultID)) {
			return
		}
	}

	if !emit(chunk.FinishStep()) {
		return
	}
	emit(chunk.Finish())
}

// generateImage performs the image request and renders the first image
// entry as a markdown reference, either to its direct URL or to a
// base64 data URI. The seed is drawn fresh per call so a generation can
// be reproduced from logs.
func (c *Client) generateImage(ctx context.Context, prompt string, hdrs map[string]string, authed bool, sub *int, nologo bool) (string, error) {
	seed := rand.IntN(maxSeed)
	payload, err := json.Marshal(map[string]any{
		"model":  imageModel,
		"prompt": prompt,
		"nologo": nologo,
		"seed":   seed,
	})
	if err != nil {
		return "", fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reporter.ReportError(ErrorInfo{
			Status:  0,
			Authed:  authed,
			Sub:     sub,
			Message: err.Error(),
		})
		return "", fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorText(resp)
		c.reporter.ReportError(ErrorInfo{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Authed:     authed,
			Sub:        sub,
			Message:    detail,
		})
		return "", fmt.Errorf("image generation failed: %s", detail)
	}

	var body struct {
		Data []struct {
			URL      string `json:"url"`
			B64JSON  string `json:"b64_json"`
			MimeType string `json:"mime_type"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	if len(body.Data) == 0 {
		return "", errNoUsableImage
	}

	entry := body.Data[0]
	mediaType := entry.MimeType
	if mediaType == "" {
		mediaType = defaultMediaType
	}

	switch {
	case entry.URL != "":
		return imageMarkdown(entry.URL), nil
	case entry.B64JSON != "":
		uri := "data:" + mediaType + ";base64," + entry.B64JSON
		return imageMarkdown(uri), nil
	default:
		return "", errNoUsableImage
	}
}

func imageMarkdown(ref string) string {
	return fmt.Sprintf("![Generated image](%s)", strings.TrimSpace(ref))
}
