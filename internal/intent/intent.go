// Package intent asks the detection endpoint whether the latest user
// utterance is an image-generation request. Classification is advisory:
// every failure mode degrades to "not an image request" so a broken or
// slow detector can never block normal chat flow.
package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const detectPath = "/is-image-gen-request"

// Option configures the classifier.
type Option func(*Classifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Classifier) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// Classifier calls the intent detection endpoint rooted at the API
// root, which is the chat base URL with a trailing /v1 segment
// stripped.
type Classifier struct {
	root       string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a classifier for the given chat base URL.
func New(baseURL string, opts ...Option) *Classifier {
	c := &Classifier{
		root:       APIRoot(baseURL),
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIRoot derives the detection root from a chat base URL by stripping
// a trailing /v1 segment.
func APIRoot(baseURL string) string {
	root := strings.TrimSuffix(baseURL, "/")
	return strings.TrimSuffix(root, "/v1")
}

// IsImageRequest reports whether prompt should be routed to image
// generation. It returns true only for a 2xx response whose body flag
// is explicitly true.
func (c *Classifier) IsImageRequest(ctx context.Context, prompt string, hdrs map[string]string) bool {
	endpoint := c.root + detectPath + "?user_input=" + url.QueryEscape(prompt)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn("intent detection request build failed", slog.String("error", err.Error()))
		return false
	}
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("intent detection unreachable", slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}

	var body struct {
		IsImageGenRequest *bool `json:"is_image_gen_request"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Warn("intent detection returned malformed JSON", slog.String("error", err.Error()))
		return false
	}

	return body.IsImageGenRequest != nil && *body.IsImageGenRequest
}
