// Package transport is the client-side streaming transport behind the
// chat UI. One Send call resolves headers and auth, classifies the
// user's intent, issues the completion or image-generation request, and
// republishes everything as a normalized chunk stream.
//
// Calls are independent: nothing is shared across them except the
// externally owned credential store, which is read-only here.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/strm-labs/uistream/internal/chunk"
	"github.com/strm-labs/uistream/internal/credentials"
	"github.com/strm-labs/uistream/internal/headers"
	"github.com/strm-labs/uistream/internal/intent"
)

const (
	defaultModel = "openai"

	// The verification service is a separate host from the chat API;
	// the two roots are intentionally distinct.
	defaultVerifyURL = "https://auth.strm-labs.dev"

	// noWatermarkTier is the minimum subscription tier that unlocks
	// watermark-free image generation.
	noWatermarkTier = 2
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeaderFactory sets the async factory producing base headers for
// every call.
func WithHeaderFactory(factory headers.Factory) Option {
	return func(c *Client) {
		c.headers = headers.NewAssembler(factory)
	}
}

// WithTokenProvider sets the credential lookup chain.
func WithTokenProvider(tokens credentials.Provider) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithReporter sets the error sink receiving transport failures.
func WithReporter(reporter Reporter) Option {
	return func(c *Client) {
		c.reporter = reporter
	}
}

// WithModel sets the completion model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithVerifyURL sets the verification endpoint root.
func WithVerifyURL(verifyURL string) Option {
	return func(c *Client) {
		c.verifyURL = strings.TrimSuffix(verifyURL, "/")
	}
}

// WithExtraBody sets fixed body fields merged into every completion
// request. Per-call fields win on collision.
func WithExtraBody(extra map[string]any) Option {
	return func(c *Client) {
		c.extraBody = extra
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client is the transport facade. It is safe for concurrent use;
// concurrent Send calls are neither deduplicated nor serialized.
type Client struct {
	baseURL    string
	verifyURL  string
	model      string
	httpClient *http.Client
	headers    *headers.Assembler
	tokens     credentials.Provider
	classifier *intent.Classifier
	reporter   Reporter
	extraBody  map[string]any
	logger     *slog.Logger
}

// New creates a transport client for the given chat API base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		verifyURL: defaultVerifyURL,
		model:     defaultModel,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		headers:  headers.NewAssembler(nil),
		tokens:   credentials.Chain{},
		reporter: nopReporter{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.classifier = intent.New(c.baseURL,
		intent.WithHTTPClient(c.httpClient),
		intent.WithLogger(c.logger),
	)
	return c
}

// SendRequest is one logical turn from the UI runtime.
type SendRequest struct {
	Messages []Message

	// Headers are per-call headers overlaid on the factory-produced
	// set; they win on collision.
	Headers map[string]string

	// Body holds extra completion body fields; they win over the
	// client-configured extras.
	Body map[string]any
}

// Send runs one turn and returns the pull-based chunk stream. Setup
// failures (header resolution, network failure, non-2xx completion
// response) are returned before any chunk is emitted; cancellation of
// ctx propagates to the in-flight request and the upstream reader.
func (c *Client) Send(ctx context.Context, req SendRequest) (<-chan chunk.Chunk, error) {
	hdrs, err := c.headers.Resolve(ctx, req.Headers)
	if err != nil {
		return nil, err
	}

	bearer := authBearer(hdrs)
	authed := bearer != "" || hasAuthHeader(hdrs)

	var sub *int
	if authed {
		// A stored API token outranks the bearer from the header.
		token, ok := c.tokens.Lookup(credentials.KeyAPIToken)
		if !ok {
			token = bearer
		}
		if token != "" {
			sub = c.verifySubscription(ctx, token)
		}
	}

	c.reporter.ClearError()

	prompt := latestUserText(req.Messages)
	if strings.TrimSpace(prompt) != "" && c.classifier.IsImageRequest(ctx, prompt, hdrs) {
		nologo := sub != nil && *sub >= noWatermarkTier
		return c.startImage(ctx, prompt, hdrs, authed, sub, nologo)
	}

	return c.startChat(ctx, req, hdrs, authed, sub)
}

// Reconnect would resume an existing stream; persistent sessions are
// not supported, so it always yields an empty, already-closed stream.
func (c *Client) Reconnect(ctx context.Context, chatID string) (<-chan chunk.Chunk, error) {
	out := make(chan chunk.Chunk)
	close(out)
	return out, nil
}

// hasAuthHeader checks both spellings; resolved headers keep the case
// the caller used.
func hasAuthHeader(hdrs map[string]string) bool {
	_, upper := hdrs["Authorization"]
	_, lower := hdrs["authorization"]
	return upper || lower
}

// authBearer extracts the bearer value from the resolved Authorization
// header, if any.
func authBearer(hdrs map[string]string) string {
	value := hdrs["Authorization"]
	if value == "" {
		value = hdrs["authorization"]
	}
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
