// chatctl sends one prompt through the streaming transport and prints
// the resulting chunk stream to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/strm-labs/uistream/internal/chunk"
	"github.com/strm-labs/uistream/internal/config"
	"github.com/strm-labs/uistream/internal/credentials"
	"github.com/strm-labs/uistream/internal/telemetry"
	"github.com/strm-labs/uistream/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chatctl:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config.yaml")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	prompt := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("usage: chatctl [-config path] [-v] <prompt>")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Spans go to stderr so they never interleave with the streamed
	// chat text on stdout.
	shutdown, err := telemetry.Init(telemetry.Config{
		ServiceName: "chatctl",
		SampleRatio: cfg.Telemetry.SampleRatio,
		Pretty:      *verbose,
		Writer:      os.Stderr,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdown(context.Background())

	store, err := credentials.OpenSQLite(cfg.Tokens.Path)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer store.Close()

	tokens := credentials.Chain{
		store,
		credentials.CookieString(cfg.Tokens.Cookie),
	}

	client := transport.New(cfg.API.BaseURL,
		transport.WithModel(cfg.API.Model),
		transport.WithVerifyURL(cfg.API.VerifyURL),
		transport.WithTokenProvider(tokens),
		transport.WithHeaderFactory(bearerFactory(tokens)),
		transport.WithReporter(logReporter{logger: logger}),
		transport.WithLogger(logger),
	)

	stream, err := client.Send(ctx, transport.SendRequest{
		Messages: []transport.Message{
			{Role: "user", Parts: []transport.Part{{Type: "text", Text: prompt}}},
		},
	})
	if err != nil {
		return err
	}

	for ch := range stream {
		switch ch.Type {
		case chunk.KindTextDelta:
			fmt.Print(ch.Delta)
		case chunk.KindTextEnd:
			fmt.Println()
		case chunk.KindError:
			fmt.Fprintln(os.Stderr, "error:", ch.ErrorText)
		}
	}

	return ctx.Err()
}

// bearerFactory attaches an Authorization header when a token is
// available in either store.
func bearerFactory(tokens credentials.Provider) func(context.Context) (map[string]string, error) {
	return func(context.Context) (map[string]string, error) {
		hdrs := map[string]string{}
		if token, ok := tokens.Lookup(credentials.KeyAPIToken); ok {
			hdrs["Authorization"] = "Bearer " + token
		} else if token, ok := tokens.Lookup(credentials.KeyIdentity); ok {
			hdrs["Authorization"] = "Bearer " + token
		}
		return hdrs, nil
	}
}

// logReporter surfaces transport failures on the CLI logger.
type logReporter struct {
	logger *slog.Logger
}

func (r logReporter) ReportError(info transport.ErrorInfo) {
	r.logger.Error("transport failure",
		slog.Int("status", info.Status),
		slog.String("status_text", info.StatusText),
		slog.Bool("authed", info.Authed),
		slog.String("message", info.Message),
	)
}

func (r logReporter) ClearError() {}
