package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/strm-labs/uistream/internal/chunk"
	"github.com/strm-labs/uistream/internal/credentials"
)

func TestSend_NoCredentialSkipsVerification(t *testing.T) {
	var verifyCalls atomic.Int32
	var got imageRequest
	srv := newAPIServer(t, true, func(mux *http.ServeMux) {
		mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
			verifyCalls.Add(1)
			fmt.Fprint(w, `{"sub": 2}`)
		})
		mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			fmt.Fprint(w, `{"data":[{"b64_json":"AAA="}]}`)
		})
	})

	c := New(srv.URL+"/v1",
		WithHTTPClient(srv.Client()),
		WithVerifyURL(srv.URL),
		WithTokenProvider(credentials.Chain{}),
	)

	stream, err := c.Send(context.Background(), SendRequest{Messages: []Message{userMessage("draw a cat")}})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	chunks := collectChunks(stream)

	if verifyCalls.Load() != 0 {
		t.Error("verification endpoint was called without a credential")
	}
	if got.Nologo {
		t.Error("nologo = true, want false with an undefined tier")
	}
	if chunks[3].Delta != "🖼️ Generating image..." {
		t.Errorf("first delta = %q, want the placeholder", chunks[3].Delta)
	}
}

func TestSend_StoreTokenPreferredOverHeaderBearer(t *testing.T) {
	var gotAuth string
	var got imageRequest
	srv := newAPIServer(t, true, func(mux *http.ServeMux) {
		mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			fmt.Fprint(w, `{"sub": 2}`)
		})
		mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			fmt.Fprint(w, `{"data":[{"b64_json":"AAA="}]}`)
		})
	})

	c := New(srv.URL+"/v1",
		WithHTTPClient(srv.Client()),
		WithVerifyURL(srv.URL),
		WithTokenProvider(credentials.CookieString("api_token=store-token")),
		WithHeaderFactory(func(context.Context) (map[string]string, error) {
			return map[string]string{"Authorization": "Bearer header-token"}, nil
		}),
	)

	stream, err := c.Send(context.Background(), SendRequest{Messages: []Message{userMessage("draw a cat")}})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	collectChunks(stream)

	if gotAuth != "Bearer store-token" {
		t.Errorf("verify Authorization = %q, stored token must be preferred", gotAuth)
	}
	if !got.Nologo {
		t.Error("nologo = false, want true at tier 2")
	}
}

func TestSend_HeaderBearerFallbackAndLowTier(t *testing.T) {
	var gotAuth string
	var got imageRequest
	srv := newAPIServer(t, true, func(mux *http.ServeMux) {
		mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			fmt.Fprint(w, `{"sub": "1"}`)
		})
		mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			fmt.Fprint(w, `{"data":[{"b64_json":"AAA="}]}`)
		})
	})

	c := New(srv.URL+"/v1",
		WithHTTPClient(srv.Client()),
		WithVerifyURL(srv.URL),
		WithHeaderFactory(func(context.Context) (map[string]string, error) {
			return map[string]string{"Authorization": "Bearer header-token"}, nil
		}),
	)

	stream, err := c.Send(context.Background(), SendRequest{Messages: []Message{userMessage("draw a cat")}})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	collectChunks(stream)

	if gotAuth != "Bearer header-token" {
		t.Errorf("verify Authorization = %q, want header bearer fallback", gotAuth)
	}
	if got.Nologo {
		t.Error("nologo = true, want false below the no-watermark tier")
	}
}

func TestSend_VerificationFailureDegradesToUndefinedTier(t *testing.T) {
	var got imageRequest
	srv := newAPIServer(t, true, func(mux *http.ServeMux) {
		mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "verification down", http.StatusInternalServerError)
		})
		mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			fmt.Fprint(w, `{"data":[{"b64_json":"AAA="}]}`)
		})
	})

	c := New(srv.URL+"/v1",
		WithHTTPClient(srv.Client()),
		WithVerifyURL(srv.URL),
		WithHeaderFactory(func(context.Context) (map[string]string, error) {
			return map[string]string{"Authorization": "Bearer header-token"}, nil
		}),
	)

	stream, err := c.Send(context.Background(), SendRequest{Messages: []Message{userMessage("draw a cat")}})
	if err != nil {
		t.Fatalf("Send() error = %v, verification failures must not block", err)
	}
	chunks := collectChunks(stream)
	assertKinds(t, chunks, imageSequence(true))
	if got.Nologo {
		t.Error("nologo = true, want false when verification fails")
	}
}

func TestSend_EmptyPromptSkipsClassification(t *testing.T) {
	// The intent handler answers true, so taking the chat path proves
	// the classifier was never consulted for a whitespace-only prompt.
	srv := newAPIServer(t, true, func(mux *http.ServeMux) {
		mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, sseFrames("ok"))
		})
	})

	c := New(srv.URL+"/v1", WithHTTPClient(srv.Client()))

	stream, err := c.Send(context.Background(), SendRequest{
		Messages: []Message{
			{Role: "system", Parts: []Part{{Type: "text", Text: "be brief"}}},
			userMessage("   "),
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	chunks := collectChunks(stream)
	var text string
	for _, ch := range chunks {
		if ch.Type == chunk.KindError {
			t.Fatalf("unexpected error chunk: %s", ch.ErrorText)
		}
		if ch.Type == chunk.KindTextDelta {
			text += ch.Delta
		}
	}
	if text != "ok" {
		t.Errorf("chat text = %q, want ok", text)
	}
}

func TestReconnect_YieldsEmptyClosedStream(t *testing.T) {
	c := New("https://api.example.com/v1")

	stream, err := c.Reconnect(context.Background(), "chat-123")
	if err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if chunks := collectChunks(stream); len(chunks) != 0 {
		t.Errorf("Reconnect() emitted %d chunks, want none", len(chunks))
	}
}
