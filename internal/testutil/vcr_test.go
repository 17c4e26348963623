package testutil

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
)

func postReq(t *testing.T, url, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestMatchIgnoringSeed(t *testing.T) {
	recorded := cassette.Request{
		Method: http.MethodPost,
		URL:    "https://api.example.com/v1/images/generations",
		Body:   `{"model":"flux","nologo":false,"prompt":"a cat","seed":12345}`,
	}

	t.Run("differing seeds still match", func(t *testing.T) {
		req := postReq(t, recorded.URL, `{"model":"flux","nologo":false,"prompt":"a cat","seed":99}`)
		if !MatchIgnoringSeed(req, recorded) {
			t.Error("bodies differing only in seed must match")
		}
	})

	t.Run("differing prompt rejected", func(t *testing.T) {
		req := postReq(t, recorded.URL, `{"model":"flux","nologo":false,"prompt":"a dog","seed":12345}`)
		if MatchIgnoringSeed(req, recorded) {
			t.Error("bodies differing outside the seed must not match")
		}
	})

	t.Run("differing URL rejected", func(t *testing.T) {
		req := postReq(t, "https://api.example.com/v1/other", recorded.Body)
		if MatchIgnoringSeed(req, recorded) {
			t.Error("requests to a different URL must not match")
		}
	})

	t.Run("request body survives matching", func(t *testing.T) {
		req := postReq(t, recorded.URL, recorded.Body)
		MatchIgnoringSeed(req, recorded)
		b, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != recorded.Body {
			t.Error("matcher consumed the request body")
		}
	})

	t.Run("bodiless GET matches bodiless interaction", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "https://auth.example.com/verify", nil)
		if err != nil {
			t.Fatal(err)
		}
		if !MatchIgnoringSeed(req, cassette.Request{Method: http.MethodGet, URL: "https://auth.example.com/verify"}) {
			t.Error("GET with no body must match its recorded interaction")
		}
	})
}
