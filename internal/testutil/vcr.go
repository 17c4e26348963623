// Package testutil holds recorded-HTTP helpers shared by transport
// tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// NewVCRRecorder opens the named cassette under testdata/fixtures.
// Cassettes replay by default; set VCR_MODE=record to hit the live
// endpoints and refresh them.
func NewVCRRecorder(t *testing.T, name string) (*recorder.Recorder, func()) {
	t.Helper()

	mode := recorder.ModeReplaying
	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	r, err := recorder.NewAsMode(filepath.Join("testdata", "fixtures", name), mode, nil)
	if err != nil {
		t.Fatalf("open cassette %s: %v", name, err)
	}
	r.SetMatcher(MatchIgnoringSeed)

	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("stop recorder for %s: %v", name, err)
		}
	}

	return r, cleanup
}

// MatchIgnoringSeed pairs live requests with recorded interactions by
// method, URL, and body. Image-generation bodies carry a freshly drawn
// seed on every call, so JSON bodies are compared with the seed field
// removed.
func MatchIgnoringSeed(r *http.Request, i cassette.Request) bool {
	if r.Method != i.Method || r.URL.String() != i.URL {
		return false
	}
	if r.Body == nil || r.Body == http.NoBody {
		return strings.TrimSpace(i.Body) == ""
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(b))
	return canonicalBody(b) == canonicalBody([]byte(i.Body))
}

// canonicalBody renders a JSON object with its seed dropped and keys
// sorted; non-JSON bodies compare verbatim.
func canonicalBody(b []byte) string {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return strings.TrimSpace(string(b))
	}
	delete(m, "seed")
	out, err := json.Marshal(m)
	if err != nil {
		return strings.TrimSpace(string(b))
	}
	return string(out)
}

// VCRHTTPClient routes an HTTP client through the recorder.
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}
