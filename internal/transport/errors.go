package transport

import "errors"

// ErrorInfo is a snapshot describing why a call failed. Status 0 marks
// a network-level failure where no HTTP response was received, as
// opposed to a non-2xx response.
type ErrorInfo struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Authed     bool   `json:"authed"`
	Sub        *int   `json:"sub,omitempty"`
	Message    string `json:"message"`
}

// Reporter is a fire-and-forget observer for transport failures. It is
// invoked at most once per failure class per call and carries no
// ordering guarantee relative to the error returned to the caller.
type Reporter interface {
	ReportError(info ErrorInfo)
	ClearError()
}

// ReporterFunc adapts a function to the Reporter interface; Clear is a
// no-op.
type ReporterFunc func(info ErrorInfo)

func (f ReporterFunc) ReportError(info ErrorInfo) { f(info) }
func (f ReporterFunc) ClearError()                {}

type nopReporter struct{}

func (nopReporter) ReportError(ErrorInfo) {}
func (nopReporter) ClearError()           {}

// ErrNoBody is returned when a successful completion response arrives
// without a body. It is a local condition and is never reported to the
// error sink.
var ErrNoBody = errors.New("response has no body")

// errCompletionFailed is the generic failure surfaced for non-2xx chat
// responses; the detailed cause goes to the Reporter.
var errCompletionFailed = errors.New("chat completion request failed")
