package report

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"forward-visa/internal/forward"
)

// Exchange records one forward call. The Authorization credential is never
// part of it; secrets inside the envelope are still unresolved placeholders.
type Exchange struct {
	StartedAt  time.Time        `json:"started_at"`
	ForwardURL string           `json:"forward_url"`
	Envelope   *forward.Request `json:"envelope"`

	StatusCode int     `json:"status_code,omitempty"`
	Attempts   int     `json:"attempts,omitempty"`
	DurationMs float64 `json:"duration_ms"`

	Passed bool            `json:"passed"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"error_kind,omitempty"`
}

// Fail records err and its class.
func (e *Exchange) Fail(err error) {
	e.Passed = false
	e.Error = err.Error()
	e.Kind = Kind(err)
}

// Kind names the class of a pipeline error.
func Kind(err error) string {
	var (
		te *forward.TransportError
		he *forward.HTTPStatusError
		se *forward.ResponseShapeError
		de *forward.DecodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &he):
		return "http_status"
	case errors.As(err, &se):
		return "response_shape"
	case errors.As(err, &de):
		return "decode"
	default:
		return "internal"
	}
}

func WriteJSON(w io.Writer, ex *Exchange) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(ex)
}
