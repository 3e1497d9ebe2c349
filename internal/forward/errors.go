package forward

import "fmt"

// TransportError means no HTTP response was obtained: dial, TLS, timeout,
// cancellation or a failed body read.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is a non-2xx answer from the Forward API.
type HTTPStatusError struct {
	StatusCode int
	Body       string // truncated
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("forward api status %d", e.StatusCode)
	}
	return fmt.Sprintf("forward api status %d: %s", e.StatusCode, e.Body)
}

// ResponseShapeError is a missing or mistyped key in the response.
type ResponseShapeError struct {
	Path string // e.g. destination_response.body
	Msg  string
	Err  error
}

func (e *ResponseShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("response shape: %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("response shape: %s: %s", e.Path, e.Msg)
}

func (e *ResponseShapeError) Unwrap() error { return e.Err }

// DecodeError is invalid JSON at one of the unwrap layers.
type DecodeError struct {
	Layer string // "response", "destination_response.body" or "data"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Layer, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
