package rove

import (
	"context"
	"fmt"
)

// Client is rove's LLM interface. It abstracts one request/response exchange
// with a model provider; agents never touch the provider wire format.
//
// Both methods send the full ordered history. Invoke blocks until the
// complete response is available; Stream returns immediately and yields the
// response as chunks.
//
// Error contract:
//   - *RequestError: transport, auth, or timeout failure reaching the provider
//   - *ResponseError: the provider answered with a malformed or empty payload
type Client interface {
	// Invoke sends the history and returns exactly one assistant Message
	// containing the complete response.
	Invoke(ctx context.Context, history *History, opts ...CallOption) (Message, error)

	// Stream sends the history and returns a Stream of response chunks.
	// The concatenation of all chunks equals the content an equivalent
	// Invoke call would have returned.
	//
	// The caller must drain or Close the returned Stream; Close releases
	// the underlying connection when the stream is abandoned early.
	Stream(ctx context.Context, history *History, opts ...CallOption) (*Stream, error)
}

// CallOptions holds per-call generation settings. Zero values mean "use the
// provider default" and are not sent over the wire.
type CallOptions struct {
	Temperature   *float64
	MaxTokens     int
	StopSequences []string
}

// CallOption mutates CallOptions.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *CallOptions) { o.Temperature = &t }
}

// WithMaxTokens caps the number of tokens generated.
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) { o.MaxTokens = n }
}

// WithStopSequences sets sequences that stop generation.
func WithStopSequences(seqs ...string) CallOption {
	return func(o *CallOptions) { o.StopSequences = seqs }
}

// ApplyCallOptions folds a list of options into a CallOptions struct.
func ApplyCallOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RequestError reports a failure to reach the provider: network errors,
// authentication failures, timeouts. It is surfaced to the caller and never
// retried internally.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("rove: llm request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ResponseError reports a malformed or empty provider payload.
type ResponseError struct {
	Reason string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("rove: llm response invalid: %s", e.Reason)
}
