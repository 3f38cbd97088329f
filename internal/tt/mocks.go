// Package tt holds test doubles shared by rove's test suites.
package tt

import (
	"context"

	"github.com/jmelwick/rove"
)

// Client is a scripted rove.Client. Responses and errors are queued in call
// order; every call captures the history it was given so tests can assert
// on the exact prompt sequence.
//
// Stream yields the same scripted content as Invoke, cut into ChunkSize
// pieces, so the stream/invoke reconstruction property holds by
// construction.
type Client struct {
	responses []string
	errs      []error
	callCount int

	// ChunkSize controls how scripted content is split by Stream.
	// Defaults to 4 bytes.
	ChunkSize int

	// CapturedHistories stores a snapshot of the messages passed to each
	// call, in call order.
	CapturedHistories [][]rove.Message
}

// NewClient creates an empty scripted client.
func NewClient() *Client {
	return &Client{ChunkSize: 4}
}

// AddResponse queues a response content for the next call.
func (c *Client) AddResponse(content string) *Client {
	c.responses = append(c.responses, content)
	c.errs = append(c.errs, nil)
	return c
}

// AddError queues an error for the next call.
func (c *Client) AddError(err error) *Client {
	c.responses = append(c.responses, "")
	c.errs = append(c.errs, err)
	return c
}

// CallCount returns how many calls (Invoke or Stream) were made.
func (c *Client) CallCount() int {
	return c.callCount
}

// next pops the next scripted response. When the script is exhausted the
// last entry repeats, which keeps loop-bound tests (that never terminate)
// simple to script.
func (c *Client) next(history *rove.History) (string, error) {
	c.CapturedHistories = append(c.CapturedHistories, history.Messages())

	idx := c.callCount
	c.callCount++
	if len(c.responses) == 0 {
		return "", nil
	}
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], c.errs[idx]
}

// Invoke implements rove.Client.
func (c *Client) Invoke(
	_ context.Context,
	history *rove.History,
	_ ...rove.CallOption,
) (rove.Message, error) {
	content, err := c.next(history)
	if err != nil {
		return rove.Message{}, err
	}
	return rove.Message{Role: rove.RoleAssistant, Content: content}, nil
}

// Stream implements rove.Client.
func (c *Client) Stream(
	_ context.Context,
	history *rove.History,
	_ ...rove.CallOption,
) (*rove.Stream, error) {
	content, err := c.next(history)
	if err != nil {
		return nil, err
	}

	size := c.ChunkSize
	if size <= 0 {
		size = 4
	}

	stream := rove.NewStream(nil)
	go func() {
		for i := 0; i < len(content); i += size {
			end := i + size
			if end > len(content) {
				end = len(content)
			}
			if !stream.Send(content[i:end]) {
				break
			}
		}
		stream.CloseSend(nil)
	}()
	return stream, nil
}

// Compile-time check that Client implements rove.Client.
var _ rove.Client = (*Client)(nil)
