// Package models provides rove.Client implementations over LangChainGo,
// giving access to every provider LangChainGo supports without rove
// defining a wire protocol of its own.
package models

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"

	"github.com/jmelwick/rove"
)

// LangChainGo adapts an llms.Model to rove's Client interface.
//
//	llm, _ := openai.New(openai.WithToken(apiKey))
//	client := models.NewLangChainGo(llm).WithModelName("gpt-4o-mini")
type LangChainGo struct {
	model     llms.Model
	modelName string
}

// NewLangChainGo wraps the given llms.Model.
func NewLangChainGo(model llms.Model) *LangChainGo {
	return &LangChainGo{model: model}
}

// WithModelName sets the model name attached to response metadata.
// Returns the client for chaining.
func (c *LangChainGo) WithModelName(name string) *LangChainGo {
	c.modelName = name
	return c
}

// Unwrap returns the underlying llms.Model.
func (c *LangChainGo) Unwrap() llms.Model {
	return c.model
}

// Invoke implements rove.Client.
func (c *LangChainGo) Invoke(
	ctx context.Context,
	history *rove.History,
	opts ...rove.CallOption,
) (rove.Message, error) {
	resp, err := c.model.GenerateContent(ctx, history.Render(), convertOptions(opts)...)
	if err != nil {
		return rove.Message{}, &rove.RequestError{Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return rove.Message{}, &rove.ResponseError{Reason: "provider returned no choices"}
	}

	choice := resp.Choices[0]
	if choice.Content == "" {
		return rove.Message{}, &rove.ResponseError{Reason: "provider returned empty content"}
	}

	msg := rove.Message{Role: rove.RoleAssistant, Content: choice.Content}
	if c.modelName != "" || choice.StopReason != "" {
		msg.Metadata = map[string]string{}
		if c.modelName != "" {
			msg.Metadata["model"] = c.modelName
		}
		if choice.StopReason != "" {
			msg.Metadata["stop_reason"] = choice.StopReason
		}
	}
	return msg, nil
}

// Stream implements rove.Client. The provider call runs in a goroutine and
// feeds the returned Stream chunk by chunk. Closing the stream cancels the
// provider call, releasing the underlying connection.
func (c *LangChainGo) Stream(
	ctx context.Context,
	history *rove.History,
	opts ...rove.CallOption,
) (*rove.Stream, error) {
	callCtx, cancel := context.WithCancel(ctx)
	stream := rove.NewStream(cancel)

	streamingOpt := llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		if !stream.Send(string(chunk)) {
			// Consumer abandoned the stream; abort the provider call.
			return context.Canceled
		}
		return nil
	})

	callOpts := append(convertOptions(opts), streamingOpt)

	go func() {
		_, err := c.model.GenerateContent(callCtx, history.Render(), callOpts...)
		switch {
		case err == nil:
			stream.CloseSend(nil)
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			// The consumer closed the stream; callCtx was cancelled on its
			// behalf and the early stop is not an error.
			stream.CloseSend(nil)
		default:
			// Caller cancellation and deadlines end up here too: the
			// response is incomplete, so the stream must report failure
			// the same way an equivalent Invoke would.
			stream.CloseSend(&rove.RequestError{Err: err})
		}
	}()

	return stream, nil
}

// convertOptions maps rove call options onto LangChainGo call options.
// Unset fields are omitted so provider defaults apply.
func convertOptions(opts []rove.CallOption) []llms.CallOption {
	o := rove.ApplyCallOptions(opts...)

	var out []llms.CallOption
	if o.Temperature != nil {
		out = append(out, llms.WithTemperature(*o.Temperature))
	}
	if o.MaxTokens > 0 {
		out = append(out, llms.WithMaxTokens(o.MaxTokens))
	}
	if len(o.StopSequences) > 0 {
		out = append(out, llms.WithStopWords(o.StopSequences))
	}
	return out
}

// Compile-time check that LangChainGo implements rove.Client.
var _ rove.Client = (*LangChainGo)(nil)
