package models

import (
	"errors"

	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig configures a client for any OpenAI-compatible endpoint.
// Model and APIKey are required; BaseURL is optional and defaults to the
// OpenAI API.
type OpenAIConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewOpenAI creates a client for an OpenAI-compatible API. Most hosted and
// self-hosted providers speak this protocol, so this is the usual entry
// point when not wrapping an llms.Model directly.
func NewOpenAI(cfg OpenAIConfig) (*LangChainGo, error) {
	if cfg.Model == "" {
		return nil, errors.New("models: model is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("models: api key is required")
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewLangChainGo(llm).WithModelName(cfg.Model), nil
}
