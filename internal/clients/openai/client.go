// Package openai wraps the OpenAI chat completions API for event period
// resolution and narrative generation.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

const DefaultModel = "gpt-3.5-turbo"

// ErrNoResponse is returned when a completion carries no choices
var ErrNoResponse = errors.New("no response from OpenAI")

// Config holds connection settings shared by every collaborator
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // Optional override (proxies, tests)
}

// Client is a thin chat completions client.
type Client struct {
	cli   oa.Client
	model string
	log   zerolog.Logger
}

// NewClient creates a chat completions client.
// Extra request options are appended after the configured ones.
func NewClient(cfg Config, log zerolog.Logger, extra ...option.RequestOption) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		cli:   oa.NewClient(opts...),
		model: model,
		log:   log.With().Str("client", "openai").Logger(),
	}
}

// complete sends a system + user prompt and returns the trimmed reply.
// jsonMode asks the model to answer with a JSON object.
func (c *Client) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	params := oa.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(system),
			oa.UserMessage(user),
		},
	}
	if jsonMode {
		params.ResponseFormat = oa.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoResponse
	}

	c.log.Debug().
		Str("model", c.model).
		Int64("total_tokens", resp.Usage.TotalTokens).
		Msg("Completion received")

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
