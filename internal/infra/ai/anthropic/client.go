package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
)

const (
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 2000
	jsonInstruction  = "\n\nRespond with a single JSON object only, without markdown fences."
)

type Client struct {
	client anthropic.Client
	Model  string
}

// NewClient builds a Messages API client. The SDK's own retries are off so
// the pipeline's retry policy is the only one in play.
func NewClient(apiKey, baseURL, model string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{client: anthropic.NewClient(opts...), Model: model}
}

func (c *Client) Complete(ctx context.Context, in ai.Request) (string, error) {
	model := in.Model
	if model == "" {
		model = c.Model
	}
	if model == "" {
		model = defaultModel
	}
	maxTokens := int64(in.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var system []string
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(in.Temperature),
	}
	for _, m := range in.Messages {
		switch m.Role {
		case ai.RoleSystem:
			system = append(system, m.Content)
		case ai.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	sys := strings.Join(system, "\n\n")
	if in.JSON {
		sys += jsonInstruction
	}
	if sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", classify(err))
	}
	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", ai.ErrEmptyResponse
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		// 529 is Anthropic's overloaded status
		return ai.ClassifyStatus(apiErr.StatusCode, err)
	}
	return err
}
