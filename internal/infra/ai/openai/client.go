package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
)

const defaultModel = "gpt-4o-mini"

type Client struct {
	*openai.Client
	Model string
}

// NewClient builds a chat completion client. An empty baseURL uses the
// public OpenAI endpoint.
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Complete(ctx context.Context, in ai.Request) (string, error) {
	model := in.Model
	if model == "" {
		model = c.Model
	}
	if model == "" {
		model = defaultModel
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(in.Temperature),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(in.Messages)),
	}
	for _, m := range in.Messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: role(m.Role), Content: m.Content})
	}
	if in.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// reasoning models (o1/o3/o4/gpt-5*) only accept MaxCompletionTokens
	if reasoning(model) {
		req.MaxCompletionTokens = in.MaxTokens
		req.Temperature = 0
	} else {
		req.MaxTokens = in.MaxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", classify(err))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ai.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func reasoning(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func role(r ai.Role) string {
	switch r {
	case ai.RoleSystem:
		return openai.ChatMessageRoleSystem
	case ai.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ai.ClassifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ai.ClassifyStatus(reqErr.HTTPStatusCode, err)
	}
	return err
}
