package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
)

const defaultModel = "gemini-2.0-flash"

type Client struct {
	client *genai.Client
	Model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{client: client, Model: model}, nil
}

func (c *Client) Complete(ctx context.Context, in ai.Request) (string, error) {
	model := in.Model
	if model == "" {
		model = c.Model
	}
	if model == "" {
		model = defaultModel
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(in.Temperature)),
	}
	if in.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(in.MaxTokens)
	}
	if in.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	var system, user []string
	for _, m := range in.Messages {
		if m.Role == ai.RoleSystem {
			system = append(system, m.Content)
		} else {
			user = append(user, m.Content)
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(strings.Join(user, "\n\n")), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", classify(err))
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "error 429") || strings.Contains(msg, "resource_exhausted"):
		return errors.Join(ai.ErrQuotaExceeded, err)
	case strings.Contains(msg, "error 5") || strings.Contains(msg, "unavailable"):
		return errors.Join(ai.ErrTransient, err)
	}
	return err
}
