// Package llm holds the SQL-generation boundary. The engine hands over a
// formatted schema string and a natural-language question and receives one
// candidate SQL statement back; prompt persona and instruction text are
// owned by the endpoint configuration, not by this package.
package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SQLGenerator produces a candidate SQL statement for a question against a
// formatted schema.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, formattedSchema, question string) (string, error)
}

// OpenAIGenerator calls an OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	breaker *CircuitBreaker
}

// Config holds the generator's endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewOpenAIGenerator creates a generator against the configured endpoint.
// BaseURL may point at any OpenAI-compatible server.
func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		breaker: NewCircuitBreaker(DefaultBreakerConfig()),
	}
}

// GenerateSQL asks the endpoint for a single SQL statement. The response is
// stripped of markdown fencing since chat models wrap code blocks even when
// told not to.
func (g *OpenAIGenerator) GenerateSQL(ctx context.Context, formattedSchema, question string) (string, error) {
	if err := g.breaker.Allow(); err != nil {
		return "", err
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You translate questions into a single SQL SELECT statement for the schema provided. Reply with SQL only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Schema:\n%s\n\nQuestion: %s", formattedSchema, question),
			},
		},
	})
	if err != nil {
		g.breaker.RecordFailure()
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	g.breaker.RecordSuccess()

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return stripCodeFences(resp.Choices[0].Message.Content), nil
}

var _ SQLGenerator = (*OpenAIGenerator)(nil)

// stripCodeFences removes a surrounding markdown code block, with or
// without a language tag.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		// Drop the language tag line ("sql", "postgresql", ...).
		firstLine := strings.TrimSpace(text[:newline])
		if len(firstLine) <= 12 && !strings.ContainsAny(firstLine, " \t") {
			text = text[newline+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
