package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/models"
)

// GPTConfig configures the LLM topic assistant.
type GPTConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// GPTClassifier asks a chat model to label input that the keyword rules could
// not place. It only ever answers with one of the known topics.
type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	topics      []models.Topic
	logger      *zap.Logger
}

func NewGPTClassifier(cfg GPTConfig, logger *zap.Logger) *GPTClassifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 10
	}

	topics := make([]models.Topic, 0, len(DefaultRules()))
	for _, r := range DefaultRules() {
		topics = append(topics, r.Topic)
	}

	return &GPTClassifier{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		topics:      topics,
		logger:      logger,
	}
}

// Topic returns the topic the model picked for text. On any failure it
// returns TopicFallback together with the error.
func (c *GPTClassifier) Topic(ctx context.Context, text string) (models.Topic, error) {
	if strings.TrimSpace(text) == "" {
		return models.TopicFallback, nil
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: c.prompt(),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: text,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Warn("Failed to get topic from model", zap.Error(err))
		return models.TopicFallback, fmt.Errorf("topic completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.TopicFallback, errors.New("topic completion: empty response")
	}

	answer := resp.Choices[0].Message.Content
	topic := c.parse(answer)
	c.logger.Debug("Model topic",
		zap.String("answer", answer),
		zap.String("topic", string(topic)))
	return topic, nil
}

func (c *GPTClassifier) prompt() string {
	names := make([]string, len(c.topics))
	for i, t := range c.topics {
		names[i] = string(t)
	}
	return fmt.Sprintf(`You route messages sent to a Spanish-language real estate chat assistant that sells land plots.
Reply with exactly one word from this list: %s, %s.
Use %q when the message fits none of them.`,
		strings.Join(names, ", "), models.TopicFallback, models.TopicFallback)
}

func (c *GPTClassifier) parse(answer string) models.Topic {
	word := strings.ToLower(strings.TrimSpace(answer))
	word = strings.Trim(word, " \t\n\"'`.,;:!")
	for _, t := range c.topics {
		if word == string(t) {
			return t
		}
	}
	return models.TopicFallback
}
