// Package llm wraps the OpenAI API for JSON chat completions and audio
// transcription.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ehr/chartnotes/internal/platform/metrics"
)

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("llm returned no content")

// Config configures the client. BaseURL is optional and mainly used to point
// at a compatible gateway or a test server.
type Config struct {
	APIKey          string
	Model           string
	TranscribeModel string
	BaseURL         string
	Temperature     float32
	Timeout         time.Duration
	Retry           RetryConfig
}

type Client struct {
	api    *openai.Client
	cfg    Config
	logger zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = openai.Whisper1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger.Info().
		Str("model", cfg.Model).
		Str("transcribe_model", cfg.TranscribeModel).
		Msg("llm client initialized")

	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg, logger: logger}
}

// CompleteJSON asks the model for a JSON object and returns the raw content.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var content string
	err := retry(ctx, c.cfg.Retry, c.logger, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("create completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return permanentError{ErrEmptyResponse}
		}
		content = resp.Choices[0].Message.Content
		c.logger.Debug().
			Int("prompt_tokens", resp.Usage.PromptTokens).
			Int("completion_tokens", resp.Usage.CompletionTokens).
			Msg("llm completion generated")
		return nil
	})
	metrics.LLMRequests.WithLabelValues("completion", outcome(err)).Inc()
	if err != nil {
		return "", err
	}
	return content, nil
}

// Transcribe converts an audio file to text. The audio is buffered so that
// retries can resend it.
func (c *Client) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 4*c.cfg.Timeout)
	defer cancel()

	var text string
	err = retry(ctx, c.cfg.Retry, c.logger, func() error {
		resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
			Model:    c.cfg.TranscribeModel,
			FilePath: fileName,
			Reader:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("create transcription: %w", err)
		}
		text = resp.Text
		return nil
	})
	metrics.LLMRequests.WithLabelValues("transcription", outcome(err)).Inc()
	if err != nil {
		return "", err
	}
	return text, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
