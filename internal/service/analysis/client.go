// Package analysis streams natural-language descriptions of images from an
// OpenAI-compatible multimodal chat completion endpoint.
package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"detectboard/internal/config"
	"detectboard/internal/logger"
	"detectboard/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUnauthorized means the endpoint rejected the configured credential.
var ErrUnauthorized = fmt.Errorf("%w: analysis credential rejected", model.ErrSetup)

// Chunk is one piece of streamed text. A chunk carrying Err is the last one.
type Chunk struct {
	Text string
	Err  error
}

// Client talks to the remote analysis service.
type Client struct {
	api       *openai.Client
	model     string
	prompt    string
	maxTokens int
	logger    *logger.Logger
}

// NewClient builds a client from the configuration. A missing API key is a
// setup failure.
func NewClient(cfg *config.Config, logger *logger.Logger) (*Client, error) {
	return NewClientWithHTTP(cfg, logger, nil)
}

// NewClientWithHTTP is NewClient with a custom HTTP client.
func NewClientWithHTTP(cfg *config.Config, logger *logger.Logger, httpClient *http.Client) (*Client, error) {
	if cfg.AnalysisAPIKey == "" {
		return nil, fmt.Errorf("%w: ANALYSIS_API_KEY is not set", model.ErrSetup)
	}

	apiConfig := openai.DefaultConfig(cfg.AnalysisAPIKey)
	if cfg.AnalysisBaseURL != "" {
		apiConfig.BaseURL = cfg.AnalysisBaseURL
	}
	if httpClient != nil {
		apiConfig.HTTPClient = httpClient
	}

	return &Client{
		api:       openai.NewClientWithConfig(apiConfig),
		model:     cfg.AnalysisModel,
		prompt:    cfg.AnalysisPrompt,
		maxTokens: cfg.AnalysisMaxTokens,
		logger:    logger,
	}, nil
}

// DefaultPrompt is the prompt used when the caller sends none.
func (c *Client) DefaultPrompt() string {
	return c.prompt
}

// Analyze sends the image and prompt and returns a channel of text chunks.
// The channel is closed when the stream ends, fails or ctx is cancelled.
// Errors opening the stream are returned directly and never retried.
func (c *Client) Analyze(ctx context.Context, image []byte, mime, prompt string) (<-chan Chunk, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: no image supplied", model.ErrInference)
	}
	if prompt == "" {
		prompt = c.prompt
	}
	if mime == "" {
		mime = http.DetectContentType(image)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))
	request := openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Stream:    true,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, request)
	if err != nil {
		c.logger.Error("Analysis request failed: %v", err)
		return nil, classify(err)
	}

	chunks := make(chan Chunk)
	go c.pump(ctx, stream, chunks)
	return chunks, nil
}

// pump forwards stream deltas to out until the stream ends.
func (c *Client) pump(ctx context.Context, stream *openai.ChatCompletionStream, out chan<- Chunk) {
	defer close(out)
	defer stream.Close()

	received := 0
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			c.logger.Info("Analysis stream finished (%d chunks)", received)
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Warning("Analysis stream cancelled after %d chunks", received)
				return
			}
			c.logger.Error("Analysis stream failed: %v", err)
			select {
			case out <- Chunk{Err: classify(err)}:
			case <-ctx.Done():
			}
			return
		}

		for _, choice := range response.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			select {
			case out <- Chunk{Text: choice.Delta.Content}:
				received++
			case <-ctx.Done():
				c.logger.Warning("Analysis stream cancelled after %d chunks", received)
				return
			}
		}
	}
}

// classify maps API failures onto the two error kinds callers distinguish.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return fmt.Errorf("%w: %v", model.ErrInference, err)
}

// Collect drains a chunk channel into one string.
func Collect(chunks <-chan Chunk) (string, error) {
	var text string
	for chunk := range chunks {
		if chunk.Err != nil {
			return text, chunk.Err
		}
		text += chunk.Text
	}
	return text, nil
}
