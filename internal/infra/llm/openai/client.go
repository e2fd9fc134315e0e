package openai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"github.com/yanqian/smart-summary/internal/infra/llm"
)

const defaultModel = "gpt-4o-mini"

// Client streams chat completions through the official OpenAI SDK.
type Client struct {
	client openai.Client
	model  string
}

// NewClient builds an OpenAI client. SDK retries are disabled: a failed
// generation ends the summary stream instead of being replayed.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key cannot be empty")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{client: openai.NewClient(opts...), model: model}, nil
}

// StreamCompletion opens a chat completion stream. The SDK connects lazily, so
// transport and auth failures surface from the first Recv.
func (c *Client) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (llm.Stream, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    toMessages(req.Messages),
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	return &Stream{stream: c.client.Chat.Completions.NewStreaming(ctx, params)}, nil
}

func toMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		default:
			out = append(out, openai.AssistantMessage(msg.Content))
		}
	}
	return out
}

// Stream adapts the SDK event stream to llm.Stream.
type Stream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

// Recv returns the next content delta, skipping chunks without choices.
func (s *Stream) Recv() (llm.Delta, error) {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		return llm.Delta{Content: choice.Delta.Content, FinishReason: choice.FinishReason}, nil
	}
	if err := s.stream.Err(); err != nil {
		return llm.Delta{}, err
	}
	return llm.Delta{}, io.EOF
}

// Close releases the response body.
func (s *Stream) Close() error {
	return s.stream.Close()
}

var _ llm.StreamClient = (*Client)(nil)
