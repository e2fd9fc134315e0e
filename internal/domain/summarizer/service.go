package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yanqian/smart-summary/internal/infra/llm"
	apperrors "github.com/yanqian/smart-summary/pkg/errors"
	"github.com/yanqian/smart-summary/pkg/metrics"
)

const (
	systemPromptTemplate = "You are a helpful assistant that creates concise summaries. Provide summaries in approximately %d words or less. Focus on the main points and key insights. Make it clear and easy to understand."
	userPromptTemplate   = "Please summarize the following text:\n\n%s"
)

// Outcome is the terminal state of one relay.
type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeCompletedWithError Outcome = "completed_with_error"
	OutcomeCancelled          Outcome = "cancelled"
)

// Service exposes summarization capabilities.
type Service interface {
	// StreamSummary validates req and relays the provider output as events.
	// The channel is closed after the last event; provider failures arrive as
	// a single terminal error event, never as the returned error.
	StreamSummary(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

type service struct {
	cfg     Config
	client  llm.StreamClient
	counter metrics.TokenCounter
	logger  *slog.Logger
}

// NewService is a wire provider for the summarizer domain.
func NewService(cfg Config, client llm.StreamClient, counter metrics.TokenCounter, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		client:  client,
		counter: counter,
		logger:  logger.With("component", "summarizer.service"),
	}
}

func (s *service) StreamSummary(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, "summary provider is not configured", nil)
	}

	messages := buildMessages(req)
	out := make(chan StreamEvent)
	go s.relay(ctx, messages, out)
	return out, nil
}

func (s *service) relay(ctx context.Context, messages []llm.Message, out chan<- StreamEvent) {
	defer close(out)

	var (
		start      = time.Now()
		chunks     int
		completion strings.Builder
		outcome    = OutcomeCompleted
	)
	defer func() {
		prompt := make([]string, 0, len(messages))
		for _, msg := range messages {
			prompt = append(prompt, msg.Content)
		}
		usage := metrics.Estimate(s.counter, prompt, completion.String())
		s.logger.Info("summary stream finished",
			"outcome", outcome,
			"chunks", chunks,
			"duration_ms", time.Since(start).Milliseconds(),
			"prompt_tokens", usage.PromptTokens,
			"completion_tokens", usage.CompletionTokens,
		)
	}()

	emit := func(event StreamEvent) bool {
		select {
		case out <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		if ctx.Err() != nil {
			// The caller is gone; there is nobody left to read an error event.
			outcome = OutcomeCancelled
			return
		}
		outcome = OutcomeCompletedWithError
		s.logger.Warn("summary generation failed", "code", apperrors.CodeLLM, "chunks", chunks, "error", err)
		if !emit(ErrorEvent(err)) {
			outcome = OutcomeCancelled
		}
	}

	stream, err := s.client.StreamCompletion(ctx, llm.CompletionRequest{
		Model:           s.cfg.Model,
		Messages:        messages,
		Temperature:     s.cfg.Temperature,
		MaxOutputTokens: s.cfg.MaxOutputTokens,
	})
	if err != nil {
		fail(err)
		return
	}
	if stream == nil {
		fail(errors.New("provider returned no stream"))
		return
	}
	defer stream.Close()

	for {
		delta, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return
		}
		if recvErr != nil {
			fail(recvErr)
			return
		}
		if delta.Content == "" {
			continue
		}
		if !emit(SummaryChunk(delta.Content)) {
			outcome = OutcomeCancelled
			return
		}
		chunks++
		completion.WriteString(delta.Content)
	}
}

func validate(req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "Text cannot be empty", nil)
	}
	if utf8.RuneCountInString(req.Text) > MaxTextLength {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "Text too long (max 10,000 characters)", nil)
	}
	return nil
}

func buildMessages(req Request) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPromptTemplate, req.MaxLength)},
		{Role: llm.RoleUser, Content: fmt.Sprintf(userPromptTemplate, req.Text)},
	}
}
