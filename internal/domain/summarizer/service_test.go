package summarizer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/smart-summary/internal/domain/summarizer"
	"github.com/yanqian/smart-summary/internal/infra/llm"
	apperrors "github.com/yanqian/smart-summary/pkg/errors"
	"github.com/yanqian/smart-summary/pkg/metrics"
)

func TestStreamSummaryRelaysDeltasInOrder(t *testing.T) {
	client := &stubStreamClient{deltas: []string{"Paris", " is", " the capital."}}
	svc := newService(client)

	events := collect(t, svc, summarizer.Request{Text: "Where is the capital of France?", MaxLength: summarizer.DefaultMaxLength})

	require.Equal(t, []summarizer.StreamEvent{
		summarizer.SummaryChunk("Paris"),
		summarizer.SummaryChunk(" is"),
		summarizer.SummaryChunk(" the capital."),
	}, events)
	require.True(t, client.stream.closed)
}

func TestStreamSummaryPassesConfigAndPrompt(t *testing.T) {
	client := &stubStreamClient{deltas: []string{"ok"}}
	svc := newService(client)

	collect(t, svc, summarizer.Request{Text: "Article body", MaxLength: 321})

	req := client.lastRequest
	require.Equal(t, "test-model", req.Model)
	require.InDelta(t, 0.3, req.Temperature, 1e-6)
	require.Equal(t, 1000, req.MaxOutputTokens)
	require.Len(t, req.Messages, 2)
	require.Contains(t, req.Messages[0].Content, "approximately 321 words")
	require.True(t, strings.HasSuffix(req.Messages[1].Content, "Article body"))
}

func TestStreamSummarySkipsEmptyDeltas(t *testing.T) {
	client := &stubStreamClient{deltas: []string{"", "a", "", "b", ""}}
	events := collect(t, newService(client), summarizer.Request{Text: "x", MaxLength: 10})

	require.Equal(t, []summarizer.StreamEvent{summarizer.SummaryChunk("a"), summarizer.SummaryChunk("b")}, events)
}

func TestStreamSummaryProviderFailsMidStream(t *testing.T) {
	client := &stubStreamClient{
		deltas:  []string{"Paris"},
		failErr: errors.New("connection reset by peer"),
	}
	events := collect(t, newService(client), summarizer.Request{Text: "x", MaxLength: 10})

	require.Len(t, events, 2)
	require.Equal(t, summarizer.SummaryChunk("Paris"), events[0])
	require.Equal(t, summarizer.EventError, events[1].Type)
	require.Equal(t, "Error generating summary: connection reset by peer", events[1].Content)
}

func TestStreamSummaryProviderFailsAfterNChunks(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		n := n
		t.Run(fmt.Sprintf("after %d chunks", n), func(t *testing.T) {
			t.Parallel()
			deltas := make([]string, n)
			for i := range deltas {
				deltas[i] = "chunk"
			}
			client := &stubStreamClient{deltas: deltas, failErr: errors.New("quota")}
			events := collect(t, newService(client), summarizer.Request{Text: "x", MaxLength: 10})

			require.Len(t, events, n+1)
			for _, ev := range events[:n] {
				require.Equal(t, summarizer.EventSummaryChunk, ev.Type)
			}
			require.True(t, events[n].IsTerminal())
		})
	}
}

func TestStreamSummaryOpenFailureBecomesErrorEvent(t *testing.T) {
	client := &stubStreamClient{openErr: errors.New("gemini request failed: status=403: API key not valid")}
	svc := newService(client)

	stream, err := svc.StreamSummary(context.Background(), summarizer.Request{Text: "x", MaxLength: 10})
	require.NoError(t, err)

	var events []summarizer.StreamEvent
	for ev := range stream {
		events = append(events, ev)
	}
	require.Equal(t, []summarizer.StreamEvent{{
		Type:    summarizer.EventError,
		Content: "Error generating summary: gemini request failed: status=403: API key not valid",
	}}, events)
}

func TestStreamSummaryRejectsInvalidInput(t *testing.T) {
	client := &stubStreamClient{}
	svc := newService(client)

	_, err := svc.StreamSummary(context.Background(), summarizer.Request{Text: "   ", MaxLength: 10})
	require.EqualError(t, err, "Text cannot be empty")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = svc.StreamSummary(context.Background(), summarizer.Request{Text: strings.Repeat("a", 10001), MaxLength: 10})
	require.EqualError(t, err, "Text too long (max 10,000 characters)")

	require.Zero(t, client.calls)
}

func TestStreamSummaryStopsOnCancel(t *testing.T) {
	client := &stubStreamClient{endless: true}
	svc := newService(client)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := svc.StreamSummary(ctx, summarizer.Request{Text: "x", MaxLength: 10})
	require.NoError(t, err)

	first := <-stream
	require.Equal(t, summarizer.EventSummaryChunk, first.Type)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				require.True(t, client.stream.isClosed())
				return
			}
			require.NotEqual(t, summarizer.EventError, ev.Type)
		case <-deadline:
			t.Fatal("relay did not stop after cancellation")
		}
	}
}

func newService(client llm.StreamClient) summarizer.Service {
	cfg := summarizer.Config{Model: "test-model", Temperature: 0.3, MaxOutputTokens: 1000}
	return summarizer.NewService(cfg, client, metrics.WordCounter{}, newTestLogger())
}

func collect(t *testing.T, svc summarizer.Service, req summarizer.Request) []summarizer.StreamEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stream, err := svc.StreamSummary(ctx, req)
	require.NoError(t, err)

	var events []summarizer.StreamEvent
	for ev := range stream {
		events = append(events, ev)
	}
	return events
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubStreamClient struct {
	deltas  []string
	failErr error
	openErr error
	endless bool

	calls       int
	lastRequest llm.CompletionRequest
	stream      *stubStream
}

func (s *stubStreamClient) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (llm.Stream, error) {
	s.calls++
	s.lastRequest = req
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.stream = &stubStream{ctx: ctx, deltas: s.deltas, failErr: s.failErr, endless: s.endless}
	return s.stream, nil
}

type stubStream struct {
	ctx     context.Context
	deltas  []string
	failErr error
	endless bool
	idx     int

	mu     sync.Mutex
	closed bool
}

func (s *stubStream) Recv() (llm.Delta, error) {
	if err := s.ctx.Err(); err != nil {
		return llm.Delta{}, err
	}
	if s.endless {
		return llm.Delta{Content: "more"}, nil
	}
	if s.idx >= len(s.deltas) {
		if s.failErr != nil {
			return llm.Delta{}, s.failErr
		}
		return llm.Delta{}, io.EOF
	}
	delta := s.deltas[s.idx]
	s.idx++
	return llm.Delta{Content: delta}, nil
}

func (s *stubStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
