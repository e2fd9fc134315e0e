package summarizer

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/smart-summary/internal/infra/llm"
	apperrors "github.com/yanqian/smart-summary/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{name: "plain text", text: "Go makes backend services easier."},
		{name: "empty", text: "", wantErr: "Text cannot be empty"},
		{name: "whitespace only", text: "  \n\t ", wantErr: "Text cannot be empty"},
		{name: "exactly at limit", text: strings.Repeat("a", MaxTextLength)},
		{name: "one over limit", text: strings.Repeat("a", MaxTextLength+1), wantErr: "Text too long (max 10,000 characters)"},
		{name: "limit counts characters not bytes", text: strings.Repeat("é", MaxTextLength)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validate(Request{Text: tt.text, MaxLength: DefaultMaxLength})
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
			require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
		})
	}
}

func TestBuildMessages(t *testing.T) {
	messages := buildMessages(Request{Text: "Some long article.", MaxLength: 42})

	require.Len(t, messages, 2)
	require.Equal(t, llm.RoleSystem, messages[0].Role)
	require.Contains(t, messages[0].Content, "approximately 42 words or less")
	require.Equal(t, llm.RoleUser, messages[1].Role)
	require.Equal(t, "Please summarize the following text:\n\nSome long article.", messages[1].Content)
}

func TestNewRequestDefaults(t *testing.T) {
	req := NewRequest()
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hello"}`), &req))
	require.Equal(t, DefaultMaxLength, req.MaxLength)

	req = NewRequest()
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hello","max_length":7}`), &req))
	require.Equal(t, 7, req.MaxLength)
}

func TestStreamEventFrame(t *testing.T) {
	tests := []struct {
		name  string
		event StreamEvent
		want  string
	}{
		{
			name:  "summary chunk",
			event: SummaryChunk("Paris"),
			want:  "data: {\"type\":\"summary_chunk\",\"content\":\"Paris\"}\n\n",
		},
		{
			name:  "error event",
			event: ErrorEvent(errors.New("quota exceeded")),
			want:  "data: {\"type\":\"error\",\"content\":\"Error generating summary: quota exceeded\"}\n\n",
		},
		{
			name:  "content with newline is escaped",
			event: SummaryChunk("a\nb"),
			want:  "data: {\"type\":\"summary_chunk\",\"content\":\"a\\nb\"}\n\n",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frame, err := tt.event.Frame()
			require.NoError(t, err)
			require.Equal(t, tt.want, string(frame))
		})
	}
}

func TestErrorEventIsTerminal(t *testing.T) {
	require.True(t, ErrorEvent(nil).IsTerminal())
	require.Equal(t, "Error generating summary: unknown error", ErrorEvent(nil).Content)
	require.False(t, SummaryChunk("x").IsTerminal())
}
