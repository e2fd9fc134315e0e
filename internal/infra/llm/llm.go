// Package llm holds the provider neutral streaming contract implemented by the
// gemini and openai clients.
package llm

import "context"

// Roles understood by every provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one instruction sent to the model.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest describes a streaming generation call.
type CompletionRequest struct {
	Model           string
	Messages        []Message
	Temperature     float32
	MaxOutputTokens int
}

// Delta is one incremental output unit.
type Delta struct {
	Content      string
	FinishReason string
}

// Stream yields deltas in generation order. Recv returns io.EOF once the
// provider finished normally; any other error is a provider failure.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}

// StreamClient opens streaming completions against a remote provider.
type StreamClient interface {
	StreamCompletion(ctx context.Context, req CompletionRequest) (Stream, error)
}

// SplitMessages returns the concatenated system instruction and the remaining
// conversation, for providers that take the system prompt out of band.
func SplitMessages(messages []Message) (string, []Message) {
	var (
		system string
		rest   = make([]Message, 0, len(messages))
	)
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
