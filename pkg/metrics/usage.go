package metrics

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// TokenUsage captures LLM token counts used to satisfy a request.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// TokenCounter estimates how many tokens a text occupies.
type TokenCounter interface {
	Count(text string) int
}

// Estimate builds a TokenUsage for a prompt and the completion streamed back.
func Estimate(counter TokenCounter, prompt []string, completion string) TokenUsage {
	if counter == nil {
		return TokenUsage{}
	}
	var usage TokenUsage
	for _, part := range prompt {
		usage.PromptTokens += counter.Count(part)
	}
	usage.CompletionTokens = counter.Count(completion)
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter resolves a BPE encoding for model. Models unknown to
// tiktoken (Gemini) share the cl100k_base vocabulary as an approximation.
func NewTokenCounter(model string) (TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load %s encoding: %w", fallbackEncoding, err)
		}
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// WordCounter approximates tokens from whitespace separated words. It is used
// when no BPE vocabulary can be loaded.
type WordCounter struct{}

// Count implements TokenCounter at roughly four tokens per three words.
func (WordCounter) Count(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}
