package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/smart-summary/internal/infra/llm"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
	roleModel      = "model"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type generateContentRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// generateContentResponse is one SSE frame of streamGenerateContent.
type generateContentResponse struct {
	Candidates []struct {
		Content      *content `json:"content"`
		FinishReason string   `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

// Client performs streaming requests against the Gemini API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient constructs a Gemini client. The API key is mandatory.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = 60 * time.Second
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// No overall timeout: a summary stream lives as long as the caller reads it.
		httpClient: &http.Client{Transport: transport},
	}, nil
}

// StreamCompletion starts a streamGenerateContent call.
func (c *Client) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (llm.Stream, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request gemini stream: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, statusError(resp.StatusCode, payload)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1024), 1<<20)

	return &Stream{scanner: scanner, closer: resp.Body}, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req llm.CompletionRequest) (*http.Request, error) {
	payload, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	return httpReq, nil
}

func buildRequest(req llm.CompletionRequest) generateContentRequest {
	system, rest := llm.SplitMessages(req.Messages)
	out := generateContentRequest{
		Contents: make([]content, 0, len(rest)),
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	}
	if system != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	for _, msg := range rest {
		role := msg.Role
		if role != llm.RoleUser {
			role = roleModel
		}
		out.Contents = append(out.Contents, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}
	return out
}

func statusError(status int, payload []byte) error {
	if apiErr := decodeAPIError(payload); apiErr != nil && apiErr.Message != "" {
		return fmt.Errorf("gemini request failed: status=%d: %s", status, apiErr.Message)
	}
	return fmt.Errorf("gemini request failed: status=%d body=%s", status, strings.TrimSpace(string(payload)))
}

// decodeAPIError accepts both the object and the single element array forms
// Gemini uses for error bodies.
func decodeAPIError(payload []byte) *apiError {
	var single generateContentResponse
	if err := json.Unmarshal(payload, &single); err == nil && single.Error != nil {
		return single.Error
	}
	var list []generateContentResponse
	if err := json.Unmarshal(payload, &list); err == nil && len(list) > 0 && list[0].Error != nil {
		return list[0].Error
	}
	return nil
}

// Stream wraps a streaming HTTP response.
type Stream struct {
	scanner *bufio.Scanner
	closer  io.Closer
	closed  bool
}

// Recv reads the next SSE frame and returns its text delta.
func (s *Stream) Recv() (llm.Delta, error) {
	for {
		if !s.scanner.Scan() {
			s.Close()
			if err := s.scanner.Err(); err != nil {
				return llm.Delta{}, fmt.Errorf("read gemini stream: %w", err)
			}
			return llm.Delta{}, io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var frame generateContentResponse
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			s.Close()
			return llm.Delta{}, fmt.Errorf("decode gemini stream chunk: %w", err)
		}
		delta, err := frameDelta(frame)
		if err != nil {
			s.Close()
			return llm.Delta{}, err
		}
		return delta, nil
	}
}

func frameDelta(frame generateContentResponse) (llm.Delta, error) {
	if frame.Error != nil {
		return llm.Delta{}, fmt.Errorf("gemini stream error: %s", frame.Error.Message)
	}
	if len(frame.Candidates) == 0 {
		if frame.PromptFeedback != nil && frame.PromptFeedback.BlockReason != "" {
			return llm.Delta{}, fmt.Errorf("gemini blocked the prompt: %s", frame.PromptFeedback.BlockReason)
		}
		return llm.Delta{}, nil
	}
	candidate := frame.Candidates[0]
	var builder strings.Builder
	if candidate.Content != nil {
		for _, p := range candidate.Content.Parts {
			builder.WriteString(p.Text)
		}
	}
	return llm.Delta{Content: builder.String(), FinishReason: candidate.FinishReason}, nil
}

// Close closes the underlying response body once.
func (s *Stream) Close() error {
	if s.closed || s.closer == nil {
		return nil
	}
	s.closed = true
	return s.closer.Close()
}

var _ llm.StreamClient = (*Client)(nil)
