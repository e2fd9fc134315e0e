package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/smart-summary/internal/domain/summarizer"
	apperrors "github.com/yanqian/smart-summary/pkg/errors"
)

const (
	serviceName  = "smart-summary-api"
	errorPrefix  = "Error generating summary: "
	streamCType  = "text/plain; charset=utf-8"
	bannerString = "Smart Summary API is running!"
)

// SummaryHandler wires the HTTP transport to the summarizer domain.
type SummaryHandler struct {
	summarizerSvc summarizer.Service
	logger        *slog.Logger
}

// NewSummaryHandler constructs the HTTP handler.
func NewSummaryHandler(svc summarizer.Service, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{
		summarizerSvc: svc,
		logger:        logger.With("component", "http.handler"),
	}
}

// Root serves the liveness banner.
func (h *SummaryHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": bannerString})
}

// Health reports the service as healthy while the process is serving.
func (h *SummaryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
}

// Summarize validates the request and streams the summary as framed events.
// Once the 200 header is sent, failures only appear as an error event.
func (h *SummaryHandler) Summarize(c *gin.Context) {
	var body summarizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, NewHTTPError(http.StatusUnprocessableEntity, "invalid_request", errMessage(err), err))
		return
	}
	req, err := body.toRequest()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusUnprocessableEntity, "invalid_request", errMessage(err), err))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, err := h.summarizerSvc.StreamSummary(ctx, req)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeInvalidInput) {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, apperrors.MessageOf(err), err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "summarize_failed", errorPrefix+errMessage(err), err))
		return
	}

	headers := c.Writer.Header()
	headers.Set("Content-Type", streamCType)
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	for event := range stream {
		frame, err := event.Frame()
		if err != nil {
			h.logger.Error("marshal stream event failed", "error", err)
			continue
		}
		if _, err := c.Writer.Write(frame); err != nil {
			// Client went away; the deferred cancel stops the relay and the provider call.
			h.logger.Info("summary stream aborted by client", "request_id", c.GetString(requestIDKey), "error", err)
			return
		}
		c.Writer.Flush()
	}
}

// summarizeBody is the wire shape of POST /summarize. text is required and
// max_length may be omitted but not null.
type summarizeBody struct {
	Text      *string         `json:"text"`
	MaxLength json.RawMessage `json:"max_length"`
}

func (b summarizeBody) toRequest() (summarizer.Request, error) {
	req := summarizer.NewRequest()
	if b.Text == nil {
		return req, errors.New("text: field required")
	}
	req.Text = *b.Text
	if len(b.MaxLength) == 0 {
		return req, nil
	}
	if bytes.Equal(bytes.TrimSpace(b.MaxLength), []byte("null")) {
		return req, errors.New("max_length: must be an integer")
	}
	if err := json.Unmarshal(b.MaxLength, &req.MaxLength); err != nil {
		return req, fmt.Errorf("max_length: must be an integer: %w", err)
	}
	return req, nil
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
