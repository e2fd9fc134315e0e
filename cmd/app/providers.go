package main

import (
	"fmt"
	"log/slog"

	"github.com/yanqian/smart-summary/internal/domain/summarizer"
	"github.com/yanqian/smart-summary/internal/infra/config"
	"github.com/yanqian/smart-summary/internal/infra/llm"
	"github.com/yanqian/smart-summary/internal/infra/llm/gemini"
	"github.com/yanqian/smart-summary/internal/infra/llm/openai"
	"github.com/yanqian/smart-summary/pkg/metrics"
)

func provideSummaryConfig(cfg *config.Config) summarizer.Config {
	return summarizer.Config{
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	}
}

func provideStreamClient(cfg *config.Config, logger *slog.Logger) (llm.StreamClient, error) {
	logger.Info("llm provider selected", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(cfg.LLM.APIKey(), cfg.LLM.BaseURL, cfg.LLM.Model)
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.LLM.APIKey(), cfg.LLM.BaseURL, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) metrics.TokenCounter {
	counter, err := metrics.NewTokenCounter(cfg.LLM.Model)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, estimating tokens from word count", "model", cfg.LLM.Model, "error", err)
		return metrics.WordCounter{}
	}
	return counter
}
