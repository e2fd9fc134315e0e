//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/smart-summary/internal/bootstrap"
	"github.com/yanqian/smart-summary/internal/domain/summarizer"
	"github.com/yanqian/smart-summary/internal/infra/config"
	httpiface "github.com/yanqian/smart-summary/internal/interface/http"
	"github.com/yanqian/smart-summary/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideSummaryConfig,
		provideStreamClient,
		provideTokenCounter,
		summarizer.NewService,
		httpiface.NewSummaryHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
