package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/smart-summary/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *SummaryHandler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		requestIDMiddleware(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
		recoveryMiddleware(),
		corsMiddleware(cfg.CORS.Origins()),
	)

	router.GET("/", handler.Root)
	router.GET("/health", handler.Health)
	router.POST("/summarize", handler.Summarize)

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "not_found", "Not Found", nil))
	})

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
