package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"epictech-chat/utils"
)

// Config controls the HTTP facade
type Config struct {
	Port int
	Mode string // gin mode: debug, release or test
	CORS []string
}

// NewRouter registers every route under /api
func NewRouter(h *Handler, cfg Config, logger logrus.FieldLogger) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(RequestID(), Logger(logger), Recovery(logger), CORS(cfg.CORS))

	api := r.Group("/api")
	api.GET("/health", h.Health)

	conversations := api.Group("/conversations")
	{
		conversations.GET("", h.ListConversations)
		conversations.POST("", h.CreateConversation)
		conversations.POST("/import", h.Import)
		conversations.GET("/:id", h.GetConversation)
		conversations.PUT("/:id", h.UpdateConversation)
		conversations.DELETE("/:id", h.DeleteConversation)
		conversations.GET("/:id/messages", h.ListMessages)
	}

	messages := api.Group("/messages")
	{
		messages.POST("", h.AddMessage)
		messages.DELETE("/:id", h.DeleteMessage)
		messages.GET("/:id/files", h.ListFiles)
	}

	api.GET("/files/:id", h.DownloadFile)
	api.GET("/export", h.Export)
	api.POST("/chat", h.Chat)
	api.GET("/search", h.Search)
	api.GET("/stats", h.Stats)

	r.NoRoute(func(c *gin.Context) {
		NotFound(c, "route not found")
	})

	return r
}

// Run serves router on cfg.Port until ctx is cancelled, then shuts down gracefully
func Run(ctx context.Context, router http.Handler, cfg Config, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	utils.SafeGo(logger, "http server", func() {
		defer close(errCh)
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
