package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"newsgenie/internal/config"
	"newsgenie/internal/handlers"
	"newsgenie/internal/pkg/logger"
	"newsgenie/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}

	log.Info("starting newsgenie", "environment", cfg.Environment, "port", cfg.HTTP.Port)

	geminiService, err := services.NewGeminiService(cfg.Gemini, log)
	if err != nil {
		log.Error("failed to initialize Gemini service", "error", err)
		os.Exit(1)
	}

	newsService, err := services.NewNewsService(cfg.News, log)
	if err != nil {
		log.Error("failed to initialize news service", "error", err)
		os.Exit(1)
	}

	webSearchService, err := services.NewWebSearchService(cfg.WebSearch, log)
	if err != nil {
		log.Error("failed to initialize web search service", "error", err)
		os.Exit(1)
	}

	sessionService, err := services.NewSessionService(cfg.Redis, log)
	if err != nil {
		log.Error("failed to initialize session service", "error", err)
		os.Exit(1)
	}
	defer sessionService.Close()

	orchestrator := services.NewOrchestrator(geminiService, newsService, webSearchService, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	chatHandler := handlers.NewChatHandler(orchestrator, sessionService, log)
	chatHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	log.Info("shutdown complete")
}
