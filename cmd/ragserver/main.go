package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ragserver/internal/chunker"
	"ragserver/internal/config"
	"ragserver/internal/llm"
	"ragserver/internal/server"
	"ragserver/internal/service"
	"ragserver/internal/store"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragserver/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		logger.Fatal("missing API key", zap.String("env", cfg.LLM.APIKeyEnv))
	}
	llmClient, err := llm.NewClient(llm.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         apiKey,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		ChatModel:      cfg.LLM.ChatModel,
		Timeout:        time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	}, logger.Named("llm"))
	if err != nil {
		logger.Fatal("llm client init failed", zap.Error(err))
	}

	chunkStore, err := store.New(store.NewFileSnapshot(cfg.Storage.File), logger.Named("store"))
	if err != nil {
		logger.Fatal("chunk store init failed", zap.Error(err))
	}

	svc := service.NewRetrievalService(
		llmClient,
		llmClient,
		chunkStore,
		chunker.NewWindowChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap),
		cfg.Retrieval.DefaultK,
		logger.Named("service"),
	)

	srv, err := server.NewServer(svc, chunkStore, llmClient, logger.Named("http"), &server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Retrieval.MaxUploadBytes,
	})
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
