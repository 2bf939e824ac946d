package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/api"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/config"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/engine"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/storage"
)

func main() {
	// Setup Logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logger.WithField("service", "klinikai-api")

	// 1. Config
	if err := config.LoadDotEnv(); err != nil {
		entry.Fatalf("Failed to load .env: %v", err)
	}
	cfg := config.Load()
	configureLogger(logger, cfg.Log, entry)

	entry.Info("Starting KlinikAI prompt service")

	// 2. Storage
	store, err := storage.NewFileStorage(cfg.Storage.DataDir)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// 3. Engine
	eng, err := engine.NewEngine(cfg, entry, store)
	if err != nil {
		entry.Fatalf("Failed to initialize engine: %v", err)
	}
	if eng.Settings().APIKey == "" {
		entry.Warn("No API key configured; set LLM_API_KEY or PUT /api/v1/settings before sending prompts")
	}

	// 4. API Server
	server := api.NewServer(eng, entry)

	entry.WithFields(logrus.Fields{
		"provider": eng.LLM.Name(),
		"model":    eng.Settings().Model,
	}).Infof("KlinikAI API ready on %s", cfg.Server.Addr)
	if err := server.Start(cfg.Server.Addr); err != nil {
		entry.Fatal(err)
	}
}

func configureLogger(logger *logrus.Logger, cfg config.LogConfig, entry *logrus.Entry) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		entry.Warnf("Unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.File == "" {
		return
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}))
}
