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

	"balanced-meal-planner/internal/api"
	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/auth"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/logger"
	"balanced-meal-planner/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Incomplete server config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.Env)
	defer logger.Sync(log)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Open storage and build the application
	application, closeApp, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer closeApp()

	dataDir := app.DataDir(cfg)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer)
	router := api.NewServer(application, tokens, log, dataDir).Router()

	// 3. Telegram Bot is optional
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg, application, log, dataDir)
		if err != nil {
			log.Fatal("Failed to initialize Telegram Bot", zap.Error(err))
		}
		router.POST(telegram.WebhookPath, bot.WebhookHandler())
	}

	// 4. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Menu planner server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}
	log.Info("Server exiting")
}
