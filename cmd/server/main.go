package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tksa/ai-receptionist/internal/ari"
	"github.com/tksa/ai-receptionist/internal/aiclient"
	"github.com/tksa/ai-receptionist/internal/classifier"
	"github.com/tksa/ai-receptionist/internal/collector"
	"github.com/tksa/ai-receptionist/internal/config"
	"github.com/tksa/ai-receptionist/internal/engine"
	"github.com/tksa/ai-receptionist/internal/observability"
	"github.com/tksa/ai-receptionist/internal/ttscache"
	"github.com/tksa/ai-receptionist/internal/webhook"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("ari_url", cfg.ARIURL()).
		Int("services", len(cfg.Services)).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("AI receptionist starting")

	aiClient := aiclient.New(aiclient.Config{
		APIKey:                     cfg.OpenAIAPIKey,
		ChatModel:                  cfg.ChatModel,
		TTSModel:                   cfg.TTSModel,
		TTSVoice:                   cfg.TTSVoice,
		STTModel:                   cfg.STTModel,
		STTLanguage:                cfg.STTLanguage,
		CircuitBreakerMaxFailures:  cfg.CircuitBreakerMaxFailures,
		CircuitBreakerResetTimeout: time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second,
		RetryMaxAttempts:           cfg.RetryMaxAttempts,
		RetryInitialBackoff:        time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
	})

	cache, err := ttscache.New(cfg.AudioCacheDir, aiClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize TTS cache")
	}

	clsfrEngine := classifier.New(aiClient, cfg.Services)
	msgCollector := collector.New(aiClient)
	notifier := webhook.New(cfg.WebhookURL)
	ariClient := ari.NewClient(cfg.ARIURL(), cfg.ARIUser, cfg.ARIPassword)

	dialogEngine := engine.New(ariClient, aiClient, cache, clsfrEngine, msgCollector, notifier, engine.Config{
		GreetingMessage: cfg.GreetingMessage,
		RingTimeout:     time.Duration(cfg.RingTimeout) * time.Second,
		RecordingsDir:   cfg.RecordingsDir,
		ARIApp:          cfg.ARIApp,
		STTLanguage:     cfg.STTLanguage,
	})

	subscriber := ari.NewSubscriber(cfg.ARIWebSocketURL(), dialogEngine.Dispatch)

	ctx, cancelSubscriber := context.WithCancel(context.Background())
	go subscriber.Run(ctx)

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 60*time.Second)
	cache.PreWarm(warmCtx, engine.PreWarmPhrases(cfg.GreetingMessage, cfg.Services))
	warmCancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	aiProviderCheck := func(ctx context.Context) (bool, error) {
		if cfg.OpenAIAPIKey == "" {
			return false, fmt.Errorf("OPENAI_API_KEY not configured")
		}
		return true, nil
	}
	callControlCheck := func(ctx context.Context) (bool, error) {
		// A 404 means the bus answered and simply has no such channel —
		// proof of reachability, which is all this check needs.
		if err := ariClient.Hangup(ctx, "__health_check__"); err != nil {
			if opErr, ok := err.(*ari.OperationError); ok && opErr.StatusCode == http.StatusNotFound {
				return true, nil
			}
			return false, err
		}
		return true, nil
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(aiProviderCheck, callControlCheck))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancelSubscriber()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited gracefully")
}
