package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coverbot/internal/completion"
	"coverbot/internal/config"
	"coverbot/internal/logging"
	"coverbot/internal/synthesis"
)

// runSynthesis runs one refinement session per target and prints each
// transcript as it finishes.
func runSynthesis(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cfg)

	if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Enabled, cfg.Logging.Level); err != nil {
		return fmt.Errorf("initializing file logging: %w", err)
	}

	units, err := collectTargets(args)
	if err != nil {
		return err
	}
	logging.Boot("coverbot %s: provider=%s model=%s targets=%d budget=%d",
		version, cfg.LLM.Provider, cfg.LLM.Model, len(units), cfg.Loop.MaxAttempts)

	client, err := completion.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}

	ctrl := synthesis.NewController(client, synthesis.LoopConfig{
		MaxAttempts:            cfg.Loop.MaxAttempts,
		KeepTestOnParseFailure: cfg.Loop.KeepTestOnParseFailure,
	})

	uncovered := 0
	for _, unit := range units {
		logger.Info("Starting session",
			zap.String("target", unit.Name),
			zap.Int("lines", unit.LineCount),
			zap.Int("budget", cfg.Loop.MaxAttempts))

		session, err := ctrl.RunSession(ctx, unit)
		if err != nil {
			return fmt.Errorf("session for %s: %w", unit.Name, err)
		}
		printSession(session)

		if session.Status != synthesis.StatusCovered {
			uncovered++
		}
	}

	if uncovered > 0 {
		return fmt.Errorf("%d of %d target(s) not fully covered", uncovered, len(units))
	}
	return nil
}

// applyFlagOverrides lets command-line flags win over file and
// environment configuration.
func applyFlagOverrides(cfg *config.Config) {
	if provider != "" {
		cfg.LLM.Provider = provider
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if attempts > 0 {
		cfg.Loop.MaxAttempts = attempts
	}
}
