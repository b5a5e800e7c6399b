package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"auditgraph/internal/citation"
	"auditgraph/internal/config"
	"auditgraph/internal/llm"
	"auditgraph/internal/registry"
	"auditgraph/internal/review"
	"auditgraph/internal/store"
)

// load reads .env and the project config, then installs the stderr logger.
// The config file is only required when --config was given explicitly.
func (o *rootOptions) load(cmd *cobra.Command) (*config.ProjectConfig, *slog.Logger, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(o.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// app is the wired review stack for one CLI invocation.
type app struct {
	cfg     *config.ProjectConfig
	logger  *slog.Logger
	laws    *registry.Registry
	store   store.Store
	reviews *review.Service
	chat    *llm.Chatter
}

func newRegistry(cfg *config.ProjectConfig, logger *slog.Logger) *registry.Registry {
	return registry.New(cfg.Registry.Path,
		registry.WithAliases(cfg.Registry.Aliases),
		registry.WithLogger(logger),
	)
}

func newLLMClient(cfg *config.ProjectConfig, logger *slog.Logger) *llm.Client {
	return llm.NewClient(llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Timeout:    time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.LLM.MaxRetries,
	}, logger)
}

func newApp(ctx context.Context, cfg *config.ProjectConfig, logger *slog.Logger) *app {
	laws := newRegistry(cfg, logger)

	client := newLLMClient(cfg, logger)
	extractor := llm.NewExtractor(client, cfg.LLM.ExtractionModel, cfg.LLM.TemperatureStructured)
	analyzer := llm.NewAnalyzer(client, cfg.LLM.AnalysisModel, cfg.LLM.TemperatureCreative)

	opts := []review.Option{review.WithLogger(logger)}
	st := openStore(ctx, cfg, logger)
	if st != nil {
		opts = append(opts, review.WithStore(st))
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		laws:    laws,
		store:   st,
		reviews: review.NewService(extractor, analyzer, citation.NewEnricher(laws, logger), opts...),
		chat:    llm.NewChatter(client, cfg.LLM.ChatModel, cfg.LLM.TemperatureChat),
	}
}

func (a *app) Close(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("store: close failed", "error", err)
	}
}

// readScenario reads the scenario from the named file, or stdin for "-" or
// no argument.
func readScenario(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading scenario: %w", err)
	}
	scenario := strings.TrimSpace(string(data))
	if scenario == "" {
		return "", fmt.Errorf("scenario is empty")
	}
	return scenario, nil
}
