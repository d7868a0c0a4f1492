package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parleylabs/gauntlet/config"
	"github.com/parleylabs/gauntlet/engine"
	"github.com/parleylabs/gauntlet/events"
	"github.com/parleylabs/gauntlet/logger"
	"github.com/parleylabs/gauntlet/mocks"
	"github.com/parleylabs/gauntlet/providers"
	"github.com/parleylabs/gauntlet/results"
	"github.com/parleylabs/gauntlet/statestore"
)

var (
	runSuitePath   string
	runMockPath    string
	runConcurrency int
	runOutputPath  string
	runFormat      string
	runRedisAddr   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a test suite",
	Example: `  gauntlet run --suite suite.yaml
  gauntlet run --suite suite.yaml --mock mocks.yaml --output report.md --format markdown
  gauntlet run --suite suite.yaml --redis localhost:6379`,
	RunE: func(cmd *cobra.Command, args []string) error {
		suite, err := config.LoadSuite(runSuitePath)
		if err != nil {
			return err
		}
		if runConcurrency > 0 {
			suite.Options.Concurrency = runConcurrency
		}

		registry, err := buildRegistry()
		if err != nil {
			return err
		}
		defer registry.Close()

		opts := []engine.Option{engine.WithBus(progressBus())}
		if runRedisAddr != "" {
			store := statestore.NewRedisStore(runRedisAddr)
			if err := store.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("connecting to redis at %s: %w", runRedisAddr, err)
			}
			defer store.Close()
			opts = append(opts, engine.WithStore(store))
		} else {
			opts = append(opts, engine.WithStore(statestore.NewMemoryStore()))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		run, err := engine.New(registry, opts...).Run(ctx, suite)
		if err != nil {
			return err
		}

		if runOutputPath != "" {
			if err := results.Save(run, runOutputPath, runFormat); err != nil {
				return err
			}
			logger.Info("report written", "path", runOutputPath, "format", runFormat)
		}

		summary := run.Summarize()
		fmt.Printf("\n%d tests: %d passed, %d failed, %d errored, %d cancelled\n",
			summary.Total, summary.Passed, summary.Failed, summary.Errored, summary.Cancelled)
		if summary.Failed+summary.Errored > 0 {
			return fmt.Errorf("%d of %d tests did not pass", summary.Failed+summary.Errored, summary.Total)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runSuitePath, "suite", "s", "", "suite YAML file (required)")
	runCmd.Flags().StringVarP(&runMockPath, "mock", "m", "", "mock responses YAML file; runs offline against scripted models")
	runCmd.Flags().IntVarP(&runConcurrency, "concurrency", "c", 0, "override suite concurrency")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "write a report to this path")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "json", "report format: json, junit, or markdown")
	runCmd.Flags().StringVar(&runRedisAddr, "redis", "", "persist results to redis at this address")
	_ = runCmd.MarkFlagRequired("suite")
}

// buildRegistry wires the providers available to this run: the scripted
// mock provider when --mock is set, and an OpenAI-compatible provider when
// an API key is configured.
func buildRegistry() (*providers.Registry, error) {
	registry := providers.NewRegistry()

	if runMockPath != "" {
		repo, err := mocks.Load(runMockPath)
		if err != nil {
			return nil, err
		}
		registry.Register(providers.NewMockProviderWithRepository("mock", "scripted", repo))
	}

	if apiKey := viper.GetString("openai-api-key"); apiKey != "" {
		var opts []providers.OpenAIOption
		if baseURL := viper.GetString("openai-base-url"); baseURL != "" {
			opts = append(opts, providers.WithBaseURL(baseURL))
		}
		registry.Register(providers.NewOpenAIProvider("openai", "gpt-4o-mini", apiKey, opts...))
	}

	if len(registry.List()) == 0 {
		return nil, fmt.Errorf("no providers configured: pass --mock or set OPENAI_API_KEY")
	}
	return registry, nil
}

// progressBus prints test lifecycle transitions as they happen.
func progressBus() *events.Bus {
	bus := events.NewBus()
	bus.Subscribe(events.EventTestStarted, func(e *events.Event) {
		if data, ok := e.Data.(engine.TestStartedData); ok {
			logger.Info("test started", "test", data.TestName, "result_id", e.ResultID)
		}
	})
	completed := func(e *events.Event) {
		if data, ok := e.Data.(engine.TestCompletedData); ok {
			logger.Info("test finished",
				"result_id", e.ResultID,
				"status", data.Status,
				"end_reason", data.EndReason)
		}
	}
	bus.Subscribe(events.EventTestCompleted, completed)
	bus.Subscribe(events.EventTestError, completed)
	bus.Subscribe(events.EventTestCancelled, completed)
	return bus
}
