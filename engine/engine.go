// Package engine orchestrates suite runs: it fans test cases out to a
// bounded worker pool, drives each conversation, scores the finished
// transcripts, and persists results as they change state.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/parleylabs/gauntlet/conditions"
	"github.com/parleylabs/gauntlet/config"
	"github.com/parleylabs/gauntlet/driver"
	"github.com/parleylabs/gauntlet/events"
	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/judge"
	"github.com/parleylabs/gauntlet/logger"
	"github.com/parleylabs/gauntlet/metrics"
	"github.com/parleylabs/gauntlet/providers"
	"github.com/parleylabs/gauntlet/retry"
	"github.com/parleylabs/gauntlet/selfplay"
)

// Engine runs suites. It is safe to share one Engine across runs.
type Engine struct {
	registry *providers.Registry
	bus      *events.Bus
	store    ResultStore
	tracer   trace.Tracer

	mu     sync.Mutex
	active map[string]activeTest
}

// activeTest tracks one in-flight conversation for cancellation.
type activeTest struct {
	runID string
	state *driver.State
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus attaches an event bus for run observability.
func WithBus(b *events.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithStore attaches a result store. Without one, results live only in the
// returned Run.
func WithStore(s ResultStore) Option {
	return func(e *Engine) { e.store = s }
}

// New creates an Engine backed by the given provider registry.
func New(registry *providers.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		tracer:   otel.Tracer("github.com/parleylabs/gauntlet/engine"),
		active:   make(map[string]activeTest),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runModels holds the providers resolved once at run start.
type runModels struct {
	agent     providers.Provider
	simulator providers.Provider
	judge     providers.Provider
	modelName string
}

// Run executes every test in the suite and blocks until all results are
// terminal. Concurrency is bounded by the suite options; cancelling ctx
// cancels all in-flight tests.
func (e *Engine) Run(ctx context.Context, suite *config.Suite) (*Run, error) {
	opts := suite.Options.WithDefaults()

	models, err := e.resolveModels(suite, opts)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        newRunID(),
		SuiteName: suite.Agent.Name,
		StartedAt: time.Now(),
	}

	// Every result exists in the running state before anything is
	// dispatched, so observers and the store see the full shape of the run
	// up front.
	for i := range suite.Tests {
		tc := &suite.Tests[i]
		res := &RunResult{
			ID:        uuid.NewString(),
			RunID:     run.ID,
			TestID:    tc.ID,
			TestName:  tc.Name,
			Status:    ResultRunning,
			StartedAt: time.Now(),
		}
		run.Results = append(run.Results, res)
		e.save(ctx, res)
	}

	logger.Info("run started",
		"run_id", run.ID,
		"suite", run.SuiteName,
		"tests", len(suite.Tests),
		"concurrency", opts.Concurrency)

	semaphore := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup
	for i := range suite.Tests {
		wg.Add(1)
		go func(tc *config.TestCase, res *RunResult) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			e.executeTest(ctx, suite, opts, tc, res, models)
		}(&suite.Tests[i], run.Results[i])
	}
	wg.Wait()

	run.CompletedAt = time.Now()
	summary := run.Summarize()
	logger.Info("run completed",
		"run_id", run.ID,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errored", summary.Errored,
		"cancelled", summary.Cancelled)

	events.NewEmitter(e.bus, run.ID, "").Emit(events.EventRunCompleted, RunCompletedData{
		Summary:  summary,
		Duration: run.CompletedAt.Sub(run.StartedAt),
	})
	return run, nil
}

// CancelTest requests cooperative cancellation of one in-flight test.
// Returns false when the result is unknown or already terminal; a finished
// result is never pulled back out of its terminal status.
func (e *Engine) CancelTest(resultID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	at, ok := e.active[resultID]
	if !ok {
		return false
	}
	at.state.Cancel()
	return true
}

// CancelRun requests cancellation of every still-running test in the run
// and returns how many were flagged. Terminal results are untouched.
func (e *Engine) CancelRun(runID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, at := range e.active {
		if at.runID == runID {
			at.state.Cancel()
			n++
		}
	}
	return n
}

func (e *Engine) resolveModels(suite *config.Suite, opts config.RunOptions) (runModels, error) {
	agentHandle := opts.AgentModel
	if agentHandle.IsZero() {
		agentHandle = providers.ParseHandle(suite.Agent.DefaultModel)
	}
	agent, err := e.registry.Resolve(agentHandle)
	if err != nil {
		return runModels{}, fmt.Errorf("resolving agent model: %w", err)
	}

	simHandle := opts.SimulatorModel
	if simHandle.IsZero() {
		simHandle = agentHandle
	}
	simulator, err := e.registry.Resolve(simHandle)
	if err != nil {
		return runModels{}, fmt.Errorf("resolving simulator model: %w", err)
	}

	judgeHandle := opts.JudgeModel
	if judgeHandle.IsZero() {
		judgeHandle = agentHandle
	}
	judgeProvider, err := e.registry.Resolve(judgeHandle)
	if err != nil {
		return runModels{}, fmt.Errorf("resolving judge model: %w", err)
	}

	return runModels{
		agent:     agent,
		simulator: simulator,
		judge:     judgeProvider,
		modelName: agentHandle.Model,
	}, nil
}

func (e *Engine) executeTest(ctx context.Context, suite *config.Suite, opts config.RunOptions, tc *config.TestCase, res *RunResult, models runModels) {
	ctx, span := e.tracer.Start(ctx, "gauntlet.test", trace.WithAttributes(
		attribute.String("test.id", tc.ID),
		attribute.String("test.name", tc.Name),
	))
	defer span.End()

	emitter := events.NewEmitter(e.bus, res.RunID, res.ID)
	retrier := retry.New(opts.MaxRetries, retry.WithEmitter(emitter))
	d := driver.New(driver.Config{
		Graph:          suite.Agent,
		Test:           tc,
		Agent:          models.agent,
		Model:          models.modelName,
		UserGen:        selfplay.New(models.simulator, tc.UserPrompt, retrier),
		Evaluator:      conditions.New(conditions.WithModel(models.judge), conditions.WithRetrier(retrier)),
		Retrier:        retrier,
		Emitter:        emitter,
		MaxTurns:       opts.MaxTurns,
		ConversationID: res.ID,
	})

	e.mu.Lock()
	e.active[res.ID] = activeTest{runID: res.RunID, state: d.State()}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.active, res.ID)
		e.mu.Unlock()
	}()

	// Emitted only after the test is registered for cancellation, so a
	// listener reacting to test_started can cancel it immediately.
	emitter.Emit(events.EventTestStarted, TestStartedData{TestID: tc.ID, TestName: tc.Name})
	metrics.TestsStarted.Inc()

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()

	out := d.Run(runCtx)

	res.EndReason = out.EndReason
	res.Transcript = out.Transcript
	res.NodesVisited = out.NodesVisited
	res.ToolsCalled = out.ToolsCalled
	res.Duration = out.Duration
	res.CompletedAt = time.Now()

	switch out.Status {
	case driver.StatusCompleted, driver.StatusTimedOut:
		// Timed-out conversations still get judged: a transcript that ran
		// out of wall clock may already contain what the metrics need.
		e.score(ctx, suite, opts, tc, res, models, emitter)
	case driver.StatusCancelled:
		res.Status = ResultCancelled
	default:
		res.Status = ResultError
		if out.Err != nil {
			res.Error = out.Err.Error()
		}
	}

	e.save(ctx, res)
	metrics.TestsCompleted.WithLabelValues(string(res.Status)).Inc()
	span.SetAttributes(attribute.String("test.status", string(res.Status)))

	data := TestCompletedData{Status: res.Status, EndReason: res.EndReason, Error: res.Error}
	switch res.Status {
	case ResultError:
		emitter.Emit(events.EventTestError, data)
	case ResultCancelled:
		emitter.Emit(events.EventTestCancelled, data)
	default:
		emitter.Emit(events.EventTestCompleted, data)
	}
}

// score fills in metrics and the pass/fail status for a finished transcript.
func (e *Engine) score(ctx context.Context, suite *config.Suite, opts config.RunOptions, tc *config.TestCase, res *RunResult, models runModels, emitter *events.Emitter) {
	switch tc.Type {
	case config.TestTypeRule:
		res.Metrics = judge.EvaluateRules(tc, res.Transcript)
	default:
		j := judge.New(models.judge,
			retry.New(opts.MaxRetries, retry.WithEmitter(emitter)),
			judge.WithDefaultThreshold(suite.Agent.DefaultThreshold))
		scored, err := j.EvaluateMetrics(ctx, res.ID, res.Transcript, metricsFor(suite.Agent, tc))
		if err != nil {
			res.Status = ResultError
			res.Error = err.Error()
			return
		}
		res.Metrics = scored
	}

	if judge.AllPassed(res.Metrics) {
		res.Status = ResultPass
	} else {
		res.Status = ResultFail
	}
}

// metricsFor combines enabled graph-level metrics with the test's own.
func metricsFor(g *graph.AgentGraph, tc *config.TestCase) []graph.Metric {
	out := make([]graph.Metric, 0, len(g.GlobalMetrics)+len(tc.Metrics))
	for _, m := range g.GlobalMetrics {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return append(out, tc.Metrics...)
}

func (e *Engine) save(ctx context.Context, res *RunResult) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveResult(ctx, res); err != nil {
		logger.Error("persisting result failed",
			"result_id", res.ID,
			"status", res.Status,
			"error", err)
	}
}

func newRunID() string {
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
}
