package engine

import (
	"context"
	"time"

	"github.com/parleylabs/gauntlet/driver"
	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/judge"
)

// ResultStatus is the lifecycle status of one test result.
type ResultStatus string

const (
	ResultRunning   ResultStatus = "running"
	ResultPass      ResultStatus = "pass"
	ResultFail      ResultStatus = "fail"
	ResultError     ResultStatus = "error"
	ResultCancelled ResultStatus = "cancelled"
)

// Terminal reports whether the status is final. A terminal result is never
// updated again.
func (s ResultStatus) Terminal() bool {
	return s != ResultRunning && s != ""
}

// RunResult is the record of one test execution within a run. Every result
// is created in the running state and persisted before its conversation is
// dispatched, so observers can enumerate in-flight work.
type RunResult struct {
	ID       string `json:"id"`
	RunID    string `json:"run_id"`
	TestID   string `json:"test_id"`
	TestName string `json:"test_name"`

	Status    ResultStatus     `json:"status"`
	EndReason driver.EndReason `json:"end_reason,omitempty"`

	Transcript   []driver.Turn        `json:"transcript,omitempty"`
	NodesVisited []graph.NodeID       `json:"nodes_visited,omitempty"`
	ToolsCalled  []string             `json:"tools_called,omitempty"`
	Metrics      []judge.MetricResult `json:"metrics,omitempty"`
	Error        string               `json:"error,omitempty"`

	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Run is one execution of a suite.
type Run struct {
	ID          string       `json:"id"`
	SuiteName   string       `json:"suite_name"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Results     []*RunResult `json:"results"`
}

// Summary tallies a run's results by terminal status.
type Summary struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Errored   int `json:"errored"`
	Cancelled int `json:"cancelled"`
}

// Summarize tallies the run's results.
func (r *Run) Summarize() Summary {
	s := Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status {
		case ResultPass:
			s.Passed++
		case ResultFail:
			s.Failed++
		case ResultError:
			s.Errored++
		case ResultCancelled:
			s.Cancelled++
		}
	}
	return s
}

// ResultStore persists results as they change state. Implementations live
// in the statestore package; the engine only needs this narrow sink.
type ResultStore interface {
	SaveResult(ctx context.Context, result *RunResult) error
	GetResult(ctx context.Context, id string) (*RunResult, error)
	ListResults(ctx context.Context, runID string) ([]*RunResult, error)
}

// TestStartedData is the payload of a test_started event.
type TestStartedData struct {
	TestID   string `json:"test_id"`
	TestName string `json:"test_name"`
}

// TestCompletedData is the payload of test_completed, test_error, and
// test_cancelled events.
type TestCompletedData struct {
	Status    ResultStatus     `json:"status"`
	EndReason driver.EndReason `json:"end_reason,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// RunCompletedData is the payload of a run_completed event.
type RunCompletedData struct {
	Summary  Summary       `json:"summary"`
	Duration time.Duration `json:"duration"`
}
