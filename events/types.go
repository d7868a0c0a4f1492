package events

import "time"

// EventType identifies the type of event emitted during a run.
type EventType string

const (
	// EventTestStarted marks the start of a single test execution.
	EventTestStarted EventType = "test_started"
	// EventTranscriptUpdate is emitted after every turn appended to a transcript.
	EventTranscriptUpdate EventType = "transcript_update"
	// EventRetryError is emitted before each backoff sleep on a transient provider failure.
	EventRetryError EventType = "retry_error"
	// EventTestCompleted marks a test reaching a pass or fail status.
	EventTestCompleted EventType = "test_completed"
	// EventTestError marks a test ending with an unrecoverable error.
	EventTestError EventType = "test_error"
	// EventTestCancelled marks a test ending via cooperative cancellation.
	EventTestCancelled EventType = "test_cancelled"
	// EventRunCompleted marks every test in a run reaching a terminal status.
	EventRunCompleted EventType = "run_completed"
)

// Event is a single progress event delivered to listeners.
// Data carries an event-type-specific payload defined by the emitting package.
type Event struct {
	Type      EventType
	Timestamp time.Time
	RunID     string
	ResultID  string
	Data      any
}
