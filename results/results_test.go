package results

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/gauntlet/driver"
	"github.com/parleylabs/gauntlet/engine"
	"github.com/parleylabs/gauntlet/graph"
	"github.com/parleylabs/gauntlet/judge"
)

func sampleRun() *engine.Run {
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return &engine.Run{
		ID:          "run-20260801-100000-abcd1234",
		SuiteName:   "support-bot",
		StartedAt:   started,
		CompletedAt: started.Add(42 * time.Second),
		Results: []*engine.RunResult{
			{
				ID:           "r1",
				RunID:        "run-20260801-100000-abcd1234",
				TestName:     "happy path",
				Status:       engine.ResultPass,
				EndReason:    driver.EndNodeTerminal,
				NodesVisited: []graph.NodeID{"intake", "resolve"},
				ToolsCalled:  []string{"lookup_order"},
				Metrics: []judge.MetricResult{
					{Name: "politeness", Passed: true, Score: 0.9, Threshold: 0.7, Reasoning: "Consistently polite."},
				},
				Duration: 12 * time.Second,
			},
			{
				ID:        "r2",
				RunID:     "run-20260801-100000-abcd1234",
				TestName:  "refund demanded",
				Status:    engine.ResultFail,
				EndReason: driver.EndMaxTurns,
				Metrics: []judge.MetricResult{
					{Name: "compensation", Passed: false, Score: 0.3, Threshold: 0.7, Reasoning: "Never offered anything."},
				},
				Duration: 20 * time.Second,
			},
			{
				ID:       "r3",
				RunID:    "run-20260801-100000-abcd1234",
				TestName: "provider down",
				Status:   engine.ResultError,
				Error:    "resolving agent model: provider \"x\" not registered",
			},
		},
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{Indent: true}).Write(&buf, sampleRun()))

	var report struct {
		Run     engine.Run     `json:"run"`
		Summary engine.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "support-bot", report.Run.SuiteName)
	assert.Equal(t, engine.Summary{Total: 3, Passed: 1, Failed: 1, Errored: 1}, report.Summary)
	require.Len(t, report.Run.Results, 3)
	assert.Equal(t, "happy path", report.Run.Results[0].TestName)
}

func TestJUnitWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JUnitWriter{}).Write(&buf, sampleRun()))

	var doc junitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 3, doc.Tests)
	assert.Equal(t, 1, doc.Failures)
	assert.Equal(t, 1, doc.Errors)
	require.Len(t, doc.Suites, 1)

	suite := doc.Suites[0]
	assert.Equal(t, "support-bot", suite.Name)
	require.Len(t, suite.Cases, 3)

	assert.Nil(t, suite.Cases[0].Failure)
	require.NotNil(t, suite.Cases[1].Failure)
	assert.Contains(t, suite.Cases[1].Failure.Body, "compensation")
	require.NotNil(t, suite.Cases[2].Error)
	assert.Contains(t, suite.Cases[2].Error.Message, "not registered")
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, sampleRun()))
	out := buf.String()

	assert.Contains(t, out, "# Test Run run-20260801-100000-abcd1234")
	assert.Contains(t, out, "| 3 | 1 | 1 | 1 | 0 |")
	assert.Contains(t, out, "## happy path")
	assert.Contains(t, out, "`intake -> resolve`")
	assert.Contains(t, out, "| politeness | 0.90 | 0.70 | true |")
	assert.Contains(t, out, "Never offered anything.")
}

func TestForFormat(t *testing.T) {
	for _, format := range []string{"json", "junit", "markdown", "md"} {
		w, err := ForFormat(format)
		require.NoError(t, err, format)
		assert.NotNil(t, w)
	}
	_, err := ForFormat("pdf")
	require.Error(t, err)
}
