package results

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/parleylabs/gauntlet/engine"
)

// JUnitWriter renders a run as JUnit XML for CI ingestion. Failed tests
// carry their failing metrics as the failure message; errored tests carry
// the error; cancelled tests are reported as skipped.
type JUnitWriter struct{}

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Errors   int              `xml:"errors,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitMessage `xml:"failure,omitempty"`
	Error     *junitMessage `xml:"error,omitempty"`
	Skipped   *junitMessage `xml:"skipped,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

func (jw *JUnitWriter) Write(w io.Writer, run *engine.Run) error {
	summary := run.Summarize()

	suite := junitTestSuite{
		Name:     run.SuiteName,
		Tests:    summary.Total,
		Failures: summary.Failed,
		Errors:   summary.Errored,
		Skipped:  summary.Cancelled,
		Time:     fmt.Sprintf("%.3f", run.CompletedAt.Sub(run.StartedAt).Seconds()),
	}

	for _, res := range run.Results {
		tc := junitTestCase{
			Name:      res.TestName,
			ClassName: run.SuiteName,
			Time:      fmt.Sprintf("%.3f", res.Duration.Seconds()),
		}
		switch res.Status {
		case engine.ResultFail:
			tc.Failure = &junitMessage{
				Message: fmt.Sprintf("ended with %s", res.EndReason),
				Body:    failedMetrics(res),
			}
		case engine.ResultError:
			tc.Error = &junitMessage{Message: res.Error}
		case engine.ResultCancelled:
			tc.Skipped = &junitMessage{Message: "cancelled"}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	doc := junitTestSuites{
		Tests:    summary.Total,
		Failures: summary.Failed,
		Errors:   summary.Errored,
		Suites:   []junitTestSuite{suite},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func failedMetrics(res *engine.RunResult) string {
	var lines []string
	for _, m := range res.Metrics {
		if !m.Passed {
			lines = append(lines, fmt.Sprintf("%s: %.2f < %.2f (%s)", m.Name, m.Score, m.Threshold, m.Reasoning))
		}
	}
	return strings.Join(lines, "\n")
}
