package results

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parleylabs/gauntlet/engine"
)

const timeRounding = time.Millisecond

// MarkdownWriter renders a human-readable run report: a summary table
// followed by one section per test with its metrics and node path.
type MarkdownWriter struct{}

var statusBadge = map[engine.ResultStatus]string{
	engine.ResultPass:      "✅ pass",
	engine.ResultFail:      "❌ fail",
	engine.ResultError:     "💥 error",
	engine.ResultCancelled: "🚫 cancelled",
	engine.ResultRunning:   "⏳ running",
}

func (mw *MarkdownWriter) Write(w io.Writer, run *engine.Run) error {
	summary := run.Summarize()

	var b strings.Builder
	fmt.Fprintf(&b, "# Test Run %s\n\n", run.ID)
	fmt.Fprintf(&b, "Suite: **%s**  \n", run.SuiteName)
	fmt.Fprintf(&b, "Duration: %s\n\n", run.CompletedAt.Sub(run.StartedAt).Round(timeRounding))

	fmt.Fprintf(&b, "| Total | Passed | Failed | Errored | Cancelled |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n\n",
		summary.Total, summary.Passed, summary.Failed, summary.Errored, summary.Cancelled)

	for _, res := range run.Results {
		fmt.Fprintf(&b, "## %s — %s\n\n", res.TestName, statusBadge[res.Status])
		if res.EndReason != "" {
			fmt.Fprintf(&b, "- End reason: `%s`\n", res.EndReason)
		}
		if len(res.NodesVisited) > 0 {
			path := make([]string, len(res.NodesVisited))
			for i, n := range res.NodesVisited {
				path[i] = string(n)
			}
			fmt.Fprintf(&b, "- Node path: `%s`\n", strings.Join(path, " -> "))
		}
		if len(res.ToolsCalled) > 0 {
			fmt.Fprintf(&b, "- Tools called: `%s`\n", strings.Join(res.ToolsCalled, "`, `"))
		}
		if res.Error != "" {
			fmt.Fprintf(&b, "- Error: %s\n", res.Error)
		}
		b.WriteString("\n")

		if len(res.Metrics) > 0 {
			fmt.Fprintf(&b, "| Metric | Score | Threshold | Passed | Notes |\n")
			fmt.Fprintf(&b, "|---|---|---|---|---|\n")
			for _, m := range res.Metrics {
				fmt.Fprintf(&b, "| %s | %.2f | %.2f | %v | %s |\n", m.Name, m.Score, m.Threshold, m.Passed, m.Reasoning)
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
