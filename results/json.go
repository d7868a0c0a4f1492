package results

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/parleylabs/gauntlet/engine"
)

// JSONWriter renders the full run, including transcripts and per-metric
// scores, as a single JSON document.
type JSONWriter struct {
	Indent bool
}

// jsonReport wraps the run with its computed summary so consumers do not
// have to re-tally statuses.
type jsonReport struct {
	Run     *engine.Run    `json:"run"`
	Summary engine.Summary `json:"summary"`
}

func (jw *JSONWriter) Write(w io.Writer, run *engine.Run) error {
	enc := json.NewEncoder(w)
	if jw.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(jsonReport{Run: run, Summary: run.Summarize()})
}

// LoadJSON reads a run previously written by JSONWriter, so a saved run can
// be re-rendered into other formats.
func LoadJSON(r io.Reader) (*engine.Run, error) {
	var report jsonReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding run report: %w", err)
	}
	if report.Run == nil {
		return nil, fmt.Errorf("report contains no run")
	}
	return report.Run, nil
}
