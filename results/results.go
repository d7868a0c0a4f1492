// Package results renders finished runs into report formats: JSON for
// machines, JUnit XML for CI systems, and Markdown for humans.
package results

import (
	"fmt"
	"io"
	"os"

	"github.com/parleylabs/gauntlet/engine"
)

// Writer renders a run into one output format.
type Writer interface {
	Write(w io.Writer, run *engine.Run) error
}

// ForFormat returns the writer for a format name: json, junit, or markdown.
func ForFormat(format string) (Writer, error) {
	switch format {
	case "json":
		return &JSONWriter{Indent: true}, nil
	case "junit":
		return &JUnitWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Save renders the run to a file in the given format.
func Save(run *engine.Run, path, format string) error {
	writer, err := ForFormat(format)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := writer.Write(f, run); err != nil {
		f.Close()
		return fmt.Errorf("writing %s report: %w", format, err)
	}
	return f.Close()
}
