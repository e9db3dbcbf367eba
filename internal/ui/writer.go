package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/trethore/Mend/internal/apply"
)

// Color definitions for consistent output
var (
	infoColor      = color.New(color.FgWhite, color.Faint)
	errorColor     = color.New(color.FgRed)
	warnColor      = color.New(color.FgYellow)
	appliedColor   = color.New(color.FgGreen)
	relocatedColor = color.New(color.FgYellow)
	addColor       = color.New(color.FgGreen)
	delColor       = color.New(color.FgRed)
)

// Writer provides formatted console output with optional quiet and JSON
// modes. Progress goes to stderr so stdout stays clean for dry-run output.
type Writer struct {
	quiet    bool
	jsonMode bool
	stderr   io.Writer
	stdout   io.Writer
}

// NewWriter creates a Writer bound to the process streams.
func NewWriter() *Writer {
	return &Writer{stderr: os.Stderr, stdout: os.Stdout}
}

// SetQuiet suppresses everything except errors and dry-run output.
func (w *Writer) SetQuiet(quiet bool) { w.quiet = quiet }

// SetJSONMode switches the report to structured JSON on stdout.
func (w *Writer) SetJSONMode(on bool) { w.jsonMode = on }

// Infof prints a progress line.
func (w *Writer) Infof(format string, args ...any) {
	if w.quiet || w.jsonMode {
		return
	}
	infoColor.Fprintf(w.stderr, format+"\n", args...)
}

// Warnf prints a warning line.
func (w *Writer) Warnf(format string, args ...any) {
	if w.quiet || w.jsonMode {
		return
	}
	warnColor.Fprintf(w.stderr, format+"\n", args...)
}

// Errorf prints an error line. Never suppressed.
func (w *Writer) Errorf(format string, args ...any) {
	errorColor.Fprintf(w.stderr, format+"\n", args...)
}

// PrintDiff writes a unified diff to stdout with +/- lines colored.
func (w *Writer) PrintDiff(diff string) {
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			addColor.Fprintln(w.stdout, line)
		case strings.HasPrefix(line, "-"):
			delColor.Fprintln(w.stdout, line)
		default:
			fmt.Fprintln(w.stdout, line)
		}
	}
}

// jsonReport is the envelope for --json output.
type jsonReport struct {
	Status string        `json:"status"`
	Report *apply.Report `json:"report"`
}

// PrintReport renders the application report: one line per hunk, then the
// summary and any conflicts needing manual attention.
func (w *Writer) PrintReport(r *apply.Report) {
	if w.jsonMode {
		out, err := json.MarshalIndent(jsonReport{Status: r.Status().String(), Report: r}, "", "  ")
		if err == nil {
			fmt.Fprintln(w.stdout, string(out))
		}
		return
	}
	if w.quiet {
		return
	}

	for _, h := range r.Hunks {
		switch h.Status {
		case "applied":
			appliedColor.Fprintf(w.stderr, "  hunk %d: applied at line %d (confidence %.2f)\n",
				h.HunkIndex+1, h.Line, h.Confidence)
		case "relocated":
			relocatedColor.Fprintf(w.stderr, "  hunk %d: relocated to line %d (offset %+d, confidence %.2f)\n",
				h.HunkIndex+1, h.Line, h.Drift, h.Confidence)
		case "conflicted":
			errorColor.Fprintf(w.stderr, "  hunk %d: conflicted\n", h.HunkIndex+1)
		}
	}

	fmt.Fprintf(w.stderr, "%s: %d/%d hunks applied (%d relocated, %d conflicted)\n",
		r.Target, r.Applied+r.Relocated, r.Total, r.Relocated, r.Conflicted)

	for _, c := range r.Conflicts {
		errorColor.Fprintf(w.stderr, "\nconflict: hunk %d  %s\n", c.HunkIndex+1, c.Header)
		fmt.Fprintf(w.stderr, "  reason: %s\n", c.Message)
		if c.WindowStart > 0 {
			fmt.Fprintf(w.stderr, "  searched lines %d-%d, best score %.2f (threshold %.2f)\n",
				c.WindowStart, c.WindowEnd, c.BestScore, c.Threshold)
		}
		fmt.Fprintf(w.stderr, "  resolve manually, then re-run on the remaining hunks\n")
	}
}
