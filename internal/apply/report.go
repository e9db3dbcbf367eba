package apply

import (
	"errors"

	"github.com/trethore/Mend/internal/match"
	"github.com/trethore/Mend/internal/patch"
)

// RunStatus is the whole-run contract handed to the caller.
type RunStatus int

const (
	// RunFullyApplied - every hunk Applied or Relocated
	RunFullyApplied RunStatus = iota

	// RunPartiallyApplied - at least one Conflicted hunk; the rest applied
	RunPartiallyApplied

	// RunParseFailed - the patch could not be parsed at all
	RunParseFailed
)

func (s RunStatus) String() string {
	switch s {
	case RunFullyApplied:
		return "fully applied"
	case RunPartiallyApplied:
		return "partially applied"
	case RunParseFailed:
		return "parse failed"
	default:
		return "unknown"
	}
}

// ConflictDetail carries what a human needs to resolve one skipped hunk.
type ConflictDetail struct {
	HunkIndex   int     `json:"hunk"`
	Header      string  `json:"header"`
	Reason      string  `json:"reason"` // "no_confident_match" or "conflicting_region"
	Message     string  `json:"message"`
	WindowStart int     `json:"window_start,omitempty"` // 1-based, inclusive
	WindowEnd   int     `json:"window_end,omitempty"`   // 1-based, inclusive
	BestScore   float64 `json:"best_score"`
	Threshold   float64 `json:"threshold"`
}

// HunkReport is the per-hunk summary line.
type HunkReport struct {
	HunkIndex  int     `json:"hunk"`
	Status     string  `json:"status"`
	Line       int     `json:"line,omitempty"` // 1-based matched line
	Confidence float64 `json:"confidence,omitempty"`
	Drift      int     `json:"drift,omitempty"` // offset from nominal position
}

// Report aggregates per-hunk outcomes for one file. It is a pure read of the
// outcome sequence; building it never touches the document.
type Report struct {
	Target     string           `json:"target"`
	Total      int              `json:"total"`
	Applied    int              `json:"applied"`
	Relocated  int              `json:"relocated"`
	Conflicted int              `json:"conflicted"`
	Hunks      []HunkReport     `json:"hunks"`
	Conflicts  []ConflictDetail `json:"conflicts,omitempty"`
}

// BuildReport summarizes outcomes against the hunks of fp. threshold is the
// acceptance threshold the run used, echoed into conflict details.
func BuildReport(target string, fp *patch.FilePatch, outcomes []Outcome, threshold float64) *Report {
	r := &Report{
		Target: target,
		Total:  len(outcomes),
		Hunks:  make([]HunkReport, 0, len(outcomes)),
	}

	for _, o := range outcomes {
		hr := HunkReport{HunkIndex: o.HunkIndex, Status: o.Status.String()}
		switch o.Status {
		case StatusApplied:
			r.Applied++
			hr.Line = o.Match.Start + 1
			hr.Confidence = o.Match.Confidence
		case StatusRelocated:
			r.Relocated++
			hr.Line = o.Match.Start + 1
			hr.Confidence = o.Match.Confidence
			hr.Drift = o.Match.Drift
		case StatusConflicted:
			r.Conflicted++
			r.Conflicts = append(r.Conflicts, conflictDetail(fp, o, threshold))
		}
		r.Hunks = append(r.Hunks, hr)
	}
	return r
}

func conflictDetail(fp *patch.FilePatch, o Outcome, threshold float64) ConflictDetail {
	d := ConflictDetail{
		HunkIndex: o.HunkIndex,
		Threshold: threshold,
	}
	if o.HunkIndex < len(fp.Hunks) {
		d.Header = fp.Hunks[o.HunkIndex].Header()
	}
	if o.Reason != nil {
		d.Message = o.Reason.Error()
	}

	var noMatch *match.NoMatchError
	var conflict *ConflictError
	switch {
	case errors.As(o.Reason, &noMatch):
		d.Reason = "no_confident_match"
		d.WindowStart = noMatch.WindowStart + 1
		d.WindowEnd = noMatch.WindowEnd
		d.BestScore = noMatch.BestScore
	case errors.As(o.Reason, &conflict):
		d.Reason = "conflicting_region"
		d.WindowStart = conflict.Start + 1
		d.WindowEnd = conflict.End
	}
	return d
}

// Status maps the report onto the run-level contract.
func (r *Report) Status() RunStatus {
	if r.Conflicted > 0 {
		return RunPartiallyApplied
	}
	return RunFullyApplied
}
