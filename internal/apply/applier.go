package apply

import (
	"fmt"

	"github.com/trethore/Mend/internal/config"
	"github.com/trethore/Mend/internal/match"
	"github.com/trethore/Mend/internal/patch"
)

// Status classifies the outcome of one hunk.
type Status int

const (
	// StatusApplied - hunk matched at its drift-predicted position
	StatusApplied Status = iota

	// StatusRelocated - hunk matched above threshold but at a shifted position
	StatusRelocated

	// StatusConflicted - hunk could not be placed and was skipped
	StatusConflicted
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusRelocated:
		return "relocated"
	case StatusConflicted:
		return "conflicted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ConflictError reports that a hunk's resolved span overlaps a span already
// consumed by an earlier applied hunk. Positions are 0-based original
// document coordinates.
type ConflictError struct {
	HunkIndex int
	Start     int
	End       int
	OtherHunk int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("hunk %d resolves to lines %d-%d, overlapping the region already changed by hunk %d",
		e.HunkIndex+1, e.Start+1, e.End, e.OtherHunk+1)
}

// Outcome is the per-hunk result, in patch order.
type Outcome struct {
	HunkIndex int
	Status    Status
	Match     *match.Result // nil when conflicted
	Reason    error         // *match.NoMatchError or *ConflictError when conflicted
}

// Result is the full product of applying one file patch.
type Result struct {
	Lines    []string // final document lines
	Outcomes []Outcome
	Drift    int // net line drift over the whole run
}

// span is a consumed region of the original document, kept for overlap
// checks in drift-independent coordinates.
type span struct {
	start, end int // 0-based, half-open
	hunk       int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// Applier owns the working buffer and the drift counter for the duration of
// one run. Hunks are located and applied strictly in patch order; scoring
// inside a single hunk's window may be parallel, but no concurrent mutation
// of the document ever happens.
type Applier struct {
	locator *match.Locator
	log     *Logger
}

// New builds an Applier from tunables. log may be nil.
func New(opts *config.Options, log *Logger) *Applier {
	if opts == nil {
		opts = config.Default()
	}
	if log == nil {
		log = NopLogger()
	}
	scorer := match.NewScorer(opts.Matching.AnchorConfidence)
	return &Applier{
		locator: match.NewLocator(
			scorer,
			opts.Matching.WindowRadius,
			opts.Matching.MinConfidence,
			opts.Matching.ScoreWorkers,
			log.Zap(),
		),
		log: log,
	}
}

// Threshold returns the locator's acceptance threshold, for reporting.
func (a *Applier) Threshold() float64 {
	return a.locator.MinConfidence
}

// Apply runs every hunk of fp against the document lines and returns the
// final lines plus one Outcome per hunk. Failed hunks never abort the run
// and never contribute drift; src itself is not modified.
func (a *Applier) Apply(src []string, fp *patch.FilePatch) *Result {
	working := make([]string, len(src))
	copy(working, src)

	res := &Result{Outcomes: make([]Outcome, 0, len(fp.Hunks))}
	drift := 0
	floor := 0
	consumed := make([]span, 0, len(fp.Hunks))

	for i := range fp.Hunks {
		h := &fp.Hunks[i]

		loc, err := a.locator.Locate(working, h, i, drift, floor)
		if err != nil {
			a.log.HunkConflicted(i, err)
			res.Outcomes = append(res.Outcomes, Outcome{
				HunkIndex: i,
				Status:    StatusConflicted,
				Reason:    err,
			})
			continue
		}

		// Overlap is judged in original-document coordinates so spans from
		// hunks applied at different drifts compare consistently.
		orig := span{start: loc.Start - drift, end: loc.Start - drift + loc.Length, hunk: i}
		if prev, ok := overlapping(consumed, orig); ok {
			conflict := &ConflictError{
				HunkIndex: i,
				Start:     orig.start,
				End:       orig.end,
				OtherHunk: prev.hunk,
			}
			a.log.HunkConflicted(i, conflict)
			res.Outcomes = append(res.Outcomes, Outcome{
				HunkIndex: i,
				Status:    StatusConflicted,
				Reason:    conflict,
			})
			continue
		}

		replacement := h.ReplacementLines()
		working = splice(working, loc.Start, loc.Length, replacement)

		drift += len(replacement) - loc.Length
		floor = loc.Start + len(replacement)
		consumed = append(consumed, orig)

		status := StatusApplied
		if loc.Drift != 0 {
			status = StatusRelocated
		}
		a.log.HunkApplied(i, loc.Start, loc.Confidence, loc.Drift, status == StatusRelocated)

		locCopy := loc
		res.Outcomes = append(res.Outcomes, Outcome{
			HunkIndex: i,
			Status:    status,
			Match:     &locCopy,
		})
	}

	res.Lines = working
	res.Drift = drift
	return res
}

// splice replaces length lines of src at start with repl, building a fresh
// slice so earlier buffers stay intact.
func splice(src []string, start, length int, repl []string) []string {
	out := make([]string, 0, len(src)-length+len(repl))
	out = append(out, src[:start]...)
	out = append(out, repl...)
	out = append(out, src[start+length:]...)
	return out
}

func overlapping(spans []span, s span) (span, bool) {
	for _, o := range spans {
		if o.overlaps(s) {
			return o, true
		}
	}
	return span{}, false
}
