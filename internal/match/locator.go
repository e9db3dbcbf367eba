package match

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/trethore/Mend/internal/patch"
)

// Result describes where a hunk was located in the source document.
type Result struct {
	HunkIndex  int
	Start      int     // 0-based matched start line
	Length     int     // matched span length (len of expected lines)
	Confidence float64 // scorer confidence in [0,1]
	Drift      int     // signed offset from the drift-predicted position
}

// NoMatchError reports that no candidate position cleared the confidence
// threshold. It carries enough detail for the conflict report.
type NoMatchError struct {
	HunkIndex   int
	WindowStart int // 0-based, inclusive
	WindowEnd   int // 0-based, exclusive
	BestScore   float64
	BestStart   int
	Threshold   float64
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no confident match for hunk %d: best score %.2f at line %d (threshold %.2f, searched lines %d-%d)",
		e.HunkIndex+1, e.BestScore, e.BestStart+1, e.Threshold, e.WindowStart+1, e.WindowEnd)
}

// Locator finds the best-matching position for a hunk within a search window
// around its drift-adjusted nominal position.
type Locator struct {
	Radius        int     // search radius in lines around the predicted start
	MinConfidence float64 // minimum score to accept a match
	Workers       int     // parallel candidate scoring; <=1 means sequential

	scorer *Scorer
	log    *zap.Logger
}

// NewLocator builds a Locator around the given scorer. A nil logger
// disables tracing.
func NewLocator(scorer *Scorer, radius int, minConfidence float64, workers int, log *zap.Logger) *Locator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{
		Radius:        radius,
		MinConfidence: minConfidence,
		Workers:       workers,
		scorer:        scorer,
		log:           log,
	}
}

// Locate searches for h within src. drift is the running line offset
// accumulated from previously applied hunks; floor is the end of the last
// applied replacement and biases the prediction forward, keeping hunks in
// patch order without forbidding backward matches outright (the caller's
// consumed-span check handles those). The source is read-only here.
func (l *Locator) Locate(src []string, h *patch.Hunk, hunkIndex, drift, floor int) (Result, error) {
	if h.IsPureInsertion() {
		// A zero-old-count header names the line the insertion follows
		// ("@@ -3,0 +4,1 @@" inserts after line 3), so the new lines land
		// at index OldStart, not OldStart-1.
		predicted := h.OldStart + drift
		if predicted < floor {
			predicted = floor
		}
		return l.locateInsertion(src, hunkIndex, predicted, floor)
	}

	expected := h.ExpectedLines()
	predicted := h.OldStart - 1 + drift
	if predicted < floor {
		predicted = floor
	}

	lo := predicted - l.Radius
	if lo < 0 {
		lo = 0
	}
	hi := predicted + l.Radius
	if limit := len(src) - len(expected); hi > limit {
		hi = limit
	}
	if hi < lo {
		return Result{}, &NoMatchError{
			HunkIndex:   hunkIndex,
			WindowStart: lo,
			WindowEnd:   lo,
			BestScore:   0,
			BestStart:   predicted,
			Threshold:   l.MinConfidence,
		}
	}

	removed := h.RemovedLines()
	best := l.scanWindow(src, expected, removed, predicted, lo, hi)

	l.log.Debug("hunk located",
		zap.Int("hunk", hunkIndex+1),
		zap.Int("predicted", predicted+1),
		zap.Int("best_start", best.start+1),
		zap.Float64("best_score", best.score),
		zap.Int("window_lo", lo+1),
		zap.Int("window_hi", hi+1),
	)

	if best.score < l.MinConfidence {
		return Result{}, &NoMatchError{
			HunkIndex:   hunkIndex,
			WindowStart: lo,
			WindowEnd:   hi + 1,
			BestScore:   best.score,
			BestStart:   best.start,
			Threshold:   l.MinConfidence,
		}
	}

	return Result{
		HunkIndex:  hunkIndex,
		Start:      best.start,
		Length:     len(expected),
		Confidence: best.score,
		Drift:      best.start - (h.OldStart - 1 + drift),
	}, nil
}

// locateInsertion places a pure-insertion hunk. With no content to match,
// the declared position (drift-adjusted) is the only anchor, at the fixed
// anchor-only confidence.
func (l *Locator) locateInsertion(src []string, hunkIndex, predicted, floor int) (Result, error) {
	at := predicted
	if at > len(src) {
		at = len(src)
	}
	if at < floor {
		at = floor
	}
	conf := l.scorer.AnchorConfidence
	if conf < l.MinConfidence {
		return Result{}, &NoMatchError{
			HunkIndex:   hunkIndex,
			WindowStart: at,
			WindowEnd:   at,
			BestScore:   conf,
			BestStart:   at,
			Threshold:   l.MinConfidence,
		}
	}
	return Result{
		HunkIndex:  hunkIndex,
		Start:      at,
		Length:     0,
		Confidence: conf,
		Drift:      at - predicted,
	}, nil
}

type candidate struct {
	start int
	score float64
}

// better reports whether a beats b under the acceptance policy: higher score
// first, then closest to the predicted position, then earliest in the
// document. The ordering is total, so the scan result is deterministic
// regardless of how candidates are partitioned across workers.
func better(a, b candidate, predicted int) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	da, db := abs(a.start-predicted), abs(b.start-predicted)
	if da != db {
		return da < db
	}
	return a.start < b.start
}

// scanWindow scores every candidate start position in [lo, hi] and returns
// the winner. Candidate scoring is pure, so it fans out across workers when
// the window is large enough to be worth it.
func (l *Locator) scanWindow(src, expected, removed []string, predicted, lo, hi int) candidate {
	total := hi - lo + 1
	workers := l.Workers
	if workers > total {
		workers = total
	}
	if workers <= 1 || total < 16 {
		return l.scanRange(src, expected, removed, predicted, lo, hi)
	}

	locals := make([]candidate, workers)
	chunk := (total + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wlo := lo + w*chunk
		whi := wlo + chunk - 1
		if whi > hi {
			whi = hi
		}
		if wlo > whi {
			locals[w] = candidate{start: predicted, score: -1}
			continue
		}
		wg.Add(1)
		go func(w, wlo, whi int) {
			defer wg.Done()
			locals[w] = l.scanRange(src, expected, removed, predicted, wlo, whi)
		}(w, wlo, whi)
	}
	wg.Wait()

	best := locals[0]
	for _, c := range locals[1:] {
		if c.score >= 0 && better(c, best, predicted) {
			best = c
		}
	}
	return best
}

func (l *Locator) scanRange(src, expected, removed []string, predicted, lo, hi int) candidate {
	best := candidate{start: lo, score: -1}
	for start := lo; start <= hi; start++ {
		window := src[start : start+len(expected)]
		c := candidate{start: start}
		// A window that no longer contains the lines the hunk deletes is
		// not a place this hunk can apply, however well its context
		// matches; this is what keeps an already-applied patch from being
		// applied twice.
		if containsRemoved(window, removed) {
			c.score = l.scorer.Score(window, expected)
		}
		if best.score < 0 || better(c, best, predicted) {
			best = c
		}
	}
	if best.score < 0 {
		best.score = 0
	}
	return best
}

// containsRemoved reports whether window contains every removed line in
// order, comparing whitespace-normalized text.
func containsRemoved(window, removed []string) bool {
	if len(removed) == 0 {
		return true
	}
	ri := 0
	for _, line := range window {
		if NormalizeLine(line) == NormalizeLine(removed[ri]) {
			ri++
			if ri == len(removed) {
				return true
			}
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
