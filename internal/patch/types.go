package patch

import (
	"fmt"
	"strings"
)

// LineKind classifies a tagged line inside a hunk body.
type LineKind int

const (
	// LineContext - unchanged line, present in both old and new text
	LineContext LineKind = iota

	// LineRemoved - line present in the old text, deleted by the hunk
	LineRemoved

	// LineAdded - line introduced by the hunk
	LineAdded
)

func (k LineKind) String() string {
	switch k {
	case LineContext:
		return "context"
	case LineRemoved:
		return "removed"
	case LineAdded:
		return "added"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// HunkLine is a single tagged line of a hunk body.
type HunkLine struct {
	Kind LineKind
	Text string
}

// Hunk is one contiguous change unit of a patch. OldStart/NewStart are the
// 1-based line numbers declared in the header; they are treated as hints, not
// ground truth, since the patch may have been produced against a stale copy
// of the file. OldCount/NewCount are always recomputed from the body.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Section  string // trailing text after the closing @@, if any
	Lines    []HunkLine
}

// ExpectedLines returns the Context+Removed subsequence: the lines that must
// be matched against the source document.
func (h *Hunk) ExpectedLines() []string {
	out := make([]string, 0, len(h.Lines))
	for _, l := range h.Lines {
		switch l.Kind {
		case LineContext, LineRemoved:
			out = append(out, l.Text)
		case LineAdded:
		}
	}
	return out
}

// ReplacementLines returns the Context+Added subsequence: the lines that
// replace the matched span when the hunk is applied.
func (h *Hunk) ReplacementLines() []string {
	out := make([]string, 0, len(h.Lines))
	for _, l := range h.Lines {
		switch l.Kind {
		case LineContext, LineAdded:
			out = append(out, l.Text)
		case LineRemoved:
		}
	}
	return out
}

// RemovedLines returns only the lines the hunk deletes. Their presence in a
// candidate window is what distinguishes an unapplied hunk from one that was
// already applied.
func (h *Hunk) RemovedLines() []string {
	out := make([]string, 0, len(h.Lines))
	for _, l := range h.Lines {
		if l.Kind == LineRemoved {
			out = append(out, l.Text)
		}
	}
	return out
}

// IsPureInsertion reports whether the hunk carries no context or removed
// lines, so it cannot be located by content matching.
func (h *Hunk) IsPureInsertion() bool {
	for _, l := range h.Lines {
		if l.Kind != LineAdded {
			return false
		}
	}
	return true
}

// Header re-renders the hunk header in unified-diff form.
func (h *Hunk) Header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	if h.Section != "" {
		b.WriteString(" ")
		b.WriteString(h.Section)
	}
	return b.String()
}

// FilePatch groups the hunks addressed at a single file. OldPath/NewPath come
// from the --- / +++ headers (or the diff --git line); both are empty for a
// headerless patch. "/dev/null" marks file creation or deletion.
type FilePatch struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// TargetPath returns the best path to apply this patch to: the new path
// unless it is /dev/null, then the old path, then empty.
func (fp *FilePatch) TargetPath() string {
	if fp.NewPath != "" && fp.NewPath != DevNull {
		return fp.NewPath
	}
	if fp.OldPath != "" && fp.OldPath != DevNull {
		return fp.OldPath
	}
	return ""
}

// IsCreation reports whether the patch creates a new file.
func (fp *FilePatch) IsCreation() bool {
	return fp.OldPath == DevNull
}

// Patch is an ordered sequence of per-file diffs. Hunk order inside each file
// is significant: hunks are applied in that order and drift accumulates
// along it.
type Patch struct {
	Files []FilePatch
}

// DevNull is the unified-diff placeholder path for a missing side.
const DevNull = "/dev/null"

// ForTarget selects the file diff addressed at target, matching on either
// side of the header and tolerating a/ b/ path prefixes already stripped by
// the parser. A headerless single-file patch matches any target.
func (p *Patch) ForTarget(target string) (*FilePatch, bool) {
	for i := range p.Files {
		fp := &p.Files[i]
		if fp.OldPath == target || fp.NewPath == target {
			return fp, true
		}
	}
	// A patch with no file headers applies to whatever file the caller named.
	if len(p.Files) == 1 && p.Files[0].OldPath == "" && p.Files[0].NewPath == "" {
		return &p.Files[0], true
	}
	// Fall back to suffix matching so "mend src/util.go" finds "util.go".
	for i := range p.Files {
		fp := &p.Files[i]
		if tp := fp.TargetPath(); tp != "" && (strings.HasSuffix(target, "/"+tp) || strings.HasSuffix(tp, "/"+target)) {
			return fp, true
		}
	}
	return nil, false
}

// TotalHunks returns the hunk count across all files.
func (p *Patch) TotalHunks() int {
	n := 0
	for i := range p.Files {
		n += len(p.Files[i].Hunks)
	}
	return n
}
