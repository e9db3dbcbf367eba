package apply

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/trethore/Mend/internal/config"
	"github.com/trethore/Mend/internal/match"
	"github.com/trethore/Mend/internal/patch"
)

func mustParse(t *testing.T, text string) *patch.FilePatch {
	t.Helper()
	p, err := patch.Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return &p.Files[0]
}

func docLines(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("original content of line %d", i+1)
	}
	return out
}

func newApplier() *Applier {
	return New(config.Default(), nil)
}

func TestApply_ExactRoundTrip(t *testing.T) {
	src := docLines(10)
	fp := mustParse(t, `@@ -3,4 +3,4 @@
 `+src[2]+`
-`+src[3]+`
+rewritten line four
 `+src[4]+`
 `+src[5]+`
`)

	res := newApplier().Apply(src, fp)

	if len(res.Outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(res.Outcomes))
	}
	o := res.Outcomes[0]
	if o.Status != StatusApplied {
		t.Fatalf("Status = %v, want applied (reason: %v)", o.Status, o.Reason)
	}
	if o.Match.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", o.Match.Confidence)
	}
	if o.Match.Drift != 0 {
		t.Errorf("Drift = %v, want 0", o.Match.Drift)
	}

	want := append([]string{}, src...)
	want[3] = "rewritten line four"
	if strings.Join(res.Lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("result:\n%s\nwant:\n%s", strings.Join(res.Lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestApply_DriftCarriesToLaterHunks(t *testing.T) {
	src := docLines(12)
	// Hunk 1 removes one line and adds three: net +2. Hunk 2 nominally
	// targets line 8; with drift +2 it must land exactly.
	fp := mustParse(t, `@@ -2,3 +2,5 @@
 `+src[1]+`
-`+src[2]+`
+first inserted
+second inserted
+third inserted
 `+src[3]+`
@@ -8,3 +10,3 @@
 `+src[7]+`
-`+src[8]+`
+late replacement
 `+src[9]+`
`)

	res := newApplier().Apply(src, fp)

	if res.Outcomes[0].Status != StatusApplied {
		t.Fatalf("hunk 1 = %v (reason %v), want applied", res.Outcomes[0].Status, res.Outcomes[0].Reason)
	}
	o2 := res.Outcomes[1]
	if o2.Status != StatusApplied {
		t.Fatalf("hunk 2 = %v (reason %v), want applied", o2.Status, o2.Reason)
	}
	// Nominal start index 7, shifted by the +2 drift of hunk 1.
	if o2.Match.Start != 9 {
		t.Errorf("hunk 2 Start = %d, want 9", o2.Match.Start)
	}
	if o2.Match.Drift != 0 {
		t.Errorf("hunk 2 Drift = %d, want 0 (prediction includes drift)", o2.Match.Drift)
	}
	if res.Drift != 2 {
		t.Errorf("net drift = %d, want 2", res.Drift)
	}
	if res.Lines[10] != "late replacement" {
		t.Errorf("line 11 = %q, want the replacement", res.Lines[10])
	}
}

func TestApply_ZeroDriftStillTracked(t *testing.T) {
	// Hunk 1 replaces lines 3-4 with two new lines (net 0). Hunk 2 at
	// line 8 must land at line 8 unchanged.
	src := docLines(10)
	fp := mustParse(t, `@@ -2,4 +2,4 @@
 `+src[1]+`
-`+src[2]+`
-`+src[3]+`
+new third line
+new fourth line
 `+src[4]+`
@@ -8,2 +8,2 @@
-`+src[7]+`
+new eighth line
 `+src[8]+`
`)

	res := newApplier().Apply(src, fp)

	for i, o := range res.Outcomes {
		if o.Status != StatusApplied {
			t.Fatalf("hunk %d = %v (reason %v), want applied", i+1, o.Status, o.Reason)
		}
	}
	if res.Outcomes[1].Match.Start != 7 {
		t.Errorf("hunk 2 Start = %d, want 7", res.Outcomes[1].Match.Start)
	}
	if res.Drift != 0 {
		t.Errorf("net drift = %d, want 0", res.Drift)
	}
	if res.Lines[2] != "new third line" || res.Lines[7] != "new eighth line" {
		t.Errorf("unexpected result lines: %q, %q", res.Lines[2], res.Lines[7])
	}
}

func TestApply_SecondApplicationConflicts(t *testing.T) {
	src := docLines(8)
	patchText := `@@ -4,3 +4,3 @@
 ` + src[3] + `
-` + src[4] + `
+substituted line five
 ` + src[5] + `
`
	fp := mustParse(t, patchText)
	applier := newApplier()

	first := applier.Apply(src, fp)
	if first.Outcomes[0].Status != StatusApplied {
		t.Fatalf("first application = %v, want applied", first.Outcomes[0].Status)
	}

	second := applier.Apply(first.Lines, mustParse(t, patchText))
	o := second.Outcomes[0]
	if o.Status != StatusConflicted {
		t.Fatalf("second application = %v, want conflicted", o.Status)
	}
	var nm *match.NoMatchError
	if !errors.As(o.Reason, &nm) {
		t.Errorf("reason = %T, want *match.NoMatchError", o.Reason)
	}
	// The document must be untouched by the second run.
	if strings.Join(second.Lines, "\n") != strings.Join(first.Lines, "\n") {
		t.Error("second application modified the document")
	}
}

func TestApply_WhitespaceTolerantMatch(t *testing.T) {
	src := []string{
		"def greet(name):",
		"\tmessage = 'hello ' + name",
		"\treturn message",
		"",
	}
	// The patch was written against a space-indented copy.
	fp := mustParse(t, `@@ -1,3 +1,3 @@
 def greet(name):
-    message = 'hello ' + name
+    message = 'hi ' + name
     return message
`)

	res := newApplier().Apply(src, fp)

	o := res.Outcomes[0]
	if o.Status != StatusApplied {
		t.Fatalf("Status = %v (reason %v), want applied", o.Status, o.Reason)
	}
	if o.Match.Confidence >= 1.0 || o.Match.Confidence < 0.5 {
		t.Errorf("Confidence = %v, want reduced but above threshold", o.Match.Confidence)
	}
	if res.Lines[1] != "    message = 'hi ' + name" {
		t.Errorf("line 2 = %q, want the patch's replacement text", res.Lines[1])
	}
}

func TestApply_ConflictLeavesOtherHunksAlone(t *testing.T) {
	src := docLines(10)
	fp := mustParse(t, `@@ -2,3 +2,3 @@
 this context exists nowhere
-and neither does this line
+so this cannot apply
 nor this trailing context
@@ -7,3 +7,3 @@
 `+src[6]+`
-`+src[7]+`
+valid replacement
 `+src[8]+`
`)

	res := newApplier().Apply(src, fp)

	if res.Outcomes[0].Status != StatusConflicted {
		t.Fatalf("hunk 1 = %v, want conflicted", res.Outcomes[0].Status)
	}
	if res.Outcomes[1].Status != StatusApplied {
		t.Fatalf("hunk 2 = %v (reason %v), want applied", res.Outcomes[1].Status, res.Outcomes[1].Reason)
	}
	// A failed hunk contributes no drift and changes nothing.
	if res.Drift != 0 {
		t.Errorf("net drift = %d, want 0", res.Drift)
	}
	if res.Lines[7] != "valid replacement" {
		t.Errorf("line 8 = %q, want the valid replacement", res.Lines[7])
	}
	for i := 0; i < 6; i++ {
		if res.Lines[i] != src[i] {
			t.Errorf("line %d changed by a conflicted hunk", i+1)
		}
	}
}

func TestApply_OverlappingHunksRejected(t *testing.T) {
	src := docLines(10)
	// Hunk 1 consumes lines 2-4. Hunk 2 resolves onto line 4 as well.
	fp := mustParse(t, `@@ -2,3 +2,3 @@
 `+src[1]+`
-`+src[2]+`
+first change
 `+src[3]+`
@@ -3,3 +3,3 @@
-`+src[3]+`
+second change
 `+src[4]+`
 `+src[5]+`
`)

	res := newApplier().Apply(src, fp)

	if res.Outcomes[0].Status != StatusApplied {
		t.Fatalf("hunk 1 = %v, want applied", res.Outcomes[0].Status)
	}
	o2 := res.Outcomes[1]
	if o2.Status != StatusConflicted {
		t.Fatalf("hunk 2 = %v, want conflicted", o2.Status)
	}
	var conflict *ConflictError
	if !errors.As(o2.Reason, &conflict) {
		t.Fatalf("reason = %T, want *ConflictError", o2.Reason)
	}
	if conflict.OtherHunk != 0 {
		t.Errorf("OtherHunk = %d, want 0", conflict.OtherHunk)
	}
}

func TestApply_PureInsertionHunk(t *testing.T) {
	src := docLines(6)
	// Zero-old-count convention: OldStart 3 means "insert after line 3",
	// making the new line line 4.
	fp := &patch.FilePatch{Hunks: []patch.Hunk{{
		OldStart: 3,
		NewStart: 4,
		Lines: []patch.HunkLine{
			{Kind: patch.LineAdded, Text: "inserted without any context"},
		},
	}}}

	res := newApplier().Apply(src, fp)

	o := res.Outcomes[0]
	if o.Status != StatusApplied {
		t.Fatalf("Status = %v (reason %v), want applied", o.Status, o.Reason)
	}
	if res.Lines[3] != "inserted without any context" {
		t.Errorf("line 4 = %q, want the insertion", res.Lines[3])
	}
	if len(res.Lines) != 7 {
		t.Errorf("got %d lines, want 7", len(res.Lines))
	}
	if res.Drift != 1 {
		t.Errorf("net drift = %d, want 1", res.Drift)
	}
}

func TestApply_ZeroContextInsertionFromHeader(t *testing.T) {
	// The header form git diff -U0 emits for an insertion after line 3.
	src := []string{"one", "two", "three", "four", "five", "six"}
	fp := mustParse(t, `@@ -3,0 +4,1 @@
+inserted
`)

	res := newApplier().Apply(src, fp)

	if res.Outcomes[0].Status != StatusApplied {
		t.Fatalf("Status = %v, want applied", res.Outcomes[0].Status)
	}
	want := []string{"one", "two", "three", "inserted", "four", "five", "six"}
	if strings.Join(res.Lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("result:\n%s\nwant:\n%s", strings.Join(res.Lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestApply_RelocatedHunk(t *testing.T) {
	src := docLines(20)
	// Content sits at index 12 while the header claims line 4.
	fp := mustParse(t, `@@ -4,3 +4,3 @@
 `+src[11]+`
-`+src[12]+`
+moved replacement
 `+src[13]+`
`)

	res := newApplier().Apply(src, fp)

	o := res.Outcomes[0]
	if o.Status != StatusRelocated {
		t.Fatalf("Status = %v (reason %v), want relocated", o.Status, o.Reason)
	}
	if o.Match.Start != 11 {
		t.Errorf("Start = %d, want 11", o.Match.Start)
	}
	if o.Match.Drift != 8 {
		t.Errorf("Drift = %d, want +8", o.Match.Drift)
	}
	if res.Lines[12] != "moved replacement" {
		t.Errorf("line 13 = %q, want the replacement", res.Lines[12])
	}
}

func TestApply_SourceSliceNotMutated(t *testing.T) {
	src := docLines(10)
	orig := append([]string{}, src...)
	fp := mustParse(t, `@@ -5,3 +5,3 @@
 `+src[4]+`
-`+src[5]+`
+changed
 `+src[6]+`
`)

	newApplier().Apply(src, fp)

	for i := range orig {
		if src[i] != orig[i] {
			t.Fatalf("Apply() mutated the caller's slice at line %d", i+1)
		}
	}
}
