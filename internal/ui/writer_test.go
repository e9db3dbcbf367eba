package ui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/trethore/Mend/internal/apply"
)

func testWriter() (*Writer, *bytes.Buffer, *bytes.Buffer) {
	var stderr, stdout bytes.Buffer
	return &Writer{stderr: &stderr, stdout: &stdout}, &stderr, &stdout
}

func TestWriter_Streams(t *testing.T) {
	w, stderr, stdout := testWriter()

	w.Infof("working on %s", "file.txt")
	w.Warnf("%d files skipped", 2)
	w.Errorf("broken: %v", "nope")

	out := stderr.String()
	for _, want := range []string{"working on file.txt", "2 files skipped", "broken: nope"} {
		if !strings.Contains(out, want) {
			t.Errorf("stderr missing %q in %q", want, out)
		}
	}
	if stdout.Len() != 0 {
		t.Errorf("progress leaked onto stdout: %q", stdout.String())
	}
}

func TestWriter_QuietSuppressesAllButErrors(t *testing.T) {
	w, stderr, _ := testWriter()
	w.SetQuiet(true)

	w.Infof("hidden")
	w.Warnf("also hidden")
	w.Errorf("still shown")

	out := stderr.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("quiet mode printed progress: %q", out)
	}
	if !strings.Contains(out, "still shown") {
		t.Errorf("quiet mode swallowed an error: %q", out)
	}
}

func TestWriter_PrintDiffGoesToStdout(t *testing.T) {
	w, stderr, stdout := testWriter()

	w.PrintDiff("--- a/x\n+++ b/x\n@@ -1,1 +1,1 @@\n-old\n+new\n")

	if !strings.Contains(stdout.String(), "+new") {
		t.Errorf("stdout missing diff content: %q", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("diff leaked onto stderr: %q", stderr.String())
	}
}

func TestWriter_PrintReportJSON(t *testing.T) {
	w, stderr, stdout := testWriter()
	w.SetJSONMode(true)

	r := &apply.Report{Target: "x.txt", Total: 2, Applied: 1, Conflicted: 1}
	w.PrintReport(r)

	var envelope struct {
		Status string        `json:"status"`
		Report *apply.Report `json:"report"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &envelope); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout.String())
	}
	if envelope.Status != "partially applied" {
		t.Errorf("status = %q, want %q", envelope.Status, "partially applied")
	}
	if envelope.Report.Target != "x.txt" || envelope.Report.Total != 2 {
		t.Errorf("report = %+v", envelope.Report)
	}
	if stderr.Len() != 0 {
		t.Errorf("JSON mode wrote to stderr: %q", stderr.String())
	}
}
