// Package fixture stages sample source/patch/expected triples and runs the
// patch engine over them, validating the result against the expected output.
// It backs the corpus tests that calibrate the matching tunables.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/trethore/Mend/internal/apply"
	"github.com/trethore/Mend/internal/config"
	"github.com/trethore/Mend/internal/patch"
)

// Case is one fixture: a source file, a patch that may be imprecise, and the
// text the engine is expected to produce. Paths are relative to the manifest.
type Case struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source"`
	Patch    string `yaml:"patch"`
	Expected string `yaml:"expected"`
	// Conflicts is how many hunks are expected to conflict; most cases
	// expect zero.
	Conflicts int `yaml:"conflicts"`
}

// Manifest lists the fixture corpus.
type Manifest struct {
	Cases []Case `yaml:"cases"`
}

// LoadManifest reads a YAML fixture manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Cases) == 0 {
		return nil, fmt.Errorf("manifest %s lists no cases", path)
	}
	return &m, nil
}

// Outcome is the result of running one case.
type Outcome struct {
	Report *apply.Report
	Output string
	// Mismatch is a unified diff of expected vs actual output, empty when
	// they agree.
	Mismatch string
}

// Run executes the case with the given tunables. baseDir anchors the case's
// relative paths.
func (c *Case) Run(baseDir string, opts *config.Options) (*Outcome, error) {
	source, err := os.ReadFile(filepath.Join(baseDir, c.Source))
	if err != nil {
		return nil, err
	}
	patchText, err := os.ReadFile(filepath.Join(baseDir, c.Patch))
	if err != nil {
		return nil, err
	}
	expected, err := os.ReadFile(filepath.Join(baseDir, c.Expected))
	if err != nil {
		return nil, err
	}

	p, err := patch.Parse(string(patchText))
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", c.Name, err)
	}
	fp, ok := p.ForTarget(c.Source)
	if !ok {
		fp = &p.Files[0]
	}

	lines, eol := patch.SplitDocument(string(source))
	applier := apply.New(opts, nil)
	res := applier.Apply(lines, fp)

	out := &Outcome{
		Report: apply.BuildReport(c.Source, fp, res.Outcomes, applier.Threshold()),
		Output: patch.JoinDocument(res.Lines, eol),
	}
	if out.Output != string(expected) {
		out.Mismatch = unifiedMismatch(string(expected), out.Output, c.Name)
	}
	return out, nil
}

// unifiedMismatch renders the expected/actual divergence for test output.
func unifiedMismatch(expected, actual, name string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: name + " (expected)",
		ToFile:   name + " (actual)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("diff failed: %v", err)
	}
	return text
}
