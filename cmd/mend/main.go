package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/trethore/Mend/internal/apply"
	"github.com/trethore/Mend/internal/config"
	"github.com/trethore/Mend/internal/patch"
	"github.com/trethore/Mend/internal/ui"

	"github.com/pmezard/go-difflib/difflib"
)

// Version info set by ldflags at build time
var (
	version    = "dev"
	commitHash = "dev"
)

// Exit codes for the caller contract.
const (
	exitFullyApplied     = 0
	exitPartiallyApplied = 1
	exitFatal            = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to optional YAML config file with matching tunables")
	output := flag.String("o", "", "write result to this path instead of the target file")
	dryRun := flag.Bool("dry-run", false, "print the resulting diff instead of writing")
	radius := flag.Int("radius", -1, "override search window radius (lines)")
	threshold := flag.Float64("threshold", -1, "override minimum match confidence (0-1)")
	logFile := flag.String("log", "", "log file path (empty to disable)")
	devLog := flag.Bool("dev-log", false, "readable debug logging instead of JSON")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	jsonOutput := flag.Bool("json", false, "print the report as JSON on stdout")
	showVersion := flag.Bool("version", false, "show version information and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("mend %s-%s\n", version, commitHash)
		return exitFullyApplied
	}

	writer := ui.NewWriter()
	writer.SetQuiet(*quiet)
	writer.SetJSONMode(*jsonOutput)

	args := flag.Args()
	if len(args) < 1 || len(args) > 2 {
		usage()
		return exitFatal
	}
	targetPath := args[0]

	opts, err := loadOptions(*configPath, *radius, *threshold)
	if err != nil {
		writer.Errorf("mend: %v", err)
		return exitFatal
	}

	logger, err := apply.NewLogger(*logFile, *devLog)
	if err != nil {
		writer.Errorf("mend: open log: %v", err)
		return exitFatal
	}
	defer logger.Close()

	patchText, err := readPatch(args)
	if err != nil {
		writer.Errorf("mend: %v", err)
		return exitFatal
	}

	p, err := patch.Parse(patchText)
	if err != nil {
		logger.Error("parse failed", err)
		writer.Errorf("mend: %v", err)
		return exitFatal
	}

	fp, ok := p.ForTarget(targetPath)
	if !ok {
		writer.Errorf("mend: the patch contains no changes for %s", targetPath)
		return exitFatal
	}
	if len(p.Files) > 1 {
		writer.Warnf("patch touches %d files; only the changes for %s are applied", len(p.Files), targetPath)
	}
	writer.Infof("applying %d hunk(s) to %s", len(fp.Hunks), targetPath)

	targetContent, err := os.ReadFile(targetPath)
	if err != nil {
		// A creation patch may target a file that does not exist yet.
		if !(os.IsNotExist(err) && fp.IsCreation()) {
			writer.Errorf("mend: read target: %v", err)
			return exitFatal
		}
		targetContent = nil
	}

	lines, eol := patch.SplitDocument(string(targetContent))
	if len(targetContent) == 0 && fp.IsCreation() {
		eol.TrailingNewline = true
	}
	applier := apply.New(opts, logger)
	result := applier.Apply(lines, fp)
	report := apply.BuildReport(targetPath, fp, result.Outcomes, applier.Threshold())
	logger.RunFinished(targetPath, report.Applied, report.Relocated, report.Conflicted)

	final := patch.JoinDocument(result.Lines, eol)

	if *dryRun {
		writer.PrintDiff(previewDiff(string(targetContent), final, targetPath))
	} else {
		dest := targetPath
		if *output != "" {
			dest = *output
		}
		if err := writeFile(dest, final); err != nil {
			writer.Errorf("mend: write %s: %v", dest, err)
			return exitFatal
		}
	}

	writer.PrintReport(report)

	if report.Status() == apply.RunPartiallyApplied {
		return exitPartiallyApplied
	}
	return exitFullyApplied
}

func loadOptions(configPath string, radius int, threshold float64) (*config.Options, error) {
	opts := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}
	if radius >= 0 {
		opts.Matching.WindowRadius = radius
	}
	if threshold >= 0 {
		opts.Matching.MinConfidence = threshold
	}
	return opts, nil
}

// readPatch reads the patch from the second argument, or from stdin when the
// input is piped.
func readPatch(args []string) (string, error) {
	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return "", fmt.Errorf("read patch: %w", err)
		}
		return string(data), nil
	}

	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
		return "", fmt.Errorf("no patch file given and stdin is not a pipe\n\nusage examples:\n  mend target.go changes.diff\n  git diff | mend target.go")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func previewDiff(before, after, path string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

func writeFile(path, content string) error {
	info, err := os.Stat(path)
	mode := os.FileMode(0644)
	if err == nil {
		mode = info.Mode()
	}
	return os.WriteFile(path, []byte(content), mode)
}

func usage() {
	fmt.Fprintf(os.Stderr, `mend - apply an imprecise unified diff to a real file

usage:
  mend [flags] <target-file> [patch-file]
  <some diff producer> | mend [flags] <target-file>

exit codes:
  0  all hunks applied (possibly relocated)
  1  some hunks conflicted; the rest were applied and written
  2  the patch could not be parsed, or an I/O error occurred

flags:
`)
	flag.PrintDefaults()
}
