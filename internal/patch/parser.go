package patch

import (
	"strconv"
	"strings"
)

// Parse sanitizes raw patch text and parses it into per-file hunk sequences.
// It accepts git-style unified diffs, headerless hunk lists, and model
// output with markdown fences or prose around the diff. The returned error,
// if any, is a *ParseError.
func Parse(raw string) (*Patch, error) {
	return ParseStrict(Sanitize(raw))
}

// ParseStrict parses already-clean unified-diff text. Unlike Parse it does
// not repair stripped context prefixes, so a body line with no recognizable
// tag is rejected.
func ParseStrict(text string) (*Patch, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	p := &Patch{}
	var cur *FilePatch
	var curHunk *Hunk
	curHunkLine := 0

	flushHunk := func() error {
		if cur == nil || curHunk == nil {
			curHunk = nil
			return nil
		}
		if err := finalizeHunk(curHunk, curHunkLine); err != nil {
			return err
		}
		cur.Hunks = append(cur.Hunks, *curHunk)
		curHunk = nil
		return nil
	}
	flushFile := func() error {
		if cur == nil {
			return nil
		}
		if err := flushHunk(); err != nil {
			return err
		}
		if cur.OldPath != "" || cur.NewPath != "" || len(cur.Hunks) > 0 {
			p.Files = append(p.Files, *cur)
		}
		cur = nil
		return nil
	}

	for i, line := range lines {
		lineNo := i + 1

		if strings.HasPrefix(line, "diff --git ") {
			if err := flushFile(); err != nil {
				return nil, err
			}
			oldPath, newPath := parseDiffGitLine(line)
			cur = &FilePatch{OldPath: oldPath, NewPath: newPath}
			continue
		}
		if strings.HasPrefix(line, "index ") && curHunk == nil {
			continue
		}
		// "--- " opens the next file header. Inside a hunk body it is
		// ambiguous with a removed line starting with "--"; only a
		// following "+++ " line disambiguates it as a header.
		headerHere := curHunk == nil ||
			(i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "))
		if strings.HasPrefix(line, "--- ") && headerHere {
			if cur == nil || len(cur.Hunks) > 0 || curHunk != nil {
				if err := flushFile(); err != nil {
					return nil, err
				}
			}
			if cur == nil {
				cur = &FilePatch{}
			}
			cur.OldPath = normalizeHeaderPath(strings.TrimPrefix(line, "--- "))
			continue
		}
		if strings.HasPrefix(line, "+++ ") && curHunk == nil {
			if cur == nil {
				cur = &FilePatch{}
			}
			cur.NewPath = normalizeHeaderPath(strings.TrimPrefix(line, "+++ "))
			continue
		}

		if strings.HasPrefix(line, "@@") {
			if err := flushHunk(); err != nil {
				return nil, err
			}
			if cur == nil {
				cur = &FilePatch{}
			}
			h, err := parseHunkHeader(line, lineNo)
			if err != nil {
				return nil, err
			}
			curHunk = &h
			curHunkLine = lineNo
			continue
		}

		if curHunk != nil {
			if line == `\ No newline at end of file` {
				continue
			}
			if line == "" {
				curHunk.Lines = append(curHunk.Lines, HunkLine{Kind: LineContext, Text: ""})
				continue
			}
			switch line[0] {
			case ' ':
				curHunk.Lines = append(curHunk.Lines, HunkLine{Kind: LineContext, Text: line[1:]})
			case '+':
				curHunk.Lines = append(curHunk.Lines, HunkLine{Kind: LineAdded, Text: line[1:]})
			case '-':
				curHunk.Lines = append(curHunk.Lines, HunkLine{Kind: LineRemoved, Text: line[1:]})
			default:
				return nil, parseErrorf(lineNo, "unrecognized line tag (must start with space, +, -, or @@): %q", line)
			}
			continue
		}

		// Outside any hunk: ignore prose and blank separators.
	}

	if err := flushFile(); err != nil {
		return nil, err
	}

	if p.TotalHunks() == 0 {
		return nil, parseErrorf(0, "no hunks found")
	}
	return p, nil
}

// finalizeHunk trims trailing blank context (common artifact of split-induced
// empty last lines) and recomputes the header counts from the body. Declared
// counts are hints only; the body is authoritative.
func finalizeHunk(h *Hunk, headerLine int) error {
	for len(h.Lines) > 0 {
		last := h.Lines[len(h.Lines)-1]
		if last.Kind == LineContext && last.Text == "" {
			h.Lines = h.Lines[:len(h.Lines)-1]
			continue
		}
		break
	}
	if len(h.Lines) == 0 {
		return parseErrorf(headerLine, "hunk has no usable lines")
	}

	oldCount, newCount := 0, 0
	for _, l := range h.Lines {
		switch l.Kind {
		case LineContext:
			oldCount++
			newCount++
		case LineRemoved:
			oldCount++
		case LineAdded:
			newCount++
		}
	}
	h.OldCount = oldCount
	h.NewCount = newCount
	return nil
}

func parseHunkHeader(line string, lineNo int) (Hunk, error) {
	rest := line[2:]
	end := strings.Index(rest, "@@")
	if end < 0 {
		return Hunk{}, parseErrorf(lineNo, "unterminated hunk header: %q", line)
	}
	body := strings.TrimSpace(rest[:end])
	section := strings.TrimSpace(rest[end+2:])

	fields := strings.Fields(body)
	if len(fields) < 2 {
		return Hunk{}, parseErrorf(lineNo, "invalid hunk header: %q", line)
	}
	oldStart, _, err := parseRange(fields[0], '-', lineNo)
	if err != nil {
		return Hunk{}, err
	}
	newStart, _, err := parseRange(fields[1], '+', lineNo)
	if err != nil {
		return Hunk{}, err
	}
	return Hunk{
		OldStart: oldStart,
		NewStart: newStart,
		Section:  section,
	}, nil
}

// parseRange parses a "-start,count" or "+start,count" token. The count
// defaults to 1 when omitted. The parsed count is discarded later in favor
// of the body, but a malformed token still fails the parse.
func parseRange(tok string, sign byte, lineNo int) (start, count int, err error) {
	if len(tok) < 2 || tok[0] != sign {
		return 0, 0, parseErrorf(lineNo, "invalid range token: %q", tok)
	}
	startStr, countStr, hasCount := strings.Cut(tok[1:], ",")
	start, err = strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, parseErrorf(lineNo, "invalid range start: %q", tok)
	}
	count = 1
	if hasCount {
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return 0, 0, parseErrorf(lineNo, "invalid range count: %q", tok)
		}
	}
	return start, count, nil
}

func parseDiffGitLine(line string) (string, string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "diff --git "))
	parts := strings.Fields(rest)
	if len(parts) >= 2 {
		return stripPathPrefix(parts[0]), stripPathPrefix(parts[1])
	}
	return "", ""
}

// normalizeHeaderPath extracts the path from a ---/+++ header value, cutting
// a trailing timestamp and stripping the git a/ b/ prefixes.
func normalizeHeaderPath(v string) string {
	v, _, _ = strings.Cut(v, "\t")
	return stripPathPrefix(strings.TrimSpace(v))
}

func stripPathPrefix(p string) string {
	if p == DevNull || p == "" {
		return p
	}
	p = strings.TrimPrefix(p, "a/")
	p = strings.TrimPrefix(p, "b/")
	return p
}
