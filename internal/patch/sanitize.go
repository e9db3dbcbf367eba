package patch

import "strings"

// Sanitize prepares raw patch text that may have been produced by a language
// model for parsing. It normalizes line endings, unwraps markdown code
// fences, drops surrounding prose, and repairs context lines whose leading
// space prefix was stripped.
func Sanitize(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = extractFencedDiff(text)
	return repairHunkBodies(text)
}

// extractFencedDiff returns the contents of the first markdown code fence
// that looks like a diff. Prose around the fence is discarded. Input without
// fences is returned trimmed as-is.
func extractFencedDiff(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")

	best := ""
	inFence := false
	fenceStart := -1
	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		if !inFence {
			inFence = true
			fenceStart = i + 1
			continue
		}
		inFence = false
		if fenceStart >= 0 && fenceStart < i {
			block := strings.Join(lines[fenceStart:i], "\n")
			if looksLikeDiff(block) {
				return block
			}
			if best == "" {
				best = block
			}
		}
		fenceStart = -1
	}

	if best != "" {
		return best
	}
	return trimmed
}

func looksLikeDiff(block string) bool {
	if strings.Contains(block, "\n@@") || strings.HasPrefix(block, "@@") {
		return true
	}
	if strings.Contains(block, "diff --git ") {
		return true
	}
	return strings.Contains(block, "--- ") && strings.Contains(block, "+++ ")
}

// repairHunkBodies drops prose ahead of the first diff marker and restores
// the leading-space prefix on context lines inside hunk bodies that lost it.
func repairHunkBodies(text string) string {
	lines := strings.Split(text, "\n")

	first := -1
	for i, line := range lines {
		if isDiffMarker(line) {
			first = i
			break
		}
	}
	if first < 0 {
		return text
	}
	lines = lines[first:]

	out := make([]string, 0, len(lines))
	inHunk := false
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
			out = append(out, line)
		case isFileHeader(line):
			inHunk = false
			out = append(out, line)
		case !inHunk:
			out = append(out, line)
		case line == "" || line[0] == ' ' || line[0] == '+' || line[0] == '-' || line[0] == '\\':
			out = append(out, line)
		default:
			// Context line with a stripped prefix.
			out = append(out, " "+line)
		}
	}
	return strings.Join(out, "\n")
}

func isDiffMarker(line string) bool {
	return strings.HasPrefix(line, "@@") || isFileHeader(line)
}

func isFileHeader(line string) bool {
	return strings.HasPrefix(line, "diff --git ") ||
		strings.HasPrefix(line, "--- ") ||
		strings.HasPrefix(line, "+++ ") ||
		strings.HasPrefix(line, "index ")
}
