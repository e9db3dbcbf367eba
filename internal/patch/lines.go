package patch

import "strings"

// LineEnding records the newline convention of a document so output can
// reproduce it.
type LineEnding struct {
	Sep             string // "\n" or "\r\n"
	TrailingNewline bool
}

// SplitDocument splits file content into lines while recording its dominant
// line-ending convention and whether it ends with a newline.
func SplitDocument(content string) ([]string, LineEnding) {
	eol := LineEnding{Sep: "\n", TrailingNewline: strings.HasSuffix(content, "\n")}
	if strings.Count(content, "\r\n")*2 > strings.Count(content, "\n") {
		eol.Sep = "\r\n"
	}

	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if eol.TrailingNewline {
		normalized = strings.TrimSuffix(normalized, "\n")
	}
	if normalized == "" && content == "" {
		return []string{}, eol
	}
	return strings.Split(normalized, "\n"), eol
}

// JoinDocument is the inverse of SplitDocument.
func JoinDocument(lines []string, eol LineEnding) string {
	if eol.Sep == "" {
		eol.Sep = "\n"
	}
	out := strings.Join(lines, eol.Sep)
	if eol.TrailingNewline && (out != "" || len(lines) > 0) {
		out += eol.Sep
	}
	return out
}
