package match

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Weight of the secondary comparisons relative to an exact line match.
// A line that matches only after whitespace normalization is worth
// normalizedCredit; a near-miss line gets its character similarity scaled
// by similarCredit, and only when it clears similarFloor.
const (
	normalizedCredit = 0.9
	similarCredit    = 0.8
	similarFloor     = 0.5
)

// Scorer computes a normalized closeness measure between a candidate window
// of source lines and a hunk's expected lines. It is deterministic and never
// mutates its inputs.
type Scorer struct {
	// AnchorConfidence is the fixed confidence assigned to pure-insertion
	// hunks, which carry no content to match. It sits below any
	// context-verified score the locator would prefer at the same position.
	AnchorConfidence float64

	dmp *diffmatchpatch.DiffMatchPatch
}

// NewScorer returns a Scorer with the given anchor-only confidence.
func NewScorer(anchorConfidence float64) *Scorer {
	return &Scorer{
		AnchorConfidence: anchorConfidence,
		dmp:              diffmatchpatch.New(),
	}
}

// Score returns a confidence in [0,1] for matching expected against window.
// Exact in-order line matches (an alignment allowing skips on both sides)
// count fully; lines that fail exact match earn partial credit from a
// whitespace-normalized comparison and, below that, character-level
// similarity of the normalized pair.
func (s *Scorer) Score(window, expected []string) float64 {
	if len(expected) == 0 {
		return 0
	}

	pairs := alignLines(window, expected)

	credit := 0.0
	matchedWindow := make([]bool, len(window))
	matchedExpected := make([]bool, len(expected))
	for _, pr := range pairs {
		credit += 1.0
		matchedWindow[pr.w] = true
		matchedExpected[pr.e] = true
	}

	// Pair the leftovers of both streams in order and grant partial credit.
	wi, ei := 0, 0
	for wi < len(window) && ei < len(expected) {
		if matchedWindow[wi] {
			wi++
			continue
		}
		if matchedExpected[ei] {
			ei++
			continue
		}
		credit += s.lineCredit(window[wi], expected[ei])
		wi++
		ei++
	}

	score := credit / float64(len(expected))
	if score > 1 {
		score = 1
	}
	return score
}

// lineCredit grades a near-miss pair of lines.
func (s *Scorer) lineCredit(got, want string) float64 {
	ng, nw := NormalizeLine(got), NormalizeLine(want)
	if ng == nw {
		if ng == "" {
			return 0
		}
		return normalizedCredit
	}
	sim := s.charSimilarity(ng, nw)
	if sim < similarFloor {
		return 0
	}
	return sim * similarCredit
}

// charSimilarity is the fraction of characters shared between two strings,
// computed from a character-level diff: 2*equal / (len(a)+len(b)).
func (s *Scorer) charSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	equal := 0
	for _, d := range s.dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			equal += len(d.Text)
		}
	}
	return 2 * float64(equal) / float64(len(a)+len(b))
}

// NormalizeLine collapses runs of whitespace to single spaces and trims the
// ends, erasing indentation and tab/space differences.
func NormalizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type alignPair struct{ w, e int }

// alignLines computes an in-order alignment of exactly-equal lines between
// the two slices (a longest common subsequence), allowing skips on either
// side.
func alignLines(window, expected []string) []alignPair {
	n, m := len(window), len(expected)
	if n == 0 || m == 0 {
		return nil
	}

	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if window[i] == expected[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	pairs := make([]alignPair, 0, table[0][0])
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case window[i] == expected[j]:
			pairs = append(pairs, alignPair{w: i, e: j})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}
