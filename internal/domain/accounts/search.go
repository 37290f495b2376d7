package accounts

import (
	"strings"
	"unicode"
)

// turkishFold maps Turkish letters and common diacritics to ASCII so that
// extractor output ("SUPHELI TICARI ALACAKLAR") matches canonical names
// ("Şüpheli Ticari Alacaklar") regardless of OCR casing.
var turkishFold = map[rune]rune{
	'ç': 'c', 'Ç': 'c',
	'ğ': 'g', 'Ğ': 'g',
	'ı': 'i', 'I': 'i',
	'İ': 'i',
	'ö': 'o', 'Ö': 'o',
	'ş': 's', 'Ş': 's',
	'ü': 'u', 'Ü': 'u',
	'â': 'a', 'Â': 'a',
	'î': 'i', 'Î': 'i',
	'û': 'u', 'Û': 'u',
}

// NormalizeLabel case-folds, strips diacritics and collapses whitespace.
// Used for all label comparisons: search scoring, keyword classification
// and company title mismatch checks.
func NormalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range s {
		if folded, ok := turkishFold[r]; ok {
			r = folded
		} else {
			r = unicode.ToLower(r)
		}

		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	return strings.TrimRight(b.String(), " ")
}

// similarity scores two normalized strings in [0,1].
// Exact match is 1; containment scores by length ratio; otherwise
// edit distance over the longer length.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	longer, shorter := a, b
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}

	if strings.Contains(longer, shorter) {
		ratio := float64(len(shorter)) / float64(len(longer))
		return 0.80 + 0.15*ratio
	}

	dist := levenshtein(a, b)
	maxLen := len([]rune(longer))
	score := 1.0 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// levenshtein computes edit distance over runes with two rolling rows.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// containsWord reports whether normalized text contains kw as a substring.
// Keyword lists are short, plain Contains is sufficient.
func containsWord(text, kw string) bool {
	return strings.Contains(text, kw)
}
