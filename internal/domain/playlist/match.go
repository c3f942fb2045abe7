package playlist

import (
	"strings"
	"unicode"
)

// Normalize lowercases a string, strips punctuation, and collapses runs of
// whitespace into single spaces.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// Similar reports whether two strings are close enough to be treated as the
// same artist or album name. True when the normalized forms are equal or one
// contains the other. Intentionally permissive: it gates optional art
// enrichment, so a false positive costs far less than a missed match.
func Similar(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)

	if na == nb {
		return true
	}
	if na == "" || nb == "" {
		return false
	}

	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Similarity returns a trigram overlap score in [0,1] between the normalized
// forms of a and b. Equivalent in spirit to Postgres pg_trgm similarity():
// the size of the trigram intersection over the size of the union.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	if na == nb {
		if na == "" {
			return 0
		}
		return 1
	}

	ta := trigrams(na)
	tb := trigrams(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			common++
		}
	}

	union := len(ta) + len(tb) - common
	return float64(common) / float64(union)
}

// trigrams returns the set of 3-grams of s. Strings shorter than three
// characters contribute themselves as a single gram.
func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})

	runes := []rune(s)
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[string(runes)] = struct{}{}
		}
		return set
	}

	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// TrackSignature builds the normalized "artist - track" identity string used
// for track-boundary detection.
func TrackSignature(artist, track string) string {
	return strings.ToLower(strings.TrimSpace(artist)) + " - " + strings.ToLower(strings.TrimSpace(track))
}
