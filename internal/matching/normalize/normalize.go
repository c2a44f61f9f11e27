// internal/matching/normalize/normalize.go

// Package normalize produces the canonical comparison strings every other
// matching stage works on. All patterns are precompiled; the functions are
// pure and safe for concurrent use.
package normalize

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'", "`", "'", "´", "'")

	punctPattern = regexp.MustCompile(`[^a-z0-9' ]+`)
	spacePattern = regexp.MustCompile(`\s+`)

	// "- 34th edition", "34ème édition", "Édition 3". Must run before year
	// stripping so "édition 2025" style names lose the marker first.
	editionPhrasePattern = regexp.MustCompile(`(?i)[\s,-]*\b\d{1,3}\s*(?:[eè]me|[eè]re|er|nd|rd|st|th|e)?\s*[ée]dition\b`)
	// Leading boundary spelled out: \b does not fire before an accented rune.
	editionRefPattern = regexp.MustCompile(`(?i)(?:^|[\s-])[ée]dition\s*(?:n[o°]?\s*\.?\s*)?\d{1,3}\b`)

	// Bare ordinal tokens: "34ème", "3rd", "1er". The suffix must directly
	// follow the digits, so cardinal distances like "100km" never match.
	ordinalPattern = regexp.MustCompile(`(?i)\b\d{1,3}(?:[eè]me|[eè]re|ere|er|nd|rd|st|th|e)\b`)

	// Numbering markers: "#3", "No. 8", "N° 5", "no8".
	numberingPattern = regexp.MustCompile(`(?i)(?:#|\bn[o°]\s*\.?\s*)\d{1,3}\b`)

	// A trailing bare 4-digit year, optionally parenthesized or dash-prefixed.
	trailingYearPattern = regexp.MustCompile(`[-\s(]+(?:19|20)\d{2}\)?$`)

	// A trailing parenthesized remark, commonly a redundant place name.
	trailingRemarkPattern = regexp.MustCompile(`\s*\([^)]*\)$`)

	raceSuffixPattern = regexp.MustCompile(`(?i)[\s-]+(?:tc|h|f|m|x|hommes?|femmes?|mixte|masters?)$`)
)

// Stopwords ignored when extracting name keywords.
var stopwords = map[string]bool{
	"les": true, "des": true, "las": true,
	"aux": true, "sur": true, "sous": true, "dans": true,
	"par": true, "pour": true, "avec": true, "chez": true,
	"une": true, "ses": true, "son": true,
	"course": true, "courses": true,
	"the": true, "and": true,
}

// Normalize lower-cases, strips diacritics, unifies apostrophe variants,
// replaces punctuation with spaces and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = apostrophes.Replace(s)
	s = unidecode.Unidecode(s)
	s = punctPattern.ReplaceAllString(s, " ")
	return collapse(s)
}

// StripEditionMarkers removes edition ordinals, numbering markers, a trailing
// bare year and a trailing parenthesized remark from an event name. It is
// idempotent, and digits lacking ordinal/numbering context are preserved
// ("100km de Millau" stays intact). Removal order matters: edition and
// numbering markers go before the year so "Trail #3 (2025)" loses both.
func StripEditionMarkers(name string) string {
	s := name
	// Stripping a remark can expose a trailing year (and vice versa), so the
	// ordered pass repeats until a fixpoint. Bounded: each pass only removes.
	for i := 0; i < 5; i++ {
		prev := s
		for _, p := range []*regexp.Regexp{
			editionPhrasePattern,
			editionRefPattern,
			ordinalPattern,
			numberingPattern,
			trailingYearPattern,
			trailingRemarkPattern,
		} {
			s = trimEdges(p.ReplaceAllString(s, " "))
		}
		if s == prev {
			break
		}
	}
	return s
}

// NormalizeDepartment canonicalizes a department code: the leading zero of a
// 3-digit metropolitan code is dropped, overseas codes (97x/98x) keep three
// digits, Corsican letter codes are upper-cased.
func NormalizeDepartment(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) == 3 && c[0] == '0' {
		return c[1:]
	}
	return c
}

// Keywords returns the stopword-free significant words (>= 3 chars) of a name,
// in normalized form.
func Keywords(name string) []string {
	n := strings.ReplaceAll(Normalize(name), "'", " ")
	var out []string
	for _, w := range strings.Fields(n) {
		if len(w) >= 3 && !stopwords[w] {
			out = append(out, w)
		}
	}
	return out
}

// SharedKeywords returns the keywords present in both lists.
func SharedKeywords(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, w := range a {
		seen[w] = true
	}
	var out []string
	for _, w := range b {
		if seen[w] {
			out = append(out, w)
			seen[w] = false
		}
	}
	return out
}

// StripRaceSuffix removes FFA category suffixes and a trailing parenthesized
// remark from a race name, for name-based disambiguation.
func StripRaceSuffix(name string) string {
	s := trimEdges(trailingRemarkPattern.ReplaceAllString(name, " "))
	return trimEdges(raceSuffixPattern.ReplaceAllString(s, " "))
}

func collapse(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// trimEdges collapses whitespace and trims the stray dashes a pattern removal
// can leave behind.
func trimEdges(s string) string {
	s = collapse(s)
	s = strings.Trim(s, "-–, ")
	return collapse(s)
}
