// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips diacritics: NFD decomposition, drop combining
// marks, recompose.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// affiliationStopwords are institutional boilerplate tokens that carry no
// identity signal and inflate similarity between unrelated departments.
var affiliationStopwords = map[string]bool{
	"department": true, "dept": true, "division": true, "laboratory": true,
	"lab": true, "school": true, "faculty": true, "center": true,
	"centre": true, "unit": true, "group": true, "section": true,
	"of": true, "for": true, "the": true, "and": true, "at": true, "in": true,
}

// fold lowercases s and strips diacritics ("Müller" → "muller").
func fold(s string) string {
	out, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// tokens splits folded text on anything that is not a letter or digit.
func tokens(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalizeFamily returns the canonical family-name form used in index
// keys ("van der Berg" → "vanderberg").
func normalizeFamily(family string) string {
	return strings.Join(tokens(family), "")
}

// normalizeGiven returns the given-name tokens ("J. Robert" → ["j","robert"]).
func normalizeGiven(given string) []string {
	return tokens(given)
}

// indexKey builds the candidate-index key: normalized family name plus
// the first initial of the given name.
func indexKey(family string, given []string) string {
	initial := ""
	if len(given) > 0 {
		r, _ := utf8.DecodeRuneInString(given[0])
		initial = string(r)
	}
	return normalizeFamily(family) + "|" + initial
}

// givenCompatible reports whether two given-name token lists could name
// the same person. An initial matches any full token starting with it;
// full tokens must be equal. A shorter list must be a prefix-compatible
// subsequence of the longer one ("j" ~ "jane", "jane b" ~ "jane").
func givenCompatible(a, b []string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for i, ta := range a {
		tb := b[i]
		if len(ta) == 1 || len(tb) == 1 {
			if ta[0] != tb[0] {
				return false
			}
			continue
		}
		if ta != tb {
			return false
		}
	}
	return true
}

// affiliationTokens normalizes an affiliation string into a token set
// with boilerplate removed.
func affiliationTokens(affiliation string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokens(affiliation) {
		if affiliationStopwords[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}

// jaccard returns |a∩b| / |a∪b|. Two empty sets score zero, not one:
// an absent affiliation is no evidence of similarity.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
