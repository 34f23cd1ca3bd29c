// Package textmatch folds accents for catalog search and matches % wildcard
// patterns against folded text. ñ, Ñ, ç and Ç are never folded.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that are distinct phonemes and must survive folding. Each is parked on a
// private-use code point while combining marks are removed.
var preserved = [...]struct {
	letter, placeholder rune
}{
	{'ñ', '\uE000'},
	{'Ñ', '\uE001'},
	{'ç', '\uE002'},
	{'Ç', '\uE003'},
}

func protect(r rune) rune {
	for _, p := range preserved {
		if r == p.letter {
			return p.placeholder
		}
	}
	return r
}

func restore(r rune) rune {
	for _, p := range preserved {
		if r == p.placeholder {
			return p.letter
		}
	}
	return r
}

// foldChain builds a fresh transformer: chains carry state and are not safe
// for concurrent use.
func foldChain() transform.Transformer {
	return transform.Chain(
		norm.NFC,
		runes.Map(protect),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		runes.Map(restore),
	)
}

// Normalize removes diacritics (café -> cafe) except on ñ, Ñ, ç and Ç.
// Empty input is returned as is.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	result, _, err := transform.String(foldChain(), s)
	if err != nil {
		return s
	}
	return result
}

// Fold normalizes and lowercases s. Both sides of every comparison go through it.
func Fold(s string) string {
	return strings.ToLower(Normalize(s))
}

// Equal reports whether a and b are the same once accents and case are folded.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}
