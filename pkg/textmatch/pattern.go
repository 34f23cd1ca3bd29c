package textmatch

import "strings"

// Wildcard marks an open end of a pattern.
const Wildcard = "%"

// Mode is how a pattern token is compared to a candidate.
type Mode int

const (
	ModeExact Mode = iota
	ModePrefix
	ModeSuffix
	ModeContains
)

func (m Mode) String() string {
	switch m {
	case ModePrefix:
		return "prefix"
	case ModeSuffix:
		return "suffix"
	case ModeContains:
		return "contains"
	default:
		return "exact"
	}
}

// Pattern is a compiled search pattern. The token is folded once so that a
// linear scan only folds candidates.
type Pattern struct {
	Raw   string
	Mode  Mode
	Token string
}

// Compile classifies a raw pattern by its leading and trailing wildcards.
// Only the outer runs of % are stripped; inner ones stay literal.
func Compile(pattern string) Pattern {
	leading := strings.HasPrefix(pattern, Wildcard)
	trailing := strings.HasSuffix(pattern, Wildcard)

	var mode Mode
	switch {
	case leading && trailing:
		mode = ModeContains
	case leading:
		mode = ModeSuffix
	case trailing:
		mode = ModePrefix
	default:
		mode = ModeExact
	}

	return Pattern{
		Raw:   pattern,
		Mode:  mode,
		Token: Fold(strings.Trim(pattern, Wildcard)),
	}
}

// Match reports whether candidate satisfies the pattern.
// "%" alone compiles to an empty contains token and matches everything.
func (p Pattern) Match(candidate string) bool {
	c := Fold(candidate)
	switch p.Mode {
	case ModeContains:
		return strings.Contains(c, p.Token)
	case ModeSuffix:
		return strings.HasSuffix(c, p.Token)
	case ModePrefix:
		return strings.HasPrefix(c, p.Token)
	default:
		return c == p.Token
	}
}

// Matches compiles pattern and tests a single candidate.
func Matches(pattern, candidate string) bool {
	return Compile(pattern).Match(candidate)
}
