// Package normalize turns raw station names into uppercase word tokens.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Rule replaces every occurrence of Old with New before tokenization.
type Rule struct {
	Old string `toml:"old"`
	New string `toml:"new"`
}

// Preset names for the built-in rule sets.
const (
	PresetDefault    = "default"
	PresetApostrophe = "apostrophe"
)

// DefaultRules deletes quotes and turns the other separators into spaces.
func DefaultRules() []Rule {
	return []Rule{
		{Old: "-", New: " "},
		{Old: "`", New: ""},
		{Old: "'", New: ""},
		{Old: ".", New: " "},
		{Old: "  ", New: " "},
		{Old: "/", New: " "},
	}
}

// ApostropheRules maps backticks to apostrophes and keeps apostrophes in tokens.
func ApostropheRules() []Rule {
	return []Rule{
		{Old: "-", New: " "},
		{Old: "`", New: "'"},
		{Old: ".", New: " "},
		{Old: "  ", New: " "},
		{Old: "/", New: " "},
	}
}

// RulesForPreset returns a copy of the named rule set.
func RulesForPreset(name string) ([]Rule, error) {
	switch name {
	case "", PresetDefault:
		return DefaultRules(), nil
	case PresetApostrophe:
		return ApostropheRules(), nil
	default:
		return nil, fmt.Errorf("unknown normalize preset %q", name)
	}
}

// Options controls a Normalizer.
type Options struct {
	Rules []Rule
	// FoldAccents strips combining marks, so "CANTÙ" becomes "CANTU".
	FoldAccents bool
	// LettersOnly drops every rune outside A-Z from the tokens.
	LettersOnly bool
}

// DefaultOptions is the configuration used when nothing else is given.
func DefaultOptions() Options {
	return Options{
		Rules:       DefaultRules(),
		FoldAccents: true,
		LettersOnly: true,
	}
}

// Normalizer splits names into tokens. It holds no mutable state and is
// safe for concurrent use.
type Normalizer struct {
	rules       []Rule
	foldAccents bool
	lettersOnly bool
}

// New creates a Normalizer. A nil rule list falls back to DefaultRules.
func New(opts Options) *Normalizer {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	return &Normalizer{
		rules:       append([]Rule(nil), rules...),
		foldAccents: opts.FoldAccents,
		lettersOnly: opts.LettersOnly,
	}
}

// Default returns a Normalizer built from DefaultOptions.
func Default() *Normalizer {
	return New(DefaultOptions())
}

// Rules returns a copy of the active rule list.
func (n *Normalizer) Rules() []Rule {
	return append([]Rule(nil), n.rules...)
}

// Tokens returns the ordered, non-empty uppercase words of name.
func (n *Normalizer) Tokens(name string) []string {
	s := strings.ToUpper(name)
	if n.foldAccents {
		s = foldAccents(s)
	}
	for _, r := range n.rules {
		if r.Old == "" {
			continue
		}
		s = strings.ReplaceAll(s, r.Old, r.New)
	}

	pieces := strings.Split(s, " ")
	tokens := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if n.lettersOnly {
			p = keepLetters(p)
		}
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

// Tokens normalizes name with the default options.
func Tokens(name string) []string {
	return Default().Tokens(name)
}

// foldAccents builds its chain per call: transform chains keep state.
func foldAccents(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

func keepLetters(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
