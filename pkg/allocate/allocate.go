/*
Package allocate assigns unique 3-letter codes to tokenized station names.

A seed code is derived from the tokens: the first letter of the first word,
a tail of the first word whose length shrinks as the word count grows, and
the initials of the remaining words. When the seed is already taken the
allocator walks a fixed cascade:

	tail      replace the last letter with letters from the end of the last word
	rotation  the five non-identity permutations of the three letters
	extra     replace the last letter with initials of words past the third
	sweep     104 single/double letter substitutions over A-Z

Only the letters A-Z of a token take part, so "L'AQUILA" is allocated
exactly like "LAQUILA". The first free candidate of each stage wins, except
for the sweep, whose policy is configurable (see SweepPolicy). Given the same names in the same
order and an empty store, the output is always identical.
*/
package allocate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/pkg/code"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// maxReversedTail bounds the fragment borrowed from the longest word.
	maxReversedTail = 4
)

var (
	// ErrAllocationExhausted is returned when no stage finds a free code.
	ErrAllocationExhausted = errors.New("allocation exhausted")
	// ErrNoTokens is returned for an empty token sequence.
	ErrNoTokens = errors.New("no tokens to allocate from")
	// ErrInvalidToken is returned for empty or lowercase tokens.
	ErrInvalidToken = errors.New("token is not uppercase")
)

// CodeStore is the registry capability the allocator needs.
type CodeStore interface {
	Contains(c code.Code) (bool, error)
	Insert(c code.Code, sourceID string) error
}

// Stage tells which step of the cascade produced a code.
type Stage int

const (
	StageSeed Stage = iota
	StageTail
	StageRotation
	StageExtraWord
	StageSweep
	// StageExisting marks a code reused from a persistent registry.
	StageExisting
)

func (s Stage) String() string {
	switch s {
	case StageSeed:
		return "seed"
	case StageTail:
		return "tail"
	case StageRotation:
		return "rotation"
	case StageExtraWord:
		return "extra-word"
	case StageSweep:
		return "sweep"
	case StageExisting:
		return "existing"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// SweepPolicy selects which free sweep candidate is adopted.
type SweepPolicy int

const (
	// SweepLastWins keeps overwriting the recorded candidate and adopts the
	// last free one in enumeration order. Matches codes already published.
	SweepLastWins SweepPolicy = iota
	// SweepFirstWins adopts the first free candidate.
	SweepFirstWins
)

// ParseSweepPolicy maps "last" and "first" to a policy.
func ParseSweepPolicy(s string) (SweepPolicy, error) {
	switch s {
	case "", "last":
		return SweepLastWins, nil
	case "first":
		return SweepFirstWins, nil
	default:
		return SweepLastWins, fmt.Errorf("unknown sweep policy %q", s)
	}
}

func (p SweepPolicy) String() string {
	if p == SweepFirstWins {
		return "first"
	}
	return "last"
}

// Result is the outcome of one allocation.
type Result struct {
	Code  code.Code
	Stage Stage
	// Seed is the candidate before any collision handling.
	Seed string
}

// Allocator hands out codes and records them in its store.
// It is not safe for concurrent use.
type Allocator struct {
	store  CodeStore
	policy SweepPolicy
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithSweepPolicy overrides the default SweepLastWins.
func WithSweepPolicy(p SweepPolicy) Option {
	return func(a *Allocator) {
		a.policy = p
	}
}

// New creates an Allocator writing into store.
func New(store CodeStore, opts ...Option) *Allocator {
	a := &Allocator{store: store, policy: SweepLastWins}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate finds a free code for tokens and inserts it for sourceID.
func (a *Allocator) Allocate(tokens []string, sourceID string) (Result, error) {
	tokens, err := letters(tokens)
	if err != nil {
		return Result{}, err
	}

	seed := Seed(tokens)
	res := Result{Seed: seed, Stage: StageSeed}
	if len(seed) != code.Length {
		return Result{}, fmt.Errorf("%w: seed %q from %v is too short", ErrAllocationExhausted, seed, tokens)
	}

	c := code.Code(seed)
	taken, err := a.store.Contains(c)
	if err != nil {
		return Result{}, fmt.Errorf("checking seed %s: %w", c, err)
	}

	if taken {
		for _, stage := range []struct {
			id  Stage
			run func([]string, code.Code) (code.Code, bool, error)
		}{
			{StageTail, a.tailWalk},
			{StageRotation, a.rotations},
			{StageExtraWord, a.extraWords},
			{StageSweep, a.sweep},
		} {
			next, ok, err := stage.run(tokens, c)
			if err != nil {
				return Result{}, err
			}
			c = next
			if ok {
				res.Stage, taken = stage.id, false
				break
			}
		}
		if taken {
			return Result{}, fmt.Errorf("%w: no free code for %v (seed %s)", ErrAllocationExhausted, tokens, seed)
		}
		log.Debug("collision resolved", "seed", seed, "code", c, "stage", res.Stage)
	}

	if err := a.store.Insert(c, sourceID); err != nil {
		return Result{}, fmt.Errorf("registering %s for %s: %w", c, sourceID, err)
	}
	res.Code = c
	return res, nil
}

// Seed builds the first candidate for tokens without consulting a store.
func Seed(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	first := tokens[0]
	prefixLen := max(1, 4-len(tokens))

	raw := []byte{first[0]}
	if prefixLen > 1 {
		raw = append(raw, tail(first, prefixLen-1)...)
	}
	for _, tok := range tokens[1:] {
		raw = append(raw, tok[0])
	}

	if len(raw) > code.Length {
		raw = raw[:code.Length]
	}

	longest := tokens[0]
	for _, tok := range tokens[1:] {
		if len(tok) > len(longest) {
			longest = tok
		}
	}
	frag := []byte(tail(longest, min(maxReversedTail, len(raw))))
	for i, j := 0, len(frag)-1; i < j; i, j = i+1, j-1 {
		frag[i], frag[j] = frag[j], frag[i]
	}
	raw = append(raw, frag...)
	if len(raw) > code.Length {
		raw = raw[:code.Length]
	}
	return string(raw)
}

func (a *Allocator) free(c code.Code) (bool, error) {
	taken, err := a.store.Contains(c)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", c, err)
	}
	return !taken, nil
}

// firstFree returns the first candidate not present in the store.
func (a *Allocator) firstFree(candidates []code.Code) (code.Code, bool, error) {
	for _, cand := range candidates {
		ok, err := a.free(cand)
		if err != nil {
			return "", false, err
		}
		if ok {
			return cand, true, nil
		}
	}
	return "", false, nil
}

// orKeep returns the first free candidate, or c when every one is taken.
func (a *Allocator) orKeep(c code.Code, candidates []code.Code) (code.Code, bool, error) {
	next, ok, err := a.firstFree(candidates)
	if err != nil || !ok {
		return c, false, err
	}
	return next, true, nil
}

func (a *Allocator) tailWalk(tokens []string, c code.Code) (code.Code, bool, error) {
	last := tokens[len(tokens)-1]
	candidates := make([]code.Code, 0, len(last))
	for k := 1; k < len(last); k++ {
		candidates = append(candidates, withLetter(c, 2, last[len(last)-k]))
	}
	next, ok, err := a.firstFree(candidates)
	if err != nil || ok {
		return next, ok, err
	}
	// an exhausted walk leaves the last letter it tried in place
	if len(candidates) > 0 {
		return candidates[len(candidates)-1], false, nil
	}
	return c, false, nil
}

func (a *Allocator) rotations(_ []string, c code.Code) (code.Code, bool, error) {
	return a.orKeep(c, Rotations(c))
}

// Rotations lists the five non-identity permutations of c in cascade order.
func Rotations(c code.Code) []code.Code {
	c0, c1, c2 := c[0], c[1], c[2]
	return []code.Code{
		code.Code([]byte{c2, c1, c0}),
		code.Code([]byte{c1, c0, c2}),
		code.Code([]byte{c1, c2, c0}),
		code.Code([]byte{c2, c0, c1}),
		code.Code([]byte{c0, c2, c1}),
	}
}

func (a *Allocator) extraWords(tokens []string, c code.Code) (code.Code, bool, error) {
	if len(tokens) <= 3 {
		return c, false, nil
	}
	candidates := make([]code.Code, 0, len(tokens)-3)
	for _, tok := range tokens[3:] {
		candidates = append(candidates, withLetter(c, 2, tok[0]))
	}
	return a.orKeep(c, candidates)
}

// SweepCandidates lists the 104 sweep candidates for c in enumeration order.
func SweepCandidates(c code.Code) []code.Code {
	out := make([]code.Code, 0, len(alphabet)*4)
	for i := 0; i < len(alphabet); i++ {
		l := alphabet[i]
		out = append(out,
			withLetter(c, 2, l),
			withLetter(c, 1, l),
			code.Code([]byte{c[0], l, l}),
			withLetter(c, 0, l),
		)
	}
	return out
}

func (a *Allocator) sweep(_ []string, c code.Code) (code.Code, bool, error) {
	candidates := SweepCandidates(c)
	if a.policy == SweepFirstWins {
		return a.orKeep(c, candidates)
	}

	var found code.Code
	for _, cand := range candidates {
		ok, err := a.free(cand)
		if err != nil {
			return "", false, err
		}
		if ok {
			found = cand
		}
	}
	if found == "" {
		return c, false, nil
	}
	return found, true, nil
}

func withLetter(c code.Code, pos int, l byte) code.Code {
	b := []byte(c)
	b[pos] = l
	return code.Code(b)
}

// tail returns the last n bytes of s, or s itself when it is shorter.
func tail(s string, n int) string {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// letters keeps the A-Z bytes of each token and drops tokens left empty.
func letters(tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			return nil, fmt.Errorf("%w: empty token in %v", ErrInvalidToken, tokens)
		}
		var b strings.Builder
		for i := 0; i < len(tok); i++ {
			switch c := tok[i]; {
			case c >= 'A' && c <= 'Z':
				b.WriteByte(c)
			case c >= 'a' && c <= 'z':
				return nil, fmt.Errorf("%w: %q", ErrInvalidToken, tok)
			}
		}
		if b.Len() > 0 {
			out = append(out, b.String())
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %v holds no letters A-Z", ErrNoTokens, tokens)
	}
	return out, nil
}
