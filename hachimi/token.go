package hachimi

import (
	"fmt"
	"strings"
)

// ParsedToken is one token recovered from surface text.
type ParsedToken struct {
	Base  int   // index into the base pool
	Parts Parts // decorations that followed the base word
	Start int   // byte offset of the token in the parsed text
	End   int   // byte offset just past the token
}

// EncodeValue renders a token value in [0, Radix) as surface text.
func (v *Vocabulary) EncodeValue(value int, cfg *Config) (string, error) {
	if value < 0 || value >= Radix {
		return "", fmt.Errorf("%w: %d", ErrValueOutOfRange, value)
	}
	variant, base := cfg.Split(value)
	if variant >= len(cfg.Templates) {
		return "", fmt.Errorf("%w: variant %d of %d", ErrVariantOverflow, variant, len(cfg.Templates))
	}
	parts := cfg.Templates[variant].materialize(base, v.Lengths())
	return v.compose(base, parts), nil
}

// compose concatenates the base word and its decorations in wire order.
func (v *Vocabulary) compose(base int, parts Parts) string {
	var sb strings.Builder
	sb.WriteString(v.Base.Get(base))
	for _, c := range tokenOrder {
		if i, ok := parts.Get(c); ok {
			sb.WriteString(v.Pool(c).Get(i))
		}
	}
	return sb.String()
}

// TokenValue maps a parsed token back to its value. It reports false when
// no template produces the observed decorations or the value falls outside
// [0, Radix).
func (v *Vocabulary) TokenValue(tok ParsedToken, cfg *Config) (int, bool) {
	lengths := v.Lengths()
	for variant, t := range cfg.Templates {
		if t.materialize(tok.Base, lengths) != tok.Parts {
			continue
		}
		value := variant*lengths[CategoryBase] + tok.Base
		if value >= Radix {
			return 0, false
		}
		return value, true
	}
	return 0, false
}

// ============================================================
// Segmentation
// ============================================================

// Parse segments text, which must contain no whitespace, into tokens of
// the form base [onomat] [emoji] [symbol] [kaomoji]. Each fragment is
// matched longest-first; at each decoration the parser tries attaching
// before skipping and backtracks on failure. Results are memoized per
// offset, so every offset is solved at most once.
func (v *Vocabulary) Parse(text string) ([]ParsedToken, error) {
	s := &segmenter{
		vocab: v,
		text:  text,
		state: make([]segState, len(text)+1),
		next:  make([]ParsedToken, len(text)+1),
	}
	if !s.solve(0) {
		return nil, fmt.Errorf("%w: stuck at byte %d", ErrSegmentationFailed, s.furthest)
	}

	var tokens []ParsedToken
	for pos := 0; pos < len(text); pos = s.next[pos].End {
		tokens = append(tokens, s.next[pos])
	}
	return tokens, nil
}

type segState uint8

const (
	segUnknown segState = iota
	segOK
	segFail
)

type segmenter struct {
	vocab    *Vocabulary
	text     string
	state    []segState
	next     []ParsedToken // chosen token at each solved offset
	furthest int           // deepest offset reached, for diagnostics
}

// solve reports whether text[pos:] can be fully segmented.
func (s *segmenter) solve(pos int) bool {
	if pos == len(s.text) {
		return true
	}
	switch s.state[pos] {
	case segOK:
		return true
	case segFail:
		return false
	}
	s.furthest = max(s.furthest, pos)

	for _, opt := range s.options(pos) {
		if s.solve(opt.End) {
			s.state[pos] = segOK
			s.next[pos] = opt
			return true
		}
	}
	s.state[pos] = segFail
	return false
}

// options enumerates candidate tokens starting at pos in priority order.
func (s *segmenter) options(pos int) []ParsedToken {
	base, cursor, ok := s.vocab.Base.MatchAt(s.text, pos)
	if !ok {
		return nil
	}

	var out []ParsedToken
	var walk func(step, cursor int, parts Parts)
	walk = func(step, cursor int, parts Parts) {
		if step == len(tokenOrder) {
			out = append(out, ParsedToken{Base: base, Parts: parts, Start: pos, End: cursor})
			return
		}
		c := tokenOrder[step]
		if i, end, ok := s.vocab.Pool(c).MatchAt(s.text, cursor); ok {
			attached := parts
			attached[c.slot()] = i
			walk(step+1, end, attached)
		}
		walk(step+1, cursor, parts)
	}
	walk(0, cursor, NoParts)
	return out
}
