package hachimi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Weights are the relative frequencies of each category. Base must be
// positive; optional categories at or above Base appear on every variant.
type Weights struct {
	Base    float64 `json:"base"`
	Onomat  float64 `json:"onomat"`
	Symbol  float64 `json:"symbol"`
	Emoji   float64 `json:"emoji"`
	Kaomoji float64 `json:"kaomoji"`
}

// DefaultWeights is used for any weight a caller leaves unset.
var DefaultWeights = Weights{
	Base:    5,
	Onomat:  5,
	Symbol:  1,
	Emoji:   0.5,
	Kaomoji: 0.2,
}

// get returns the weight of category c.
func (w Weights) get(c Category) float64 {
	switch c {
	case CategoryBase:
		return w.Base
	case CategoryOnomat:
		return w.Onomat
	case CategorySymbol:
		return w.Symbol
	case CategoryEmoji:
		return w.Emoji
	case CategoryKaomoji:
		return w.Kaomoji
	default:
		return 0
	}
}

// ratio is the share of variants that carry category c, in [0, 1].
func (w Weights) ratio(c Category) float64 {
	v := w.get(c)
	if v <= 0 || w.Base <= 0 {
		return 0
	}
	r := v / w.Base
	if math.IsNaN(r) {
		return 0
	}
	return math.Min(1, r)
}

// PartialWeights overrides a subset of Weights. Nil fields keep their
// current value.
type PartialWeights struct {
	Base    *float64 `json:"base,omitempty"`
	Onomat  *float64 `json:"onomat,omitempty"`
	Symbol  *float64 `json:"symbol,omitempty"`
	Emoji   *float64 `json:"emoji,omitempty"`
	Kaomoji *float64 `json:"kaomoji,omitempty"`
}

// Weight returns a pointer to v, for building PartialWeights literals.
func Weight(v float64) *float64 {
	return &v
}

// Merge returns p with every field set in o taking precedence.
func (p PartialWeights) Merge(o *PartialWeights) PartialWeights {
	if o == nil {
		return p
	}
	if o.Base != nil {
		p.Base = o.Base
	}
	if o.Onomat != nil {
		p.Onomat = o.Onomat
	}
	if o.Symbol != nil {
		p.Symbol = o.Symbol
	}
	if o.Emoji != nil {
		p.Emoji = o.Emoji
	}
	if o.Kaomoji != nil {
		p.Kaomoji = o.Kaomoji
	}
	return p
}

// Resolve fills unset fields from DefaultWeights. A base weight that is
// not positive falls back to the default; an infinite base is kept and
// gives every decoration a zero ratio. NaN or negative optional weights
// count as zero.
func (p PartialWeights) Resolve() Weights {
	w := DefaultWeights
	pick := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	pick(&w.Base, p.Base)
	pick(&w.Onomat, p.Onomat)
	pick(&w.Symbol, p.Symbol)
	pick(&w.Emoji, p.Emoji)
	pick(&w.Kaomoji, p.Kaomoji)

	if !(w.Base > 0) {
		w.Base = DefaultWeights.Base
	}
	for _, f := range []*float64{&w.Onomat, &w.Symbol, &w.Emoji, &w.Kaomoji} {
		if math.IsNaN(*f) || *f < 0 {
			*f = 0
		}
	}
	return w
}

// ParseWeights parses a comma separated list of name=value pairs, for
// example "onomat=5,symbol=1,emoji=0.5".
func ParseWeights(s string) (PartialWeights, error) {
	var p PartialWeights
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, value, ok := strings.Cut(field, "=")
		if !ok {
			return p, fmt.Errorf("weight %q: expected name=value", field)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return p, fmt.Errorf("weight %q: %w", field, err)
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "base":
			p.Base = &f
		case "onomat", "onomatopoeia":
			p.Onomat = &f
		case "symbol":
			p.Symbol = &f
		case "emoji":
			p.Emoji = &f
		case "kaomoji":
			p.Kaomoji = &f
		default:
			return p, fmt.Errorf("weight %q: unknown category %q", field, name)
		}
	}
	return p, nil
}
