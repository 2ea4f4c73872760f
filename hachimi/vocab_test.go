package hachimi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultVocabulary_Lengths(t *testing.T) {
	v := DefaultVocabulary()
	want := PoolLengths{18, 13, 27, 12, 13}
	if got := v.Lengths(); got != want {
		t.Errorf("Lengths() = %v, want %v", got, want)
	}
	if v.LeadCount() != 3 {
		t.Errorf("LeadCount() = %d, want 3", v.LeadCount())
	}
	for i, w := range []string{"哈基米", "南北绿豆", "曼波"} {
		if got := v.LeadWord(i); got != w {
			t.Errorf("LeadWord(%d) = %q, want %q", i, got, w)
		}
		idx, _ := v.Base.Index(w)
		if !v.IsLead(idx) {
			t.Errorf("IsLead(%q) = false", w)
		}
	}
	if idx, _ := v.Base.Index("奶龙"); v.IsLead(idx) {
		t.Error("IsLead(奶龙) = true")
	}
}

func TestNewPool_Dedupe(t *testing.T) {
	p := NewPool(CategorySymbol, []string{"♪", "~", "", "♪", "~~", "~"})
	want := []string{"♪", "~", "~~"}
	if diff := cmp.Diff(want, p.Entries()); diff != "" {
		t.Errorf("Entries mismatch (-want +got):\n%s", diff)
	}
	if i, ok := p.Index("~~"); !ok || i != 2 {
		t.Errorf("Index(~~) = %d, %v", i, ok)
	}
}

func TestPool_MatchAt_Longest(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		name  string
		pool  *Pool
		text  string
		start int
		want  string
	}{
		{"emoji_zwj", v.Emoji, "🐈‍⬛😺", 0, "🐈‍⬛"},
		{"emoji_plain", v.Emoji, "🐈😺", 0, "🐈"},
		{"tilde", v.Symbol, "~~~", 0, "~~"},
		{"base_long", v.Base, "曼波波波哈基米", 0, "曼波波波"},
		{"base_offset", v.Base, "xx哈亚库纳咯", 2, "哈亚库纳咯"},
		{"ascii_onomat", v.Onomat, "miao", 0, "miao"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, end, ok := tt.pool.MatchAt(tt.text, tt.start)
			if !ok {
				t.Fatalf("MatchAt(%q, %d) found nothing", tt.text, tt.start)
			}
			if got := tt.pool.Get(i); got != tt.want {
				t.Errorf("matched %q, want %q", got, tt.want)
			}
			if end != tt.start+len(tt.want) {
				t.Errorf("end = %d, want %d", end, tt.start+len(tt.want))
			}
		})
	}

	if _, _, ok := v.Base.MatchAt("hello", 0); ok {
		t.Error("MatchAt(hello) should not match a base word")
	}
}

func TestNewVocabulary_Errors(t *testing.T) {
	tests := []struct {
		name string
		base []string
		lead []string
		want error
	}{
		{"empty_base", nil, []string{"a"}, ErrEmptyBasePool},
		{"lead_missing", []string{"a", "b"}, []string{"c"}, ErrLeadNotInBase},
		{"no_lead", []string{"a"}, nil, ErrLeadNotInBase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVocabulary(tt.base, nil, nil, nil, nil, tt.lead)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCategory_String(t *testing.T) {
	names := map[Category]string{
		CategoryBase:    "base",
		CategoryOnomat:  "onomat",
		CategorySymbol:  "symbol",
		CategoryEmoji:   "emoji",
		CategoryKaomoji: "kaomoji",
		Category(9):     "unknown(9)",
	}
	for c, want := range names {
		if got := c.String(); got != want {
			t.Errorf("Category(%d).String() = %q, want %q", c, got, want)
		}
	}
}
