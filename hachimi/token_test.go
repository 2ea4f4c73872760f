package hachimi

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func defaultConfig(t *testing.T) (*Vocabulary, *Config) {
	t.Helper()
	v := DefaultVocabulary()
	cfg, err := NewConfig(DefaultWeights, v.Lengths())
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	return v, cfg
}

func TestEncodeValue_Golden(t *testing.T) {
	v, cfg := defaultConfig(t)
	tests := []struct {
		value int
		want  string
	}{
		{0, "哈基米啊🐈♪≧▽≦"},
		{1, "南北绿豆哦😻♫＾▽＾"},
		{10, "蛋蛋leg😿↑≧◡≦"},
		{1023, "哈呀库诶😾"},
	}

	for _, tt := range tests {
		got, err := v.EncodeValue(tt.value, cfg)
		if err != nil {
			t.Fatalf("EncodeValue(%d) error: %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("EncodeValue(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestEncodeValue_OutOfRange(t *testing.T) {
	v, cfg := defaultConfig(t)
	for _, value := range []int{-1, Radix, Radix + 7} {
		if _, err := v.EncodeValue(value, cfg); !errors.Is(err, ErrValueOutOfRange) {
			t.Errorf("EncodeValue(%d) error = %v, want ErrValueOutOfRange", value, err)
		}
	}
}

func TestEncodeValue_VariantOverflow(t *testing.T) {
	v, cfg := defaultConfig(t)
	short := *cfg
	short.Templates = cfg.Templates[:10]
	if _, err := v.EncodeValue(500, &short); !errors.Is(err, ErrVariantOverflow) {
		t.Errorf("error = %v, want ErrVariantOverflow", err)
	}
}

// Every value must survive encode, parse and lookup, for every weight mix.
func TestTokenBijection(t *testing.T) {
	v := DefaultVocabulary()
	for name, pw := range weightGrid {
		t.Run(name, func(t *testing.T) {
			cfg, err := NewConfig(pw.Resolve(), v.Lengths())
			if err != nil {
				t.Fatalf("NewConfig failed: %v", err)
			}
			seen := make(map[string]int, Radix)
			for value := 0; value < Radix; value++ {
				tok, err := v.EncodeValue(value, cfg)
				if err != nil {
					t.Fatalf("EncodeValue(%d): %v", value, err)
				}
				if prev, dup := seen[tok]; dup {
					t.Fatalf("values %d and %d both encode to %q", prev, value, tok)
				}
				seen[tok] = value

				parsed, err := v.Parse(tok)
				if err != nil {
					t.Fatalf("Parse(%q): %v", tok, err)
				}
				if len(parsed) != 1 {
					t.Fatalf("Parse(%q) = %d tokens, want 1", tok, len(parsed))
				}
				got, ok := v.TokenValue(parsed[0], cfg)
				if !ok || got != value {
					t.Fatalf("TokenValue(%q) = %d, %v; want %d", tok, got, ok, value)
				}
			}
		})
	}
}

func TestTokenValue_Rejects(t *testing.T) {
	v, cfg := defaultConfig(t)
	lengths := v.Lengths()
	last := cfg.Templates[len(cfg.Templates)-1]

	tests := []struct {
		name string
		tok  ParsedToken
		ok   bool
	}{
		{"last_value", ParsedToken{Base: 15, Parts: last.materialize(15, lengths)}, true},
		{"radix", ParsedToken{Base: 16, Parts: last.materialize(16, lengths)}, false},
		{"beyond_radix", ParsedToken{Base: 17, Parts: last.materialize(17, lengths)}, false},
		{"bare_base", ParsedToken{Base: 0, Parts: NoParts}, false},
		{"kaomoji_only", ParsedToken{Base: 0, Parts: Parts{unset, unset, unset, 3}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := v.TokenValue(tt.tok, cfg)
			if ok != tt.ok {
				t.Errorf("TokenValue ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}

func TestParse_Backtracks(t *testing.T) {
	v := DefaultVocabulary()

	// "哦" is an onomatopoeia and also starts the base word "哦耶". The
	// parser first attaches it to 哈基米, fails on "耶", and backtracks.
	got, err := v.Parse("哈基米哦耶")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []ParsedToken{
		{Base: 0, Parts: NoParts, Start: 0, End: len("哈基米")},
		{Base: 16, Parts: NoParts, Start: len("哈基米"), End: len("哈基米哦耶")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_AttachesBeforeSkipping(t *testing.T) {
	v := DefaultVocabulary()
	got, err := v.Parse("哈基米哦♪")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d tokens, want 1", len(got))
	}
	ono, _ := got[0].Parts.Get(CategoryOnomat)
	sym, _ := got[0].Parts.Get(CategorySymbol)
	if v.Onomat.Get(ono) != "哦" || v.Symbol.Get(sym) != "♪" {
		t.Errorf("parts = %v", got[0].Parts)
	}
	if _, ok := got[0].Parts.Get(CategoryEmoji); ok {
		t.Error("unexpected emoji part")
	}
}

func TestParse_Failures(t *testing.T) {
	v := DefaultVocabulary()
	for _, input := range []string{"hello", "哈基米x", "♪哈基米", "哈基米哈"} {
		if _, err := v.Parse(input); !errors.Is(err, ErrSegmentationFailed) {
			t.Errorf("Parse(%q) error = %v, want ErrSegmentationFailed", input, err)
		}
	}

	tokens, err := v.Parse("")
	if err != nil || len(tokens) != 0 {
		t.Errorf("Parse(\"\") = %v, %v", tokens, err)
	}
}

func TestParse_LongInputLinear(t *testing.T) {
	v, cfg := defaultConfig(t)
	var sb strings.Builder
	var want []int
	for i := 0; i < 5000; i++ {
		value := (i * 389) % Radix
		tok, err := v.EncodeValue(value, cfg)
		if err != nil {
			t.Fatal(err)
		}
		sb.WriteString(tok)
		want = append(want, value)
	}

	tokens, err := v.Parse(sb.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := make([]int, len(tokens))
	for i, tok := range tokens {
		got[i], _ = v.TokenValue(tok, cfg)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}
