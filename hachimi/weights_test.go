package hachimi

import (
	"math"
	"testing"
)

func TestPartialWeights_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		partial PartialWeights
		want    Weights
	}{
		{"defaults", PartialWeights{}, DefaultWeights},
		{
			name:    "override_emoji",
			partial: PartialWeights{Emoji: Weight(3)},
			want:    Weights{Base: 5, Onomat: 5, Symbol: 1, Emoji: 3, Kaomoji: 0.2},
		},
		{
			name:    "zero_base_falls_back",
			partial: PartialWeights{Base: Weight(0)},
			want:    DefaultWeights,
		},
		{
			name:    "negative_base_falls_back",
			partial: PartialWeights{Base: Weight(-2)},
			want:    DefaultWeights,
		},
		{
			name:    "nan_base_falls_back",
			partial: PartialWeights{Base: Weight(math.NaN())},
			want:    DefaultWeights,
		},
		{
			name:    "infinite_base_kept",
			partial: PartialWeights{Base: Weight(math.Inf(1))},
			want:    Weights{Base: math.Inf(1), Onomat: 5, Symbol: 1, Emoji: 0.5, Kaomoji: 0.2},
		},
		{
			name:    "bad_optional_zeroed",
			partial: PartialWeights{Symbol: Weight(-1), Kaomoji: Weight(math.NaN())},
			want:    Weights{Base: 5, Onomat: 5, Symbol: 0, Emoji: 0.5, Kaomoji: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.partial.Resolve(); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPartialWeights_Merge(t *testing.T) {
	base := PartialWeights{Onomat: Weight(1), Symbol: Weight(2)}
	got := base.Merge(&PartialWeights{Symbol: Weight(9)}).Resolve()
	if got.Onomat != 1 || got.Symbol != 9 {
		t.Errorf("Merge = %+v", got)
	}
	if base.Merge(nil).Resolve() != base.Resolve() {
		t.Error("Merge(nil) changed weights")
	}
}

func TestParseWeights(t *testing.T) {
	p, err := ParseWeights("onomat=2, symbol=0.5 ,emoji=1,kaomoji=0,base=4")
	if err != nil {
		t.Fatalf("ParseWeights failed: %v", err)
	}
	want := Weights{Base: 4, Onomat: 2, Symbol: 0.5, Emoji: 1, Kaomoji: 0}
	if got := p.Resolve(); got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}

	empty, err := ParseWeights("")
	if err != nil || empty.Resolve() != DefaultWeights {
		t.Errorf("ParseWeights(\"\") = %+v, %v", empty, err)
	}

	for _, bad := range []string{"onomat", "onomat=x", "fur=1"} {
		if _, err := ParseWeights(bad); err == nil {
			t.Errorf("ParseWeights(%q) should fail", bad)
		}
	}
}
