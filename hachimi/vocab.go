package hachimi

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Category identifies one of the five vocabulary pools.
type Category uint8

const (
	CategoryBase    Category = iota // mandatory head of every token
	CategoryOnomat                  // onomatopoeia
	CategorySymbol                  // musical notes, arrows, punctuation
	CategoryEmoji                   // cat emoji
	CategoryKaomoji                 // kaomoji faces
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryBase:
		return "base"
	case CategoryOnomat:
		return "onomat"
	case CategorySymbol:
		return "symbol"
	case CategoryEmoji:
		return "emoji"
	case CategoryKaomoji:
		return "kaomoji"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// slot is the position of an optional category inside a Template or Parts.
func (c Category) slot() int {
	return int(c) - 1
}

// optionalCategories lists the decorations in template slot order.
var optionalCategories = [...]Category{CategoryOnomat, CategorySymbol, CategoryEmoji, CategoryKaomoji}

// tokenOrder is the order decorations follow the base word on the wire.
// The encoder and the parser must agree on it.
var tokenOrder = [...]Category{CategoryOnomat, CategoryEmoji, CategorySymbol, CategoryKaomoji}

// ============================================================
// Pool
// ============================================================

// Pool is an ordered list of unique surface fragments. Indices are stable
// for the lifetime of the pool.
type Pool struct {
	Category Category
	entries  []string
	index    map[string]int
	byLength []int // entry indices, longest fragment first
}

// NewPool builds a pool from entries, keeping the first occurrence of each
// fragment. Duplicates and empty strings are dropped with a warning.
func NewPool(c Category, entries []string) *Pool {
	p := &Pool{
		Category: c,
		entries:  make([]string, 0, len(entries)),
		index:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e == "" {
			slog.Warn("hachimi: removed empty entry", "pool", c.String())
			continue
		}
		if _, dup := p.index[e]; dup {
			slog.Warn("hachimi: removed duplicate entry", "pool", c.String(), "entry", e)
			continue
		}
		p.index[e] = len(p.entries)
		p.entries = append(p.entries, e)
	}

	p.byLength = make([]int, len(p.entries))
	for i := range p.byLength {
		p.byLength[i] = i
	}
	sort.SliceStable(p.byLength, func(i, j int) bool {
		return len(p.entries[p.byLength[i]]) > len(p.entries[p.byLength[j]])
	})
	return p
}

// Len returns the number of fragments.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Get returns the fragment at index i.
func (p *Pool) Get(i int) string {
	return p.entries[i]
}

// Index returns the position of fragment s.
func (p *Pool) Index(s string) (int, bool) {
	i, ok := p.index[s]
	return i, ok
}

// Entries returns a copy of the fragments in index order.
func (p *Pool) Entries() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.entries...)
}

// MatchAt returns the longest fragment that text has as a prefix at start.
func (p *Pool) MatchAt(text string, start int) (index, end int, ok bool) {
	if p == nil {
		return 0, 0, false
	}
	rest := text[start:]
	for _, i := range p.byLength {
		if strings.HasPrefix(rest, p.entries[i]) {
			return i, start + len(p.entries[i]), true
		}
	}
	return 0, 0, false
}

// ============================================================
// Vocabulary
// ============================================================

// Vocabulary groups the five pools with the set of base words allowed to
// open a message.
type Vocabulary struct {
	Base    *Pool
	Onomat  *Pool
	Symbol  *Pool
	Emoji   *Pool
	Kaomoji *Pool

	lead    []int
	leadSet map[int]bool
}

// NewVocabulary builds a vocabulary. The base pool must be non-empty and
// every lead word must also be a base word.
func NewVocabulary(base, onomat, symbol, emoji, kaomoji, lead []string) (*Vocabulary, error) {
	v := &Vocabulary{
		Base:    NewPool(CategoryBase, base),
		Onomat:  NewPool(CategoryOnomat, onomat),
		Symbol:  NewPool(CategorySymbol, symbol),
		Emoji:   NewPool(CategoryEmoji, emoji),
		Kaomoji: NewPool(CategoryKaomoji, kaomoji),
		leadSet: make(map[int]bool, len(lead)),
	}
	if v.Base.Len() == 0 {
		return nil, ErrEmptyBasePool
	}
	if len(lead) == 0 {
		return nil, fmt.Errorf("%w: no lead words", ErrLeadNotInBase)
	}
	for _, w := range lead {
		i, ok := v.Base.Index(w)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrLeadNotInBase, w)
		}
		if v.leadSet[i] {
			continue
		}
		v.leadSet[i] = true
		v.lead = append(v.lead, i)
	}
	return v, nil
}

// Pool returns the pool for a category.
func (v *Vocabulary) Pool(c Category) *Pool {
	switch c {
	case CategoryBase:
		return v.Base
	case CategoryOnomat:
		return v.Onomat
	case CategorySymbol:
		return v.Symbol
	case CategoryEmoji:
		return v.Emoji
	case CategoryKaomoji:
		return v.Kaomoji
	default:
		return nil
	}
}

// Lengths returns the pool sizes indexed by Category.
func (v *Vocabulary) Lengths() PoolLengths {
	return PoolLengths{
		v.Base.Len(),
		v.Onomat.Len(),
		v.Symbol.Len(),
		v.Emoji.Len(),
		v.Kaomoji.Len(),
	}
}

// LeadCount returns the number of distinct lead words.
func (v *Vocabulary) LeadCount() int {
	return len(v.lead)
}

// LeadWord returns the i-th lead word.
func (v *Vocabulary) LeadWord(i int) string {
	return v.Base.Get(v.lead[i])
}

// IsLead reports whether the base word at baseIndex may open a message.
func (v *Vocabulary) IsLead(baseIndex int) bool {
	return v.leadSet[baseIndex]
}

// ============================================================
// Default vocabulary
// ============================================================

var (
	defaultBase = []string{
		"哈基米", "南北绿豆", "阿西嘎", "哈亚库", "哈亚库纳咯", "曼波",
		"曼波波波", "哦玛吉利", "大狗叫", "没有", "蛋蛋", "叮咚鸡",
		"叮叮咚咚", "奶龙", "哦么吉利", "哈呀库", "哦耶", "内个",
	}
	defaultLead   = []string{"哈基米", "南北绿豆", "曼波"}
	defaultOnomat = []string{
		"啊", "哦", "呀", "呵", "耶", "喵", "诶", "叫", "噔",
		"duang", "leg", "mua", "miao",
	}
	defaultSymbol = []string{
		"♪", "♫", "♬", "♩", "♭", "♮", "♯", "#", "↗", "↘", "↑", "↓", "→",
		"~", "~~", "。", ",", "!", "?", "…", "·", "★", "☆", "❤",
		"𝄞", "𝄢", "𝄡",
	}
	defaultEmoji = []string{
		"🐈", "😻", "🐱", "🐈‍⬛", "😺", "😸", "😹", "😼", "😽", "🙀", "😿", "😾",
	}
	defaultKaomoji = []string{
		"≧▽≦", "＾▽＾", "￣▽￣", "•‿•", "◠‿◠", "♥‿♥", "¬‿¬", "ʘ‿ʘ",
		"•ω•", "◕‿◕", "≧◡≦", "･ω･", "ʕ•ᴥ•ʔ",
	}
)

var defaultVocabulary = sync.OnceValue(func() *Vocabulary {
	v, err := NewVocabulary(defaultBase, defaultOnomat, defaultSymbol, defaultEmoji, defaultKaomoji, defaultLead)
	if err != nil {
		panic(err)
	}
	return v
})

// DefaultVocabulary returns the built-in hachimi vocabulary.
func DefaultVocabulary() *Vocabulary {
	return defaultVocabulary()
}
