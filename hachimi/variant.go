package hachimi

import (
	"fmt"
	"math"
)

// unset marks an absent seed or part.
const unset = -1

// Template is the decoration rule for one variant index: one seed per
// optional category in slot order (onomat, symbol, emoji, kaomoji), or
// unset. Templates are comparable so they double as their own signature.
type Template [4]int

// Seed returns the seed for category c.
func (t Template) Seed(c Category) (int, bool) {
	s := t[c.slot()]
	return s, s != unset
}

// Parts holds the concrete pool index of each decoration of a token, in
// the same slot order as Template.
type Parts [4]int

// NoParts is a token with no decorations.
var NoParts = Parts{unset, unset, unset, unset}

// Get returns the pool index of decoration c.
func (p Parts) Get(c Category) (int, bool) {
	i := p[c.slot()]
	return i, i != unset
}

// materialize resolves a template against a base index. A seed whose
// pool is empty yields no part.
func (t Template) materialize(baseIndex int, lengths PoolLengths) Parts {
	parts := NoParts
	for _, c := range optionalCategories {
		seed := t[c.slot()]
		n := lengths[c]
		if seed == unset || n == 0 {
			continue
		}
		parts[c.slot()] = (seed + baseIndex) % n
	}
	return parts
}

// buildTemplates lays out combosPerBase templates so that each optional
// category appears in proportion to its weight, spread evenly, and no two
// templates are equal.
func buildTemplates(w Weights, lengths PoolLengths, combosPerBase int) ([]Template, error) {
	templates := make([]Template, combosPerBase)
	for i := range templates {
		templates[i] = Template{unset, unset, unset, unset}
	}

	for _, c := range optionalCategories {
		count := int(math.Round(float64(combosPerBase) * w.ratio(c)))
		distribute(templates, c, min(count, combosPerBase), lengths[c])
	}

	if err := ensureUnique(templates, lengths); err != nil {
		return nil, err
	}
	return templates, nil
}

// distribute assigns count seeds of category c with a stride of
// len(templates)/count, probing forward for a free slot on collision.
func distribute(templates []Template, c Category, count, poolLength int) {
	if count <= 0 || poolLength == 0 {
		return
	}
	s := c.slot()
	step := float64(len(templates)) / float64(count)
	cursor := 0.0
	for assigned := 0; assigned < count; assigned++ {
		preferred := min(len(templates)-1, int(math.Floor(cursor)))
		slot := findFree(templates, preferred, s)
		templates[slot][s] = assigned % poolLength
		cursor += step
	}
}

func findFree(templates []Template, start, s int) int {
	n := len(templates)
	for offset := 0; offset < n; offset++ {
		i := (start + offset) % n
		if templates[i][s] == unset {
			return i
		}
	}
	return start % n
}

// collisionOrder is the order categories are tried when breaking a
// duplicate template.
var collisionOrder = [...]Category{CategoryEmoji, CategorySymbol, CategoryKaomoji, CategoryOnomat}

func ensureUnique(templates []Template, lengths PoolLengths) error {
	used := make(map[Template]bool, len(templates))
	for i := range templates {
		if used[templates[i]] {
			if err := forceUnique(&templates[i], i, used, lengths); err != nil {
				return err
			}
		}
		used[templates[i]] = true
	}
	return nil
}

// forceUnique mutates one field of t until it no longer collides with a
// template in used. Unset fields are tried before set ones.
func forceUnique(t *Template, variantIndex int, used map[Template]bool, lengths PoolLengths) error {
	var unsetFirst, setAfter []Category
	for _, c := range collisionOrder {
		if lengths[c] == 0 {
			continue
		}
		if t[c.slot()] == unset {
			unsetFirst = append(unsetFirst, c)
		} else {
			setAfter = append(setAfter, c)
		}
	}
	candidates := append(unsetFirst, setAfter...)
	if len(candidates) == 0 {
		return ErrNoCollisionCategory
	}

	for _, c := range candidates {
		s := c.slot()
		n := lengths[c]
		original := t[s]
		seed := variantIndex
		if original != unset {
			seed = original
		}
		seed %= n
		for step := 0; step < n; step++ {
			t[s] = (seed + step) % n
			if !used[*t] {
				return nil
			}
		}
		t[s] = original
	}
	return fmt.Errorf("%w: variant %d", ErrUnableToDeduplicate, variantIndex)
}
