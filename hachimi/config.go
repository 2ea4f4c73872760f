package hachimi

import (
	"fmt"
	"sync"
)

// Radix is the number of distinct token values. Each payload chunk carries
// log2(Radix) bits.
const Radix = 1024

// PoolLengths holds the size of each pool, indexed by Category.
type PoolLengths [5]int

// Config is the derived encoding table for one weight configuration and
// one set of pool sizes. It is immutable once built.
type Config struct {
	Weights       Weights
	CombosPerBase int
	Templates     []Template
	Lengths       PoolLengths
}

// NewConfig builds the variant template table for w and lengths.
func NewConfig(w Weights, lengths PoolLengths) (*Config, error) {
	base := lengths[CategoryBase]
	if base <= 0 {
		return nil, ErrEmptyBasePool
	}
	combos := (Radix + base - 1) / base
	templates, err := buildTemplates(w, lengths, combos)
	if err != nil {
		return nil, fmt.Errorf("build variant table: %w", err)
	}
	return &Config{
		Weights:       w,
		CombosPerBase: combos,
		Templates:     templates,
		Lengths:       lengths,
	}, nil
}

// Split decomposes a token value into its variant and base indices.
func (c *Config) Split(value int) (variantIndex, baseIndex int) {
	b := c.Lengths[CategoryBase]
	return value / b, value % b
}

// ============================================================
// Config Cache
// ============================================================

type configKey struct {
	weights Weights
	lengths PoolLengths
}

// ConfigCache memoizes Configs by weights and pool lengths. Building a
// config is deterministic, so entries are never invalidated. It is safe
// for concurrent use.
type ConfigCache struct {
	mu      sync.RWMutex
	configs map[configKey]*Config
}

// NewConfigCache creates an empty cache.
func NewConfigCache() *ConfigCache {
	return &ConfigCache{
		configs: make(map[configKey]*Config),
	}
}

// Get returns the config for w and lengths, building it on first use.
func (cc *ConfigCache) Get(w Weights, lengths PoolLengths) (*Config, error) {
	key := configKey{weights: w, lengths: lengths}

	cc.mu.RLock()
	cfg, ok := cc.configs[key]
	cc.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	cfg, err := NewConfig(w, lengths)
	if err != nil {
		return nil, err
	}

	cc.mu.Lock()
	if existing, ok := cc.configs[key]; ok {
		cfg = existing
	} else {
		cc.configs[key] = cfg
	}
	cc.mu.Unlock()
	return cfg, nil
}

// Len returns the number of cached configs.
func (cc *ConfigCache) Len() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.configs)
}
