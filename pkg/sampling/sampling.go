// Package sampling picks a reproducible random subset of result positions.
package sampling

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
)

// Seed selects the generator. The zero Seed is unseeded.
type Seed struct {
	value uint64
	set   bool
}

// IntSeed seeds the generator with n directly.
func IntSeed(n int64) Seed {
	return Seed{value: uint64(n), set: true}
}

// TextSeed seeds the generator with the FNV-1a hash of s.
func TextSeed(s string) Seed {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return Seed{value: h.Sum64(), set: true}
}

// IsSet reports whether the seed makes picks reproducible.
func (s Seed) IsSet() bool {
	return s.set
}

// Picks is a set of 1-based row positions.
type Picks map[int]struct{}

// Contains reports whether position i was picked.
func (p Picks) Contains(i int) bool {
	_, ok := p[i]
	return ok
}

// Sorted returns the picked positions in ascending order.
func (p Picks) Sorted() []int {
	out := make([]int, 0, len(p))
	for i := range p {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Pick returns min(k, n) distinct positions in [1, n]. A set seed always
// yields the same positions for the same k and n. Time and memory are
// O(k) (Floyd's sampling).
func Pick(k, n int, seed Seed) Picks {
	k = min(k, n)
	if k <= 0 {
		return Picks{}
	}

	var rng *rand.Rand
	if seed.set {
		rng = rand.New(rand.NewPCG(seed.value, seed.value^0x9e3779b97f4a7c15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	picks := make(Picks, k)
	for j := n - k + 1; j <= n; j++ {
		t := rng.IntN(j) + 1
		if picks.Contains(t) {
			t = j
		}
		picks[t] = struct{}{}
	}
	return picks
}

// Picker walks a row stream and reports which rows were picked.
type Picker struct {
	picks     Picks
	pos       int
	remaining int
}

// NewPicker creates a picker over n rows keeping k of them.
func NewPicker(k, n int, seed Seed) *Picker {
	picks := Pick(k, n, seed)
	return &Picker{picks: picks, remaining: len(picks)}
}

// Next advances to the next row and reports whether it is kept.
func (p *Picker) Next() bool {
	p.pos++
	if !p.picks.Contains(p.pos) {
		return false
	}
	p.remaining--
	return true
}

// Remaining reports whether any picked row lies ahead of the current one.
func (p *Picker) Remaining() bool {
	return p.remaining > 0
}
