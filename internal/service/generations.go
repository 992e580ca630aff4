package service

import (
	"hash/fnv"
	"sync"
)

const generationStripes = 64

type generationStripe struct {
	mu sync.Mutex
	n  uint64
}

// generations counts writes per cache key. A fill that read the store
// before a write must not land after that write's invalidation, so fills
// and write marks for a key serialize on the key's stripe. Keys that share
// a stripe only cost each other a skipped fill.
type generations struct {
	stripes [generationStripes]generationStripe
}

func (g *generations) stripe(key string) *generationStripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &g.stripes[h.Sum32()%generationStripes]
}

// current returns the write count of key's stripe.
func (g *generations) current(key string) uint64 {
	s := g.stripe(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// bump records a write to key.
func (g *generations) bump(key string) {
	s := g.stripe(key)
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

// fillIf runs fill only when key saw no write since gen was read.
func (g *generations) fillIf(key string, gen uint64, fill func()) bool {
	s := g.stripe(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n != gen {
		return false
	}
	fill()
	return true
}
