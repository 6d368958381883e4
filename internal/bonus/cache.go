package bonus

import (
	"context"
	"sync"
)

// ActiveBonusCache memoizes the active bonus list between mutations. The
// event pipeline invalidates it after every claim or bonus change, so reads
// between mutations skip the store.
type ActiveBonusCache struct {
	mu     sync.RWMutex
	loaded bool
	cached []Bonus
}

func NewActiveBonusCache() *ActiveBonusCache {
	return &ActiveBonusCache{}
}

func (c *ActiveBonusCache) Get(ctx context.Context, load func(context.Context) ([]Bonus, error)) ([]Bonus, error) {
	c.mu.RLock()
	if c.loaded {
		cached := c.cached
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	bonuses, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cached = bonuses
	c.loaded = true
	c.mu.Unlock()
	return bonuses, nil
}

func (c *ActiveBonusCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.cached = nil
	c.mu.Unlock()
}
