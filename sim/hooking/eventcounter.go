package hooking

import (
	"sort"
	"sync"
)

// Kinded is implemented by items that report a kind name.
type Kinded interface {
	Kind() string
}

// EventCounter counts the items delivered at one hook position by their kind.
// Items that do not implement Kinded are counted under "unknown".
type EventCounter struct {
	pos *HookPos

	lock      sync.Mutex
	kindNames []string
	kindCount map[string]uint64
}

// NewEventCounter creates an EventCounter that only counts at pos.
func NewEventCounter(pos *HookPos) *EventCounter {
	return &EventCounter{
		pos:       pos,
		kindCount: make(map[string]uint64),
	}
}

// Func implements Hook.
func (c *EventCounter) Func(ctx HookCtx) {
	if ctx.Pos != c.pos {
		return
	}

	kind := "unknown"
	if k, ok := ctx.Item.(Kinded); ok {
		kind = k.Kind()
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.kindCount[kind]; !ok {
		c.kindNames = append(c.kindNames, kind)
	}

	c.kindCount[kind]++
}

// KindNames returns the kinds seen so far, sorted by name.
func (c *EventCounter) KindNames() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	names := make([]string, len(c.kindNames))
	copy(names, c.kindNames)
	sort.Strings(names)

	return names
}

// Count returns how many items of the kind were seen.
func (c *EventCounter) Count(kind string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.kindCount[kind]
}

// Total returns how many items were seen.
func (c *EventCounter) Total() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	var total uint64
	for _, n := range c.kindCount {
		total += n
	}

	return total
}
