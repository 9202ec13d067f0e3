package allocator

import "container/heap"

// policy orders containers within a pool. It returns true when a should be selected before b.
type policy func(a, b *Container) bool

// byCapacity prefers the largest capacity. It orders containers that have not received an item yet.
func byCapacity(a, b *Container) bool {
	if a.Capacity != b.Capacity {
		return a.Capacity > b.Capacity
	}
	return a.seq < b.seq
}

// byLoad prefers the least occupied container. It orders containers that already hold items.
func byLoad(a, b *Container) bool {
	if a.occupied != b.occupied {
		return a.occupied < b.occupied
	}
	return a.seq < b.seq
}

// pool is a priority queue of containers under a single, fixed policy.
// Containers are only mutated while popped, so the heap order stays valid.
type pool struct {
	less  policy
	items []*Container
}

func newPool(less policy) *pool {
	return &pool{less: less}
}

func (p *pool) Len() int           { return len(p.items) }
func (p *pool) Less(i, j int) bool { return p.less(p.items[i], p.items[j]) }
func (p *pool) Swap(i, j int)      { p.items[i], p.items[j] = p.items[j], p.items[i] }

func (p *pool) Push(x any) { p.items = append(p.items, x.(*Container)) }

func (p *pool) Pop() any {
	n := len(p.items)
	c := p.items[n-1]
	p.items[n-1] = nil
	p.items = p.items[:n-1]
	return c
}

func (p *pool) push(c *Container) { heap.Push(p, c) }

func (p *pool) pop() *Container { return heap.Pop(p).(*Container) }

// pools holds untouched and touched containers. Untouched containers are always
// served first, so every container receives a first item before load balancing starts.
type pools struct {
	untouched *pool
	touched   *pool
}

func newPools() pools {
	return pools{
		untouched: newPool(byCapacity),
		touched:   newPool(byLoad),
	}
}

func (p pools) len() int { return p.untouched.Len() + p.touched.Len() }

// next removes and returns the container to work with, or nil if there is none.
func (p pools) next() *Container {
	switch {
	case p.untouched.Len() > 0:
		return p.untouched.pop()
	case p.touched.Len() > 0:
		return p.touched.pop()
	default:
		return nil
	}
}

// release returns a container to the pool matching its state.
func (p pools) release(c *Container) {
	if c.Touched() {
		p.touched.push(c)
	} else {
		p.untouched.push(c)
	}
}
