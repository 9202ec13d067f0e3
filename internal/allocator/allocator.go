package allocator

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
)

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the logger used to trace allocation rounds at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Allocator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Allocator places items into containers with a greedy pairing heuristic.
//
// Items are sorted by size and consumed from both ends: each round selects a
// container (the largest untouched one, then the least loaded one) and tries
// the smallest and the largest remaining item against it. When only one of the
// pair fits, the round retries from whichever end lies farther from the mean
// item size per container until an item fits. Every item gets exactly one
// attempt; items that do not fit are left unassigned.
//
// An Allocator is populated once and serves a single Allocate call.
type Allocator struct {
	logger *zap.Logger

	items      []Item
	itemNames  map[string]struct{}
	totalSize  int64
	containers []*Container
	nodeNames  map[string]struct{}
	pools      pools
}

// New returns an empty Allocator.
func New(opts ...Option) *Allocator {
	a := &Allocator{
		logger:    zap.NewNop(),
		itemNames: make(map[string]struct{}),
		nodeNames: make(map[string]struct{}),
		pools:     newPools(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddItem queues an item for allocation.
func (a *Allocator) AddItem(name string, size int64) error {
	switch {
	case name == "":
		return ErrInvalidName
	case size < 0:
		return fmt.Errorf("item %q: %w", name, ErrInvalidSize)
	}
	if _, ok := a.itemNames[name]; ok {
		return fmt.Errorf("item %q: %w", name, ErrDuplicateItem)
	}
	if size > math.MaxInt64-a.totalSize {
		return fmt.Errorf("item %q: size %d on top of %d: %w", name, size, a.totalSize, ErrSizeOverflow)
	}
	a.itemNames[name] = struct{}{}
	a.items = append(a.items, Item{Name: name, Size: size})
	a.totalSize += size
	return nil
}

// AddContainer registers a container with the given capacity.
func (a *Allocator) AddContainer(name string, capacity int64) error {
	switch {
	case name == "":
		return ErrInvalidName
	case capacity < 0:
		return fmt.Errorf("node %q: %w", name, ErrInvalidCapacity)
	}
	if _, ok := a.nodeNames[name]; ok {
		return fmt.Errorf("node %q: %w", name, ErrDuplicateContainer)
	}
	a.nodeNames[name] = struct{}{}
	c := &Container{Name: name, Capacity: capacity, seq: len(a.containers)}
	a.containers = append(a.containers, c)
	a.pools.release(c)
	return nil
}

// Allocate runs the allocation pass over every queued item and returns the
// resulting mapping. It consumes the queued items: a second call returns an
// empty result. ErrNoContainers is returned, without a result, when items are
// queued but no container was added.
func (a *Allocator) Allocate() (*Result, error) {
	if len(a.items) == 0 {
		res := newResult(0)
		res.Containers = a.loads(res)
		return res, nil
	}
	if len(a.containers) == 0 {
		return nil, ErrNoContainers
	}

	items := a.items
	a.items = nil
	slices.SortStableFunc(items, func(x, y Item) int {
		return cmp.Compare(x.Size, y.Size)
	})

	r := &run{
		logger: a.logger,
		items:  items,
		mean:   a.totalSize / int64(len(a.containers)),
		pools:  a.pools,
		queued: stateSelecting,
		result: newResult(len(items)),
	}
	a.totalSize = 0

	for s := stateSelecting; s != stateDone; s = r.step(s) {
	}

	res := r.result
	res.Mean = r.mean
	res.Containers = a.loads(res)

	a.logger.Debug("allocation completed",
		zap.Int("items", res.Len()),
		zap.Int("assigned", res.AssignedCount()),
		zap.Int("nodes", len(a.containers)),
		zap.Int64("mean", r.mean),
	)
	return res, nil
}

func (a *Allocator) loads(res *Result) []ContainerLoad {
	counts := make(map[string]int, len(a.containers))
	for _, asg := range res.Assignments {
		if asg.Assigned() {
			counts[asg.Container]++
		}
	}
	out := make([]ContainerLoad, 0, len(a.containers))
	for _, c := range a.containers {
		out = append(out, ContainerLoad{
			Name:     c.Name,
			Capacity: c.Capacity,
			Occupied: c.occupied,
			Items:    counts[c.Name],
		})
	}
	return out
}

// Run allocates items to containers in a single call. Only the Name and
// Capacity of each container are used.
func Run(items []Item, containers []Container, opts ...Option) (*Result, error) {
	a := New(opts...)
	for _, c := range containers {
		if err := a.AddContainer(c.Name, c.Capacity); err != nil {
			return nil, err
		}
	}
	for _, it := range items {
		if err := a.AddItem(it.Name, it.Size); err != nil {
			return nil, err
		}
	}
	return a.Allocate()
}
