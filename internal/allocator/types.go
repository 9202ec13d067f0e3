package allocator

// Unassigned is the container name recorded for items that could not be placed.
const Unassigned = ""

// Item is a sized unit placed into exactly one container or left unassigned.
type Item struct {
	Name string
	Size int64
}

// Container is a capacity-bounded destination for items.
// Occupied load only grows, and only through TryInsert.
type Container struct {
	Name     string
	Capacity int64

	occupied int64
	touched  bool
	seq      int // Population order, used to break ordering ties.
}

// Occupied returns the total size of the items inserted so far.
func (c *Container) Occupied() int64 { return c.occupied }

// Free returns the remaining capacity.
func (c *Container) Free() int64 { return c.Capacity - c.occupied }

// Touched reports whether at least one item was inserted.
func (c *Container) Touched() bool { return c.touched }

// TryInsert places item into the container if it fits and reports whether it did.
// A failed insert leaves the container unchanged.
func (c *Container) TryInsert(item Item) bool {
	if item.Size > c.Free() {
		return false
	}
	c.occupied += item.Size
	c.touched = true
	return true
}

// Assignment records the outcome of the single placement attempt of an item.
type Assignment struct {
	Item      string
	Size      int64
	Container string
}

// Assigned reports whether the item was placed into a container.
func (a Assignment) Assigned() bool { return a.Container != Unassigned }

// ContainerLoad summarises a container after a run.
type ContainerLoad struct {
	Name     string
	Capacity int64
	Occupied int64
	Items    int
}

// Result maps every allocated item to its container, in the order outcomes were recorded.
type Result struct {
	Assignments []Assignment
	Containers  []ContainerLoad
	// Mean is the item size per container the run used for its distance heuristic.
	Mean int64

	index map[string]int
}

func newResult(capacity int) *Result {
	return &Result{
		Assignments: make([]Assignment, 0, capacity),
		index:       make(map[string]int, capacity),
	}
}

func (r *Result) record(item Item, container string) {
	r.index[item.Name] = len(r.Assignments)
	r.Assignments = append(r.Assignments, Assignment{
		Item:      item.Name,
		Size:      item.Size,
		Container: container,
	})
}

// Lookup returns the container an item was assigned to. The container is
// Unassigned when the item was attempted but did not fit; ok is false when the
// item is not part of the result.
func (r *Result) Lookup(item string) (container string, ok bool) {
	i, ok := r.index[item]
	if !ok {
		return Unassigned, false
	}
	return r.Assignments[i].Container, true
}

// Len returns the number of recorded items.
func (r *Result) Len() int { return len(r.Assignments) }

// AssignedCount returns the number of items placed into a container.
func (r *Result) AssignedCount() int {
	var n int
	for _, a := range r.Assignments {
		if a.Assigned() {
			n++
		}
	}
	return n
}

// UnassignedItems returns the names of items left unassigned, in result order.
func (r *Result) UnassignedItems() []string {
	var out []string
	for _, a := range r.Assignments {
		if !a.Assigned() {
			out = append(out, a.Item)
		}
	}
	return out
}
