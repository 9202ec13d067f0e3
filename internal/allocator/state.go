package allocator

import "go.uber.org/zap"

// state is a step of the allocation state machine.
type state int

const (
	// stateSelecting picks the container for the next round.
	stateSelecting state = iota
	// statePairing tries the smallest and the largest remaining item.
	statePairing
	// stateRetrySmallest tries items from the small end until one fits.
	stateRetrySmallest
	// stateRetryLargest tries items from the large end until one fits.
	stateRetryLargest
	stateDone
)

func (s state) String() string {
	switch s {
	case stateSelecting:
		return "selecting"
	case statePairing:
		return "pairing"
	case stateRetrySmallest:
		return "retry-smallest"
	case stateRetryLargest:
		return "retry-largest"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// run holds the mutable state of a single allocation pass.
type run struct {
	logger *zap.Logger

	items []Item // Remaining items, sorted ascending by size.
	mean  int64  // Fixed for the whole pass.
	pools pools

	current *Container // Container of the round in progress.
	// queued is entered once the current retry finishes.
	// stateSelecting means the round ends instead.
	queued state
	result *Result
}

func (r *run) step(s state) state {
	switch s {
	case stateSelecting:
		return r.selectContainer()
	case statePairing:
		return r.attemptPair()
	case stateRetrySmallest:
		return r.retry(r.popSmallest)
	case stateRetryLargest:
		return r.retry(r.popLargest)
	default:
		return stateDone
	}
}

func (r *run) selectContainer() state {
	if len(r.items) == 0 {
		return stateDone
	}
	r.current = r.pools.next()

	r.logger.Debug("node selected",
		zap.String("node", r.current.Name),
		zap.Int64("occupied", r.current.occupied),
		zap.Int64("capacity", r.current.Capacity),
		zap.Int("remaining", len(r.items)),
	)

	// The last item gets a single attempt against this container, and the pass ends.
	if len(r.items) == 1 {
		r.attempt(r.popSmallest())
		r.endRound()
		return stateDone
	}
	return statePairing
}

func (r *run) attemptPair() state {
	smallest, largest := r.popSmallest(), r.popLargest()
	okSmallest := r.attempt(smallest)
	okLargest := r.attempt(largest)

	switch {
	case okSmallest && okLargest:
		return r.endRound()
	case okSmallest || okLargest:
		return r.chooseEnd()
	default:
		r.queued = stateRetryLargest
		return stateRetrySmallest
	}
}

// chooseEnd picks the end of the remaining items whose candidate lies farther
// from the mean. Equal distances favour the small end.
func (r *run) chooseEnd() state {
	if len(r.items) == 0 {
		return r.endRound()
	}
	front, back := r.items[0], r.items[len(r.items)-1]
	if r.distance(front) >= r.distance(back) {
		return stateRetrySmallest
	}
	return stateRetryLargest
}

func (r *run) retry(pop func() Item) state {
	for len(r.items) > 0 {
		if r.attempt(pop()) {
			break
		}
	}
	if next := r.queued; next != stateSelecting {
		r.queued = stateSelecting
		return next
	}
	return r.endRound()
}

func (r *run) endRound() state {
	r.pools.release(r.current)
	r.current = nil
	return stateSelecting
}

// attempt tries item against the current container and records the outcome.
func (r *run) attempt(item Item) bool {
	if r.current.TryInsert(item) {
		r.result.record(item, r.current.Name)
		return true
	}
	r.result.record(item, Unassigned)
	return false
}

func (r *run) popSmallest() Item {
	item := r.items[0]
	r.items = r.items[1:]
	return item
}

func (r *run) popLargest() Item {
	n := len(r.items) - 1
	item := r.items[n]
	r.items = r.items[:n]
	return item
}

func (r *run) distance(item Item) int64 {
	if d := item.Size - r.mean; d >= 0 {
		return d
	}
	return r.mean - item.Size
}
