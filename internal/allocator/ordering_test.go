package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolPolicies(t *testing.T) {
	t.Parallel()

	byCap := newPool(byCapacity)
	byCap.push(&Container{Name: "mid", Capacity: 20, seq: 0})
	byCap.push(&Container{Name: "big", Capacity: 30, seq: 1})
	byCap.push(&Container{Name: "mid-later", Capacity: 20, seq: 2})
	byCap.push(&Container{Name: "small", Capacity: 5, seq: 3})

	var order []string
	for byCap.Len() > 0 {
		order = append(order, byCap.pop().Name)
	}
	require.Equal(t, []string{"big", "mid", "mid-later", "small"}, order)

	byLd := newPool(byLoad)
	byLd.push(&Container{Name: "busy", Capacity: 100, occupied: 50, touched: true, seq: 0})
	byLd.push(&Container{Name: "idle", Capacity: 10, occupied: 1, touched: true, seq: 1})
	byLd.push(&Container{Name: "half", Capacity: 100, occupied: 20, touched: true, seq: 2})
	byLd.push(&Container{Name: "half-later", Capacity: 30, occupied: 20, touched: true, seq: 3})

	order = order[:0]
	for byLd.Len() > 0 {
		order = append(order, byLd.pop().Name)
	}
	require.Equal(t, []string{"idle", "half", "half-later", "busy"}, order)
}

func TestPoolsServeUntouchedFirst(t *testing.T) {
	t.Parallel()

	p := newPools()
	require.Nil(t, p.next())

	loaded := &Container{Name: "loaded", Capacity: 100, occupied: 1, touched: true, seq: 0}
	fresh := &Container{Name: "fresh", Capacity: 2, seq: 1}
	p.release(loaded)
	p.release(fresh)
	require.Equal(t, 2, p.len())

	// The untouched container wins even though the touched one is nearly empty.
	require.Same(t, fresh, p.next())
	require.True(t, fresh.TryInsert(Item{"f", 1}))
	p.release(fresh)
	require.Equal(t, 0, p.untouched.Len())
	require.Equal(t, 2, p.touched.Len())

	// Both hold 1 now; population order breaks the tie.
	require.Same(t, loaded, p.next())
	require.Same(t, fresh, p.next())
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	newRun := func(capacity, mean int64, sizes ...int64) *run {
		r := &run{
			logger: zap.NewNop(),
			mean:   mean,
			pools:  newPools(),
			queued: stateSelecting,
			result: newResult(len(sizes)),
		}
		for i, s := range sizes {
			r.items = append(r.items, Item{Name: string(rune('a' + i)), Size: s})
		}
		r.current = &Container{Name: "n", Capacity: capacity}
		return r
	}

	t.Run("chooseEnd", func(t *testing.T) {
		require.Equal(t, stateRetrySmallest, newRun(10, 5, 1, 8).chooseEnd())
		require.Equal(t, stateRetryLargest, newRun(10, 5, 4, 9).chooseEnd())
		require.Equal(t, stateRetrySmallest, newRun(10, 5, 3, 7).chooseEnd())
		require.Equal(t, stateRetrySmallest, newRun(10, 5, 2).chooseEnd())

		r := newRun(10, 5)
		require.Equal(t, stateSelecting, r.chooseEnd())
		require.Nil(t, r.current)
		require.Equal(t, 1, r.pools.untouched.Len())
	})

	t.Run("pair both fail queues the large end", func(t *testing.T) {
		r := newRun(1, 0, 2, 3, 4)
		require.Equal(t, stateRetrySmallest, r.step(statePairing))
		require.Equal(t, stateRetryLargest, r.queued)

		require.Equal(t, stateRetryLargest, r.step(stateRetrySmallest))
		require.Equal(t, stateSelecting, r.queued)
		require.Equal(t, stateSelecting, r.step(stateRetryLargest))
		require.Equal(t, []string{"a=", "c=", "b="}, outcomes(r.result))
	})

	t.Run("retry stops at the first fit", func(t *testing.T) {
		r := newRun(5, 0, 1, 2, 6, 7)
		require.Equal(t, stateSelecting, r.step(stateRetryLargest))
		require.Equal(t, []string{"d=", "c=", "b=n"}, outcomes(r.result))
		require.Len(t, r.items, 1)
		require.Equal(t, 1, r.pools.touched.Len())
	})

	t.Run("selecting with no items is done", func(t *testing.T) {
		require.Equal(t, stateDone, newRun(1, 0).step(stateSelecting))
	})
}

func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "selecting", stateSelecting.String())
	require.Equal(t, "pairing", statePairing.String())
	require.Equal(t, "retry-smallest", stateRetrySmallest.String())
	require.Equal(t, "retry-largest", stateRetryLargest.String())
	require.Equal(t, "done", stateDone.String())
	require.Equal(t, "unknown", state(42).String())
}
