// +build property_test

package queue

import (
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Test_IntervalSetNeverDoubleCountsAPoint checks P4's shape at the
// IntervalSet layer: feeding the same (rank, range) pair through Insert any
// number of times never grows the set past one entry for that pair.
func Test_IntervalSetNeverDoubleCountsAPoint(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated disjoint inserts never produce more entries than disjoint ranges", prop.ForAll(
		func(lo int, width int, repeats int) bool {
			if width <= 0 {
				width = 1
			}
			s := NewIntervalSet()
			for i := 0; i < repeats; i++ {
				s.Insert(0, lo, lo+width)
			}
			return s.Len() == 1
		},
		gen.IntRange(0, 1000),
		gen.IntRange(1, 64),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

// Test_IntervalSetPartitionStaysDisjoint builds a random partition of
// [0,N) into consecutive ranges and checks every one of them inserts
// successfully exactly once, and that a re-submission of the whole
// partition never succeeds the second time (P4: at most one reference
// count increment per (origin, range) pair).
func Test_IntervalSetPartitionStaysDisjoint(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("a consecutive partition inserts once and never again", prop.ForAll(
		func(cuts []int) bool {
			sorted := append([]int(nil), cuts...)
			sort.Ints(sorted)
			bounds := append([]int{0}, sorted...)
			bounds = append(bounds, 1000)

			s := NewIntervalSet()
			for i := 0; i+1 < len(bounds); i++ {
				lo, hi := bounds[i], bounds[i+1]
				if lo == hi {
					continue
				}
				if !s.Insert(0, lo, hi) {
					return false
				}
			}
			for i := 0; i+1 < len(bounds); i++ {
				lo, hi := bounds[i], bounds[i+1]
				if lo == hi {
					continue
				}
				if s.Insert(0, lo, hi) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.IntRange(1, 999)),
	))

	properties.TestingRun(t)
}

// Test_PriorityQueueDrainIsSortedDescending checks the ordering invariant
// the dequeue loop depends on: Drain (and repeated Pop) always produces a
// non-increasing priority sequence, regardless of push order.
func Test_PriorityQueueDrainIsSortedDescending(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("drain order is non-increasing by priority", prop.ForAll(
		func(priorities []float64) bool {
			pq := NewPriorityQueue()
			for _, p := range priorities {
				pq.Push(&Task{Priority: p})
			}
			drained := pq.Drain()
			for i := 1; i < len(drained); i++ {
				if drained[i-1].Priority < drained[i].Priority {
					return false
				}
			}
			return len(drained) == len(priorities)
		},
		gen.SliceOf(gen.Float64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}

// Test_SplitPreservesPointCount checks R1's shape at the split layer:
// splitting a slot's query subtree never changes the total reference work
// represented by its drained tasks, since each task is recreated against
// both halves rather than dropped or duplicated in value.
func Test_SplitPreservesPointCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("splitting a slot doubles its own task count but not the reference cache refcount", prop.ForAll(
		func(qCount, rCount int) bool {
			if qCount < 2 {
				qCount = 2
			}
			if rCount < 1 {
				rCount = 1
			}
			ex := newFakeExchange()
			q := NewDualTreeTaskQueue(Config{NumThreads: 1, FrontierSlotsPerCore: 1}, ex, nil)
			qRoot := newFakeSubTable(0, 0, qCount)
			rRoot := newFakeSubTable(0, 0, qCount)
			if err := q.Init(0, qCount, false, qRoot, rRoot, nil, 1); err != nil {
				return false
			}
			if q.NumSlots() != 1 {
				return false
			}

			rsub := newFakeSubTable(1, 0, rCount)
			ex.registerReference(rsub)
			metric := fakeMetric{min: 1, max: 2}

			q.mu.Lock()
			q.pushTaskNoLock(0, metric, 0, rsub)
			q.splitSubtreeNoLock(0, metric, 0)
			ok := q.tasks[0].Len() == 1 && q.tasks[1].Len() == 1 && ex.refs[rsub.SubTableId()] == 1 &&
				q.remainingLocalComputation == uint64(qCount)*uint64(rCount)
			q.mu.Unlock()

			return ok && q.NumSlots() == 2
		},
		gen.IntRange(2, 64),
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}
