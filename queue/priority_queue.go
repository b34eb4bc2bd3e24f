package queue

import "container/heap"

// PriorityQueue is a max-heap of tasks for one query subtable, ordered by
// Task.Priority. It is only ever touched under the owning queue's lock,
// so it does its own bookkeeping with no internal synchronization.
type PriorityQueue struct {
	h taskHeap
}

// NewPriorityQueue returns an empty PriorityQueue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

func (pq *PriorityQueue) Len() int {
	return len(pq.h)
}

// Push adds t to the queue.
func (pq *PriorityQueue) Push(t *Task) {
	heap.Push(&pq.h, t)
}

// Pop removes and returns the highest-priority task. Calling Pop on an
// empty queue is a programmer error (see Failure semantics) and panics.
func (pq *PriorityQueue) Pop() *Task {
	if pq.Len() == 0 {
		invariantViolation(ErrEmptySlotPop, "PriorityQueue.Pop")
	}
	return heap.Pop(&pq.h).(*Task)
}

// Top returns the highest-priority task without removing it, and whether
// the queue was non-empty.
func (pq *PriorityQueue) Top() (*Task, bool) {
	if pq.Len() == 0 {
		return nil, false
	}
	return pq.h[0], true
}

// Clone returns a queue with the same tasks; pushing to or popping from
// the clone leaves the original unchanged.
func (pq *PriorityQueue) Clone() *PriorityQueue {
	cp := make(taskHeap, len(pq.h))
	copy(cp, pq.h)
	return &PriorityQueue{h: cp}
}

// Drain removes and returns every task in priority order, leaving the
// queue empty. Used by splitSubtreeNoLock to redistribute tasks across the
// two resulting slots.
func (pq *PriorityQueue) Drain() []*Task {
	drained := make([]*Task, 0, pq.Len())
	for pq.Len() > 0 {
		drained = append(drained, pq.Pop())
	}
	return drained
}

// taskHeap is a binary heap of tasks, ordered so that the highest
// priority sorts first (container/heap produces a min-heap by default).
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].Priority > h[j].Priority
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *taskHeap) Push(x interface{}) {
	*h = append(*h, x.(*Task))
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
