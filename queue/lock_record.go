package queue

import (
	"container/list"
	"fmt"
)

// LockRecord is the reified "checked-out" state of a query subtable: who
// owns it, its parked task queue, its assigned-work set, and its
// remaining-work counter. A LockRecord is born when a slot is checked out
// to a worker or a peer rank, and dies when it is returned or merged back
// by Synchronize.
type LockRecord struct {
	QSub          *QuerySubTable
	Tasks         *PriorityQueue
	AssignedWork  *IntervalSet
	RemainingWork uint64
	PeerRank      int

	elem *list.Element // this record's entry in the owning queue's checked-out list
}

func (lr *LockRecord) String() string {
	return fmt.Sprintf("{subtable:%s peer:%d tasks:%d remainingWork:%d}",
		lr.QSub.SubTableId(), lr.PeerRank, lr.Tasks.Len(), lr.RemainingWork)
}

// InsertNoLock records a newly scheduled reference range against this
// record's own assigned-work set. The exchange layer may deliver more
// reference subtables while this query subtable is on loan, and those
// still need to be deduplicated against what was already scheduled.
func (lr *LockRecord) InsertNoLock(rank, lo, hi int) bool {
	return lr.AssignedWork.Insert(rank, lo, hi)
}

// PushTaskNoLock adds a task to this record's own queue, for the same
// reason as InsertNoLock: the subtable can keep accumulating tasks while
// checked out.
func (lr *LockRecord) PushTaskNoLock(t *Task) {
	lr.Tasks.Push(t)
}

// Return atomically inserts this record's contents as a new slot in
// toQueue. It does not remove lr from any checked-out list; the caller
// (ReturnQuerySubTable) is responsible for erasing lr's list entry.
func (lr *LockRecord) Return(toQueue *DualTreeTaskQueue) int {
	return toQueue.pushSlotNoLock(lr.QSub, lr.Tasks, lr.AssignedWork, lr.RemainingWork)
}
