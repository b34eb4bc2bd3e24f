/*
Package queue implements a distributed work-stealing task queue for
dual-tree computations.

* Concepts *
Query subtable:
  A subtree of the local query tree, or a subtree aliased in from another
  rank. Lives either in the queue's active slot arrays or, while a worker
  or a peer owns it, in a LockRecord on the checked-out list.

Task:
  A (query subtable, reference subtable) pair with a priority and a work
  estimate. Tasks for one query subtable are kept in a per-slot max-heap
  (PriorityQueue) ordered by priority.

Slot:
  An index into the four parallel arrays (querySubTables, tasks,
  assignedWork, remainingWorkForQuery) that together describe one active
  query subtable. Slots are removed by swapping with the last slot, so
  callers must address them by current index, never by a stored pointer.

Checked out:
  A query subtable that a worker (intra-node) or a peer rank (inter-node)
  currently owns exclusively. Represented by a LockRecord on a doubly
  linked list; a subtable is in the slot arrays xor on this list, never
  both.

* Logic *
Dequeue loop:
  If the active slot count falls below the worker count, first try to
  split the largest splittable slot (RedistributeAmongCores). Then scan
  slots for one with a non-empty task queue; pop a task, optionally check
  the slot out to the calling worker, and return it. An empty slot that is
  locally owned and has no remaining work is evicted; an empty foreign
  slot is flushed home.

Load balancing:
  PrepareLoadBalanceRequest snapshots ownership and remaining local work
  for a peer. PrepareExtraTaskList answers a peer's request by packing
  unowned slots, bounded by the peer's stated memory budget, checking
  each packed slot out to that peer.
*/
package queue
