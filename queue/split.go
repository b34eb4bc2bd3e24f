package queue

// frontierNodes partitions root into a set of nodes such that every
// non-leaf node has at most maxSubtreeSize points, continuing to split
// the largest remaining node past that point until targetSlots nodes
// have been produced or no more splittable nodes remain. Used by Init to
// build the starting frontier of query subtables.
func frontierNodes(root Tree, maxSubtreeSize, targetSlots int) []Tree {
	frontier := []Tree{root}
	for {
		needMore := len(frontier) < targetSlots
		idx, bestCount := -1, -1
		for i, n := range frontier {
			if n.IsLeaf() {
				continue
			}
			if n.Count() <= maxSubtreeSize && !needMore {
				continue
			}
			if n.Count() > bestCount {
				bestCount = n.Count()
				idx = i
			}
		}
		if idx < 0 {
			break
		}
		node := frontier[idx]
		frontier[idx] = node.Left()
		frontier = append(frontier, node.Right())
	}
	return frontier
}

// redistributeAmongCoresNoLock finds the slot with the largest non-leaf
// start node that still has pending tasks, and splits it. Returns false
// if no slot qualifies.
func (q *DualTreeTaskQueue) redistributeAmongCoresNoLock(world int, metric Metric) bool {
	best, bestCount := -1, -1
	for i := 0; i < q.numSlotsNoLock(); i++ {
		node := q.querySubTables[i].StartNode()
		if node.IsLeaf() || q.tasks[i].Len() == 0 {
			continue
		}
		if node.Count() > bestCount {
			bestCount = node.Count()
			best = i
		}
	}
	if best < 0 {
		return false
	}
	q.splitSubtreeNoLock(world, metric, best)
	return true
}

// splitSubtreeNoLock retargets slot i to its left child and appends a
// new slot aliasing the same underlying subtable but rooted at the right
// child. Every task drained from slot i is recreated against both
// children (the reference side is untouched, so each drained task bumps
// its reference subtable's cache refcount by exactly one, not two). The
// new slot inherits a clone of slot i's assigned-work history so both
// halves keep independently deduplicating incoming reference ranges.
func (q *DualTreeTaskQueue) splitSubtreeNoLock(world int, metric Metric, i int) {
	qsub := q.querySubTables[i]
	node := qsub.StartNode()
	left, right := node.Left(), node.Right()

	drained := q.tasks[i].Drain()
	newAssignedWork := q.assignedWork[i].Clone()

	newSub := &QuerySubTable{
		Sub:          qsub.Sub.Alias(right),
		OriginRank:   qsub.OriginRank,
		CacheBlockId: qsub.CacheBlockId,
		QueryResult:  qsub.QueryResult,
	}
	qsub.Sub.SetStartNode(left)

	newIndex := q.growSlotsNoLock(newSub, NewPriorityQueue(), newAssignedWork, q.remainingWorkForQuery[i])

	for _, t := range drained {
		q.numRemainingTasks--
		q.remainingLocalComputation -= t.Work
		q.pushTaskNoLock(world, metric, i, t.RSub)
		q.pushTaskNoLock(world, metric, newIndex, t.RSub)
		q.exchange.LockCache(t.RSub.SubTableId(), 1)
	}

	q.stat.Counter(SlotsSplitCounter).Inc(1)
}
