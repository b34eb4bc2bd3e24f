package queue

// Task is an immutable (query subtable, reference subtable, priority,
// work-estimate) tuple. QSub points at the owning slot's query subtable
// rather than copying it, so a task is only ever valid for as long as its
// slot (or the lock record it was moved into) is alive.
type Task struct {
	QSub     *QuerySubTable
	RSub     SubTable
	Priority float64
	Work     uint64
}

// QuerySubTable is a query subtable: an alias onto a subtree of the local
// query tree, or onto a foreign subtree received from another rank.
type QuerySubTable struct {
	Sub          SubTable
	OriginRank   int
	CacheBlockId int // -1 if locally rooted
	QueryResult  interface{}
}

// LocallyRooted reports whether this query subtable is rooted in this
// process's own query tree rather than aliased in from a peer.
func (q *QuerySubTable) LocallyRooted() bool {
	return q.CacheBlockId == -1
}

func (q *QuerySubTable) SubTableId() SubTableId {
	return q.Sub.SubTableId()
}

func (q *QuerySubTable) StartNode() Tree {
	return q.Sub.StartNode()
}

// newTask computes a task's priority from the metric and builds the
// immutable record. work is the caller-supplied estimate, typically
// q.count * r.count.
func newTask(qsub *QuerySubTable, rsub SubTable, metric Metric, k, peerBias float64, work uint64) *Task {
	min, max := metric.RangeDistanceSq(qsub.StartNode().Bound(), rsub.StartNode().Bound())
	priority := -mid(min, max) - k*peerBias
	return &Task{QSub: qsub, RSub: rsub, Priority: priority, Work: work}
}
