package queue

// Shared fakes for this package's own white-box tests: a minimal binary
// tree, a SubTable wrapping it, a Metric with a fixed distance, and a
// TableExchange stub (fakeExchange) that every test in the package uses.

type fakeTree struct {
	count       int
	left, right *fakeTree
}

func newFakeLeaf(count int) *fakeTree {
	return &fakeTree{count: count}
}

func newFakeSplit(count int) *fakeTree {
	half := count / 2
	return &fakeTree{count: count, left: newFakeLeaf(half), right: newFakeLeaf(count - half)}
}

func (t *fakeTree) Bound() Bound { return nil }
func (t *fakeTree) Count() int   { return t.count }
func (t *fakeTree) Left() Tree {
	if t.left == nil {
		return nil
	}
	return t.left
}
func (t *fakeTree) Right() Tree {
	if t.right == nil {
		return nil
	}
	return t.right
}
func (t *fakeTree) IsLeaf() bool { return t.left == nil && t.right == nil }

type fakeSubTable struct {
	id     SubTableId
	rank   int
	start  *fakeTree
	merged int
}

func newFakeSubTable(rank, begin, count int) *fakeSubTable {
	return &fakeSubTable{
		id:    SubTableId{OriginRank: rank, Begin: begin, Count: count},
		rank:  rank,
		start: newFakeSplit(count),
	}
}

func newFakeLeafSubTable(rank, begin, count int) *fakeSubTable {
	return &fakeSubTable{
		id:    SubTableId{OriginRank: rank, Begin: begin, Count: count},
		rank:  rank,
		start: newFakeLeaf(count),
	}
}

func (s *fakeSubTable) StartNode() Tree { return s.start }
func (s *fakeSubTable) SetStartNode(t Tree) {
	s.start = t.(*fakeTree)
}
func (s *fakeSubTable) Rank() int           { return s.rank }
func (s *fakeSubTable) SubTableId() SubTableId { return s.id }
func (s *fakeSubTable) Alias(start Tree) SubTable {
	return &fakeSubTable{id: s.id, rank: s.rank, start: start.(*fakeTree)}
}
func (s *fakeSubTable) Copy() SubTable {
	cp := *s
	return &cp
}
func (s *fakeSubTable) Includes(other SubTable) bool {
	return s.id.Includes(other.SubTableId())
}
func (s *fakeSubTable) MergeFrom(other SubTable) {
	s.merged++
}

// fakeMetric reports its own fixed min/max distance for every pair of
// bounds, so a task's distance term is set by the fakeMetric value it was
// pushed with. Good enough for exercising ordering and bookkeeping without
// pulling in real geometry.
type fakeMetric struct {
	min, max float64
}

func (m fakeMetric) RangeDistanceSq(a, b Bound) (float64, float64) {
	return m.min, m.max
}

// fakeExchange is a TableExchange stub local to this test package: it
// records calls instead of doing anything with them, so tests can assert
// on exactly what the queue asked the exchange layer to do.
type fakeExchange struct {
	world int
	local SubTable

	subtables map[SubTableId]SubTable
	refs      map[SubTableId]int

	flushed   []SubTable
	terminable bool
	extraBudget uint64
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		subtables:  make(map[SubTableId]SubTable),
		refs:       make(map[SubTableId]int),
		terminable: true,
	}
}

func (e *fakeExchange) Init(world int, local SubTable) error {
	e.world = world
	e.local = local
	e.subtables[local.SubTableId()] = local
	return nil
}
func (e *fakeExchange) LockCache(id SubTableId, n int) { e.refs[id] += n }
func (e *fakeExchange) ReleaseCache(world int, id SubTableId, n int) {
	e.refs[id] -= n
}
func (e *fakeExchange) FindSubTable(id SubTableId) SubTable { return e.subtables[id] }
func (e *fakeExchange) FindByBeginCount(begin, count int) Tree {
	for id, sub := range e.subtables {
		if id.Begin == begin && id.Count == count {
			return sub.StartNode()
		}
	}
	return nil
}
func (e *fakeExchange) QueueFlushRequest(sub SubTable) { e.flushed = append(e.flushed, sub) }
func (e *fakeExchange) SendReceive(metric Metric, world int, outbound []SubTable) error {
	return nil
}
func (e *fakeExchange) SendReceiveQuerySubTableFlushRequests(world int) error { return nil }
func (e *fakeExchange) ReadyToSendReceive(world int) bool                    { return true }
func (e *fakeExchange) PushCompletedComputation(world int, work uint64)      {}
func (e *fakeExchange) CanTerminate() bool                                   { return e.terminable }
func (e *fakeExchange) RemainingExtraPointsToHold() uint64                   { return e.extraBudget }
func (e *fakeExchange) ProcessRank(world int, r int) int                     { return r }
func (e *fakeExchange) DoLoadBalancing() bool                                { return true }
func (e *fakeExchange) PushSubTable(sub SubTable, nRefs int) int {
	e.subtables[sub.SubTableId()] = sub
	e.refs[sub.SubTableId()] = nRefs
	return len(e.subtables) - 1
}
func (e *fakeExchange) LocalTable() SubTable { return e.local }

func (e *fakeExchange) registerReference(sub SubTable) {
	e.subtables[sub.SubTableId()] = sub
}
