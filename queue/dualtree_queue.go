package queue

import (
	"container/list"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	"github.com/scootdev/dtqueue/common/stats"
)

// DualTreeTaskQueue is the scheduler itself: slot vectors, splitting,
// check-out/return, dequeue, task generation from received subtables,
// and termination detection. A single instance coordinates the worker
// threads of one process against its share of the query tree.
//
// Concurrency: a single mutex per instance serializes all slot-array,
// counter, and checked-out-list access. Several operations call each
// other (dequeueTaskNoLock -> redistributeAmongCoresNoLock ->
// splitSubtreeNoLock -> pushTaskNoLock), so every exported method locks once and delegates to a
// "NoLock" method that assumes the lock is already held; NoLock methods
// call each other directly and never lock.
type DualTreeTaskQueue struct {
	mu sync.Mutex

	world    int
	config   *Config
	exchange TableExchange
	stat     stats.StatsReceiver
	log      *log.Entry

	qRoot   SubTable
	rRoot   SubTable
	qResult interface{}

	querySubTables        []*QuerySubTable
	tasks                 []*PriorityQueue
	assignedWork          []*IntervalSet
	remainingWorkForQuery []uint64

	checkedOut *list.List // of *LockRecord

	numRemainingTasks          int
	numImportedQuerySubTables  int
	numExportedQuerySubTables  int
	remainingLocalComputation  uint64
	remainingGlobalComputation uint64

	peerBias *lru.Cache
}

// NewDualTreeTaskQueue constructs an empty queue. Call Init before any
// other operation.
func NewDualTreeTaskQueue(config Config, exchange TableExchange, stat stats.StatsReceiver) *DualTreeTaskQueue {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	cfg := config.withDefaults()
	cache, err := lru.New(cfg.PeerBiasCacheCapacity)
	if err != nil {
		panic(err)
	}
	return &DualTreeTaskQueue{
		config:     cfg,
		exchange:   exchange,
		stat:       stat,
		log:        log.WithField("component", "dtqueue"),
		checkedOut: list.New(),
		peerBias:   cache,
	}
}

func (q *DualTreeTaskQueue) String() string {
	return fmt.Sprintf("DualTreeTaskQueue: world:%d slots:%d checkedOut:%d remainingLocal:%d remainingGlobal:%d",
		q.world, len(q.querySubTables), q.checkedOut.Len(), q.remainingLocalComputation, q.remainingGlobalComputation)
}

// Init partitions qRoot's tree into frontier subtrees, targeting
// FrontierSlotsPerCore*nthreads slots, and seeds the exchange layer with
// this process's local table. Every non-leaf frontier subtree has at most
// maxSubtreeSize points; a leaf with more points than that is kept whole.
func (q *DualTreeTaskQueue) Init(world int, maxSubtreeSize int, doLB bool, qRoot, rRoot SubTable, qResult interface{}, nthreads int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.world = world
	q.config.MaxSubtreeSize = maxSubtreeSize
	q.config.DoLoadBalancing = doLB
	q.config.NumThreads = nthreads
	q.qRoot = qRoot
	q.rRoot = rRoot
	q.qResult = qResult

	targetSlots := q.config.FrontierSlotsPerCore * nthreads
	frontier := frontierNodes(qRoot.StartNode(), maxSubtreeSize, targetSlots)
	for _, node := range frontier {
		qsub := &QuerySubTable{
			Sub:          qRoot.Alias(node),
			OriginRank:   world,
			CacheBlockId: -1,
			QueryResult:  qResult,
		}
		q.growSlotsNoLock(qsub, NewPriorityQueue(), NewIntervalSet(), 0)
	}

	q.remainingGlobalComputation = uint64(qRoot.StartNode().Count()) * uint64(rRoot.StartNode().Count())
	q.stat.Gauge(RemainingGlobalGauge).Update(int64(q.remainingGlobalComputation))
	q.log.WithFields(log.Fields{"world": world, "slots": len(frontier)}).Info("initialized dual-tree task queue")

	return q.exchange.Init(world, qRoot)
}

// PushNewQueue appends a new slot carrying a foreign query subtable
// imported from originRank. Foreign work is tracked by its origin, so
// the new slot starts with zero remaining work. Returns the new slot's
// index.
func (q *DualTreeTaskQueue) PushNewQueue(originRank int, qsub *QuerySubTable) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	qsub.OriginRank = originRank
	idx := q.growSlotsNoLock(qsub, NewPriorityQueue(), NewIntervalSet(), 0)
	q.numImportedQuerySubTables++
	return idx
}

// PushTask computes rsub's priority against slotIndex's query subtable
// and pushes a new task.
func (q *DualTreeTaskQueue) PushTask(world int, metric Metric, slotIndex int, rsub SubTable) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushTaskNoLock(world, metric, slotIndex, rsub)
}

func (q *DualTreeTaskQueue) pushTaskNoLock(world int, metric Metric, slotIndex int, rsub SubTable) {
	qsub := q.querySubTables[slotIndex]
	work := uint64(qsub.StartNode().Count()) * uint64(rsub.StartNode().Count())
	bias := q.peerRankBias(rsub.Rank())
	t := newTask(qsub, rsub, metric, q.config.ProcessRankFavorFactor, bias, work)
	q.tasks[slotIndex].Push(t)
	q.numRemainingTasks++
	q.remainingLocalComputation += work
	q.stat.Counter(TasksPushedCounter).Inc(1)
}

// peerRankBias memoizes K's per-peer bias term: zero for this rank's own
// work, one for every other rank. Bounded by an LRU so a cluster with
// many transient ranks can't grow this without limit.
func (q *DualTreeTaskQueue) peerRankBias(ownerRank int) float64 {
	if v, ok := q.peerBias.Get(ownerRank); ok {
		return v.(float64)
	}
	bias := 0.0
	if ownerRank != q.world {
		bias = 1.0
	}
	q.peerBias.Add(ownerRank, bias)
	return bias
}

// DequeueTask hands the next highest-priority task to a worker. If the
// active slot count has fallen below the configured thread count, it
// first tries to split the largest splittable slot. It then scans slots
// for one with a non-empty task queue, popping from the first it finds;
// if checkOut is true the slot is checked out to world's own rank and
// returned as the second value. Returns ok=false if no task is
// available (empty-queue starvation, not an error).
func (q *DualTreeTaskQueue) DequeueTask(world int, metric Metric, checkOut bool) (task *Task, lock *LockRecord, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.stat.Latency(DequeueLatency_ns).Time().Stop()
	return q.dequeueTaskNoLock(world, metric, checkOut)
}

func (q *DualTreeTaskQueue) dequeueTaskNoLock(world int, metric Metric, checkOut bool) (*Task, *LockRecord, bool) {
	if q.numSlotsNoLock() < q.config.NumThreads {
		q.redistributeAmongCoresNoLock(world, metric)
	}

	probeIndex := 0
	for probeIndex < q.numSlotsNoLock() {
		if q.tasks[probeIndex].Len() > 0 {
			t := q.tasks[probeIndex].Pop()
			q.numRemainingTasks--
			q.remainingLocalComputation -= t.Work
			q.stat.Counter(TasksDequeuedCounter).Inc(1)

			if checkOut {
				elem := q.checkOutNoLock(probeIndex, world)
				return t, elem.Value.(*LockRecord), true
			}
			return t, nil, true
		}

		qsub := q.querySubTables[probeIndex]
		switch {
		case qsub.LocallyRooted() && q.remainingWorkForQuery[probeIndex] == 0:
			q.evictNoLock(probeIndex)
			q.stat.Counter(SlotsEvictedCounter).Inc(1)
			// eviction swapped a different slot into probeIndex; examine it too.
		case !qsub.LocallyRooted() && q.tasks[probeIndex].Len() == 0:
			q.flushNoLock(probeIndex)
			q.stat.Counter(SlotsFlushedCounter).Inc(1)
			// same as above: re-examine probeIndex.
		default:
			probeIndex++
		}
	}
	return nil, nil, false
}

// ReturnQuerySubTable moves a checked-out record's contents back into
// the active slot arrays and erases its entry from the checked-out list.
func (q *DualTreeTaskQueue) ReturnQuerySubTable(lr *LockRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.returnQuerySubTableNoLock(lr)
}

func (q *DualTreeTaskQueue) returnQuerySubTableNoLock(lr *LockRecord) {
	if lr.elem == nil {
		invariantViolation(ErrNotCheckedOut, "ReturnQuerySubTable")
	}
	lr.Return(q)
	q.checkedOut.Remove(lr.elem)
	lr.elem = nil
}

// checkOutNoLock moves slot i's contents into a new LockRecord owned by
// peerRank, evicts the slot, and appends the record to the checked-out
// list.
func (q *DualTreeTaskQueue) checkOutNoLock(i int, peerRank int) *list.Element {
	qsub := q.querySubTables[i]
	tasks := q.tasks[i]
	assignedWork := q.assignedWork[i]
	remainingWork := q.remainingWorkForQuery[i]
	q.evictNoLock(i)

	lr := &LockRecord{
		QSub:          qsub,
		Tasks:         tasks,
		AssignedWork:  assignedWork,
		RemainingWork: remainingWork,
		PeerRank:      peerRank,
	}
	lr.elem = q.checkedOut.PushBack(lr)
	return lr.elem
}

// flushNoLock sends a foreign, drained slot home to its origin rank.
func (q *DualTreeTaskQueue) flushNoLock(i int) {
	q.exchange.QueueFlushRequest(q.querySubTables[i].Sub)
	q.numImportedQuerySubTables--
	q.evictNoLock(i)
}

// Synchronize merges an authoritative remote update of a locally
// originated query subtable that had been checked out to some peer. If
// the returned subtable exactly matches a checked-out record's id, the
// whole record moves back into the active arrays. If the returned
// subtable is a strict sub-range, the merge is applied but the record
// stays checked out (the partial-return branch is a deliberate no-op,
// see DESIGN.md).
func (q *DualTreeTaskQueue) Synchronize(received SubTable) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := received.SubTableId()
	for e := q.checkedOut.Front(); e != nil; e = e.Next() {
		lr := e.Value.(*LockRecord)
		curId := lr.QSub.SubTableId()
		if !curId.Includes(id) {
			continue
		}
		lr.QSub.Sub.MergeFrom(received)
		if curId.Equal(id) {
			q.returnQuerySubTableNoLock(lr)
			q.numExportedQuerySubTables--
		}
		return true
	}
	return false
}

// GenerateTasks consults the disjoint-interval set of every active and
// checked-out slot for each received reference subtable id, creating a
// task (and bumping the reference's cache refcount by exactly one) the
// first time a given (slot, range) pair is seen.
func (q *DualTreeTaskQueue) GenerateTasks(world int, metric Metric, receivedIds []SubTableId) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range receivedIds {
		rsub := q.exchange.FindSubTable(id)
		if rsub == nil {
			continue
		}
		lo, hi := id.Begin, id.Begin+id.Count

		for i := 0; i < q.numSlotsNoLock(); i++ {
			if q.assignedWork[i].Insert(id.OriginRank, lo, hi) {
				q.pushTaskNoLock(world, metric, i, rsub)
				q.exchange.LockCache(id, 1)
			}
		}

		for e := q.checkedOut.Front(); e != nil; e = e.Next() {
			lr := e.Value.(*LockRecord)
			if !lr.InsertNoLock(id.OriginRank, lo, hi) {
				continue
			}
			work := uint64(lr.QSub.StartNode().Count()) * uint64(rsub.StartNode().Count())
			bias := q.peerRankBias(rsub.Rank())
			t := newTask(lr.QSub, rsub, metric, q.config.ProcessRankFavorFactor, bias, work)
			lr.PushTaskNoLock(t)
			q.numRemainingTasks++
			q.remainingLocalComputation += work
			q.exchange.LockCache(id, 1)
			q.stat.Counter(TasksPushedCounter).Inc(1)
		}
	}
}

// PrepareLoadBalanceRequest snapshots this queue's ownership set,
// remaining local work, and exchange-layer memory headroom into a
// peer-bound message.
func (q *DualTreeTaskQueue) PrepareLoadBalanceRequest() *LoadBalanceRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]SubTableId, 0, q.numSlotsNoLock())
	for _, qsub := range q.querySubTables {
		ids = append(ids, qsub.SubTableId())
	}
	return &LoadBalanceRequest{
		FromRank:                  q.world,
		OwnedQuerySubTableIds:     ids,
		RemainingLocalComputation: q.remainingLocalComputation,
		RemainingMemoryBudget:     q.exchange.RemainingExtraPointsToHold(),
	}
}

// PrepareExtraTaskList runs the extra-task-list packing algorithm for a
// peer, bounded by budget and skipping any subtable the peer already
// owns per peerRequest.
func (q *DualTreeTaskQueue) PrepareExtraTaskList(peer int, budget uint64, peerRequest *LoadBalanceRequest) *ExtraTaskList {
	q.mu.Lock()
	defer q.mu.Unlock()

	owned := make(map[SubTableId]bool, len(peerRequest.OwnedQuerySubTableIds))
	for _, id := range peerRequest.OwnedQuerySubTableIds {
		owned[id] = true
	}
	list := packExtraTaskList(q, peer, budget, owned)
	q.stat.Counter(SlotsExportedCounter).Inc(int64(len(list.Records)))
	return list
}

// PushCompletedComputation decrements the global remaining-work budget
// by work and the given record's remaining-work counter by refCount. If
// lr is nil, every active slot's counter is decremented instead (the
// "all slots" overload).
func (q *DualTreeTaskQueue) PushCompletedComputation(world int, refCount int, work uint64, lr *LockRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	checkNoUnderflow(q.remainingGlobalComputation, work, "PushCompletedComputation")
	q.remainingGlobalComputation -= work
	q.stat.Gauge(RemainingGlobalGauge).Update(int64(q.remainingGlobalComputation))

	n := uint64(refCount)
	if lr != nil {
		if lr.RemainingWork >= n {
			lr.RemainingWork -= n
		}
	} else {
		for i := range q.remainingWorkForQuery {
			if q.remainingWorkForQuery[i] >= n {
				q.remainingWorkForQuery[i] -= n
			}
		}
	}
	q.exchange.PushCompletedComputation(world, work)
}

// SendReceive drives one round of the exchange layer: first flushing
// outstanding query-subtable flush requests if load balancing is
// enabled, then issuing a send/receive iff the exchange layer reports
// ready. The queue lock is held across the ready-check and submit so the
// exchange layer must not block inside either call.
func (q *DualTreeTaskQueue) SendReceive(metric Metric, world int, outbound []SubTable) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.config.DoLoadBalancing {
		if err := q.exchange.SendReceiveQuerySubTableFlushRequests(world); err != nil {
			return err
		}
	}
	if !q.exchange.ReadyToSendReceive(world) {
		return nil
	}
	return q.exchange.SendReceive(metric, world, outbound)
}

// CanTerminate reports whether this process may shut down: no global
// work remains and the exchange layer agrees no message is in flight.
func (q *DualTreeTaskQueue) CanTerminate() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remainingGlobalComputation == 0 && q.exchange.CanTerminate()
}

// ReleaseCache proxies to the exchange layer.
func (q *DualTreeTaskQueue) ReleaseCache(world int, id SubTableId, n int) {
	q.exchange.ReleaseCache(world, id, n)
}

// NumRemainingTasks, RemainingLocalComputation, and
// RemainingGlobalComputation expose the global counters read-only, for
// callers (tests, stats loops) that need to observe progress without
// mutating the queue.
func (q *DualTreeTaskQueue) NumRemainingTasks() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.numRemainingTasks
}

func (q *DualTreeTaskQueue) RemainingLocalComputation() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remainingLocalComputation
}

func (q *DualTreeTaskQueue) RemainingGlobalComputation() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remainingGlobalComputation
}

func (q *DualTreeTaskQueue) NumSlots() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.numSlotsNoLock()
}

func (q *DualTreeTaskQueue) NumCheckedOut() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.checkedOut.Len()
}

func (q *DualTreeTaskQueue) NumExportedQuerySubTables() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.numExportedQuerySubTables
}

func (q *DualTreeTaskQueue) NumImportedQuerySubTables() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.numImportedQuerySubTables
}
