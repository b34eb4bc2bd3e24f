// Package fakeexchange provides an in-memory TableExchange, exercised by
// this package's own tests. It has no transport: sends and
// receives are just map lookups against tables registered with Register.
package fakeexchange

import (
	"fmt"
	"sync"

	"github.com/davecgh/go-spew/spew"
	lru "github.com/hashicorp/golang-lru"
	uuid "github.com/nu7hatch/gouuid"

	"github.com/scootdev/dtqueue/async"
	"github.com/scootdev/dtqueue/queue"
)

const defaultFlushLedgerCapacity = 512

// FakeExchange is a minimal, single-process TableExchange: it tracks
// cache refcounts with a plain map and panics on underflow (per the
// queue's Failure semantics). It always reports itself ready, and reports
// itself terminable unless SetTerminable(false) was called, since there is
// no real peer traffic to wait on.
type FakeExchange struct {
	mu sync.Mutex

	local SubTable
	world int

	subtables map[queue.SubTableId]SubTable
	refcounts map[queue.SubTableId]int

	pendingFlushes []SubTable
	flushLedger    *lru.Cache // bounded memory of flush requests, keyed by correlation id

	extraPointsBudget uint64
	terminable        bool

	peers  []int
	notify func(peer int, sub SubTable) error
}

// SetPeers tells FakeExchange which peer ranks exist and how to deliver a
// flushed subtable to one of them. Tests supply notify; production callers
// would wire it to their real transport. Delivery runs one goroutine per
// peer per flushed subtable, collected through an async.Mailbox.
func (e *FakeExchange) SetPeers(peers []int, notify func(peer int, sub SubTable) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.peers = peers
	e.notify = notify
}

// SubTable is the concrete subtable type FakeExchange operates on: it
// must satisfy queue.SubTable, plus expose enough to register it.
type SubTable = queue.SubTable

// New returns a FakeExchange seeded with local as rank world's own table
// and budget extra points of headroom to report via
// RemainingExtraPointsToHold.
func New(world int, local SubTable, budget uint64) *FakeExchange {
	ledger, err := lru.New(defaultFlushLedgerCapacity)
	if err != nil {
		panic(err)
	}
	return &FakeExchange{
		local:             local,
		world:             world,
		subtables:         make(map[queue.SubTableId]SubTable),
		refcounts:         make(map[queue.SubTableId]int),
		flushLedger:       ledger,
		extraPointsBudget: budget,
		terminable:        true,
	}
}

func (e *FakeExchange) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("FakeExchange{world:%d refcounts:%s pendingFlushes:%d}",
		e.world, spew.Sdump(e.refcounts), len(e.pendingFlushes))
}

// Register makes sub findable by FindSubTable and, if its id has no
// refcount entry yet, records one at zero. Tests use this
// to seed reference subtables before calling GenerateTasks.
func (e *FakeExchange) Register(sub SubTable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := sub.SubTableId()
	e.subtables[id] = sub
	if _, ok := e.refcounts[id]; !ok {
		e.refcounts[id] = 0
	}
}

func (e *FakeExchange) Init(world int, local SubTable) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world = world
	e.local = local
	e.subtables[local.SubTableId()] = local
	return nil
}

func (e *FakeExchange) LockCache(id queue.SubTableId, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refcounts[id] += n
}

func (e *FakeExchange) ReleaseCache(world int, id queue.SubTableId, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.refcounts[id] < n {
		panic(fmt.Sprintf("fakeexchange: released cache block %s %d times more than it was locked", id, n-e.refcounts[id]))
	}
	e.refcounts[id] -= n
}

func (e *FakeExchange) FindSubTable(id queue.SubTableId) SubTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subtables[id]
}

func (e *FakeExchange) FindByBeginCount(begin, count int) queue.Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, sub := range e.subtables {
		if id.Begin == begin && id.Count == count {
			return sub.StartNode()
		}
	}
	return nil
}

// QueueFlushRequest records sub as pending a flush home, minting a
// correlation id the way generateJobId mints job ids, purely for
// traceability in logs.
func (e *FakeExchange) QueueFlushRequest(sub SubTable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := newCorrelationId()
	if err == nil {
		e.flushLedger.Add(id, sub.SubTableId())
	}
	e.pendingFlushes = append(e.pendingFlushes, sub)
}

func (e *FakeExchange) SendReceive(metric queue.Metric, world int, outbound []SubTable) error {
	return nil
}

// SendReceiveQuerySubTableFlushRequests delivers every pending flush to
// every known peer in parallel and blocks until each flush has either been
// acknowledged by a majority of peers or every peer has replied. A flush
// that only a minority of peers ack is dropped from the pending list anyway:
// FakeExchange has no retry queue, it only exists to exercise the queue's
// call pattern against a real concurrent delivery path.
func (e *FakeExchange) SendReceiveQuerySubTableFlushRequests(world int) error {
	e.mu.Lock()
	pending := e.pendingFlushes
	e.pendingFlushes = nil
	peers := e.peers
	notify := e.notify
	e.mu.Unlock()

	if notify == nil || len(peers) == 0 {
		return nil
	}

	for _, sub := range pending {
		if err := e.broadcastFlush(sub, peers, notify); err != nil {
			return err
		}
	}
	return nil
}

func (e *FakeExchange) broadcastFlush(sub SubTable, peers []int, notify func(peer int, sub SubTable) error) error {
	acked, returned := 0, 0
	mailbox := async.NewMailbox()

	onReply := func(err error) {
		returned++
		if err == nil {
			acked++
		}
	}

	for _, p := range peers {
		peer := p
		go func(rsp *async.AsyncError) {
			rsp.SetValue(notify(peer, sub))
		}(mailbox.NewAsyncError(onReply))
	}

	for acked*2 < len(peers) && returned < len(peers) {
		mailbox.ProcessMessages()
	}
	return nil
}

func (e *FakeExchange) ReadyToSendReceive(world int) bool {
	return true
}

func (e *FakeExchange) PushCompletedComputation(world int, work uint64) {}

func (e *FakeExchange) CanTerminate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminable
}

// SetTerminable lets tests simulate a peer still holding in-flight
// messages by making CanTerminate report false.
func (e *FakeExchange) SetTerminable(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.terminable = v
}

func (e *FakeExchange) RemainingExtraPointsToHold() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.extraPointsBudget
}

func (e *FakeExchange) ProcessRank(world int, r int) int {
	return r
}

func (e *FakeExchange) DoLoadBalancing() bool {
	return true
}

func (e *FakeExchange) PushSubTable(sub SubTable, nRefs int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := sub.SubTableId()
	e.subtables[id] = sub
	e.refcounts[id] = nRefs
	return len(e.subtables) - 1
}

func (e *FakeExchange) LocalTable() SubTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local
}

// PendingFlushes returns the subtables queued for flush since the last
// SendReceiveQuerySubTableFlushRequests, for test assertions.
func (e *FakeExchange) PendingFlushes() []SubTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SubTable(nil), e.pendingFlushes...)
}

// Refcount returns the current cache refcount for id, for test
// assertions (P4).
func (e *FakeExchange) Refcount(id queue.SubTableId) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refcounts[id]
}

func newCorrelationId() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
