package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func initTestQueue(t *testing.T, maxSubtreeSize, targetSlots int) (*DualTreeTaskQueue, *fakeExchange) {
	ex := newFakeExchange()
	q := NewDualTreeTaskQueue(Config{NumThreads: 1, FrontierSlotsPerCore: targetSlots}, ex, nil)
	qRoot := newFakeSubTable(0, 0, 64)
	rRoot := newFakeSubTable(0, 0, 64)
	err := q.Init(0, maxSubtreeSize, true, qRoot, rRoot, nil, 1)
	assert.NoError(t, err)
	return q, ex
}

func TestPackExtraTaskListSkipsOwnedSubtables(t *testing.T) {
	q, _ := initTestQueue(t, 64, 1)
	owned := map[SubTableId]bool{}
	for _, qsub := range q.querySubTables {
		owned[qsub.SubTableId()] = true
	}

	list := packExtraTaskList(q, 1, 1<<20, owned)
	assert.Empty(t, list.Records)
}

func TestPackExtraTaskListChecksOutUntilBudgetExhausted(t *testing.T) {
	q, _ := initTestQueue(t, 8, 8)
	before := q.NumSlots()
	assert.True(t, before >= 2)

	// Budget only covers the first slot's point count.
	cost := uint64(q.querySubTables[0].StartNode().Count())
	list := packExtraTaskList(q, 1, cost, map[SubTableId]bool{})

	assert.Len(t, list.Records, 1)
	assert.Equal(t, 1, list.PeerRank)
	assert.Equal(t, before-1, q.NumSlots())
}

func TestPrepareExtraTaskListExcludesPeerOwnedIds(t *testing.T) {
	q, _ := initTestQueue(t, 8, 8)
	peerOwned := q.querySubTables[0].SubTableId()

	req := &LoadBalanceRequest{FromRank: 1, OwnedQuerySubTableIds: []SubTableId{peerOwned}}
	list := q.PrepareExtraTaskList(1, 1<<20, req)

	for _, lr := range list.Records {
		assert.NotEqual(t, peerOwned, lr.QSub.SubTableId())
	}
}

func TestPrepareLoadBalanceRequestReportsOwnershipAndBudget(t *testing.T) {
	q, ex := initTestQueue(t, 8, 4)
	ex.extraBudget = 1000

	req := q.PrepareLoadBalanceRequest()
	assert.Equal(t, 0, req.FromRank)
	assert.Equal(t, q.NumSlots(), len(req.OwnedQuerySubTableIds))
	assert.Equal(t, uint64(1000), req.RemainingMemoryBudget)
}
