package queue

//go:generate mockgen -source=exchange.go -package=queue -destination=exchange_mock.go

// TableExchange is the external collaborator that moves reference
// subtables and flush messages between ranks, reference-counts cached
// blocks, tracks per-peer memory budgets, and routes completed-computation
// deltas. The queue treats it as a black box: no wire format, transport,
// or persistence decision made here leaks into package queue.
type TableExchange interface {
	// Init prepares the exchange for this rank (world), seeded with its
	// local table.
	Init(world int, local SubTable) error

	// LockCache increments the reference count on the cached block
	// backing id by n.
	LockCache(id SubTableId, n int)

	// ReleaseCache decrements the reference count on the cached block
	// backing id by n. Releasing more than was locked is a fatal
	// invariant violation.
	ReleaseCache(world int, id SubTableId, n int)

	FindSubTable(id SubTableId) SubTable
	FindByBeginCount(begin, count int) Tree

	// QueueFlushRequest asks the exchange to send sub home to its origin
	// rank on the next SendReceiveQuerySubTableFlushRequests.
	QueueFlushRequest(sub SubTable)

	SendReceive(metric Metric, world int, outbound []SubTable) error
	SendReceiveQuerySubTableFlushRequests(world int) error
	ReadyToSendReceive(world int) bool

	PushCompletedComputation(world int, work uint64)
	CanTerminate() bool

	RemainingExtraPointsToHold() uint64
	ProcessRank(world int, r int) int
	DoLoadBalancing() bool

	// PushSubTable registers sub as backed by nRefs reference points and
	// returns its cache block id.
	PushSubTable(sub SubTable, nRefs int) int
	LocalTable() SubTable
}
