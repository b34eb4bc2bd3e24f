package queue

import "fmt"

// Default zero-value fallbacks, filled in by NewDualTreeTaskQueue.
const (
	DefaultMaxSubtreeSize        = 1024
	DefaultFrontierSlotsPerCore  = 4
	DefaultPeerBiasCacheCapacity = 256
)

// Config holds the runtime knobs for a DualTreeTaskQueue. There is no
// file or CLI surface here; the embedding process populates and owns a
// Config value and passes it to NewDualTreeTaskQueue.
type Config struct {
	// MaxSubtreeSize bounds the point count of a frontier query subtree
	// chosen during Init.
	MaxSubtreeSize int

	// NumThreads is the number of worker threads this process runs;
	// Init partitions the local query tree into roughly
	// FrontierSlotsPerCore*NumThreads slots.
	NumThreads int

	// FrontierSlotsPerCore overrides the default frontier multiplier.
	FrontierSlotsPerCore int

	// DoLoadBalancing makes every SendReceive drain outstanding flush
	// requests before the send/receive. PrepareExtraTaskList does not
	// consult it.
	DoLoadBalancing bool

	// ProcessRankFavorFactor is K in the priority formula
	// priority(q,r) = -mid(MinMaxDistSq) - K*peer_rank_bias(r.owner).
	// Zero (the default) disables the bias term entirely.
	ProcessRankFavorFactor float64

	// PeerBiasCacheCapacity bounds the LRU cache PushTask consults to
	// memoize per-peer bias lookups. Zero selects the default.
	PeerBiasCacheCapacity int

	// Debug is carried in the Config and printed by String; the queue
	// does not read it. The extra invariant checks are switched on by
	// the dtqueue_debug build tag alone.
	Debug bool
}

func (c *Config) String() string {
	return fmt.Sprintf("Config: MaxSubtreeSize: %d, NumThreads: %d, FrontierSlotsPerCore: %d, "+
		"DoLoadBalancing: %t, ProcessRankFavorFactor: %g, PeerBiasCacheCapacity: %d, Debug: %t",
		c.MaxSubtreeSize, c.NumThreads, c.FrontierSlotsPerCore, c.DoLoadBalancing,
		c.ProcessRankFavorFactor, c.PeerBiasCacheCapacity, c.Debug)
}

func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.MaxSubtreeSize == 0 {
		cfg.MaxSubtreeSize = DefaultMaxSubtreeSize
	}
	if cfg.NumThreads == 0 {
		cfg.NumThreads = 1
	}
	if cfg.FrontierSlotsPerCore == 0 {
		cfg.FrontierSlotsPerCore = DefaultFrontierSlotsPerCore
	}
	if cfg.PeerBiasCacheCapacity == 0 {
		cfg.PeerBiasCacheCapacity = DefaultPeerBiasCacheCapacity
	}
	return &cfg
}
