package queue

// Bound is an opaque spatial bounding volume. The queue never inspects a
// Bound directly; it only passes pairs of them to a Metric.
type Bound interface{}

// Tree is a node in a query or reference spatial tree: a bounding volume,
// child pointers, and a point count. Leaves have nil children.
type Tree interface {
	Bound() Bound
	Count() int
	Left() Tree
	Right() Tree
	IsLeaf() bool
}

// SubTable is a subtree of a query or reference tree, possibly aliased in
// from another rank's tree. The queue holds SubTables by interface value
// and never reaches into their numeric contents.
type SubTable interface {
	StartNode() Tree
	SetStartNode(Tree)
	Rank() int
	SubTableId() SubTableId

	// Alias returns a lightweight SubTable sharing this one's underlying
	// data but rooted at a different start node (used when splitting a
	// query subtree: the left and right children alias the same table).
	Alias(startNode Tree) SubTable

	// Copy returns an independent SubTable with its own copy of the
	// per-point accumulator, used to merge a remote writeback.
	Copy() SubTable

	// Includes reports whether other's point range is contained in this
	// SubTable's current start node.
	Includes(other SubTable) bool

	// MergeFrom folds other's accumulated per-point results into this
	// SubTable's own storage. Used by Synchronize to apply an
	// authoritative remote writeback to a checked-out query subtable.
	MergeFrom(other SubTable)
}
