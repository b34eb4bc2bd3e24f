package queue

import "fmt"

// SubTableId identifies a node in some tree owned by OriginRank, covering
// point indices [Begin, Begin+Count).
type SubTableId struct {
	OriginRank int
	Begin      int
	Count      int
}

func (id SubTableId) String() string {
	return fmt.Sprintf("%d:[%d,%d)", id.OriginRank, id.Begin, id.Begin+id.Count)
}

// Includes reports whether id fully contains other: same origin rank and
// other's point range is a (possibly equal) sub-range of id's.
func (id SubTableId) Includes(other SubTableId) bool {
	if id.OriginRank != other.OriginRank {
		return false
	}
	return other.Begin >= id.Begin && other.Begin+other.Count <= id.Begin+id.Count
}

// Equal reports whether id and other denote the same range.
func (id SubTableId) Equal(other SubTableId) bool {
	return id == other
}
