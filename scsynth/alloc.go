package scsynth

import (
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

// nodeIDSpacing is the width of each client's node id range: client n owns
// ids [10000*(n+1), 10000*(n+2)).
const nodeIDSpacing = 10000

// NodeIDAllocator hands out node ids for one client. Ids are monotonic and
// never reused proactively; Free is a no-op, reuse only happens implicitly
// when the registry observes a terminal id being reconstructed.
//
// Allocators are not safe for concurrent use; callers serialize access.
type NodeIDAllocator struct {
	offset  int32
	counter int32
}

// NewNodeIDAllocator returns an allocator for the given client index.
func NewNodeIDAllocator(clientID int32) *NodeIDAllocator {
	return &NodeIDAllocator{offset: nodeIDSpacing * (clientID + 1)}
}

// Allocate returns the next node id for this client. The counter wraps back
// to 1 before the id would overflow the wire's signed 32-bit representation.
func (a *NodeIDAllocator) Allocate() int32 {
	a.counter++
	if a.counter >= math.MaxInt32-a.offset {
		a.counter = 1
	}
	return a.offset + a.counter
}

// Free is a no-op: node ids are never handed out twice by the allocator.
func (a *NodeIDAllocator) Free(int32) {}

// BlockAllocator hands out contiguous runs of integer ids (buffer numbers,
// bus indices) from a fixed partition. The free list is kept sorted and
// duplicate-free so contiguous runs can be found by scanning neighbors.
//
// Allocators are not safe for concurrent use; callers serialize access.
type BlockAllocator[T constraints.Integer] struct {
	free []T
}

// NewBlockAllocator returns an allocator over the range [offset, offset+size).
func NewBlockAllocator[T constraints.Integer](offset, size T) *BlockAllocator[T] {
	free := make([]T, 0, size)
	for id := offset; id < offset+size; id++ {
		free = append(free, id)
	}
	return &BlockAllocator[T]{free: free}
}

// NewPartitionedAllocator divides a pool of poolSize ids evenly across
// maxClients and returns the allocator for the given client's share, so
// blocks allocated by different clients never overlap.
func NewPartitionedAllocator[T constraints.Integer](clientID, maxClients, poolSize T) *BlockAllocator[T] {
	per := poolSize / maxClients
	return NewBlockAllocator(clientID*per, per)
}

// Allocate removes and returns the first run of n pairwise-consecutive free
// ids. It fails with an AllocationError when no such run exists.
func (a *BlockAllocator[T]) Allocate(n int) ([]T, error) {
	if n < 1 {
		return nil, &AllocationError{Want: n, Remaining: len(a.free)}
	}

	for i := 0; i+n <= len(a.free); i++ {
		// Sorted and duplicate-free, so a run of n consecutive ids
		// spans exactly n-1.
		if a.free[i+n-1]-a.free[i] != T(n-1) {
			continue
		}
		ids := make([]T, n)
		copy(ids, a.free[i:i+n])
		a.free = slices.Delete(a.free, i, i+n)
		return ids, nil
	}

	return nil, &AllocationError{Want: n, Remaining: len(a.free)}
}

// Free reinserts the given ids at their sorted positions. Ids already free
// are ignored, preserving the no-duplicates invariant.
func (a *BlockAllocator[T]) Free(ids []T) {
	for _, id := range ids {
		at, found := slices.BinarySearch(a.free, id)
		if found {
			continue
		}
		a.free = slices.Insert(a.free, at, id)
	}
}

// FreeCount returns how many ids are currently free.
func (a *BlockAllocator[T]) FreeCount() int { return len(a.free) }
