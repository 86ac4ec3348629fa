// Package offsets precomputes the sequence of file offsets a trial submits
// against, for both sequential and random access patterns.
package offsets

import (
	"math/rand"

	"github.com/coreio-bench/diskbench/pkg/bench"
)

// DefaultSize is the default power-of-two precomputed array length.
const DefaultSize = 65536

// Pattern selects sequential or random offset generation.
type Pattern int

const (
	Sequential Pattern = iota
	Random
)

// Region is the byte span offsets are drawn from. Length == 0 is resolved
// by the caller to "to end of file" before constructing Offsets.
type Region struct {
	Offset int64
	Length int64
}

// Offsets is a precomputed, cyclic sequence of aligned offsets.
type Offsets struct {
	table []int64
	mask  uint64
	idx   uint64
}

// New builds a precomputed offset table of the given size (rounded up to
// the next power of two) for pattern over region with the given block
// size. seed controls the random draw for Pattern == Random; it is
// ignored for Sequential.
//
// Returns a *bench.Error with Kind InvalidWorkload if the region holds
// fewer than one full block.
func New(pattern Pattern, region Region, blockSize int64, seed int64, size int) (*Offsets, error) {
	if size <= 0 {
		size = DefaultSize
	}
	size = nextPowerOfTwo(size)

	if blockSize <= 0 {
		return nil, bench.New(bench.InvalidWorkload, "block size must be positive")
	}
	blocksInRegion := region.Length / blockSize
	if blocksInRegion < 1 {
		return nil, bench.New(bench.InvalidWorkload, "region smaller than one block")
	}

	o := &Offsets{
		table: make([]int64, size),
		mask:  uint64(size - 1),
	}

	switch pattern {
	case Sequential:
		for i := range o.table {
			blockIdx := int64(i) % blocksInRegion
			o.table[i] = region.Offset + blockIdx*blockSize
		}
	case Random:
		r := rand.New(rand.NewSource(seed))
		for i := range o.table {
			blockIdx := r.Int63n(blocksInRegion)
			o.table[i] = region.Offset + blockIdx*blockSize
		}
	default:
		return nil, bench.New(bench.InvalidWorkload, "unknown access pattern")
	}

	return o, nil
}

// Next returns the next offset in the cycle and advances the cursor.
func (o *Offsets) Next() int64 {
	v := o.table[o.idx&o.mask]
	o.idx++
	return v
}

// Period returns the length of the precomputed table, after which Next
// repeats. The number of distinct offsets in it can be smaller.
func (o *Offsets) Period() int {
	return len(o.table)
}

// ValidateAlignment reports an *bench.Error (InvalidWorkload) if any
// precomputed offset is not a multiple of sectorSize.
func (o *Offsets) ValidateAlignment(sectorSize int64) error {
	if sectorSize <= 0 {
		return nil
	}
	for _, off := range o.table {
		if off%sectorSize != 0 {
			return bench.New(bench.InvalidWorkload, "offset not aligned to sector size")
		}
	}
	return nil
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
