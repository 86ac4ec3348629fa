// Package slotpool owns the fixed set of I/O slots a trial submits
// through: aligned buffers, per-slot request state, and an O(1) map from
// completion handle to slot index.
package slotpool

import (
	"math/rand"

	"golang.org/x/sys/unix"
)

// Slot is one outstanding I/O's state. Slot never owns its buffer; the
// Pool does, and releases it on Close.
type Slot struct {
	Buf        []byte
	Offset     int64
	IsWrite    bool
	SubmitTick int64
	Pending    bool
	Handle     uint64
}

// Pool owns PoolSize slots, each with a buffer aligned to the greater of
// the volume's logical sector size and 512 bytes.
type Pool struct {
	slots       []Slot
	mem         []byte
	blockSize   int
	byHandle    map[uint64]int
	pendingNum  int
}

// New allocates a pool of size slots, each blockSize bytes, aligned to
// max(sectorSize, 512). If fillRandom is set (write-capable workloads),
// every buffer is seeded with pseudo-random bytes to defeat hardware
// compression before the first write.
func New(size int, blockSize int, sectorSize int64, fillRandom bool, seed int64) (*Pool, error) {
	align := sectorSize
	if align < 512 {
		align = 512
	}
	// Slots are laid out stride bytes apart (blockSize rounded up to
	// align), so every buffer keeps the alignment of the mapping's base.
	// unix.Mmap returns page-aligned memory (4096 on every platform this
	// runs on), which satisfies align whenever align <= 4096.
	stride := int((int64(blockSize) + align - 1) / align * align)
	total := size * stride
	mem, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		slots:     make([]Slot, size),
		mem:       mem,
		blockSize: blockSize,
		byHandle:  make(map[uint64]int, size),
	}
	for i := range p.slots {
		p.slots[i].Buf = mem[i*stride : i*stride+blockSize]
	}

	if fillRandom {
		r := rand.New(rand.NewSource(seed))
		for i := range p.slots {
			r.Read(p.slots[i].Buf)
		}
	}

	return p, nil
}

// Size returns the number of slots in the pool.
func (p *Pool) Size() int { return len(p.slots) }

// Slot returns a pointer to the i-th slot.
func (p *Pool) Slot(i int) *Slot { return &p.slots[i] }

// MarkPending transitions slot i from idle to pending under the given
// completion handle, registering it for O(1) lookup.
func (p *Pool) MarkPending(i int, handle uint64, offset int64, isWrite bool, submitTick int64) {
	s := &p.slots[i]
	s.Pending = true
	s.Handle = handle
	s.Offset = offset
	s.IsWrite = isWrite
	s.SubmitTick = submitTick
	p.byHandle[handle] = i
	p.pendingNum++
}

// MarkIdle transitions slot i from pending to idle, whether by completion
// or by drain.
func (p *Pool) MarkIdle(i int) {
	s := &p.slots[i]
	if !s.Pending {
		return
	}
	delete(p.byHandle, s.Handle)
	s.Pending = false
	p.pendingNum--
}

// FindByHandle returns the slot index registered under handle, and
// whether it was found pending. Lookup is O(1).
func (p *Pool) FindByHandle(handle uint64) (int, bool) {
	i, ok := p.byHandle[handle]
	if !ok || !p.slots[i].Pending {
		return 0, false
	}
	return i, true
}

// PendingCount returns the number of slots currently pending.
func (p *Pool) PendingCount() int { return p.pendingNum }

// Close releases the pool's buffers. The pool must not be used afterward.
func (p *Pool) Close() error {
	if p.mem == nil {
		return nil
	}
	err := unix.Munmap(p.mem)
	p.mem = nil
	return err
}
