package slotpool

import "testing"

func TestMarkPendingIdleTransitionsAndLookup(t *testing.T) {
	p, err := New(4, 4096, 512, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	p.MarkPending(2, 0xABCD, 8192, true, 100)
	if p.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", p.PendingCount())
	}
	idx, ok := p.FindByHandle(0xABCD)
	if !ok || idx != 2 {
		t.Fatalf("FindByHandle = (%d, %v), want (2, true)", idx, ok)
	}
	slot := p.Slot(2)
	if !slot.Pending || slot.Offset != 8192 || !slot.IsWrite || slot.SubmitTick != 100 {
		t.Fatalf("unexpected slot state: %+v", *slot)
	}

	p.MarkIdle(2)
	if p.PendingCount() != 0 {
		t.Fatalf("PendingCount after idle = %d, want 0", p.PendingCount())
	}
	if _, ok := p.FindByHandle(0xABCD); ok {
		t.Fatal("stale handle should not resolve after MarkIdle")
	}
}

func TestFindByHandleIgnoresSpuriousHandle(t *testing.T) {
	p, err := New(2, 4096, 512, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if _, ok := p.FindByHandle(999); ok {
		t.Fatal("unregistered handle should not resolve")
	}
}

func TestFillRandomPopulatesBuffers(t *testing.T) {
	p, err := New(2, 4096, 512, true, 42)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	allZero := true
	for _, b := range p.Slot(0).Buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatal("expected fillRandom to populate the buffer with non-zero bytes")
	}
}

func TestSlotsAreDisjoint(t *testing.T) {
	p, err := New(3, 512, 512, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	p.Slot(0).Buf[0] = 0xFF
	if p.Slot(1).Buf[0] == 0xFF {
		t.Fatal("slot buffers overlap")
	}
}
