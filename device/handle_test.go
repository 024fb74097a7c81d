package device

import (
	"errors"
	"testing"
)

func TestHandleAllocLookup(t *testing.T) {
	var table handleTable

	h := table.alloc(kindBuffer, 64)
	if !h.Valid() {
		t.Fatal("allocated handle is not valid")
	}

	s, err := table.lookup(h)
	if err != nil {
		t.Fatal(err)
	}
	if s.kind != kindBuffer || s.size != 64 {
		t.Errorf("unexpected slot contents: kind=%d size=%d", s.kind, s.size)
	}
}

func TestHandleReleaseInvalidates(t *testing.T) {
	var table handleTable

	h := table.alloc(kindTexture, 128)
	size, err := table.release(h)
	if err != nil {
		t.Fatal(err)
	}
	if size != 128 {
		t.Errorf("release returned size %d, want 128", size)
	}

	if _, err := table.lookup(h); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("lookup after release: got %v, want ErrInvalidHandle", err)
	}
	if _, err := table.release(h); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("double release: got %v, want ErrInvalidHandle", err)
	}
}

func TestHandleSlotReuseBumpsGeneration(t *testing.T) {
	var table handleTable

	first := table.alloc(kindBuffer, 8)
	if _, err := table.release(first); err != nil {
		t.Fatal(err)
	}

	second := table.alloc(kindBuffer, 8)
	if first.slotIndex() != second.slotIndex() {
		t.Fatalf("expected slot reuse, got %d and %d", first.slotIndex(), second.slotIndex())
	}
	if first == second {
		t.Error("recycled slot produced an identical handle")
	}

	// The stale handle must stay dead even though the slot is live again.
	if _, err := table.lookup(first); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("stale handle lookup: got %v, want ErrInvalidHandle", err)
	}
	if _, err := table.lookup(second); err != nil {
		t.Errorf("fresh handle lookup: %v", err)
	}
}

func TestHandleZeroIsInvalid(t *testing.T) {
	var table handleTable

	var zero Handle
	if zero.Valid() {
		t.Error("zero handle reports valid")
	}
	if _, err := table.lookup(zero); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("zero handle lookup: got %v, want ErrInvalidHandle", err)
	}
}

func TestHandleLiveCount(t *testing.T) {
	var table handleTable

	a := table.alloc(kindBuffer, 1)
	table.alloc(kindShader, 1)
	if table.liveCount() != 2 {
		t.Errorf("liveCount = %d, want 2", table.liveCount())
	}

	if _, err := table.release(a); err != nil {
		t.Fatal(err)
	}
	if table.liveCount() != 1 {
		t.Errorf("liveCount after release = %d, want 1", table.liveCount())
	}

	table.reset()
	if table.liveCount() != 0 {
		t.Errorf("liveCount after reset = %d, want 0", table.liveCount())
	}
}
