package device

// Handle identifies a buffer, texture or shader resident on a device.
// It is scoped to the device's lifetime and invalidated on shutdown.
// The zero Handle is never issued.
type Handle uint64

// Valid reports whether h could have been issued by a device.
// It does not check liveness, Release and lookup do that.
func (h Handle) Valid() bool {
	return h != 0
}

func makeHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) slotIndex() uint32 {
	return uint32(h)
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

type resourceKind uint8

const (
	kindBuffer resourceKind = iota + 1
	kindTexture
	kindShader
)

type slot struct {
	generation uint32
	kind       resourceKind
	size       uint64
	live       bool
}

// handleTable is a dense slot array with a free list. Generations start
// at 1 and advance on release, so an index is never reissued under a
// generation a stale handle could still match.
type handleTable struct {
	slots []slot
	free  []uint32
}

func (t *handleTable) alloc(kind resourceKind, size uint64) Handle {
	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, slot{generation: 1})
		index = uint32(len(t.slots) - 1)
	}
	s := &t.slots[index]
	s.kind = kind
	s.size = size
	s.live = true
	return makeHandle(index, s.generation)
}

func (t *handleTable) lookup(h Handle) (*slot, error) {
	index := h.slotIndex()
	if !h.Valid() || index >= uint32(len(t.slots)) {
		return nil, ErrInvalidHandle
	}
	s := &t.slots[index]
	if !s.live || s.generation != h.generation() {
		return nil, ErrInvalidHandle
	}
	return s, nil
}

// release frees the slot behind h and returns the size it accounted for
func (t *handleTable) release(h Handle) (uint64, error) {
	s, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	size := s.size
	s.live = false
	s.size = 0
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	t.free = append(t.free, h.slotIndex())
	return size, nil
}

// reset drops every slot, used on device shutdown
func (t *handleTable) reset() {
	t.slots = t.slots[:0]
	t.free = t.free[:0]
}

func (t *handleTable) liveCount() int {
	var n int
	for i := range t.slots {
		if t.slots[i].live {
			n++
		}
	}
	return n
}
