package arq

// WindowItem is one in-flight sender-side packet, per spec.md §3.
type WindowItem struct {
	Sequence         uint32
	Payload          []byte
	Acked            bool
	RetriesRemaining int
}

// Window is the sender's ordered set of in-flight WindowItems, bounded to
// W entries. Invariants (spec.md §3): length <= W; head.Sequence == Base;
// no two items share a sequence number. Under Selective Repeat sequence
// numbers also strictly increase within the window and tail.Sequence ==
// NextToSend-1; Stop-and-Wait's window holds one item whose 1-bit
// sequence is the flipped value of NextToSend.
type Window struct {
	items []WindowItem
	max   int
}

// NewWindow creates an empty Window bounded to max items.
func NewWindow(max int) *Window {
	return &Window{items: make([]WindowItem, 0, max), max: max}
}

// Len reports the number of in-flight items.
func (w *Window) Len() int { return len(w.items) }

// Full reports whether the window has reached its configured bound.
func (w *Window) Full() bool { return len(w.items) >= w.max }

// Push appends a new WindowItem. The caller is responsible for keeping
// sequence numbers strictly increasing (the sender engine only ever
// appends the just-built packet for NextToSend).
func (w *Window) Push(item WindowItem) { w.items = append(w.items, item) }

// Head returns a pointer to the window's first (lowest-sequence) item,
// or nil if the window is empty.
func (w *Window) Head() *WindowItem {
	if len(w.items) == 0 {
		return nil
	}
	return &w.items[0]
}

// Find locates the WindowItem with the given sequence number.
func (w *Window) Find(seq uint32) *WindowItem {
	for i := range w.items {
		if w.items[i].Sequence == seq {
			return &w.items[i]
		}
	}
	return nil
}

// SlideAcked removes the head item if acked, and continues removing the
// new head for as long as it is also acked — the "slide the window"
// step of spec.md §4.3. It returns the number of items removed.
func (w *Window) SlideAcked() int {
	removed := 0
	for len(w.items) > 0 && w.items[0].Acked {
		w.items = w.items[1:]
		removed++
	}
	return removed
}
