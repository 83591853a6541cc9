// Package bus implements the logical-clock event scheduler (C2). The bus
// owns the simulation's single monotonic clock and a priority queue of
// pending deliveries; nothing else in the core is allowed to move time
// forward.
package bus

import (
	"container/heap"
)

type (
	// Payload is the neutral key-value map carried by scheduled events. Using
	// a plain map (rather than per-target structs) keeps the scheduler
	// boundary extensible the way spec.md §9 calls for.
	Payload map[string]any

	// Entry is a single pending delivery: (due_ms, seq, target, payload).
	// Heap order is (due_ms asc, seq asc) so insertion order breaks ties at
	// equal due times.
	Entry struct {
		DueMS   int64
		Seq     uint64
		Target  string
		Payload Payload
	}

	// Bus is the priority queue of pending deliveries plus the simulation's
	// logical clock. It is not safe for concurrent use.
	Bus struct {
		clock   int64
		nextSeq uint64
		pq      entryHeap
	}
)

// New constructs an empty Bus with the clock at 0.
func New() *Bus {
	b := &Bus{}
	heap.Init(&b.pq)
	return b
}

// Clock returns the current logical clock, in milliseconds.
func (b *Bus) Clock() int64 { return b.clock }

// Schedule pushes an entry due at clock+dtMS for target, carrying payload.
// dtMS must be >= 0; the bus never schedules into the past relative to the
// current clock.
func (b *Bus) Schedule(dtMS int64, target string, payload Payload) {
	if dtMS < 0 {
		dtMS = 0
	}
	e := &Entry{
		DueMS:   b.clock + dtMS,
		Seq:     b.nextSeq,
		Target:  target,
		Payload: payload,
	}
	b.nextSeq++
	heap.Push(&b.pq, e)
}

// PeekDueTime returns the earliest pending due time, or (0, false) if the
// queue is empty.
func (b *Bus) PeekDueTime() (int64, bool) {
	if b.pq.Len() == 0 {
		return 0, false
	}
	return b.pq[0].DueMS, true
}

// NextIfDue pops and returns the earliest entry if its due time is <= the
// current clock. It never advances the clock itself.
func (b *Bus) NextIfDue() (*Entry, bool) {
	if b.pq.Len() == 0 {
		return nil, false
	}
	if b.pq[0].DueMS > b.clock {
		return nil, false
	}
	e := heap.Pop(&b.pq).(*Entry)
	return e, true
}

// Advance raises the clock by dt. dt must be >= 0: the clock is
// non-decreasing per spec.md §8, and Advance never moves it backward.
func (b *Bus) Advance(dt int64) {
	if dt <= 0 {
		return
	}
	b.clock += dt
}

// SetClock forces the clock to at, used only while draining due events
// during Tick so that the clock reads as the event's own due time at the
// moment of delivery. at must be >= the current clock.
func (b *Bus) SetClock(at int64) {
	if at > b.clock {
		b.clock = at
	}
}

// Tick repeatedly pops entries whose due time is <= clock+dtMS, setting the
// clock to each entry's own due time before invoking deliver, then sets the
// clock to start+dtMS once no more entries are due. This matches spec.md
// §4.7's "tick" contract: every event due within the window is delivered
// before Tick returns, and the clock reads as of each delivery.
func (b *Bus) Tick(dtMS int64, deliver func(*Entry)) {
	if dtMS < 0 {
		dtMS = 0
	}
	deadline := b.clock + dtMS
	for {
		due, ok := b.PeekDueTime()
		if !ok || due > deadline {
			break
		}
		e := heap.Pop(&b.pq).(*Entry)
		b.SetClock(e.DueMS)
		if deliver != nil {
			deliver(e)
		}
	}
	if deadline > b.clock {
		b.clock = deadline
	}
}

// PendingCount returns the number of scheduled-but-undelivered entries,
// optionally restricted to a single target.
func (b *Bus) PendingCount(target string) int {
	if target == "" {
		return b.pq.Len()
	}
	n := 0
	for _, e := range b.pq {
		if e.Target == target {
			n++
		}
	}
	return n
}

// Pending returns a snapshot copy of all pending entries, ordered by heap
// position (not guaranteed to be fully due-time sorted beyond the root).
// Callers that need strict ordering should drain via NextIfDue/Tick instead.
func (b *Bus) Pending() []Entry {
	out := make([]Entry, len(b.pq))
	for i, e := range b.pq {
		out[i] = *e
	}
	return out
}

// entryHeap implements container/heap.Interface over *Entry, ordered by
// (DueMS asc, Seq asc).
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].DueMS != h[j].DueMS {
		return h[i].DueMS < h[j].DueMS
	}
	return h[i].Seq < h[j].Seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
