package sim

import "container/heap"

// EventHeap is the scheduler's pending-event queue. Ordering is fully
// deterministic: simulated tick first, then event-type priority, then the
// per-simulator insertion sequence, so two runs with the same seed execute
// events in exactly the same order.
type EventHeap struct {
	items eventItems
}

// NewEventHeap creates an empty queue.
func NewEventHeap() *EventHeap {
	return &EventHeap{}
}

// Len returns the number of pending events.
func (h *EventHeap) Len() int {
	return len(h.items)
}

// Schedule adds an event to the queue.
func (h *EventHeap) Schedule(e Event) {
	heap.Push(&h.items, e)
}

// PopNext removes and returns the next event, or nil when the queue is empty.
func (h *EventHeap) PopNext() Event {
	if len(h.items) == 0 {
		return nil
	}
	return heap.Pop(&h.items).(Event)
}

// Peek returns the next event without removing it, or nil when empty.
func (h *EventHeap) Peek() Event {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

// eventItems carries the heap.Interface implementation.
type eventItems []Event

// eventBefore is the total order over events. No two events ever compare
// equal: the insertion sequence is unique within a run.
func eventBefore(a, b Event) bool {
	if a.Timestamp() != b.Timestamp() {
		return a.Timestamp() < b.Timestamp()
	}
	if pa, pb := EventTypePriority[a.Type()], EventTypePriority[b.Type()]; pa != pb {
		return pa < pb
	}
	return a.EventID() < b.EventID()
}

func (q eventItems) Len() int           { return len(q) }
func (q eventItems) Less(i, j int) bool { return eventBefore(q[i], q[j]) }
func (q eventItems) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *eventItems) Push(x any) {
	*q = append(*q, x.(Event))
}

func (q *eventItems) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
