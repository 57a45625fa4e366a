package scheduler

import "container/heap"

// eventHeap orders events by FireAt, earliest first.
type eventHeap []Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].FireAt.Before(h[j].FireAt) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *eventHeap, e Event) {
	heap.Push(h, e)
}

// heapPop panics on an empty heap.
func heapPop(h *eventHeap) Event {
	return heap.Pop(h).(Event)
}

func heapRemoveByID(h *eventHeap, id string) bool {
	for i, e := range *h {
		if e.ID == id {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}

// heapRemoveKind drops every event of kind and returns how many were removed.
func heapRemoveKind(h *eventHeap, kind Kind) int {
	kept := (*h)[:0]
	removed := 0
	for _, e := range *h {
		if e.Kind == kind {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	*h = kept
	heap.Init(h)
	return removed
}
