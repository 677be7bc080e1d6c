package scheduler

import (
	"container/heap"
	"time"
)

// entry projects one Running process's completion wall-clock time.
type entry struct {
	at     time.Time
	player string
	id     string
}

// etaHeap is a min-heap keyed by projected completion time. Entries are
// never removed in place; allocation changes leave stale entries behind,
// which the dispatch loop discards after re-checking authoritative state.
type etaHeap struct {
	entries []*entry
}

var _ heap.Interface = (*etaHeap)(nil)

func (h *etaHeap) Len() int { return len(h.entries) }

func (h *etaHeap) Less(i, j int) bool { return h.entries[i].at.Before(h.entries[j].at) }

func (h *etaHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *etaHeap) Push(v interface{}) { h.entries = append(h.entries, v.(*entry)) }

func (h *etaHeap) Pop() interface{} {
	last := len(h.entries) - 1
	v := h.entries[last]
	h.entries[last] = nil
	h.entries = h.entries[:last]
	return v
}

func (h *etaHeap) peek() *entry {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[0]
}
