package admission

import (
	"container/heap"

	"github.com/hexsim/hexsim/model"
)

// item is one queued process awaiting capacity.
type item struct {
	process *model.Process
	seq     uint64
}

// playerQueue orders waiting processes by priority (higher first), then by
// creation time (FIFO within a priority tier), with the admission sequence
// number as a final deterministic tiebreak.
type playerQueue struct {
	items []*item
}

var _ heap.Interface = (*playerQueue)(nil)

func (q *playerQueue) Len() int { return len(q.items) }

func (q *playerQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.process.Priority != b.process.Priority {
		return a.process.Priority > b.process.Priority
	}
	if !a.process.CreatedAt.Equal(b.process.CreatedAt) {
		return a.process.CreatedAt.Before(b.process.CreatedAt)
	}
	return a.seq < b.seq
}

func (q *playerQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *playerQueue) Push(v interface{}) { q.items = append(q.items, v.(*item)) }

func (q *playerQueue) Pop() interface{} {
	last := len(q.items) - 1
	v := q.items[last]
	q.items[last] = nil
	q.items = q.items[:last]
	return v
}

// remove drops the entry for processID, reporting whether it was present.
func (q *playerQueue) remove(processID string) bool {
	for i, entry := range q.items {
		if entry.process.ID == processID {
			heap.Remove(q, i)
			return true
		}
	}
	return false
}
