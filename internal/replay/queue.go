package replay

import (
	"tickbacktest/types"
)

type cursor struct {
	src   Source
	index int
	next  types.Tick
	prev  int64
}

// cursorQueue is a min-heap on (next tick stamp, registration index).
type cursorQueue []*cursor

func (q cursorQueue) Len() int { return len(q) }

func (q cursorQueue) Less(i, j int) bool {
	a, b := q[i].next.Stamp(), q[j].next.Stamp()
	if a != b {
		return a < b
	}
	return q[i].index < q[j].index
}

func (q cursorQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *cursorQueue) Push(x any) {
	*q = append(*q, x.(*cursor))
}

func (q *cursorQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return c
}
