package segment

import (
	"container/heap"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// cursor tracks the next unread row of one input series.
type cursor struct {
	series motion.Series
	pos    int
	source int
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	ti := h[i].series[h[i].pos].Timestamp
	tj := h[j].series[h[j].pos].Timestamp
	if ti != tj {
		return ti < tj
	}
	return h[i].source < h[j].source
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x interface{}) { *h = append(*h, x.(*cursor)) }

func (h *cursorHeap) Pop() interface{} {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// Merge performs an ordered k-way merge of timestamp-sorted series.
// Equal timestamps are emitted in argument order.
func Merge(parts ...motion.Series) motion.Series {
	total := 0
	h := make(cursorHeap, 0, len(parts))
	for i, p := range parts {
		total += len(p)
		if len(p) > 0 {
			h = append(h, &cursor{series: p, source: i})
		}
	}
	heap.Init(&h)

	out := make(motion.Series, 0, total)
	for h.Len() > 0 {
		c := h[0]
		out = append(out, c.series[c.pos])
		c.pos++
		if c.pos == len(c.series) {
			heap.Pop(&h)
			continue
		}
		heap.Fix(&h, 0)
	}
	return out
}
