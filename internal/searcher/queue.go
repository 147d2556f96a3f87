// Package searcher implements search queues and per-thread scratch state.
package searcher

// PriorityQueueItem is a candidate node and its distance to the query.
type PriorityQueueItem struct {
	Node     uint32  // storage-order index
	Distance float32 // lower is closer
}

// Closer reports whether a ranks before b. Equal distances are ordered by
// storage index so results are stable across runs.
func (a PriorityQueueItem) Closer(b PriorityQueueItem) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Node < b.Node
}

// PriorityQueue implements a binary heap holding PriorityQueueItems.
// It is value-based and does NOT implement container/heap to avoid interface overhead.
type PriorityQueue struct {
	isMaxHeap bool                // true = max heap, false = min heap
	items     []PriorityQueueItem // Value-based storage
}

// NewPriorityQueue creates a new priority queue.
func NewPriorityQueue(isMaxHeap bool) *PriorityQueue {
	return &PriorityQueue{
		isMaxHeap: isMaxHeap,
		items:     make([]PriorityQueueItem, 0, 64),
	}
}

// Reset clears the priority queue for reuse.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

// Len returns the number of elements in the heap.
func (pq *PriorityQueue) Len() int {
	return len(pq.items)
}

// TopItem returns the top element of the heap.
func (pq *PriorityQueue) TopItem() (PriorityQueueItem, bool) {
	if len(pq.items) == 0 {
		return PriorityQueueItem{}, false
	}
	return pq.items[0], true
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(item PriorityQueueItem) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PushItemBounded inserts an item into a max heap holding at most capacity
// items. When the heap is full the item replaces the top only if it is closer.
// Reports whether the item was kept.
func (pq *PriorityQueue) PushItemBounded(item PriorityQueueItem, capacity int) bool {
	if len(pq.items) < capacity {
		pq.PushItem(item)
		return true
	}
	if !item.Closer(pq.items[0]) {
		return false
	}
	pq.items[0] = item
	pq.siftDown(0)
	return true
}

// PopItem removes and returns the top element from the heap.
func (pq *PriorityQueue) PopItem() (PriorityQueueItem, bool) {
	n := len(pq.items)
	if n == 0 {
		return PriorityQueueItem{}, false
	}

	item := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]

	if len(pq.items) > 0 {
		pq.siftDown(0)
	}

	return item, true
}

// Items returns the heap's backing slice in heap order. The slice is only
// valid until the next mutation.
func (pq *PriorityQueue) Items() []PriorityQueueItem {
	return pq.items
}

// DrainSorted empties the heap into dst ordered closest first.
func (pq *PriorityQueue) DrainSorted(dst []PriorityQueueItem) []PriorityQueueItem {
	n := len(pq.items)
	start := len(dst)
	dst = append(dst, make([]PriorityQueueItem, n)...)
	if pq.isMaxHeap {
		for i := n - 1; i >= 0; i-- {
			dst[start+i], _ = pq.PopItem()
		}
	} else {
		for i := 0; i < n; i++ {
			dst[start+i], _ = pq.PopItem()
		}
	}
	return dst
}

func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[j].Closer(pq.items[i])
	}
	return pq.items[i].Closer(pq.items[j])
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.less(i, parent) {
			break
		}
		pq.items[i], pq.items[parent] = pq.items[parent], pq.items[i]
		i = parent
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && pq.less(right, left) {
			child = right
		}
		if !pq.less(child, i) {
			break
		}
		pq.items[i], pq.items[child] = pq.items[child], pq.items[i]
		i = child
	}
}
