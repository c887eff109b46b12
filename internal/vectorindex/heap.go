package vectorindex

// scoredID pairs a node id with its similarity to the current query,
// used as the element type of both search heaps.
type scoredID struct {
	id  string
	sim float64
}

// maxHeap pops the highest-similarity candidate first; used as the
// traversal frontier during greedy search.
type maxHeap []scoredID

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].sim > h[j].sim }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(scoredID)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// minHeap pops the lowest-similarity candidate first; used to bound the
// running result set to ef entries by evicting the worst candidate.
type minHeap []scoredID

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].sim < h[j].sim }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(scoredID)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
