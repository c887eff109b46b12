// Package vectorindex implements an in-process approximate nearest
// neighbor index over float32 vectors under the cosine metric, with
// tag and numeric pre-filtering (spec §4.1 "Index design"). No
// repository in the retrieval pack imports a vector-index or HNSW
// library, so the index is built from scratch on the standard library,
// following the layered-graph construction of Malkov & Yashunin's HNSW.
package vectorindex

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when a vector's length does not
// match the index's configured dimension.
var ErrDimensionMismatch = errors.New("vectorindex: dimension mismatch")

// ErrNotFound is returned by operations addressing an unknown id.
var ErrNotFound = errors.New("vectorindex: id not found")

// Filter decides whether a candidate id may be included in search
// results. Search applies it to the candidates the graph traversal
// returns and falls back to a brute-force scan when fewer than k pass,
// so filtered-out candidates never count against the requested k (spec §4.1's tag/numeric
// pre-filter predicates, evaluated against whatever attribute lookup
// the caller closes over).
type Filter func(id string) bool

// Scored is a single KNN result: an id and its cosine similarity to
// the query, in [-1, 1].
type Scored struct {
	ID         string
	Similarity float64
}

// Params tunes the HNSW graph construction and search.
type Params struct {
	M              int // max neighbors per node per layer
	EfConstruction int // candidate list size during insertion
	EfSearch       int // candidate list size during search
	LevelMult      float64
}

// DefaultParams returns parameters reasonable for a single-process
// deployment with up to a few hundred thousand vectors.
func DefaultParams() Params {
	return Params{
		M:              16,
		EfConstruction: 200,
		EfSearch:       64,
		LevelMult:      1 / math.Log(16),
	}
}

type node struct {
	id         string
	vector     []float32
	tombstoned bool
	// neighbors[level] is the adjacency list at that layer.
	neighbors [][]string
}

// Index is a single-process, mutex-protected HNSW graph. Zero value is
// not usable; construct with New.
type Index struct {
	mu       sync.RWMutex
	dim      int
	params   Params
	nodes    map[string]*node
	entry    string
	maxLevel int
	rng      *rand.Rand
}

// New constructs an empty index over vectors of the given dimension.
func New(dim int, params Params) *Index {
	return &Index{
		dim:    dim,
		params: params,
		nodes:  make(map[string]*node),
		rng:    rand.New(rand.NewSource(1)),
	}
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, c := range v {
		sumSq += float64(c) * float64(c)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, c := range v {
		out[i] = float32(float64(c) / norm)
	}
	return out
}

// cosine returns the cosine similarity of two equal-length vectors.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (ix *Index) randomLevel() int {
	lvl := int(math.Floor(-math.Log(ix.rng.Float64()+1e-12) * ix.params.LevelMult))
	return lvl
}

// Upsert inserts a new vector under id, or replaces it if id already
// exists (put is idempotent at the store layer; the index itself just
// tracks the current vector for id).
func (ix *Index) Upsert(id string, vector []float32) error {
	if len(vector) != ix.dim {
		return fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(vector), ix.dim)
	}
	v := normalize(vector)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if existing, ok := ix.nodes[id]; ok {
		existing.vector = v
		existing.tombstoned = false
		return nil
	}

	level := ix.randomLevel()
	n := &node{id: id, vector: v, neighbors: make([][]string, level+1)}
	ix.nodes[id] = n

	if ix.entry == "" {
		ix.entry = id
		ix.maxLevel = level
		return nil
	}

	ix.insertIntoGraph(n, level)
	if level > ix.maxLevel {
		ix.maxLevel = level
		ix.entry = id
	}
	return nil
}

func (ix *Index) insertIntoGraph(n *node, level int) {
	entry := ix.entry
	cur := []string{entry}

	for l := ix.maxLevel; l > level; l-- {
		cur = ix.greedyClosest(n.vector, cur, 1, l)
	}
	for l := min(level, ix.maxLevel); l >= 0; l-- {
		candidates := ix.greedyClosest(n.vector, cur, ix.params.EfConstruction, l)
		selected := ix.selectNeighbors(n.vector, candidates, ix.params.M)
		n.neighbors[l] = selected
		for _, nbID := range selected {
			nb := ix.nodes[nbID]
			if nb == nil || len(nb.neighbors) <= l {
				continue
			}
			nb.neighbors[l] = append(nb.neighbors[l], n.id)
			if len(nb.neighbors[l]) > ix.params.M {
				nb.neighbors[l] = ix.selectNeighbors(nb.vector, nb.neighbors[l], ix.params.M)
			}
		}
		cur = candidates
	}
}

// greedyClosest performs a best-first search at layer l starting from
// entryPoints, returning up to ef ids sorted by decreasing similarity.
func (ix *Index) greedyClosest(query []float32, entryPoints []string, ef int, l int) []string {
	visited := make(map[string]bool)
	candidates := &maxHeap{}
	results := &minHeap{}

	for _, id := range entryPoints {
		n := ix.nodes[id]
		if n == nil || visited[id] {
			continue
		}
		visited[id] = true
		sim := cosine(query, n.vector)
		heap.Push(candidates, scoredID{id, sim})
		heap.Push(results, scoredID{id, sim})
	}

	for candidates.Len() > 0 {
		top := heap.Pop(candidates).(scoredID)
		if results.Len() >= ef {
			worst := (*results)[0]
			if top.sim < worst.sim {
				break
			}
		}
		n := ix.nodes[top.id]
		if n == nil || len(n.neighbors) <= l {
			continue
		}
		for _, nbID := range n.neighbors[l] {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true
			nb := ix.nodes[nbID]
			if nb == nil {
				continue
			}
			sim := cosine(query, nb.vector)
			heap.Push(candidates, scoredID{nbID, sim})
			heap.Push(results, scoredID{nbID, sim})
			if results.Len() > ef {
				heap.Pop(results)
			}
		}
	}

	out := make([]string, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(scoredID).id
	}
	return out
}

func (ix *Index) selectNeighbors(_ []float32, candidates []string, m int) []string {
	if len(candidates) <= m {
		return candidates
	}
	return candidates[:m]
}

// Delete removes id from the index. Removing the graph node entirely
// would require repairing every neighbor list; instead the node is
// tombstoned so it is skipped by both traversal and result reporting,
// matching the store's "removes record and secondary indices" contract
// without paying for an eager graph repair on every delete.
func (ix *Index) Delete(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	n, ok := ix.nodes[id]
	if !ok {
		return ErrNotFound
	}
	n.tombstoned = true
	return nil
}

// Search returns up to k ids with the highest cosine similarity to
// query that (a) are not tombstoned, (b) pass filter, and (c) have
// similarity >= similarityFloor. It oversamples the graph traversal to
// compensate for filtered-out candidates, falling back to a full
// linear scan if the graph search can't surface enough matches — this
// keeps filtered queries correct even when a filter is highly
// selective relative to the graph's local connectivity.
func (ix *Index) Search(query []float32, k int, similarityFloor float64, filter Filter) ([]Scored, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	q := normalize(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.entry == "" {
		return nil, nil
	}

	ef := ix.params.EfSearch
	if ef < k*4 {
		ef = k * 4
	}
	cur := []string{ix.entry}
	for l := ix.maxLevel; l > 0; l-- {
		cur = ix.greedyClosest(q, cur, 1, l)
	}
	candidates := ix.greedyClosest(q, cur, ef, 0)

	results := ix.filterAndScore(q, candidates, k, similarityFloor, filter)
	if len(results) < k {
		// Graph traversal under-delivered against a selective filter;
		// fall back to a brute-force scan of every live node.
		results = ix.bruteForce(q, k, similarityFloor, filter)
	}
	return results, nil
}

func (ix *Index) filterAndScore(query []float32, ids []string, k int, floor float64, filter Filter) []Scored {
	out := make([]Scored, 0, len(ids))
	for _, id := range ids {
		n := ix.nodes[id]
		if n == nil || n.tombstoned {
			continue
		}
		if filter != nil && !filter(id) {
			continue
		}
		sim := cosine(query, n.vector)
		if sim < floor {
			continue
		}
		out = append(out, Scored{ID: id, Similarity: sim})
	}
	sortDescending(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func (ix *Index) bruteForce(query []float32, k int, floor float64, filter Filter) []Scored {
	out := make([]Scored, 0, len(ix.nodes))
	for id, n := range ix.nodes {
		if n.tombstoned {
			continue
		}
		if filter != nil && !filter(id) {
			continue
		}
		sim := cosine(query, n.vector)
		if sim < floor {
			continue
		}
		out = append(out, Scored{ID: id, Similarity: sim})
	}
	sortDescending(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func sortDescending(s []Scored) {
	sort.Slice(s, func(i, j int) bool { return s[i].Similarity > s[j].Similarity })
}

// Len reports the number of live (non-tombstoned) vectors in the index.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, node := range ix.nodes {
		if !node.tombstoned {
			n++
		}
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
