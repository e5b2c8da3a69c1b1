package expreplay

// sumTree is a binary segment tree over the priorities of a buffer. Leaf
// i holds the (exponentiated) priority of buffer slot i and every
// internal node holds the sum of its children, so that the total
// priority is available at the root and both priority updates and
// proportional lookups take O(log n) time.
type sumTree struct {
	leaves int
	nodes  []float64
}

// newSumTree returns a sumTree with at least capacity leaves. The
// number of leaves is rounded up to a power of two, and leaves beyond
// capacity always hold zero.
func newSumTree(capacity int) *sumTree {
	leaves := 1
	for leaves < capacity {
		leaves *= 2
	}
	return &sumTree{
		leaves: leaves,
		nodes:  make([]float64, 2*leaves),
	}
}

// total returns the sum of all leaves
func (s *sumTree) total() float64 {
	return s.nodes[1]
}

// get returns the value of leaf i
func (s *sumTree) get(i int) float64 {
	return s.nodes[s.leaves+i]
}

// set sets leaf i to value and recomputes the sums along its path to
// the root
func (s *sumTree) set(i int, value float64) {
	node := s.leaves + i
	s.nodes[node] = value

	for node /= 2; node >= 1; node /= 2 {
		s.nodes[node] = s.nodes[2*node] + s.nodes[2*node+1]
	}
}

// find returns the smallest leaf index i such that the sum of leaves
// [0, i] exceeds mass. Subtrees with zero total are never entered, so
// that floating point round-off in mass cannot select an empty leaf
// while the total is positive.
func (s *sumTree) find(mass float64) int {
	node := 1
	for node < s.leaves {
		left, right := 2*node, 2*node+1
		if mass < s.nodes[left] || s.nodes[right] <= 0 {
			node = left
		} else {
			mass -= s.nodes[left]
			node = right
		}
	}
	return node - s.leaves
}
