package pathfind

type node struct {
	cell cell
	g, f float64
}

// openSet is a binary min-heap on f. Ties go to the node with the larger g,
// which is the one closer to the goal.
type openSet []node

func (o openSet) len() int { return len(o) }

func (o openSet) less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].g > o[j].g
}

func (o *openSet) push(n node) {
	*o = append(*o, n)
	h := *o
	for i := len(h) - 1; i > 0; {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h[i], h[parent] = h[parent], h[i]
		i = parent
	}
}

func (o *openSet) pop() node {
	h := *o
	top := h[0]
	last := len(h) - 1
	h[0] = h[last]
	h = h[:last]
	for i := 0; ; {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < len(h) && h.less(l, smallest) {
			smallest = l
		}
		if r < len(h) && h.less(r, smallest) {
			smallest = r
		}
		if smallest == i {
			break
		}
		h[i], h[smallest] = h[smallest], h[i]
		i = smallest
	}
	*o = h
	return top
}

// arena holds the working memory of one search. Its maps and slices keep
// their capacity across searches.
type arena struct {
	open    openSet
	g       map[cell]float64
	parent  map[cell]cell
	closed  map[cell]struct{}
	blocked map[cell]bool
	trail   []cell
}

func newArena() arena {
	return arena{
		open:    make(openSet, 0, 256),
		g:       make(map[cell]float64, 512),
		parent:  make(map[cell]cell, 512),
		closed:  make(map[cell]struct{}, 512),
		blocked: make(map[cell]bool, 1024),
		trail:   make([]cell, 0, 64),
	}
}

func (a *arena) reset() {
	a.open = a.open[:0]
	clear(a.g)
	clear(a.parent)
	clear(a.closed)
	clear(a.blocked)
	a.trail = a.trail[:0]
}
