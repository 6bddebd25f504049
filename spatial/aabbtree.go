package spatial

import (
	"sort"

	"github.com/gogpu/frame/geom"
)

// maxLeafItems bounds how many items a leaf node carries before the tree
// splits it. Smaller leaves give tighter culling at the cost of more nodes
// (and so more fork-join work per frame); this is a tuning constant, not an
// externally-specified limit.
const maxLeafItems = 8

// AABBTree is the spatial index of draw-list items within one scroll layer
// (spec.md §3 "Layer... aabb_tree"). Items are inserted incrementally
// during flattening, in layer-local space; Build partitions them into a
// binary tree of leaf nodes so that Cull can skip whole subtrees that don't
// overlap the viewport, and so the three fork-join frame-build phases
// (resource enumeration, glyph intake, compile) each get a disjoint set of
// leaves to work on.
type AABBTree struct {
	pending []ItemRef
	root    *Node
	leaves  []*Node
}

// NewAABBTree returns an empty tree, ready for Insert.
func NewAABBTree() *AABBTree {
	return &AABBTree{}
}

// Insert adds one item, in layer-local space, to the tree. Items inserted
// after Build has run are buffered and only take effect on the next Build
// (the frame pipeline always rebuilds a fresh tree per frame, so this only
// matters for direct unit-test use).
func (t *AABBTree) Insert(item ItemRef) {
	t.pending = append(t.pending, item)
}

// Build partitions all pending items into leaf nodes, replacing any
// previous tree. Every leaf starts visible=false; call Cull to determine
// visibility against a viewport.
func (t *AABBTree) Build() {
	items := t.pending
	t.pending = nil
	t.leaves = nil
	if len(items) == 0 {
		t.root = nil
		return
	}
	t.root = t.split(items)
}

func (t *AABBTree) split(items []ItemRef) *Node {
	bounds := geom.EmptyRect()
	for _, it := range items {
		bounds = bounds.Union(it.Rect)
	}

	if len(items) <= maxLeafItems {
		leaf := &Node{Rect: bounds, Items: items}
		t.leaves = append(t.leaves, leaf)
		return leaf
	}

	// Split along the longer axis at the median item center, a simple and
	// robust partition that doesn't depend on item ordering.
	horizontal := bounds.Width() >= bounds.Height()
	sorted := make([]ItemRef, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if horizontal {
			return (sorted[i].Rect.MinX + sorted[i].Rect.MaxX) < (sorted[j].Rect.MinX + sorted[j].Rect.MaxX)
		}
		return (sorted[i].Rect.MinY + sorted[i].Rect.MaxY) < (sorted[j].Rect.MinY + sorted[j].Rect.MaxY)
	})

	mid := len(sorted) / 2
	node := &Node{Rect: bounds}
	node.left = t.split(sorted[:mid])
	node.right = t.split(sorted[mid:])
	return node
}

// Cull marks every leaf's Visible flag according to whether its bounds
// intersect viewport (already expressed in the same layer-local space the
// tree's items were inserted in — the caller is responsible for projecting
// a world-space viewport into layer space first).
func (t *AABBTree) Cull(viewport geom.Rect) {
	if t.root == nil {
		return
	}
	cullNode(t.root, viewport)
}

func cullNode(n *Node, viewport geom.Rect) {
	if n == nil {
		return
	}
	if !n.Rect.Intersects(viewport) {
		clearVisible(n)
		return
	}
	if n.IsLeaf() {
		n.Visible = true
		return
	}
	cullNode(n.left, viewport)
	cullNode(n.right, viewport)
}

func clearVisible(n *Node) {
	if n == nil {
		return
	}
	if n.IsLeaf() {
		n.Visible = false
		return
	}
	clearVisible(n.left)
	clearVisible(n.right)
}

// Nodes returns every leaf node, in a stable order, for the frame
// pipeline's per-node fork-join phases. Callers operate on disjoint
// elements of the returned slice, matching spec.md §5's "each worker
// operates on one AABB-tree node (disjoint ownership across workers)".
func (t *AABBTree) Nodes() []*Node {
	return t.leaves
}

// VisibleCount returns the number of leaves currently marked visible, for
// logging/metrics.
func (t *AABBTree) VisibleCount() int {
	n := 0
	for _, leaf := range t.leaves {
		if leaf.Visible {
			n++
		}
	}
	return n
}
