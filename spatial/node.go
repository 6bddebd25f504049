package spatial

import (
	"github.com/gogpu/frame/contract"
	"github.com/gogpu/frame/geom"
	"github.com/gogpu/frame/ids"
)

// ItemRef is one draw-list item's entry in a layer's AABB tree: its rect in
// layer-local space (already translated by offset_from_current_layer at
// insertion time, per spec.md §4.3), plus the triple that identifies it —
// (group, draw list, item index) — for the batch collector.
type ItemRef struct {
	Rect       geom.Rect
	Group      ids.DrawListGroupId
	DrawList   ids.DrawListId
	ItemIndex  ids.DrawListItemIndex
}

// Node is one entry in a layer's AABB tree. Leaf nodes carry the draw-list
// items falling in their region and the node compiler's cached output for
// them; internal nodes exist purely to let culling skip whole subtrees.
type Node struct {
	Rect     geom.Rect // bounds of everything under this node, layer-local
	Items    []ItemRef // non-empty only on leaves
	Visible  bool

	ResourceList *contract.ResourceList
	Compiled     *contract.CompiledNode

	left, right *Node
}

// IsLeaf reports whether n holds items directly (vs. being a pure split
// node for culling).
func (n *Node) IsLeaf() bool { return n.left == nil && n.right == nil }

// IsCompiled reports whether the node compiler has already produced
// output for this node (the frame pipeline only re-enumerates/re-compiles
// nodes for which this is false).
func (n *Node) IsCompiled() bool { return n.Compiled != nil }
