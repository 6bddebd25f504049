package spatial

import (
	"github.com/gogpu/frame/geom"
)

// Layer is one scrollable layer of the frame: the content a single
// ScrollLayerId identifies, together with the transform and scroll state
// that carries its children's local coordinates into world space
// (spec.md §3 "Layer"). The fixed root layer and every "overflow: scroll"
// box each get one Layer.
type Layer struct {
	// WorldOrigin is this layer's origin in its parent's world space,
	// before the parent's own transform is applied.
	WorldOrigin geom.Point

	// ViewportSize is the size of the clipping viewport through which this
	// layer's content is visible (the scroll container's border box).
	ViewportSize geom.Size

	// ContentSize is the full scrollable extent of this layer's content. It
	// starts equal to ViewportSize and only grows, through ExpandContent
	// (which Insert calls); Finalize does not change it.
	ContentSize geom.Size

	// ScrollOffset is how far the content has been scrolled, clamped by
	// Finalize/Scroll to [0, ContentSize-ViewportSize] on each axis — a
	// layer can never report a scroll position that would show past its
	// content edge (spec.md §8 scroll-offset clamp invariant).
	ScrollOffset geom.Point

	// LocalTransform is this layer's own CSS transform (spec.md's
	// "establishes_3d_context" stacking contexts feed this), applied about
	// its own origin before scrolling and before the parent's transform.
	LocalTransform Matrix4

	// WorldTransform is LocalTransform composed with every ancestor's
	// transform and translation, recomputed each frame by Finalize. It is
	// what Cull and hit-testing actually use.
	WorldTransform Matrix4

	// Children lists the scroll layers nested directly inside this one, in
	// paint order (spec.md §8 "world-transform recurrence": each child's
	// WorldTransform is only valid after its parent's Finalize has run).
	Children []ScrollLayerId

	// Tree indexes this layer's own draw-list items (not its children's).
	Tree *AABBTree
}

// NewLayer returns a layer with the given origin, viewport, and local
// transform, an empty AABB tree, and zero scroll offset. ContentSize starts
// equal to viewportSize; ExpandContent grows it as inserted items overflow
// it.
func NewLayer(worldOrigin geom.Point, viewportSize geom.Size, localTransform Matrix4) *Layer {
	return &Layer{
		WorldOrigin:    worldOrigin,
		ViewportSize:   viewportSize,
		ContentSize:    viewportSize,
		LocalTransform: localTransform,
		WorldTransform: localTransform,
		Tree:           NewAABBTree(),
	}
}

// AddChild records a nested scroll layer.
func (l *Layer) AddChild(id ScrollLayerId) {
	l.Children = append(l.Children, id)
}

// ExpandContent grows ContentSize so it covers a child or item whose
// layer-local bounds extend past the current content rect, the way
// overflow content grows a scroll container's scrollable area.
func (l *Layer) ExpandContent(bounds geom.Rect) {
	if bounds.MaxX > l.ContentSize.W {
		l.ContentSize.W = bounds.MaxX
	}
	if bounds.MaxY > l.ContentSize.H {
		l.ContentSize.H = bounds.MaxY
	}
}

// maxScroll returns the largest ScrollOffset Finalize/Scroll will allow.
func (l *Layer) maxScroll() geom.Point {
	return geom.Point{
		X: geom.Clamp(l.ContentSize.W-l.ViewportSize.W, 0, l.ContentSize.W),
		Y: geom.Clamp(l.ContentSize.H-l.ViewportSize.H, 0, l.ContentSize.H),
	}
}

// clampScrollOffset enforces the scroll-offset clamp invariant after
// ContentSize or ScrollOffset changes.
func (l *Layer) clampScrollOffset() {
	max := l.maxScroll()
	l.ScrollOffset.X = geom.Clamp(l.ScrollOffset.X, 0, max.X)
	l.ScrollOffset.Y = geom.Clamp(l.ScrollOffset.Y, 0, max.Y)
}

// Scroll adjusts ScrollOffset by delta and re-clamps it, returning true if
// the offset actually moved (a no-op scroll, e.g. already at the content
// edge, reports false so callers can skip an unnecessary rebuild).
func (l *Layer) Scroll(delta geom.Point) bool {
	before := l.ScrollOffset
	l.ScrollOffset.X += delta.X
	l.ScrollOffset.Y += delta.Y
	l.clampScrollOffset()
	return l.ScrollOffset != before
}

// Finalize recomputes WorldTransform from the parent's (already-finalized)
// world transform and re-clamps ScrollOffset against the current
// ContentSize. Must be called on a layer only after its parent's Finalize
// has run (spec.md §8 world-transform recurrence), i.e. in a top-down
// traversal of the layer tree.
func (l *Layer) Finalize(parentWorldTransform Matrix4) {
	l.clampScrollOffset()
	originAndScroll := Translation(
		l.WorldOrigin.X-l.ScrollOffset.X,
		l.WorldOrigin.Y-l.ScrollOffset.Y,
		0,
	)
	l.WorldTransform = parentWorldTransform.Mul(originAndScroll).Mul(l.LocalTransform)
}

// Insert adds one item, in this layer's local space, to its AABB tree.
func (l *Layer) Insert(item ItemRef) {
	l.Tree.Insert(item)
	l.ExpandContent(item.Rect)
}

// Cull projects worldViewport into this layer's local space via the
// inverse of WorldTransform and culls the layer's own AABB tree against
// it. A layer whose WorldTransform is singular (e.g. a zero-scale 3D
// transform) culls everything, matching the original's treatment of
// degenerate transforms as "nothing visible" rather than undefined.
func (l *Layer) Cull(worldViewport geom.Rect) {
	inv, ok := l.WorldTransform.Invert()
	if !ok {
		clearAllVisible(l.Tree)
		return
	}
	localViewport := transformRect(inv, worldViewport)
	l.Tree.Cull(localViewport)
}

func clearAllVisible(t *AABBTree) {
	for _, leaf := range t.Nodes() {
		leaf.Visible = false
	}
}

// transformRect maps the four corners of r through m and returns their
// axis-aligned bounding box, the standard way to carry a rect across a
// transform that may include rotation.
func transformRect(m Matrix4, r geom.Rect) geom.Rect {
	corners := [4]geom.Point{
		{X: r.MinX, Y: r.MinY},
		{X: r.MaxX, Y: r.MinY},
		{X: r.MinX, Y: r.MaxY},
		{X: r.MaxX, Y: r.MaxY},
	}
	out := geom.EmptyRect()
	for _, c := range corners {
		x, y := m.TransformPoint2D(float64(c.X), float64(c.Y))
		out = out.UnionPoint(geom.Point{X: float32(x), Y: float32(y)})
	}
	return out
}

// LayerTree owns every Layer in a frame, keyed by ScrollLayerId, and
// provides the root-to-leaf traversals the frame builder needs: finalizing
// world transforms top-down, and resolving a world-space point to the
// topmost scroll layer under it for hit-testing (spec.md §4.4).
type LayerTree struct {
	layers map[ScrollLayerId]*Layer
	parent map[ScrollLayerId]ScrollLayerId
	root   ScrollLayerId
}

// NewLayerTree returns a tree containing just the fixed root layer, with a
// zero-size viewport — call UpdateRootViewport once the actual viewport
// size is known (usually once, at startup, and again on resize).
func NewLayerTree() *LayerTree {
	root := FixedLayer()
	t := &LayerTree{
		layers: map[ScrollLayerId]*Layer{},
		parent: map[ScrollLayerId]ScrollLayerId{},
		root:   root,
	}
	t.layers[root] = NewLayer(geom.Point{}, geom.Size{}, Identity())
	return t
}

// UpdateRootViewport resizes the fixed root layer's viewport (and content
// size, since the root layer never scrolls and so never overflows its own
// viewport).
func (t *LayerTree) UpdateRootViewport(size geom.Size) {
	root := t.layers[t.root]
	root.ViewportSize = size
	root.ContentSize = size
}

// Root returns the id of the fixed root layer.
func (t *LayerTree) Root() ScrollLayerId { return t.root }

// All returns every layer in the tree, in no particular order, for the
// frame builder's fork-join phases which operate per-layer-tree-node
// rather than needing document order.
func (t *LayerTree) All() []*Layer {
	out := make([]*Layer, 0, len(t.layers))
	for _, l := range t.layers {
		out = append(out, l)
	}
	return out
}

// Get returns the layer for id, if any.
func (t *LayerTree) Get(id ScrollLayerId) (*Layer, bool) {
	l, ok := t.layers[id]
	return l, ok
}

// Add registers a layer under id, nested inside parent. Calling Add for an
// id that already exists replaces that layer but keeps its children's
// parent linkage intact, so a layer can be recreated frame-to-frame
// (geometry may change) without losing its place in the tree.
func (t *LayerTree) Add(id ScrollLayerId, parent ScrollLayerId, layer *Layer) {
	t.layers[id] = layer
	t.parent[id] = parent
	if pl, ok := t.layers[parent]; ok {
		pl.AddChild(id)
	}
}

// Finalize recomputes every layer's WorldTransform in parent-before-child
// order, starting from the root's identity world transform.
func (t *LayerTree) Finalize() {
	root, ok := t.layers[t.root]
	if !ok {
		return
	}
	root.Finalize(Identity())
	t.finalizeChildren(root)
}

func (t *LayerTree) finalizeChildren(parent *Layer) {
	for _, childID := range parent.Children {
		child, ok := t.layers[childID]
		if !ok {
			continue
		}
		child.Finalize(parent.WorldTransform)
		t.finalizeChildren(child)
	}
}

// Cull runs Layer.Cull on every layer against the same world-space
// viewport (the document's visible area); layers nested inside a
// transform only cull correctly once Finalize has already run this frame.
func (t *LayerTree) Cull(worldViewport geom.Rect) {
	for _, l := range t.layers {
		l.Cull(worldViewport)
	}
}

// Scroll applies delta to the scroll layer nearest worldCursor (the
// topmost scrollable layer whose viewport rect contains the
// cursor), matching "scroll routes to the layer under the cursor" input
// semantics. Returns the id of the layer that actually scrolled and
// whether it moved.
func (t *LayerTree) Scroll(worldCursor geom.Point, delta geom.Point) (ScrollLayerId, bool) {
	id, ok := t.GetScrollLayer(worldCursor)
	if !ok {
		return ScrollLayerId{}, false
	}
	l := t.layers[id]
	return id, l.Scroll(delta)
}

// GetScrollLayer resolves worldPoint to the topmost (innermost,
// last-added-wins among siblings) scroll layer whose viewport rect
// contains it, descending from the root. Returns false if the point
// falls outside every layer.
func (t *LayerTree) GetScrollLayer(worldPoint geom.Point) (ScrollLayerId, bool) {
	root, ok := t.layers[t.root]
	if !ok {
		return ScrollLayerId{}, false
	}
	if !layerContains(root, worldPoint) {
		return ScrollLayerId{}, false
	}
	best := t.root
	t.descend(root, worldPoint, &best)
	return best, true
}

func (t *LayerTree) descend(l *Layer, worldPoint geom.Point, best *ScrollLayerId) {
	for i := len(l.Children) - 1; i >= 0; i-- {
		childID := l.Children[i]
		child, ok := t.layers[childID]
		if !ok {
			continue
		}
		if layerContains(child, worldPoint) {
			*best = childID
			t.descend(child, worldPoint, best)
			return
		}
	}
}

// rayZExtent is how far above and below the z=0 plane get_scroll_layer
// casts its hit-test ray, in local app units (spec.md §4.4 step 4, §6
// "z-ray extents ±10000"). A single z=0 cursor point is not enough once a
// layer carries a true 3D transform (e.g. a Y-axis rotation): the point on
// the layer's own surface that appears under the cursor may not be the one
// a naive z=0 un-projection finds, so the ray is cast through both z
// extents and intersected with the layer's own z=0 plane instead.
const rayZExtent = 10000

// layerContains reports whether worldPoint, cast as a ray through l's
// inverse world transform from z=-rayZExtent to z=+rayZExtent, crosses l's
// own z=0 plane inside its local viewport rect (spec.md §4.4 step 4).
func layerContains(l *Layer, worldPoint geom.Point) bool {
	inv, ok := l.WorldTransform.Invert()
	if !ok {
		return false
	}
	local, ok := castRayOntoZeroPlane(inv, worldPoint)
	if !ok {
		return false
	}
	rect := geom.RectFromOriginSize(geom.Point{}, l.ViewportSize)
	return rect.Contains(local)
}

// castRayOntoZeroPlane projects the world-space ray through (worldPoint.X,
// worldPoint.Y, -rayZExtent) and (worldPoint.X, worldPoint.Y, +rayZExtent)
// through inv, then finds where the resulting local-space line crosses
// z=0. Reports false if either endpoint lies at infinity (w=0 after the
// transform) or the ray runs parallel to the z=0 plane without lying on it.
func castRayOntoZeroPlane(inv Matrix4, worldPoint geom.Point) (geom.Point, bool) {
	x0, y0, z0, w0 := inv.TransformPoint4D(float64(worldPoint.X), float64(worldPoint.Y), -rayZExtent, 1)
	x1, y1, z1, w1 := inv.TransformPoint4D(float64(worldPoint.X), float64(worldPoint.Y), rayZExtent, 1)
	if w0 == 0 || w1 == 0 {
		return geom.Point{}, false
	}
	lx0, ly0, lz0 := x0/w0, y0/w0, z0/w0
	lx1, ly1, lz1 := x1/w1, y1/w1, z1/w1

	dz := lz1 - lz0
	if dz == 0 {
		if lz0 != 0 {
			return geom.Point{}, false
		}
		return geom.Point{X: float32(lx0), Y: float32(ly0)}, true
	}

	t := -lz0 / dz
	x := lx0 + t*(lx1-lx0)
	y := ly0 + t*(ly1-ly0)
	return geom.Point{X: float32(x), Y: float32(y)}, true
}
