package spatial

import (
	"math"
	"testing"

	"github.com/gogpu/frame/geom"
)

func TestLayerScrollClampsToContentEdge(t *testing.T) {
	l := NewLayer(geom.Point{}, geom.Size{W: 100, H: 100}, Identity())
	l.ExpandContent(geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 100, H: 300}))

	moved := l.Scroll(geom.Point{Y: 1000})
	if !moved {
		t.Fatalf("expected the first scroll to move the offset")
	}
	if l.ScrollOffset.Y != 200 {
		t.Fatalf("expected scroll to clamp at content edge (200), got %v", l.ScrollOffset.Y)
	}

	// Scrolling further past the already-clamped edge is a no-op.
	moved = l.Scroll(geom.Point{Y: 1000})
	if moved {
		t.Fatalf("expected scroll past the clamped edge to report no movement")
	}
}

func TestLayerScrollClampsNegative(t *testing.T) {
	l := NewLayer(geom.Point{}, geom.Size{W: 100, H: 100}, Identity())
	l.ExpandContent(geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 100, H: 300}))
	l.Scroll(geom.Point{Y: -1000})
	if l.ScrollOffset.Y != 0 {
		t.Fatalf("expected scroll offset to clamp at zero, got %v", l.ScrollOffset.Y)
	}
}

func TestLayerFinalizeComposesParentTransform(t *testing.T) {
	parent := Translation(100, 0, 0)
	l := NewLayer(geom.Point{X: 10, Y: 0}, geom.Size{W: 50, H: 50}, Identity())
	l.Finalize(parent)

	x, y := l.WorldTransform.TransformPoint2D(0, 0)
	if x != 110 || y != 0 {
		t.Fatalf("expected world origin at (110, 0), got (%v, %v)", x, y)
	}
}

func TestLayerCullSingularTransformClearsAllVisible(t *testing.T) {
	l := NewLayer(geom.Point{}, geom.Size{W: 100, H: 100}, Identity())
	l.Insert(ItemRef{Rect: geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 10, H: 10})})
	l.Tree.Build()
	l.Tree.Cull(geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 10, H: 10}))
	if l.Tree.VisibleCount() == 0 {
		t.Fatalf("expected the item visible before degenerating the transform")
	}

	l.WorldTransform = Matrix4{} // singular
	l.Cull(geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 10, H: 10}))
	if l.Tree.VisibleCount() != 0 {
		t.Fatalf("expected a singular world transform to cull everything")
	}
}

func TestLayerTreeFinalizeRecursesTopDown(t *testing.T) {
	tree := NewLayerTree()
	tree.UpdateRootViewport(geom.Size{W: 800, H: 600})

	childID := NormalLayer(1)
	grandchildID := NormalLayer(2)
	child := NewLayer(geom.Point{X: 10, Y: 10}, geom.Size{W: 100, H: 100}, Identity())
	grandchild := NewLayer(geom.Point{X: 5, Y: 5}, geom.Size{W: 20, H: 20}, Identity())

	tree.Add(childID, tree.Root(), child)
	tree.Add(grandchildID, childID, grandchild)

	tree.Finalize()

	x, y := grandchild.WorldTransform.TransformPoint2D(0, 0)
	if x != 15 || y != 15 {
		t.Fatalf("expected grandchild world origin at (15, 15) (10+5, 10+5), got (%v, %v)", x, y)
	}
}

func TestLayerTreeGetScrollLayerDescendsToInnermost(t *testing.T) {
	tree := NewLayerTree()
	tree.UpdateRootViewport(geom.Size{W: 800, H: 600})

	childID := NormalLayer(1)
	child := NewLayer(geom.Point{X: 100, Y: 100}, geom.Size{W: 200, H: 200}, Identity())
	tree.Add(childID, tree.Root(), child)
	tree.Finalize()

	// A point inside the child's world-space rect resolves to the child.
	got, ok := tree.GetScrollLayer(geom.Point{X: 150, Y: 150})
	if !ok {
		t.Fatalf("expected a hit")
	}
	if got != childID {
		t.Fatalf("expected innermost hit to be the child layer, got %v", got)
	}

	// A point outside every non-root layer but inside the viewport resolves
	// to the root.
	got, ok = tree.GetScrollLayer(geom.Point{X: 5, Y: 5})
	if !ok {
		t.Fatalf("expected a hit within the root viewport")
	}
	if got != tree.Root() {
		t.Fatalf("expected a miss against the child to fall back to root, got %v", got)
	}

	// A point entirely outside the root viewport misses.
	if _, ok := tree.GetScrollLayer(geom.Point{X: -50, Y: -50}); ok {
		t.Fatalf("expected a point outside the root viewport to miss entirely")
	}
}

func TestLayerTreeGetScrollLayerThroughRotatedLayer(t *testing.T) {
	// A child layer rotated 45 degrees about the Y axis: a naive z=0-only
	// cursor un-projection reads a compressed, wrong local x coordinate
	// (scaled by cos(theta) instead of divided by it) and can report a hit
	// for a cursor that actually falls outside the layer's local rect once
	// correctly un-projected — spec.md E6.
	tree := NewLayerTree()
	tree.UpdateRootViewport(geom.Size{W: 1000, H: 1000})

	theta := math.Pi / 4
	rotatedID := NormalLayer(1)
	rotated := NewLayer(geom.Point{}, geom.Size{W: 200, H: 1000}, RotationY(theta))
	tree.Add(rotatedID, tree.Root(), rotated)
	tree.Finalize()

	c := math.Cos(theta)

	// True local x = 212.13 (outside the [0, 200] local rect): the old
	// single z=0 point method would have read this as local x = 106.07
	// (inside) and wrongly reported a hit on the rotated layer.
	missCursor := geom.Point{X: 150, Y: 500}
	got, ok := tree.GetScrollLayer(missCursor)
	if !ok {
		t.Fatalf("expected the cursor to still land on the root layer")
	}
	if got != tree.Root() {
		t.Fatalf("expected a correctly-projected miss against the rotated layer to fall back to root, got %v", got)
	}

	// True local x = 100 (inside the [0, 200] local rect): world x is
	// local x scaled by cos(theta).
	hitCursor := geom.Point{X: float32(100 * c), Y: 500}
	got, ok = tree.GetScrollLayer(hitCursor)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if got != rotatedID {
		t.Fatalf("expected a correctly-projected hit on the rotated layer, got %v", got)
	}
}

func TestLayerTreeScrollRoutesToLayerUnderCursor(t *testing.T) {
	tree := NewLayerTree()
	tree.UpdateRootViewport(geom.Size{W: 800, H: 600})

	childID := NormalLayer(1)
	child := NewLayer(geom.Point{X: 100, Y: 100}, geom.Size{W: 200, H: 200}, Identity())
	child.ExpandContent(geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 200, H: 1000}))
	tree.Add(childID, tree.Root(), child)
	tree.Finalize()

	id, moved := tree.Scroll(geom.Point{X: 150, Y: 150}, geom.Point{Y: 50})
	if !moved {
		t.Fatalf("expected the scroll to move the child layer")
	}
	if id != childID {
		t.Fatalf("expected scroll to route to the child layer, got %v", id)
	}
	if child.ScrollOffset.Y != 50 {
		t.Fatalf("expected child scroll offset 50, got %v", child.ScrollOffset.Y)
	}
}
