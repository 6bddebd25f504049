package frame_test

import (
	"testing"

	"github.com/gogpu/frame"
	"github.com/gogpu/frame/contract"
	"github.com/gogpu/frame/geom"
	"github.com/gogpu/frame/ids"
	"github.com/gogpu/frame/internal/parallel"
	"github.com/gogpu/frame/frametest"
	"github.com/gogpu/frame/scene"
	"github.com/gogpu/frame/spatial"
)

func buildSimpleScene(dlID ids.DrawListId, rootSCID ids.StackingContextId, viewport geom.Rect) *scene.Scene {
	sc := scene.NewScene()
	sc.AddStackingContext(rootSCID, &scene.StackingContext{
		Bounds:   viewport,
		Overflow: viewport,
		Children: []scene.Item{
			{Kind: scene.ItemDrawList, Level: scene.LevelBlockInFlow, DrawListID: dlID, Order: 0},
		},
	})
	sc.AddPipeline(&scene.Pipeline{PipelineID: 1, Epoch: 1, RootStackingContextID: rootSCID})
	sc.SetRootPipeline(1)
	return sc
}

func TestBuildSingleDrawList(t *testing.T) {
	viewport := geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 800, H: 600})
	dlID := ids.DrawListId(1)
	rootSCID := ids.StackingContextId(1)

	rc := frametest.New()
	rc.AddDrawList(dlID, contract.DrawList{Items: []contract.DrawListItem{
		{Rect: geom.RectFromOriginSize(geom.Point{X: 10, Y: 10}, geom.Size{W: 50, H: 50})},
	}})

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	f := frame.NewFrame(rc, pool)
	sc := buildSimpleScene(dlID, rootSCID, viewport)

	out, err := f.Build(sc, viewport, 1.0, frametest.StubCompiler{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(out.Layers) != 1 {
		t.Fatalf("got %d render-target layers, want 1", len(out.Layers))
	}

	var batches int
	for _, cmd := range out.Layers[0].Commands {
		if cmd.Kind == frame.RenderItemDrawListBatch {
			batches += len(cmd.Batches)
		}
	}
	if batches != 1 {
		t.Errorf("got %d batch infos, want 1", batches)
	}

	scIdx, ok := rc.StackingContextOf(dlID)
	if !ok || scIdx != 0 {
		t.Errorf("draw list stacking context = (%v, %v), want (0, true)", scIdx, ok)
	}
}

func TestBuildTwiceIsStable(t *testing.T) {
	viewport := geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 400, H: 300})
	dlID := ids.DrawListId(1)
	rootSCID := ids.StackingContextId(1)

	rc := frametest.New()
	rc.AddDrawList(dlID, contract.DrawList{Items: []contract.DrawListItem{
		{Rect: geom.RectFromOriginSize(geom.Point{X: 0, Y: 0}, geom.Size{W: 20, H: 20})},
	}})

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	f := frame.NewFrame(rc, pool)
	sc := buildSimpleScene(dlID, rootSCID, viewport)

	first, err := f.Build(sc, viewport, 1.0, frametest.StubCompiler{})
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	f.Reset()
	second, err := f.Build(sc, viewport, 1.0, frametest.StubCompiler{})
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}

	if len(first.Layers) != len(second.Layers) {
		t.Errorf("layer count changed across rebuild: %d vs %d", len(first.Layers), len(second.Layers))
	}
}

func TestCollectBatchInfosPaletteIdentityAtZero(t *testing.T) {
	viewport := geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 800, H: 600})
	dlID := ids.DrawListId(1)
	rootSCID := ids.StackingContextId(1)

	rc := frametest.New()
	rc.AddDrawList(dlID, contract.DrawList{Items: []contract.DrawListItem{
		{Rect: geom.RectFromOriginSize(geom.Point{X: 10, Y: 10}, geom.Size{W: 50, H: 50})},
	}})

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	f := frame.NewFrame(rc, pool)
	sc := buildSimpleScene(dlID, rootSCID, viewport)

	out, err := f.Build(sc, viewport, 1.0, frametest.StubCompiler{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var batches []frame.BatchInfo
	for _, cmd := range out.Layers[0].Commands {
		if cmd.Kind == frame.RenderItemDrawListBatch {
			batches = append(batches, cmd.Batches...)
		}
	}
	if len(batches) != 1 {
		t.Fatalf("got %d batch infos, want 1", len(batches))
	}

	b := batches[0]
	if len(b.MatrixPalette) == 0 || !b.MatrixPalette[0].IsIdentity() {
		t.Errorf("matrix_palette[0] = %+v, want identity", b.MatrixPalette)
	}
	if len(b.OffsetPalette) == 0 || b.OffsetPalette[0] != (geom.Point{}) {
		t.Errorf("offset_palette[0] = %+v, want (0,0)", b.OffsetPalette)
	}
}

// badGroupCompiler compiles every node's items into a single batch list
// tagged with a draw-list group id that was never produced by flattening,
// to exercise Build's concurrent invariant check over compiled output.
type badGroupCompiler struct{}

func (badGroupCompiler) BuildResourceList(node *spatial.Node) *contract.ResourceList { return nil }

func (badGroupCompiler) CompileNode(node *spatial.Node) *contract.CompiledNode {
	if len(node.Items) == 0 {
		return nil
	}
	return &contract.CompiledNode{
		BatchLists: []contract.BatchList{{DrawListGroupId: ids.DrawListGroupId(999999)}},
	}
}

func TestBuildFailsOnCompiledNodeWithUnknownGroup(t *testing.T) {
	viewport := geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 800, H: 600})
	dlID := ids.DrawListId(1)
	rootSCID := ids.StackingContextId(1)

	rc := frametest.New()
	rc.AddDrawList(dlID, contract.DrawList{Items: []contract.DrawListItem{
		{Rect: geom.RectFromOriginSize(geom.Point{X: 10, Y: 10}, geom.Size{W: 50, H: 50})},
	}})

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	f := frame.NewFrame(rc, pool)
	sc := buildSimpleScene(dlID, rootSCID, viewport)

	if _, err := f.Build(sc, viewport, 1.0, badGroupCompiler{}); err == nil {
		t.Fatalf("expected Build to fail on a compiled node referencing an unknown draw list group")
	}
}

func TestRenderTargetIsolationForBlendMode(t *testing.T) {
	viewport := geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 200, H: 200})
	dlID := ids.DrawListId(1)
	rootSCID := ids.StackingContextId(1)
	childSCID := ids.StackingContextId(2)

	rc := frametest.New()
	rc.AddDrawList(dlID, contract.DrawList{Items: []contract.DrawListItem{
		{Rect: geom.RectFromOriginSize(geom.Point{}, geom.Size{W: 10, H: 10})},
	}})

	sc := scene.NewScene()
	sc.AddStackingContext(childSCID, &scene.StackingContext{
		Bounds:       viewport,
		Overflow:     viewport,
		MixBlendMode: scene.BlendMultiply,
		Children: []scene.Item{
			{Kind: scene.ItemDrawList, Level: scene.LevelBlockInFlow, DrawListID: dlID, Order: 0},
		},
	})
	sc.AddStackingContext(rootSCID, &scene.StackingContext{
		Bounds:   viewport,
		Overflow: viewport,
		Children: []scene.Item{
			{Kind: scene.ItemStackingContext, Level: scene.LevelBlockInFlow, StackingContextID: childSCID, Order: 0},
		},
	})
	sc.AddPipeline(&scene.Pipeline{PipelineID: 1, Epoch: 1, RootStackingContextID: rootSCID})
	sc.SetRootPipeline(1)

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	f := frame.NewFrame(rc, pool)
	out, err := f.Build(sc, viewport, 1.0, frametest.StubCompiler{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(out.Layers) != 2 {
		t.Fatalf("got %d render targets, want 2 (root + isolated child)", len(out.Layers))
	}
	if rc.LiveRenderTargets() != 1 {
		t.Errorf("got %d live render targets, want 1 (the isolated child's)", rc.LiveRenderTargets())
	}

	var sawComposite bool
	for _, cmd := range out.Layers[0].Commands {
		if cmd.Kind == frame.RenderItemCompositeBatch {
			sawComposite = true
		}
	}
	if !sawComposite {
		t.Errorf("root target has no composite command for the isolated child")
	}
}
