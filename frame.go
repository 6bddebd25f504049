// Package frame builds one renderable frame from a scene: it flattens the
// scene's stacking contexts into a render-target tree in paint order,
// culls each scroll layer's AABB tree against the viewport, drives a node
// compiler over whatever is newly visible, and assembles the result into
// the flat command list a renderer executes (spec.md §4).
package frame

import (
	"fmt"

	"github.com/gogpu/frame/contract"
	"github.com/gogpu/frame/geom"
	"github.com/gogpu/frame/ids"
	"github.com/gogpu/frame/internal/parallel"
	"github.com/gogpu/frame/scene"
	"github.com/gogpu/frame/spatial"
)

// invariant panics if cond is false. Used the way the original's
// debug_assert! calls are used: to state a structural guarantee that would
// indicate a bug in this package, never to validate untrusted input.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// NodeCompiler turns one AABB-tree node's draw-list items into GPU-ready
// geometry. It is the frame builder's other external collaborator besides
// contract.ResourceCache (spec.md §6) — out of scope for this module, and
// supplied by the caller of Frame.Build.
type NodeCompiler interface {
	// BuildResourceList returns the fonts and images node's items need, or
	// nil if it needs none. Called once per newly-visible, uncompiled node.
	BuildResourceList(node *spatial.Node) *contract.ResourceList

	// CompileNode compiles node's items into batches, grouped by the
	// DrawListGroupId each item's ItemRef names. Called after
	// BuildResourceList and after the resource cache has rasterized any
	// glyphs that resource list required.
	CompileNode(node *spatial.Node) *contract.CompiledNode
}

// Frame holds all per-frame state: the scroll-layer tree, the render
// target tree Build produces, and the draw-list groups and stacking-context
// info flattening records. Every Build rebuilds each layer's AABB tree, so
// each Build compiles its visible nodes afresh; no compiled node output is
// carried from one Build to the next.
type Frame struct {
	Layers            *spatial.LayerTree
	PipelineEpochMap  map[ids.PipelineId]ids.Epoch
	StackingContextInfo []StackingContextInfo
	DrawListGroups    map[ids.DrawListGroupId]*DrawListGroup
	Root              *RenderTarget
	RootScrollLayerID spatial.ScrollLayerId

	cache contract.ResourceCache
	pool  *parallel.WorkerPool

	// nextRenderTargetID/nextDrawListGroupID are monotonic for the whole
	// lifetime of the Frame, not reset by Reset, so a render target or group
	// id from an earlier frame is never handed out again.
	nextRenderTargetID  uint32
	nextDrawListGroupID uint32

	pendingUpdates []BatchUpdate
}

// NewFrame returns a Frame ready for its first Build, backed by cache for
// resource resolution and pool for the fork-join compile phases.
func NewFrame(cache contract.ResourceCache, pool *parallel.WorkerPool) *Frame {
	f := &Frame{
		Layers:           spatial.NewLayerTree(),
		PipelineEpochMap: map[ids.PipelineId]ids.Epoch{},
		DrawListGroups:   map[ids.DrawListGroupId]*DrawListGroup{},
		cache:            cache,
		pool:             pool,
	}
	f.RootScrollLayerID = f.Layers.Root()
	f.Root = NewRenderTarget(f.nextRenderTarget(), 0, geom.IntSize{})
	return f
}

// Reset discards the previous frame's flattened output (render target
// tree, stacking context info, draw list groups) so the next Build starts
// clean, while keeping the scroll-layer tree (and its scroll offsets) and
// the id counters intact — matching spec.md §4.5 "create/reset idempotence":
// scroll position survives a reset, identities never collide across it.
// Every offscreen texture in the discarded render target tree is released
// through the resource cache's FreeRenderTarget.
func (f *Frame) Reset() {
	var free func(rt *RenderTarget)
	free = func(rt *RenderTarget) {
		if rt.TextureID != 0 {
			f.cache.FreeRenderTarget(rt.TextureID)
		}
		for _, child := range rt.Children {
			free(child)
		}
	}
	free(f.Root)
	f.StackingContextInfo = f.StackingContextInfo[:0]
	f.DrawListGroups = map[ids.DrawListGroupId]*DrawListGroup{}
	f.Root = NewRenderTarget(f.nextRenderTarget(), 0, f.Root.Size)
	for _, l := range f.Layers.All() {
		l.Tree = spatial.NewAABBTree()
	}
}

func (f *Frame) nextRenderTarget() ids.RenderTargetId {
	f.nextRenderTargetID++
	return ids.RenderTargetId(f.nextRenderTargetID)
}

func (f *Frame) nextDrawListGroup() ids.DrawListGroupId {
	f.nextDrawListGroupID++
	return ids.DrawListGroupId(f.nextDrawListGroupID)
}

// PendingUpdates drains and returns every BatchUpdate accumulated since the
// last call, clearing the internal queue (spec.md §9 supplemented: the
// renderer consumes updates independently of Build's return value, and
// updates from several Builds accumulate until it does).
func (f *Frame) PendingUpdates() []BatchUpdate {
	out := f.pendingUpdates
	f.pendingUpdates = nil
	return out
}

// Scroll routes delta to the scroll layer under worldCursor and reports
// whether anything moved.
func (f *Frame) Scroll(worldCursor geom.Point, delta geom.Point) (spatial.ScrollLayerId, bool) {
	return f.Layers.Scroll(worldCursor, delta)
}

// HitTest resolves worldPoint to the topmost scroll layer beneath it.
func (f *Frame) HitTest(worldPoint geom.Point) (spatial.ScrollLayerId, bool) {
	return f.Layers.GetScrollLayer(worldPoint)
}

// RendererFrame is Build's result: the render-target tree flattened into a
// paint-ordered command list per target, ready for a renderer to execute.
// Vertex-buffer uploads are retrieved separately via PendingUpdates, not
// carried here.
type RendererFrame struct {
	Layers []DrawLayer
}

// DrawLayer is one render target's worth of paint-ordered commands.
type DrawLayer struct {
	RenderTargetID ids.RenderTargetId
	TextureID      ids.TextureId
	Size           geom.IntSize
	Commands       []DrawCommand
}

// DrawCommand is one paint-ordered operation within a DrawLayer.
type DrawCommand struct {
	Kind      RenderItemKind
	Clear     [4]float32
	Composite *CompositeBatchInfo
	Batches   []BatchInfo
}

// BatchInfo is one compiled node's contribution to a draw-list-group
// command: the vertex buffer its draw calls read from, the calls
// themselves, and the group's matrix/offset palette the renderer indexes
// into to place each call in world space (spec.md §4.6). The palette is
// shared by every BatchInfo belonging to the same group: index 0 is always
// the identity transform and zero offset (spec.md E1), followed by one
// entry per distinct stacking context the group spans, in ascending
// stacking-context-index order.
type BatchInfo struct {
	VertexBufferID contract.VertexBufferId
	Calls          []DrawCall

	MatrixPalette []spatial.Matrix4
	OffsetPalette []geom.Point
}

// DrawCall is one GPU draw call, ready for the renderer to issue.
type DrawCall struct {
	TileParams     contract.TileParams
	ClipRects      []geom.Rect
	ColorTextureID ids.TextureId
	MaskTextureID  ids.TextureId
	FirstInstance  uint32
	InstanceCount  uint32
}

// BatchUpdate is a pending vertex-buffer upload for the renderer to apply
// before executing any DrawCall that references its id.
type BatchUpdate struct {
	ID       contract.VertexBufferId
	Vertices []byte
}

// Build runs the full frame pipeline against sc: finalize every layer's
// world transform, flatten the scene into a render-target tree, cull each
// layer's AABB tree against viewport, enumerate and compile whatever is
// newly visible, and assemble the paint-ordered result (spec.md §4.5).
// dpr is the device pixel ratio used to size any new offscreen render
// targets isolation requires.
func (f *Frame) Build(sc *scene.Scene, viewport geom.Rect, dpr float32, compiler NodeCompiler) (*RendererFrame, error) {
	logger := Logger()
	f.Layers.UpdateRootViewport(viewport.Size())
	logger.Debug("frame build: finalize layers")
	f.Layers.Finalize()

	logger.Debug("frame build: flatten")
	fl := newFlattener(f, sc, dpr)
	if err := fl.flatten(); err != nil {
		return nil, err
	}

	logger.Debug("frame build: build aabb trees")
	for _, l := range f.Layers.All() {
		l.Tree.Build()
	}

	logger.Debug("frame build: cull")
	f.Layers.Cull(viewport)

	logger.Debug("frame build: enumerate resources")
	visible := f.visibleUncompiledNodes()
	f.pool.ExecuteIndexed(len(visible), func(i int) {
		node := visible[i]
		if rl := compiler.BuildResourceList(node); rl != nil && !rl.IsEmpty() {
			node.ResourceList = rl
			f.cache.AddResourceList(rl)
		}
	})

	logger.Debug("frame build: raster glyphs")
	f.cache.RasterPendingGlyphs(f.pool)

	logger.Debug("frame build: compile nodes")
	compileGroup := parallel.NewGroup(f.pool.Workers())
	for i := range visible {
		node := visible[i]
		compileGroup.Go(func() error {
			node.Compiled = compiler.CompileNode(node)
			if node.Compiled == nil {
				return nil
			}
			for _, bl := range node.Compiled.BatchLists {
				if _, ok := f.DrawListGroups[bl.DrawListGroupId]; !ok {
					return fmt.Errorf("frame: compiled node references unknown draw list group %v", bl.DrawListGroupId)
				}
			}
			return nil
		})
	}
	if err := compileGroup.Wait(); err != nil {
		return nil, err
	}

	for _, node := range visible {
		if node.Compiled == nil || node.Compiled.VertexBuffer == nil {
			continue
		}
		vb := node.Compiled.VertexBuffer
		f.pendingUpdates = append(f.pendingUpdates, BatchUpdate{ID: vb.ID, Vertices: vb.Vertices})
		id := vb.ID
		node.Compiled.VertexBufferId = &id
		node.Compiled.VertexBuffer = nil
	}

	logger.Debug("frame build: collect batches")
	allNodes := f.allLeafNodes()
	out := &RendererFrame{}
	f.collectDrawLayer(f.Root, allNodes, &out.Layers)
	return out, nil
}

// visibleUncompiledNodes returns every leaf node, across every scroll
// layer, that is currently visible and hasn't been compiled yet — spec.md
// §4.5's "only re-enumerate/re-compile nodes that need it".
func (f *Frame) visibleUncompiledNodes() []*spatial.Node {
	var out []*spatial.Node
	for _, l := range f.Layers.All() {
		for _, n := range l.Tree.Nodes() {
			if n.Visible && !n.IsCompiled() {
				out = append(out, n)
			}
		}
	}
	return out
}

// allLeafNodes returns every leaf node across every scroll layer, visible
// or not, for the batch collector; only nodes compiled during this Build
// carry output.
func (f *Frame) allLeafNodes() []*spatial.Node {
	var out []*spatial.Node
	for _, l := range f.Layers.All() {
		out = append(out, l.Tree.Nodes()...)
	}
	return out
}

// collectDrawLayer walks rt's item list in paint order, turning each
// FrameRenderItem into a DrawCommand and recursing into children, to build
// out in document order (parent target before the children it composites).
func (f *Frame) collectDrawLayer(rt *RenderTarget, allNodes []*spatial.Node, out *[]DrawLayer) {
	layer := DrawLayer{RenderTargetID: rt.ID, TextureID: rt.TextureID, Size: rt.Size}
	for _, item := range rt.Items {
		switch item.Kind {
		case RenderItemClear:
			layer.Commands = append(layer.Commands, DrawCommand{Kind: RenderItemClear, Clear: item.ClearColor})
		case RenderItemCompositeBatch:
			layer.Commands = append(layer.Commands, DrawCommand{Kind: RenderItemCompositeBatch, Composite: item.Composite})
		case RenderItemDrawListBatch:
			layer.Commands = append(layer.Commands, DrawCommand{
				Kind:    RenderItemDrawListBatch,
				Batches: f.collectBatchInfos(item.Group, allNodes),
			})
		}
	}
	*out = append(*out, layer)

	for _, child := range rt.Children {
		f.collectDrawLayer(child, allNodes, out)
	}
}

// buildPalettes constructs group's matrix/offset palette: index 0 is always
// the identity transform and zero offset, followed by one entry per
// distinct stacking context the group spans (in ascending index order),
// each the owning scroll layer's WorldTransform composed with that
// stacking context's accumulated Transform (spec.md §4.6, E1).
func (f *Frame) buildPalettes(group *DrawListGroup) ([]spatial.Matrix4, []geom.Point) {
	matrices := []spatial.Matrix4{spatial.Identity()}
	offsets := []geom.Point{{}}

	layer, ok := f.Layers.Get(group.ScrollLayerID)
	if !ok {
		return matrices, offsets
	}

	for _, scIndex := range group.StackingContexts() {
		if int(scIndex) < 0 || int(scIndex) >= len(f.StackingContextInfo) {
			continue
		}
		info := f.StackingContextInfo[scIndex]
		matrices = append(matrices, layer.WorldTransform.Mul(info.Transform))
		offsets = append(offsets, info.OffsetFromLayer)
	}
	return matrices, offsets
}

// scrollClipRect returns the clip rect a layer's own scroll viewport
// imposes on every draw call within it: the part of the layer's content
// currently shown through its viewport, in the layer's local coordinate
// space. ScrollOffset is non-negative and Layer.Finalize shifts content by
// -ScrollOffset, so that region is the viewport rect placed at
// +ScrollOffset (spec.md §4.6 "intersect each draw call's clip rects with
// the layer's scroll clip rect").
func scrollClipRect(l *spatial.Layer) geom.Rect {
	return geom.RectFromOriginSize(l.ScrollOffset, l.ViewportSize)
}

// collectBatchInfos gathers every compiled node's contribution to group,
// across every scroll layer, into renderer-facing BatchInfo entries, with
// the group's shared matrix/offset palette attached and every draw call's
// clip rects intersected against the owning layer's scroll clip rect.
func (f *Frame) collectBatchInfos(group *DrawListGroup, allNodes []*spatial.Node) []BatchInfo {
	matrices, offsets := f.buildPalettes(group)

	layer, hasLayer := f.Layers.Get(group.ScrollLayerID)
	var clip geom.Rect
	if hasLayer {
		clip = scrollClipRect(layer)
	}

	var out []BatchInfo
	for _, node := range allNodes {
		if node.Compiled == nil {
			continue
		}
		bl, ok := node.Compiled.FindBatchList(group.ID)
		if !ok {
			continue
		}
		info := BatchInfo{MatrixPalette: matrices, OffsetPalette: offsets}
		if node.Compiled.VertexBufferId != nil {
			info.VertexBufferID = *node.Compiled.VertexBufferId
		}
		for _, b := range bl.Batches {
			clipRects := b.ClipRects
			if hasLayer {
				clipRects = intersectClipRects(b.ClipRects, clip)
			}
			info.Calls = append(info.Calls, DrawCall{
				TileParams:     b.TileParams,
				ClipRects:      clipRects,
				ColorTextureID: b.ColorTextureId,
				MaskTextureID:  b.MaskTextureId,
				FirstInstance:  b.FirstInstance,
				InstanceCount:  b.InstanceCount,
			})
		}
		out = append(out, info)
	}
	return out
}

// intersectClipRects intersects every entry of rects with clip, dropping
// any pair that no longer overlaps. An unclipped draw call (no entries in
// rects) is treated as clipped only by clip itself. A draw call whose
// existing clip rects all fall outside clip is left with a zero-length
// slice — fully clipped away — rather than a synthesized "visible
// everywhere" rect.
func intersectClipRects(rects []geom.Rect, clip geom.Rect) []geom.Rect {
	if len(rects) == 0 {
		return []geom.Rect{clip}
	}
	out := make([]geom.Rect, 0, len(rects))
	for _, r := range rects {
		if ix, ok := r.Intersect(clip); ok {
			out = append(out, ix)
		}
	}
	return out
}
