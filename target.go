package frame

import (
	"sort"

	"github.com/gogpu/frame/geom"
	"github.com/gogpu/frame/ids"
	"github.com/gogpu/frame/spatial"
)

// StackingContextInfo is everything the frame builder recorded about one
// flattened stacking context: which render target its content draws into,
// which scroll layer it belongs to, its accumulated transform/perspective
// and clip, and the composite passes needed to merge that target back into
// its parent (spec.md §3 "StackingContextInfo", "Frame.stacking_context_info").
type StackingContextInfo struct {
	Index          ids.StackingContextIndex
	PipelineID     ids.PipelineId
	ScrollLayerID  spatial.ScrollLayerId
	Bounds         geom.Rect
	CompositionOps []CompositionOp

	// OffsetFromLayer is this stacking context's origin, in the coordinate
	// space of its own scroll layer (zero again each time flattening
	// crosses into a new scroll layer) — spec.md §4.3 step 3's "origin".
	OffsetFromLayer geom.Point

	// LocalClipRect is the parent clip, translated into this stacking
	// context's own coordinate space and intersected with its overflow
	// rect (spec.md §4.3 step 1). Never empty: an empty intersection
	// prunes the whole subtree before a StackingContextInfo is recorded.
	LocalClipRect geom.Rect

	// Transform is this stacking context's accumulated transform relative
	// to its own scroll layer's origin: parent.perspective * parent.
	// transform * T(origin)*sc.transform*T(-origin) (spec.md §4.3 step 3).
	// The batch collector composes this with the owning layer's
	// WorldTransform to build each draw-list group's matrix palette
	// (spec.md §4.6).
	Transform spatial.Matrix4

	// Perspective is T(origin)*sc.perspective*T(-origin), carried forward
	// (but not applied) for descendants that need it composed ahead of
	// their own transform (spec.md §4.3 step 3).
	Perspective spatial.Matrix4

	// RenderTargetID is the target this context's own content is drawn
	// into. It differs from its parent's target only when NeedsIsolation
	// was true during flattening.
	RenderTargetID ids.RenderTargetId
}

// MaxMatricesPerBatch bounds the number of distinct stacking contexts (and
// therefore distinct matrix-palette entries, spec.md §4.6) a single
// DrawListGroup may span — the hardware-uniform-array limit spec.md §6
// names as MAX_MATRICES_PER_BATCH. 64 matches a conservative GPU uniform
// buffer budget (64 * 64 bytes per mat4 = 4KiB, safely under the 16KiB
// minimum guaranteed uniform buffer size).
const MaxMatricesPerBatch = 64

// DrawListGroup batches every draw list sharing one (scroll layer, render
// target) pair so the renderer can upload their geometry into one vertex
// buffer and issue consecutive draw calls without rebinding state between
// them (spec.md §3 "DrawListGroup"). stackingContexts tracks the distinct
// stacking contexts contributing to the group, enforcing MaxMatricesPerBatch.
type DrawListGroup struct {
	ID             ids.DrawListGroupId
	ScrollLayerID  spatial.ScrollLayerId
	RenderTargetID ids.RenderTargetId
	DrawLists      []ids.DrawListId

	stackingContexts map[ids.StackingContextIndex]struct{}
}

// CanAdd reports whether a draw list belonging to scrollLayerID, destined
// for renderTargetID and tagged with stacking context scIndex, may join
// this group: scroll layer and render target must match, and admitting
// scIndex must not push the group's distinct-stacking-context count past
// MaxMatricesPerBatch (spec.md §4.3 "can_add", §8 property #1).
func (g *DrawListGroup) CanAdd(scrollLayerID spatial.ScrollLayerId, renderTargetID ids.RenderTargetId, scIndex ids.StackingContextIndex) bool {
	if g.ScrollLayerID != scrollLayerID || g.RenderTargetID != renderTargetID {
		return false
	}
	if _, already := g.stackingContexts[scIndex]; already {
		return true
	}
	return len(g.stackingContexts) < MaxMatricesPerBatch
}

// Push appends a draw list tagged with stacking context scIndex to the
// group. Callers must have already checked CanAdd.
func (g *DrawListGroup) Push(drawListID ids.DrawListId, scIndex ids.StackingContextIndex) {
	g.DrawLists = append(g.DrawLists, drawListID)
	if g.stackingContexts == nil {
		g.stackingContexts = map[ids.StackingContextIndex]struct{}{}
	}
	g.stackingContexts[scIndex] = struct{}{}
}

// StackingContexts returns the distinct stacking contexts contributing draw
// lists to the group, in ascending index order — the order the batch
// collector assigns matrix/offset palette slots in (spec.md §4.6).
func (g *DrawListGroup) StackingContexts() []ids.StackingContextIndex {
	out := make([]ids.StackingContextIndex, 0, len(g.stackingContexts))
	for idx := range g.stackingContexts {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RenderItemKind distinguishes the three things a render target's item
// list can hold.
type RenderItemKind int

const (
	RenderItemClear RenderItemKind = iota
	RenderItemCompositeBatch
	RenderItemDrawListBatch
)

// CompositeBatchJob is one offscreen-target-to-destination blit within a
// composite batch: the source target's allocated texture, the region of it
// to read, and the region of the destination to write.
type CompositeBatchJob struct {
	SourceTarget ids.TextureId
	SourceRect   geom.Rect
	DestRect     geom.Rect
}

// CompositeBatchInfo carries everything the renderer needs to execute one
// stacking context's composite operations against its rendered offscreen
// target(s).
type CompositeBatchInfo struct {
	Ops  []CompositionOp
	Jobs []CompositeBatchJob
}

// FrameRenderItem is one entry in a render target's paint-ordered item
// list: a solid clear, a composite of child render targets, or a batch of
// draw-list geometry (spec.md §3 "RenderTarget.render_items").
type FrameRenderItem struct {
	Kind RenderItemKind

	ClearColor [4]float32 // valid when Kind == RenderItemClear

	Composite *CompositeBatchInfo  // valid when Kind == RenderItemCompositeBatch
	Group     *DrawListGroup       // valid when Kind == RenderItemDrawListBatch
}

// RenderTarget is one node in the frame's render-target tree: either the
// screen itself (the root, TextureID == 0) or an offscreen texture a
// stacking context renders into so it can be composited with a blend mode
// or filter (spec.md §4.2, §4.5 step "build render target tree").
type RenderTarget struct {
	ID        ids.RenderTargetId
	TextureID ids.TextureId
	Size      geom.IntSize

	Children []*RenderTarget
	Items    []FrameRenderItem

	openGroup *DrawListGroup
}

// NewRenderTarget returns an empty target of the given size. TextureID is
// the resource cache's allocation id, or 0 for the root/screen target.
func NewRenderTarget(id ids.RenderTargetId, textureID ids.TextureId, size geom.IntSize) *RenderTarget {
	return &RenderTarget{ID: id, TextureID: textureID, Size: size}
}

// PushClear appends a solid-color clear, flushing any open draw-list
// group first so the clear paints strictly before whatever follows it.
func (rt *RenderTarget) PushClear(color [4]float32) {
	rt.FlushOpenGroup()
	rt.Items = append(rt.Items, FrameRenderItem{Kind: RenderItemClear, ClearColor: color})
}

// PushComposite appends a composite-batch item, flushing any open
// draw-list group first. If the immediately preceding item is already a
// composite batch with the identical operation list, info's jobs are
// appended to it instead of starting a new item (spec.md §4.2/§5
// "Consecutive composites with identical operations merge").
func (rt *RenderTarget) PushComposite(info CompositeBatchInfo) {
	rt.FlushOpenGroup()

	if n := len(rt.Items); n > 0 {
		prev := &rt.Items[n-1]
		if prev.Kind == RenderItemCompositeBatch && compositionOpsEqual(prev.Composite.Ops, info.Ops) {
			prev.Composite.Jobs = append(prev.Composite.Jobs, info.Jobs...)
			return
		}
	}

	rt.Items = append(rt.Items, FrameRenderItem{Kind: RenderItemCompositeBatch, Composite: &info})
}

// compositionOpsEqual reports whether a and b are the same ordered sequence
// of composite operations, used to decide whether two adjacent
// CompositeBatch items may merge.
func compositionOpsEqual(a, b []CompositionOp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Blend != b[i].Blend {
			return false
		}
		switch {
		case a[i].Filter == nil && b[i].Filter == nil:
		case a[i].Filter == nil || b[i].Filter == nil:
			return false
		case *a[i].Filter != *b[i].Filter:
			return false
		}
	}
	return true
}

// PushDrawList adds one draw list, tagged with stacking context scIndex, to
// this target's currently-open group, starting a new group (via
// nextGroupID) if there is no open group, the open one belongs to a
// different (scroll layer, render target) pair, or admitting scIndex would
// exceed MaxMatricesPerBatch. Returns the id of the group the draw list
// ended up in.
func (rt *RenderTarget) PushDrawList(scrollLayerID spatial.ScrollLayerId, drawListID ids.DrawListId, scIndex ids.StackingContextIndex, nextGroupID func() ids.DrawListGroupId) ids.DrawListGroupId {
	if rt.openGroup == nil || !rt.openGroup.CanAdd(scrollLayerID, rt.ID, scIndex) {
		rt.FlushOpenGroup()
		rt.openGroup = &DrawListGroup{
			ID:             nextGroupID(),
			ScrollLayerID:  scrollLayerID,
			RenderTargetID: rt.ID,
		}
	}
	rt.openGroup.Push(drawListID, scIndex)
	return rt.openGroup.ID
}

// OpenGroup returns the currently-open draw-list group, or nil.
func (rt *RenderTarget) OpenGroup() *DrawListGroup { return rt.openGroup }

// FlushOpenGroup appends the currently-open draw-list group to this
// target's item list and clears it. Every PushDrawList call that opens a
// group is guaranteed an eventual flush: either a later Push/Clear/
// Composite call flushes it to make room for itself, or Build's Flattener
// flushes every target's open group unconditionally once flattening
// finishes (spec.md §9 supplemented: a target whose content is entirely
// one group must still see it appear in Items, not get silently dropped
// because nothing after it triggered a flush).
func (rt *RenderTarget) FlushOpenGroup() {
	if rt.openGroup == nil || len(rt.openGroup.DrawLists) == 0 {
		rt.openGroup = nil
		return
	}
	rt.Items = append(rt.Items, FrameRenderItem{Kind: RenderItemDrawListBatch, Group: rt.openGroup})
	rt.openGroup = nil
}

// AddChild registers a nested offscreen render target, composited into rt
// by a later PushComposite call.
func (rt *RenderTarget) AddChild(child *RenderTarget) {
	rt.Children = append(rt.Children, child)
}

// Reset clears rt's item list and children so it can be reused by the next
// frame without a fresh allocation, matching gg's layerPool reuse pattern.
func (rt *RenderTarget) Reset() {
	rt.Items = rt.Items[:0]
	rt.Children = rt.Children[:0]
	rt.openGroup = nil
}

// CollectGroups walks rt and its children, returning every DrawListGroup
// referenced anywhere in the tree, for the batch-compile fork-join phase.
func (rt *RenderTarget) CollectGroups() []*DrawListGroup {
	var out []*DrawListGroup
	rt.collectGroups(&out)
	return out
}

func (rt *RenderTarget) collectGroups(out *[]*DrawListGroup) {
	for _, item := range rt.Items {
		if item.Kind == RenderItemDrawListBatch && item.Group != nil {
			*out = append(*out, item.Group)
		}
	}
	for _, child := range rt.Children {
		child.collectGroups(out)
	}
}
