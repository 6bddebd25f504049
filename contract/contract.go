// Package contract defines the frame builder's external collaborators —
// the resource cache and node compiler — as interfaces, per spec.md §6.
// Both are out of scope for this module (they belong to the texture
// atlas/draw-list-storage/glyph-rasterization subsystem and the
// display-item-to-vertex-buffer compiler, respectively); this package only
// fixes the contract the frame builder depends on, the way gogpu/gg fixes
// the render.TextureView / render.DeviceHandle contracts for a GPU backend
// it doesn't implement itself.
package contract

import (
	"github.com/gogpu/frame/geom"
	"github.com/gogpu/frame/ids"
	"github.com/gogpu/frame/internal/parallel"
	"github.com/gogpu/gputypes"
)

// DrawListItem is one drawing primitive within a draw list, as seen by the
// frame builder: only its local rectangle matters for spatial indexing.
// Everything else about an item (its paint, its geometry) is the node
// compiler's concern.
type DrawListItem struct {
	Rect geom.Rect
}

// DrawList is an ordered list of drawing primitives belonging to one
// stacking context. The frame builder only reads Items and writes
// StackingContextIndex (via ResourceCache.SetDrawListStackingContext);
// it never constructs or mutates a draw list's geometry.
type DrawList struct {
	Items []DrawListItem
}

// FontKey and ImageKey are opaque resource identifiers. The frame builder
// never inspects them — it only collects them into a ResourceList for the
// resource cache to resolve.
type FontKey string
type ImageKey string

// ResourceList is the set of resources one compiled node needs. Populated
// by NodeCompiler.BuildResourceList, consumed by ResourceCache.AddResourceList.
type ResourceList struct {
	Fonts  []FontKey
	Images []ImageKey
}

// IsEmpty reports whether the resource list names no resources.
func (r *ResourceList) IsEmpty() bool {
	return r == nil || (len(r.Fonts) == 0 && len(r.Images) == 0)
}

// VertexBufferId identifies a GPU vertex buffer holding one compiled node's
// geometry.
type VertexBufferId uint32

// VertexBuffer is a pending vertex-buffer creation: raw vertex bytes keyed
// to the id they'll be uploaded under. Taken (set to nil) by the frame
// builder's batch-cache update step once it has been turned into a
// BatchUpdate.
type VertexBuffer struct {
	ID       VertexBufferId
	Vertices []byte
}

// TileParams carries node-compiler-specific per-draw-call shader
// parameters (tile/UV rects, corner radii, etc.). The frame builder
// forwards it opaquely from a compiled batch to a DrawCall.
type TileParams struct {
	Data [4]float32
}

// Batch is one GPU draw call's worth of instances sharing a vertex buffer,
// color/mask texture pair, and tile parameters, before the frame builder's
// clip-rect intersection pass (§4.6) runs over it.
type Batch struct {
	TileParams      TileParams
	ClipRects       []geom.Rect
	ColorTextureId  ids.TextureId
	MaskTextureId   ids.TextureId
	FirstInstance   uint32
	InstanceCount   uint32
}

// BatchList groups the batches a compiled node contributed to one
// DrawListGroup (a node's geometry may be split across groups if its draw
// list's items span more than one group, though in practice one draw list
// belongs to exactly one group).
type BatchList struct {
	DrawListGroupId ids.DrawListGroupId
	Batches         []Batch
}

// CompiledNode is the node compiler's output for one AABB-tree node: zero
// or more batch lists (one per draw-list group the node's items touch) and,
// the first time it's compiled, a pending vertex buffer.
type CompiledNode struct {
	BatchLists     []BatchList
	VertexBuffer   *VertexBuffer   // non-nil exactly once, until batch-cache update takes it
	VertexBufferId *VertexBufferId // set once the batch-cache update has run
}

// FindBatchList returns the batch list for the given group, if the node
// contributed any batches to it.
func (c *CompiledNode) FindBatchList(group ids.DrawListGroupId) (*BatchList, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.BatchLists {
		if c.BatchLists[i].DrawListGroupId == group {
			return &c.BatchLists[i], true
		}
	}
	return nil, false
}

// ResourceCache is the texture-atlas / draw-list-storage / glyph-raster
// subsystem the frame builder depends on but does not implement (spec.md
// §6). See frametest for a minimal reference implementation used by this
// module's own tests.
type ResourceCache interface {
	// GetDrawList returns the draw list by id, or false if unknown.
	GetDrawList(id ids.DrawListId) (DrawList, bool)

	// SetDrawListStackingContext records which stacking context a draw
	// list was flattened under. This is the only mutation the frame
	// builder performs on a draw list (spec.md §6: "mutation is restricted
	// to setting its stacking_context_index").
	SetDrawListStackingContext(id ids.DrawListId, idx ids.StackingContextIndex)

	// AllocateRenderTarget reserves a w x h RGBA offscreen texture and
	// returns its id. Every call must be matched by a later FreeRenderTarget.
	AllocateRenderTarget(w, h uint32, format gputypes.TextureFormat) ids.TextureId

	// FreeRenderTarget releases a texture previously returned by
	// AllocateRenderTarget.
	FreeRenderTarget(id ids.TextureId)

	// AddResourceList registers the fonts/images a visible node will need
	// this frame.
	AddResourceList(list *ResourceList)

	// RasterPendingGlyphs rasterizes any glyphs queued by AddResourceList,
	// using pool for parallelism.
	RasterPendingGlyphs(pool *parallel.WorkerPool)
}
