// Package ids collects the small opaque identifier types shared across the
// scene, spatial, and frame packages. Splitting these out (rather than
// defining each id next to the type it indexes, as gogpu/gg does for e.g.
// LayerKind) breaks what would otherwise be an import cycle: the spatial
// package's AABB tree nodes carry draw-list-group and stacking-context
// indices, but the render-target and draw-list-group types those indices
// name live in the root frame package, which itself imports spatial.
package ids

import "fmt"

// PipelineId identifies a pipeline (a document or sub-document, e.g. an
// iframe's content) within a scene.
type PipelineId uint32

// Epoch is a monotonically increasing version counter a pipeline's content
// producer advances whenever it submits a new display list.
type Epoch uint32

// RenderTargetId identifies a node in the frame's render-target tree.
// Assigned sequentially by Frame.nextRenderTargetID; never reused within a
// frame's lifetime, matching the original's RenderTargetId(u32) counter.
type RenderTargetId uint32

// DrawListGroupId identifies a DrawListGroup, the batchable unit keyed by
// (scroll layer, render target).
type DrawListGroupId uint32

// DrawListId identifies a draw list owned by the resource cache. The frame
// builder treats it as opaque — it never inspects a draw list's contents
// beyond asking the resource cache for its items and rect.
type DrawListId uint32

// DrawListItemIndex is the position of an item within a draw list.
type DrawListItemIndex uint32

// StackingContextIndex indexes into Frame.StackingContextInfo. Assigned
// internally during flattening — a single content-authored stacking
// context can expand into more than one StackingContextInfo entry if it's
// visited through more than one iframe, so this is deliberately distinct
// from StackingContextId.
type StackingContextIndex int

// StackingContextId is the content-producer-assigned key a scene's
// StackingContext is registered under (what a DOM node's style engine
// would hand out), stable across frames. The frame builder resolves one of
// these to zero or more StackingContextIndex values each time it flattens.
type StackingContextId uint32

// RenderTargetIndex indexes a render target among its parent's children.
type RenderTargetIndex uint32

// TextureId identifies a GPU texture allocated by the resource cache for an
// offscreen render target. Owned by the resource cache; the frame only
// holds the id and is responsible for pairing every allocation with a
// later free.
type TextureId uint32

func (s StackingContextId) String() string { return fmt.Sprintf("StackingContext(%d)", uint32(s)) }
func (p PipelineId) String() string        { return fmt.Sprintf("Pipeline(%d)", uint32(p)) }
func (e Epoch) String() string             { return fmt.Sprintf("Epoch(%d)", uint32(e)) }
func (r RenderTargetId) String() string    { return fmt.Sprintf("RenderTarget(%d)", uint32(r)) }
func (g DrawListGroupId) String() string   { return fmt.Sprintf("DrawListGroup(%d)", uint32(g)) }
func (d DrawListId) String() string        { return fmt.Sprintf("DrawList(%d)", uint32(d)) }
func (t TextureId) String() string         { return fmt.Sprintf("Texture(%d)", uint32(t)) }
