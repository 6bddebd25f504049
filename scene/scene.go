// Package scene is the frame builder's input data model: the tree of
// stacking contexts, draw lists, and iframes a content producer submits for
// one pipeline, plus the paint-order collector that turns that tree into a
// flat, ordered item list (spec.md §4.1, CSS 2.1 Appendix E). This package
// intentionally knows nothing about spatial indexing, render targets, or
// GPU resources — it stays a pure data model (deps: geom, ids only) so the
// root frame package can own everything that interprets it, without a
// back-reference from scene to frame.
package scene

import (
	"sort"

	"github.com/gogpu/frame/geom"
	"github.com/gogpu/frame/ids"
)

// ScrollPolicy controls whether a stacking context's content scrolls with
// its nearest ancestor scroll layer or stays fixed relative to the
// viewport.
type ScrollPolicy int

const (
	ScrollPolicyScrollable ScrollPolicy = iota
	ScrollPolicyFixed
)

// FilterKind names one CSS filter-list primitive a stacking context can
// carry. Translating these into the frame package's composite-op machinery
// is frame's job (scene only carries the raw, CSS-ordered list).
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterBlur
	FilterBrightness
	FilterContrast
	FilterGrayscale
	FilterHueRotate
	FilterInvert
	FilterOpacity
	FilterSaturate
	FilterSepia
)

// Filter is one entry in a stacking context's filter list, in the order the
// content producer specified (CSS filters compose left-to-right).
type Filter struct {
	Kind   FilterKind
	Amount float32 // blur radius in px, or 0..1 for the rest
}

// StackingContext is one CSS stacking context: a bounds rect, an optional
// 3D/2D transform and perspective, blend/filter state, and the paint-order
// children beneath it (spec.md §3 "StackingContext").
type StackingContext struct {
	Bounds   geom.Rect
	Overflow geom.Rect // the scrollable content rect; equals Bounds if no overflow

	LocalTransform *Matrix4Like
	Perspective    *Matrix4Like
	Establishes3D  bool

	MixBlendMode MixBlendMode
	Filters      []Filter

	ScrollPolicy ScrollPolicy

	// ScrollLayerFixed and ScrollLayerTag together name the scroll layer
	// this stacking context's content lives in, using the same Fixed/
	// Normal(tag) shape as spatial.ScrollLayerId — duplicated here instead
	// of imported so this package stays dependency-free; frame's flattener
	// converts this pair into an actual spatial.ScrollLayerId. ScrollLayerTag
	// == 0 means "no new scroll layer, inherit the parent's" — content
	// producers must not use 0 as a real scroll layer tag.
	ScrollLayerFixed bool
	ScrollLayerTag   uint32

	ZIndex              int
	HasStackingContexts bool // true if any child Item is a StackingContext (spec's flatten fast-path)

	DisplayLists []ids.DrawListId
	Children     []Item
}

// Matrix4Like avoids scene depending on the spatial package (which would
// create scene -> spatial -> contract -> ... -> frame -> scene cycle back
// through StackingContextInfo). It carries the same 16 row-major floats
// spatial.Matrix4 does; frame converts between the two with toMatrix4.
type Matrix4Like struct {
	M [16]float64
}

// MixBlendMode is the subset of CSS mix-blend-mode values the frame builder
// implements as an offscreen composite operation (spec.md §4.2).
type MixBlendMode int

const (
	BlendNormal MixBlendMode = iota
	BlendMultiply
	BlendScreen
	BlendDarken
	BlendLighten
)

// StackingLevel buckets a stacking context's direct children into the eight
// CSS 2.1 Appendix E paint-order groups. Declared in ascending paint order.
type StackingLevel int

const (
	LevelBackgroundAndBorders StackingLevel = iota
	LevelNegativeZIndex
	LevelBlockInFlow
	LevelFloats
	LevelInlineInFlow
	LevelZeroOrAutoZIndex
	LevelPositiveZIndex
	LevelOutlines
)

// ItemKind distinguishes the three things that can appear in a stacking
// context's child list.
type ItemKind int

const (
	ItemDrawList ItemKind = iota
	ItemStackingContext
	ItemIframe
)

// Item is one paint-order child of a stacking context: exactly one of
// DrawListID / StackingContextID / IframePipelineID is meaningful,
// depending on Kind. Go has no closed unions, so this follows the same
// tagged-struct convention as ScrollLayerId and LowLevelFilterOp elsewhere in this
// module.
type Item struct {
	Kind  ItemKind
	Level StackingLevel

	// ZIndex only matters within LevelNegativeZIndex/LevelZeroOrAutoZIndex/
	// LevelPositiveZIndex — items in the other five levels are ordered by
	// document/DOM order only.
	ZIndex int
	Order  int // DOM/document order, the stable tiebreaker for equal ZIndex

	DrawListID        ids.DrawListId
	StackingContextID ids.StackingContextId
	IframePipelineID  ids.PipelineId
}

// Pipeline is one document's (or iframe's) submitted content: its root
// stacking context plus the epoch it was submitted under (spec.md §3
// "Pipeline").
type Pipeline struct {
	PipelineID            ids.PipelineId
	Epoch                 ids.Epoch
	RootStackingContextID ids.StackingContextId
	BackgroundDrawList    *ids.DrawListId
}

// Scene is the full set of pipelines and stacking contexts a frame is built
// from. The root pipeline is the top-level document; other pipelines are
// iframes reachable from it via Item{Kind: ItemIframe}.
type Scene struct {
	StackingContexts map[ids.StackingContextId]*StackingContext
	Pipelines        map[ids.PipelineId]*Pipeline
	RootPipelineID   ids.PipelineId
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{
		StackingContexts: map[ids.StackingContextId]*StackingContext{},
		Pipelines:        map[ids.PipelineId]*Pipeline{},
	}
}

// AddStackingContext registers sc under id, replacing any previous
// definition (a content producer may resubmit a stacking context under a
// new epoch without changing its id).
func (s *Scene) AddStackingContext(id ids.StackingContextId, sc *StackingContext) {
	s.StackingContexts[id] = sc
}

// AddPipeline registers p, and sets it as root if none is set yet or p's id
// matches the existing root (a root pipeline resubmitting under a new
// epoch stays root).
func (s *Scene) AddPipeline(p *Pipeline) {
	s.Pipelines[p.PipelineID] = p
	if s.RootPipelineID == 0 || s.RootPipelineID == p.PipelineID {
		s.RootPipelineID = p.PipelineID
	}
}

// SetRootPipeline explicitly designates the root pipeline (a full-page
// navigation swaps which pipeline is top-level).
func (s *Scene) SetRootPipeline(id ids.PipelineId) {
	s.RootPipelineID = id
}

// CollectedItem is one entry in the flattened, paint-ordered output of
// CollectItems.
type CollectedItem struct {
	Item Item
}

// CollectItems returns sc's direct children in CSS 2.1 Appendix E paint
// order: backgrounds/borders, negative z-index (ascending), in-flow block
// descendants, floats, in-flow inline descendants, zero-or-auto z-index,
// positive z-index (ascending), outlines. Within a level, items are sorted
// by z-index then by document order — ties broken by document order keeps
// the sort stable the way content authors expect (spec.md Open Question: an
// iframe or draw-list item with no explicit z-index sorts as z-index 0,
// grouped with other auto-z-index content rather than treated as always-
// behind or always-in-front). Outlines never participate in z-index
// stacking — they always paint last, ordered by document order only.
func CollectItems(sc *StackingContext) []CollectedItem {
	byLevel := make([][]Item, LevelOutlines+1)
	for _, item := range sc.Children {
		byLevel[item.Level] = append(byLevel[item.Level], item)
	}

	out := make([]CollectedItem, 0, len(sc.Children))
	for level := LevelBackgroundAndBorders; level <= LevelOutlines; level++ {
		items := byLevel[level]
		if level == LevelNegativeZIndex || level == LevelZeroOrAutoZIndex || level == LevelPositiveZIndex {
			sort.SliceStable(items, func(i, j int) bool {
				if items[i].ZIndex != items[j].ZIndex {
					return items[i].ZIndex < items[j].ZIndex
				}
				return items[i].Order < items[j].Order
			})
		} else {
			sort.SliceStable(items, func(i, j int) bool {
				return items[i].Order < items[j].Order
			})
		}
		for _, it := range items {
			out = append(out, CollectedItem{Item: it})
		}
	}
	return out
}
