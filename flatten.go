package frame

import (
	"fmt"

	"github.com/gogpu/frame/geom"
	"github.com/gogpu/frame/ids"
	"github.com/gogpu/frame/scene"
	"github.com/gogpu/frame/spatial"
	"github.com/gogpu/gputypes"
)

// flattener walks a scene's stacking-context tree in paint order, building
// the frame's render-target tree, draw-list groups, and stacking-context
// info list, and inserting every draw-list item into its scroll layer's
// AABB tree (spec.md §4.3 "flatten").
type flattener struct {
	frame *Frame
	scene *scene.Scene
	dpr   float32
}

func newFlattener(f *Frame, sc *scene.Scene, dpr float32) *flattener {
	return &flattener{frame: f, scene: sc, dpr: dpr}
}

func (fl *flattener) flatten() error {
	root, ok := fl.scene.Pipelines[fl.scene.RootPipelineID]
	if !ok {
		return fmt.Errorf("frame: root pipeline %v not found in scene", fl.scene.RootPipelineID)
	}
	fl.frame.PipelineEpochMap[root.PipelineID] = root.Epoch

	rootSC, ok := fl.scene.StackingContexts[root.RootStackingContextID]
	if !ok {
		return fmt.Errorf("frame: root stacking context %v not found in scene", root.RootStackingContextID)
	}

	rootInfo := flattenInfo{
		currentClipRect: geom.MaxRect(),
		transform:       spatial.Identity(),
		perspective:     spatial.Identity(),
	}
	return fl.flattenStackingContext(rootSC, fl.frame.Root, fl.frame.RootScrollLayerID, root.PipelineID, rootInfo)
}

// flattenInfo is the parent context threaded down through recursive
// flattenStackingContext calls: the clip rect and accumulated transform
// inherited from ancestors, plus the running offset since the last scroll
// layer boundary (spec.md §4.3's opening "FlattenInfo").
type flattenInfo struct {
	offsetFromCurrentLayer geom.Point
	currentClipRect        geom.Rect
	transform              spatial.Matrix4
	perspective            spatial.Matrix4
}

// flattenStackingContext flattens sc's paint-ordered children into target
// (or a fresh offscreen target of its own, if sc needs isolation), under
// parentScrollLayerID and parent's accumulated clip/transform state,
// recursing into nested stacking contexts and iframes (spec.md §4.3).
func (fl *flattener) flattenStackingContext(sc *scene.StackingContext, target *RenderTarget, parentScrollLayerID spatial.ScrollLayerId, pipelineID ids.PipelineId, parent flattenInfo) error {
	// Step 1: translate the inherited clip into sc's own coordinate space
	// and intersect with its overflow rect. An empty intersection prunes
	// the entire subtree — no layer, target, or StackingContextInfo is
	// created for content that can never be visible (spec.md §4.3 step 1,
	// §8 "pruning monotonicity").
	localClipRect, ok := parent.currentClipRect.Translate(geom.Point{X: -sc.Bounds.Origin().X, Y: -sc.Bounds.Origin().Y}).Intersect(sc.Overflow)
	if !ok {
		return nil
	}

	// Step 2: an empty paint-order child list needs no layer or target
	// either — there is nothing for either to hold.
	items := scene.CollectItems(sc)
	if len(items) == 0 {
		return nil
	}

	// Step 3: compute this stacking context's accumulated transform and
	// perspective relative to its own scroll layer's origin.
	origin := parent.offsetFromCurrentLayer.Add(sc.Bounds.Origin())
	local := composeAroundOrigin(toMatrix4(sc.LocalTransform), origin)
	transform := parent.perspective.Mul(parent.transform).Mul(local)
	perspective := composeAroundOrigin(toMatrix4(sc.Perspective), origin)

	// Step 4: resolve (or create) the scroll layer sc's content belongs
	// to. Crossing into a newly-created scroll layer resets the running
	// offset/transform/perspective for descendants: the new layer's own
	// WorldTransform now carries everything accumulated so far.
	scrollLayerID, createdLayer := fl.resolveScrollLayer(sc, parentScrollLayerID, local)
	child := flattenInfo{
		offsetFromCurrentLayer: origin,
		currentClipRect:        localClipRect,
		transform:              transform,
		perspective:            perspective,
	}
	if createdLayer {
		child.offsetFromCurrentLayer = geom.Point{}
		child.transform = spatial.Identity()
		child.perspective = spatial.Identity()
	}

	index := ids.StackingContextIndex(len(fl.frame.StackingContextInfo))
	info := StackingContextInfo{
		Index:           index,
		PipelineID:      pipelineID,
		ScrollLayerID:   scrollLayerID,
		Bounds:          sc.Bounds,
		OffsetFromLayer: origin,
		LocalClipRect:   localClipRect,
		Transform:       transform,
		Perspective:     perspective,
	}

	ownTarget := target
	var compositeOps []CompositionOp
	if NeedsIsolation(sc) {
		compositeOps = TranslateCompositionOps(sc)

		w := uint32(sc.Bounds.Width() * fl.dpr)
		h := uint32(sc.Bounds.Height() * fl.dpr)
		if w == 0 {
			w = 1
		}
		if h == 0 {
			h = 1
		}
		texID := fl.frame.cache.AllocateRenderTarget(w, h, gputypes.TextureFormatRGBA8Unorm)

		ownTarget = NewRenderTarget(fl.frame.nextRenderTarget(), texID, geom.IntSize{W: w, H: h})
		target.AddChild(ownTarget)
		ownTarget.PushClear([4]float32{0, 0, 0, 0})
	}
	info.RenderTargetID = ownTarget.ID
	info.CompositionOps = compositeOps
	fl.frame.StackingContextInfo = append(fl.frame.StackingContextInfo, info)

	sc.HasStackingContexts = false
	for _, ci := range items {
		item := ci.Item
		switch item.Kind {
		case scene.ItemDrawList:
			if err := fl.flattenDrawList(item.DrawListID, ownTarget, scrollLayerID, index, child.offsetFromCurrentLayer); err != nil {
				return err
			}

		case scene.ItemStackingContext:
			sc.HasStackingContexts = true
			childSC, ok := fl.scene.StackingContexts[item.StackingContextID]
			if !ok {
				return fmt.Errorf("frame: stacking context %v not found in scene", item.StackingContextID)
			}
			if err := fl.flattenStackingContext(childSC, ownTarget, scrollLayerID, pipelineID, child); err != nil {
				return err
			}

		case scene.ItemIframe:
			pipeline, ok := fl.scene.Pipelines[item.IframePipelineID]
			if !ok {
				// A missing iframe pipeline contributes nothing; the rest
				// of the frame is still built.
				Logger().Warn("frame: iframe pipeline not found in scene, skipping", "pipeline", item.IframePipelineID)
				continue
			}
			fl.frame.PipelineEpochMap[pipeline.PipelineID] = pipeline.Epoch

			childPipelineSC, ok := fl.scene.StackingContexts[pipeline.RootStackingContextID]
			if !ok {
				return fmt.Errorf("frame: iframe root stacking context %v not found in scene", pipeline.RootStackingContextID)
			}
			if err := fl.flattenStackingContext(childPipelineSC, ownTarget, scrollLayerID, pipeline.PipelineID, child); err != nil {
				return err
			}
		}
	}

	ownTarget.FlushOpenGroup()

	if ownTarget != target {
		target.PushComposite(CompositeBatchInfo{
			Ops: compositeOps,
			Jobs: []CompositeBatchJob{{
				SourceTarget: ownTarget.TextureID,
				SourceRect:   geom.RectFromOriginSize(geom.Point{}, ownTarget.Size.ToSize()),
				DestRect:     sc.Bounds,
			}},
		})
	}

	return nil
}

// toMatrix4 converts an optional scene.Matrix4Like into a spatial.Matrix4,
// defaulting to identity when sc carries no explicit transform/perspective.
func toMatrix4(m *scene.Matrix4Like) spatial.Matrix4 {
	if m == nil {
		return spatial.Identity()
	}
	return spatial.FromArray(m.M)
}

// composeAroundOrigin returns T(origin) * m * T(-origin): m applied as if
// its origin were the stacking context's own bounds origin rather than its
// parent's (spec.md §4.3 step 3).
func composeAroundOrigin(m spatial.Matrix4, origin geom.Point) spatial.Matrix4 {
	if m.IsIdentity() {
		return spatial.Identity()
	}
	forward := spatial.Translation(float64(origin.X), float64(origin.Y), 0)
	backward := spatial.Translation(float64(-origin.X), float64(-origin.Y), 0)
	return forward.Mul(m).Mul(backward)
}

// flattenDrawList adds one draw list's items to target's open draw-list
// group and to scrollLayerID's AABB tree, translating each item's rect by
// offsetFromCurrentLayer so it lands in the scroll layer's own coordinate
// space rather than the draw list's local one (spec.md §4.3 step 2).
func (fl *flattener) flattenDrawList(drawListID ids.DrawListId, target *RenderTarget, scrollLayerID spatial.ScrollLayerId, scIndex ids.StackingContextIndex, offsetFromCurrentLayer geom.Point) error {
	dl, ok := fl.frame.cache.GetDrawList(drawListID)
	if !ok {
		return fmt.Errorf("frame: draw list %v not found in resource cache", drawListID)
	}
	fl.frame.cache.SetDrawListStackingContext(drawListID, scIndex)

	groupID := target.PushDrawList(scrollLayerID, drawListID, scIndex, fl.frame.nextDrawListGroup)
	fl.frame.DrawListGroups[groupID] = target.OpenGroup()

	layer, ok := fl.frame.Layers.Get(scrollLayerID)
	invariant(ok, "frame: scroll layer %v used before creation", scrollLayerID)

	for i, item := range dl.Items {
		layer.Insert(spatial.ItemRef{
			Rect:      item.Rect.Translate(offsetFromCurrentLayer),
			Group:     groupID,
			DrawList:  drawListID,
			ItemIndex: ids.DrawListItemIndex(i),
		})
	}
	return nil
}

// resolveScrollLayer returns the spatial scroll layer sc's content belongs
// to and whether that layer was just created for this call, creating one
// (with localTransform as its own CSS transform, later composed with its
// parent's WorldTransform by Layer.Finalize) if sc introduces a new scroll
// layer that hasn't been seen yet this frame.
func (fl *flattener) resolveScrollLayer(sc *scene.StackingContext, parent spatial.ScrollLayerId, localTransform spatial.Matrix4) (spatial.ScrollLayerId, bool) {
	if sc.ScrollPolicy == scene.ScrollPolicyFixed || sc.ScrollLayerFixed {
		return fl.frame.RootScrollLayerID, false
	}
	if sc.ScrollLayerTag == 0 {
		return parent, false
	}

	id := spatial.NormalLayer(sc.ScrollLayerTag)
	if _, ok := fl.frame.Layers.Get(id); ok {
		return id, false
	}
	layer := spatial.NewLayer(sc.Bounds.Origin(), sc.Overflow.Size(), localTransform)
	fl.frame.Layers.Add(id, parent, layer)
	return id, true
}
