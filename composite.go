package frame

import "github.com/gogpu/frame/scene"

// AxisDirection names one axis a blur composite operation runs along. Blurs
// are separable, so a single CSS blur filter becomes two low-level filter
// passes, one per axis (spec.md §4.2).
type AxisDirection int

const (
	AxisHorizontal AxisDirection = iota
	AxisVertical
)

// LowLevelFilterOp is one GPU composite pass: the frame builder's
// translation of a single scene.Filter into something the renderer can
// execute directly against an offscreen render target.
type LowLevelFilterOp struct {
	Kind   LowLevelFilterKind
	Amount float32
	Axis   AxisDirection // only meaningful for Blur
}

// LowLevelFilterKind is the renderer-facing vocabulary of filter passes,
// distinct from scene.FilterKind so that one CSS filter (Blur) can expand
// into two low-level ops without scene needing to know about that.
type LowLevelFilterKind int

const (
	LowLevelBlur LowLevelFilterKind = iota
	LowLevelBrightness
	LowLevelContrast
	LowLevelGrayscale
	LowLevelHueRotate
	LowLevelInvert
	LowLevelOpacity
	LowLevelSaturate
	LowLevelSepia
)

// CompositionOp is one operation applied when compositing a stacking
// context's offscreen render target back into its parent: a blend mode, a
// filter pass, or both. A stacking context with neither a non-normal blend
// mode nor any filters is composited with a plain alpha-over and produces
// no CompositionOp at all — spec.md §4.2's "only a stacking context that
// needs isolation gets a render target".
type CompositionOp struct {
	Blend  scene.MixBlendMode
	Filter *LowLevelFilterOp
}

// NeedsIsolation reports whether sc requires its own offscreen render
// target to be composited correctly: a non-normal blend mode, any filter,
// or (conservatively) an explicit 3D-context-establishing transform, since
// the renderer composites a 3D subtree as a single flattened layer.
func NeedsIsolation(sc *scene.StackingContext) bool {
	return sc.MixBlendMode != scene.BlendNormal || len(sc.Filters) > 0 || sc.Establishes3D
}

// TranslateCompositionOps converts sc's blend mode and filter list into
// the ordered sequence of low-level composite passes the renderer must run
// against sc's offscreen target: the blend mode first (it reads the
// destination framebuffer as it stood before this stacking context's
// filters ran), then each filter in CSS order (spec.md §4.2
// "composition_operations").
func TranslateCompositionOps(sc *scene.StackingContext) []CompositionOp {
	if !NeedsIsolation(sc) {
		return nil
	}

	var ops []CompositionOp
	if sc.MixBlendMode != scene.BlendNormal {
		ops = append(ops, CompositionOp{Blend: sc.MixBlendMode})
	}

	for _, f := range sc.Filters {
		switch f.Kind {
		case scene.FilterBlur:
			ops = append(ops,
				CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelBlur, Amount: f.Amount, Axis: AxisHorizontal}},
				CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelBlur, Amount: f.Amount, Axis: AxisVertical}},
			)
		case scene.FilterBrightness:
			ops = append(ops, CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelBrightness, Amount: f.Amount}})
		case scene.FilterContrast:
			ops = append(ops, CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelContrast, Amount: f.Amount}})
		case scene.FilterGrayscale:
			ops = append(ops, CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelGrayscale, Amount: f.Amount}})
		case scene.FilterHueRotate:
			ops = append(ops, CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelHueRotate, Amount: f.Amount}})
		case scene.FilterInvert:
			ops = append(ops, CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelInvert, Amount: f.Amount}})
		case scene.FilterOpacity:
			ops = append(ops, CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelOpacity, Amount: f.Amount}})
		case scene.FilterSaturate:
			ops = append(ops, CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelSaturate, Amount: f.Amount}})
		case scene.FilterSepia:
			ops = append(ops, CompositionOp{Filter: &LowLevelFilterOp{Kind: LowLevelSepia, Amount: f.Amount}})
		}
	}

	return ops
}
