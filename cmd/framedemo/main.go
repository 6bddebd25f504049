// Command framedemo builds a single frame from a small hand-built scene and
// prints the resulting render-target/batch structure, as a smoke test for
// the frame package outside of `go test`.
package main

import (
	"flag"
	"log"

	"github.com/gogpu/frame"
	"github.com/gogpu/frame/contract"
	"github.com/gogpu/frame/geom"
	"github.com/gogpu/frame/ids"
	"github.com/gogpu/frame/internal/parallel"
	"github.com/gogpu/frame/frametest"
	"github.com/gogpu/frame/scene"
)

func main() {
	var (
		width  = flag.Int("width", 800, "viewport width")
		height = flag.Int("height", 600, "viewport height")
		dpr    = flag.Float64("dpr", 1.0, "device pixel ratio")
	)
	flag.Parse()

	viewport := geom.RectFromOriginSize(geom.Point{}, geom.Size{W: float32(*width), H: float32(*height)})

	rc := frametest.New()
	backgroundDL := ids.DrawListId(1)
	cardDL := ids.DrawListId(2)

	rc.AddDrawList(backgroundDL, contract.DrawList{Items: []contract.DrawListItem{
		{Rect: viewport},
	}})
	rc.AddDrawList(cardDL, contract.DrawList{Items: []contract.DrawListItem{
		{Rect: geom.RectFromOriginSize(geom.Point{X: 40, Y: 40}, geom.Size{W: 320, H: 200})},
	}})

	const rootSCID ids.StackingContextId = 1
	const cardSCID ids.StackingContextId = 2

	sc := scene.NewScene()
	sc.AddStackingContext(cardSCID, &scene.StackingContext{
		Bounds:       geom.RectFromOriginSize(geom.Point{X: 40, Y: 40}, geom.Size{W: 320, H: 200}),
		Overflow:     geom.RectFromOriginSize(geom.Point{X: 40, Y: 40}, geom.Size{W: 320, H: 200}),
		MixBlendMode: scene.BlendMultiply,
		Children: []scene.Item{
			{Kind: scene.ItemDrawList, Level: scene.LevelBlockInFlow, DrawListID: cardDL, Order: 0},
		},
	})
	sc.AddStackingContext(rootSCID, &scene.StackingContext{
		Bounds:   viewport,
		Overflow: viewport,
		Children: []scene.Item{
			{Kind: scene.ItemDrawList, Level: scene.LevelBackgroundAndBorders, DrawListID: backgroundDL, Order: 0},
			{Kind: scene.ItemStackingContext, Level: scene.LevelZeroOrAutoZIndex, StackingContextID: cardSCID, Order: 1},
		},
	})
	sc.AddPipeline(&scene.Pipeline{PipelineID: 1, Epoch: 1, RootStackingContextID: rootSCID})
	sc.SetRootPipeline(1)

	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	f := frame.NewFrame(rc, pool)
	out, err := f.Build(sc, viewport, float32(*dpr), frametest.StubCompiler{})
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}

	for _, layer := range out.Layers {
		log.Printf("render target %v (%dx%d): %d commands", layer.RenderTargetID, layer.Size.W, layer.Size.H, len(layer.Commands))
	}
	log.Printf("pending vertex-buffer updates: %d", len(f.PendingUpdates()))
}
