package render

import (
	"image/color"
	"testing"
)

func TestPixmapTargetClear(t *testing.T) {
	pt := NewPixmapTarget(4, 4)
	pt.Clear(color.RGBA{R: 10, G: 20, B: 30, A: 255})

	px := pt.Pixels()
	if len(px) != 4*4*4 {
		t.Fatalf("got %d pixel bytes, want %d", len(px), 4*4*4)
	}
	if px[0] != 10 || px[1] != 20 || px[2] != 30 || px[3] != 255 {
		t.Errorf("first pixel = %v, want [10 20 30 255]", px[:4])
	}
}

func TestPixmapTargetDimensions(t *testing.T) {
	pt := NewPixmapTarget(800, 600)
	if pt.Width() != 800 || pt.Height() != 600 {
		t.Errorf("got %dx%d, want 800x600", pt.Width(), pt.Height())
	}
	if pt.Stride() != 800*4 {
		t.Errorf("got stride %d, want %d", pt.Stride(), 800*4)
	}
}
