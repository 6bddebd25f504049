// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render provides a CPU-backed offscreen render target used to
// simulate the texture allocations a real contract.ResourceCache hands out
// for isolated stacking contexts. The actual GPU-backed implementation
// (texture upload, compositing, surface presentation) is the resource
// cache's concern and out of this module's scope (see frametest, which
// wires PixmapTarget in as the reference cache's backing store).
package render

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
)

// Target is a CPU-addressable offscreen render target: a fixed-format,
// fixed-size pixel buffer a resource cache can allocate per
// ids.TextureId and free once the frame that needed it has been
// retired.
type Target interface {
	Width() int
	Height() int
	Format() gputypes.TextureFormat
	Pixels() []byte
	Stride() int
}

// PixmapTarget is a CPU-backed render target using *image.RGBA. It stands
// in for the GPU offscreen textures a production resource cache would
// allocate for stacking contexts that need isolation (spec.md §4.2).
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a new CPU-backed render target of the given
// pixel dimensions.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a render
// target. The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int { return t.img.Bounds().Dx() }

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int { return t.img.Bounds().Dy() }

// Format always reports RGBA8: the only format this CPU-backed stand-in
// produces.
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte { return t.img.Pix }

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int { return t.img.Stride }

// Image returns the underlying *image.RGBA. The returned image shares
// memory with the target.
func (t *PixmapTarget) Image() *image.RGBA { return t.img }

// Clear fills the entire target with the given color, the way a fresh
// offscreen render target is cleared before a stacking context's content
// is drawn into it.
func (t *PixmapTarget) Clear(c color.Color) {
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
		A: uint8(a >> 8),
	}
	bounds := t.img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			t.img.SetRGBA(x, y, rgba)
		}
	}
}

// Ensure PixmapTarget implements Target.
var _ Target = (*PixmapTarget)(nil)
