// Package frametest provides a minimal, in-memory contract.ResourceCache
// and frame.NodeCompiler, grounded on this module's own cache.ShardedCache,
// for exercising Frame.Build in tests without a real GPU backend or glyph
// rasterizer.
package frametest

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/frame/cache"
	"github.com/gogpu/frame/contract"
	"github.com/gogpu/frame/ids"
	"github.com/gogpu/frame/internal/parallel"
	"github.com/gogpu/frame/render"
	"github.com/gogpu/gputypes"
)

func drawListIdHasher(id ids.DrawListId) uint64 { return cache.Uint64Hasher(uint64(id)) }

// ResourceCache is a reference contract.ResourceCache: draw lists and
// stacking-context assignments are kept in a sharded LRU cache (the same
// one this module uses for any other keyed lookup), render target and
// glyph rasterization are simulated rather than backed by a real GPU.
type ResourceCache struct {
	drawLists *cache.ShardedCache[ids.DrawListId, contract.DrawList]
	scIndex   *cache.ShardedCache[ids.DrawListId, ids.StackingContextIndex]

	nextTexture atomic.Uint32

	mu            sync.Mutex
	liveTargets   map[ids.TextureId]*render.PixmapTarget
	resourceLists []*contract.ResourceList
}

// New returns an empty reference resource cache.
func New() *ResourceCache {
	return &ResourceCache{
		drawLists:   cache.NewSharded[ids.DrawListId, contract.DrawList](0, drawListIdHasher),
		scIndex:     cache.NewSharded[ids.DrawListId, ids.StackingContextIndex](0, drawListIdHasher),
		liveTargets: map[ids.TextureId]*render.PixmapTarget{},
	}
}

// AddDrawList registers a draw list under id, as if a content producer had
// submitted it.
func (c *ResourceCache) AddDrawList(id ids.DrawListId, dl contract.DrawList) {
	c.drawLists.Set(id, dl)
}

// GetDrawList implements contract.ResourceCache.
func (c *ResourceCache) GetDrawList(id ids.DrawListId) (contract.DrawList, bool) {
	return c.drawLists.Get(id)
}

// StackingContextOf returns the stacking context index a draw list was
// last assigned to by SetDrawListStackingContext, for test assertions.
func (c *ResourceCache) StackingContextOf(id ids.DrawListId) (ids.StackingContextIndex, bool) {
	return c.scIndex.Get(id)
}

// SetDrawListStackingContext implements contract.ResourceCache.
func (c *ResourceCache) SetDrawListStackingContext(id ids.DrawListId, idx ids.StackingContextIndex) {
	c.scIndex.Set(id, idx)
}

// AllocateRenderTarget implements contract.ResourceCache by backing each
// allocation with a real CPU-addressable render.PixmapTarget, so tests can
// inspect or clear the pixels an isolated stacking context rendered into,
// and assert every allocation is eventually freed.
func (c *ResourceCache) AllocateRenderTarget(w, h uint32, format gputypes.TextureFormat) ids.TextureId {
	_ = format
	id := ids.TextureId(c.nextTexture.Add(1))
	c.mu.Lock()
	c.liveTargets[id] = render.NewPixmapTarget(int(w), int(h))
	c.mu.Unlock()
	return id
}

// RenderTargetPixels returns the backing pixel buffer for a still-live
// allocated render target, for test assertions.
func (c *ResourceCache) RenderTargetPixels(id ids.TextureId) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.liveTargets[id]
	if !ok {
		return nil, false
	}
	return t.Pixels(), true
}

// FreeRenderTarget implements contract.ResourceCache.
func (c *ResourceCache) FreeRenderTarget(id ids.TextureId) {
	c.mu.Lock()
	delete(c.liveTargets, id)
	c.mu.Unlock()
}

// LiveRenderTargets returns the number of allocated-but-not-yet-freed
// render targets, for leak assertions in tests.
func (c *ResourceCache) LiveRenderTargets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.liveTargets)
}

// AddResourceList implements contract.ResourceCache.
func (c *ResourceCache) AddResourceList(list *contract.ResourceList) {
	c.mu.Lock()
	c.resourceLists = append(c.resourceLists, list)
	c.mu.Unlock()
}

// RasterPendingGlyphs implements contract.ResourceCache as a no-op: this
// reference cache never queues glyphs, since font rasterization is out of
// this module's scope (spec.md Non-goals).
func (c *ResourceCache) RasterPendingGlyphs(pool *parallel.WorkerPool) {}
