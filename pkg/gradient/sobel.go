// Package gradient computes Sobel gradient-magnitude fields over 2D
// intensity grids and provides an explicit, content-keyed memoization cache
// so repeated segmentations of the same slice reuse the field.
package gradient

import (
	"hash/fnv"
	"sync"

	"miraseg/pkg/grid"
)

// Sobel returns the 3x3 Sobel gradient magnitude of the image, combined as
// (|gx|+|gy|)/4 and clamped to [0,255]. Border pixels are left at 0.
func Sobel(img *grid.Image) []float32 {
	w, h := img.W, img.H
	out := make([]float32, w*h)
	if w < 3 || h < 3 {
		return out
	}

	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			tl := int(img.Pix[row-w+x-1])
			tc := int(img.Pix[row-w+x])
			tr := int(img.Pix[row-w+x+1])
			ml := int(img.Pix[row+x-1])
			mr := int(img.Pix[row+x+1])
			bl := int(img.Pix[row+w+x-1])
			bc := int(img.Pix[row+w+x])
			br := int(img.Pix[row+w+x+1])

			gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy := (bl + 2*bc + br) - (tl + 2*tc + tr)
			if gx < 0 {
				gx = -gx
			}
			if gy < 0 {
				gy = -gy
			}
			g := (gx + gy) / 4
			if g > 255 {
				g = 255
			}
			out[row+x] = float32(g)
		}
	}

	return out
}

// Key returns the cache key for an image: an FNV-1a hash over its
// dimensions and pixel content.
func Key(img *grid.Image) uint64 {
	h := fnv.New64a()
	var dims [8]byte
	dims[0] = byte(img.W)
	dims[1] = byte(img.W >> 8)
	dims[2] = byte(img.W >> 16)
	dims[3] = byte(img.W >> 24)
	dims[4] = byte(img.H)
	dims[5] = byte(img.H >> 8)
	dims[6] = byte(img.H >> 16)
	dims[7] = byte(img.H >> 24)
	h.Write(dims[:])
	h.Write(img.Pix)
	return h.Sum64()
}

// Cache memoizes gradient fields by image content. Concurrent use on
// different images is safe; concurrent first use on the same image is a
// benign recompute race, not a correctness hazard.
type Cache struct {
	mu     sync.RWMutex
	fields map[uint64][]float32
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{fields: make(map[uint64][]float32)}
}

// Field returns the Sobel field for the image, computing and retaining it
// on first use.
func (c *Cache) Field(img *grid.Image) []float32 {
	key := Key(img)

	c.mu.RLock()
	field, ok := c.fields[key]
	c.mu.RUnlock()
	if ok {
		return field
	}

	field = Sobel(img)
	c.mu.Lock()
	c.fields[key] = field
	c.mu.Unlock()
	return field
}

// Invalidate drops the cached field for the image, if any.
func (c *Cache) Invalidate(img *grid.Image) {
	key := Key(img)
	c.mu.Lock()
	delete(c.fields, key)
	c.mu.Unlock()
}

// Clear drops every cached field.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.fields = make(map[uint64][]float32)
	c.mu.Unlock()
}
