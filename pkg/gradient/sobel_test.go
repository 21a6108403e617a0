package gradient

import (
	"testing"

	"miraseg/pkg/grid"
)

// uniformImage builds a w-by-h image filled with a single intensity.
func uniformImage(w, h int, v uint8) *grid.Image {
	img := &grid.Image{Pix: make([]uint8, w*h), W: w, H: h}
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// TestSobelFlatField verifies a constant image has zero gradient everywhere.
func TestSobelFlatField(t *testing.T) {
	img := uniformImage(8, 8, 128)
	g := Sobel(img)

	for i, v := range g {
		if v != 0 {
			t.Fatalf("Pixel %d: expected 0 gradient on flat field, got %f", i, v)
		}
	}
}

// TestSobelVerticalStep verifies a vertical step edge produces the expected
// magnitude along the edge and zero far from it.
func TestSobelVerticalStep(t *testing.T) {
	// Left half 0, right half 200, step between x=3 and x=4.
	img := uniformImage(8, 8, 0)
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			img.Pix[y*8+x] = 200
		}
	}

	g := Sobel(img)

	// On the columns adjacent to the step, gx sums to 4*200 and gy is 0,
	// so the combined magnitude is 4*200/4 = 200.
	for y := 1; y < 7; y++ {
		for _, x := range []int{3, 4} {
			if got := g[y*8+x]; got != 200 {
				t.Errorf("Edge pixel (%d,%d): expected 200, got %f", x, y, got)
			}
		}
	}

	// Interior pixels away from the step are flat.
	for y := 1; y < 7; y++ {
		for _, x := range []int{1, 6} {
			if got := g[y*8+x]; got != 0 {
				t.Errorf("Flat pixel (%d,%d): expected 0, got %f", x, y, got)
			}
		}
	}
}

// TestSobelBordersZero verifies border pixels are always 0.
func TestSobelBordersZero(t *testing.T) {
	img := uniformImage(6, 5, 0)
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7 % 256)
	}

	g := Sobel(img)
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			if x == 0 || y == 0 || x == 5 || y == 4 {
				if g[y*6+x] != 0 {
					t.Errorf("Border pixel (%d,%d): expected 0, got %f", x, y, g[y*6+x])
				}
			}
		}
	}
}

// TestSobelClamp verifies the magnitude never exceeds 255.
func TestSobelClamp(t *testing.T) {
	// Checkerboard of extremes maximizes both gradients.
	img := uniformImage(8, 8, 0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if (x+y)%2 == 0 {
				img.Pix[y*8+x] = 255
			}
		}
	}

	g := Sobel(img)
	for i, v := range g {
		if v > 255 {
			t.Fatalf("Pixel %d: magnitude %f exceeds clamp", i, v)
		}
	}
}

// TestSobelTinyImage verifies images narrower than the kernel return an
// all-zero field of the right size.
func TestSobelTinyImage(t *testing.T) {
	img := uniformImage(2, 5, 99)
	g := Sobel(img)
	if len(g) != 10 {
		t.Fatalf("Expected field of 10 values, got %d", len(g))
	}
	for i, v := range g {
		if v != 0 {
			t.Errorf("Pixel %d: expected 0, got %f", i, v)
		}
	}
}

// TestKeyContentSensitivity verifies the cache key changes with content and
// dimensions but not with allocation identity.
func TestKeyContentSensitivity(t *testing.T) {
	a := uniformImage(4, 4, 10)
	b := uniformImage(4, 4, 10)
	if Key(a) != Key(b) {
		t.Error("Identical content should share a key")
	}

	b.Pix[5] = 11
	if Key(a) == Key(b) {
		t.Error("Key should change when a pixel changes")
	}

	// Same byte count, different shape.
	c := &grid.Image{Pix: make([]uint8, 16), W: 8, H: 2}
	d := &grid.Image{Pix: make([]uint8, 16), W: 2, H: 8}
	if Key(c) == Key(d) {
		t.Error("Key should depend on dimensions, not just bytes")
	}
}

// TestCacheReuseAndInvalidate verifies the cache returns the same field for
// equal content and recomputes after Invalidate.
func TestCacheReuseAndInvalidate(t *testing.T) {
	cache := NewCache()
	img := uniformImage(8, 8, 50)
	img.Pix[27] = 200

	first := cache.Field(img)
	second := cache.Field(img)
	if &first[0] != &second[0] {
		t.Error("Expected the cached field to be reused")
	}

	// A content-equal copy hits the same entry.
	clone := &grid.Image{Pix: append([]uint8(nil), img.Pix...), W: 8, H: 8}
	if third := cache.Field(clone); &first[0] != &third[0] {
		t.Error("Expected content-equal image to hit the cache")
	}

	cache.Invalidate(img)
	fourth := cache.Field(img)
	if &first[0] == &fourth[0] {
		t.Error("Expected a fresh field after Invalidate")
	}

	cache.Clear()
	fifth := cache.Field(img)
	if &fourth[0] == &fifth[0] {
		t.Error("Expected a fresh field after Clear")
	}
}
