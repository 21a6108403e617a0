package visualization

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"miraseg/pkg/grid"
)

// testVolume builds a 4x4x4 volume with a recognizable intensity pattern.
func testVolume() *grid.Volume {
	vol := grid.NewVolume(4, 4, 4)
	for i := range vol.Data {
		vol.Data[i] = float32(i) / float32(len(vol.Data))
	}
	return vol
}

// TestExtractSliceDimensions verifies slice dimensions per axis.
func TestExtractSliceDimensions(t *testing.T) {
	vol := grid.NewVolume(5, 6, 7)
	v := NewViewer(vol)

	cases := []struct {
		axis string
		w, h int
	}{
		{"x", 7, 6},
		{"y", 5, 7},
		{"z", 5, 6},
	}
	for _, c := range cases {
		img, err := v.ExtractSlice(c.axis, 0)
		if err != nil {
			t.Fatalf("ExtractSlice(%s) failed: %v", c.axis, err)
		}
		b := img.Bounds()
		if b.Dx() != c.w || b.Dy() != c.h {
			t.Errorf("Axis %s: expected %dx%d, got %dx%d", c.axis, c.w, c.h, b.Dx(), b.Dy())
		}
	}
}

// TestExtractSliceValidation verifies axis and position checks.
func TestExtractSliceValidation(t *testing.T) {
	v := NewViewer(testVolume())

	if _, err := v.ExtractSlice("w", 0); err == nil {
		t.Error("Expected an error for an invalid axis")
	}
	if _, err := v.ExtractSlice("z", -1); err == nil {
		t.Error("Expected an error for a negative position")
	}
	if _, err := v.ExtractSlice("z", 4); err == nil {
		t.Error("Expected an error for a position past the depth")
	}
}

// TestMaskHighlighting verifies masked voxels render full white and
// unmasked ones are dimmed.
func TestMaskHighlighting(t *testing.T) {
	vol := grid.NewVolume(4, 4, 4)
	for i := range vol.Data {
		vol.Data[i] = 0.5
	}
	v := NewViewer(vol)

	masked := uint32(vol.Idx(1, 2, 0))
	v.SetMask([]uint32{masked, 1 << 30}) // out-of-range index ignored

	img, err := v.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}

	got := img.At(1, 2).(color.Gray16).Y
	if got != 65535 {
		t.Errorf("Expected masked voxel at full white, got %d", got)
	}

	plain := img.At(0, 0).(color.Gray16).Y
	if plain >= 65535/2+1 {
		t.Errorf("Expected unmasked voxels dimmed, got %d", plain)
	}
	if plain == 0 {
		t.Error("Expected unmasked voxels visible, got black")
	}
}

// TestSaveSliceSequence verifies one file per slice lands in the output
// directory.
func TestSaveSliceSequence(t *testing.T) {
	v := NewViewer(testVolume())
	dir := filepath.Join(t.TempDir(), "slices")

	if err := v.SaveSliceSequence("z", dir); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read output directory: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("Expected 4 slice files, got %d", len(entries))
	}

	if err := v.SaveSliceSequence("q", dir); err == nil {
		t.Error("Expected an error for an invalid axis")
	}
}

// TestRenderDistanceField verifies the grayscale mapping: zero distance
// bright, the maximum dim, unreached black.
func TestRenderDistanceField(t *testing.T) {
	inf := float32(math.Inf(1))
	dist := []float32{
		0, 1, 2,
		4, inf, 2,
	}

	img, err := RenderDistanceField(dist, 3, 2)
	if err != nil {
		t.Fatalf("RenderDistanceField failed: %v", err)
	}

	at := func(x, y int) uint16 { return img.At(x, y).(color.Gray16).Y }

	if at(0, 0) != 65535 {
		t.Errorf("Expected zero distance at full white, got %d", at(0, 0))
	}
	if at(1, 1) != 0 {
		t.Errorf("Expected unreached voxel black, got %d", at(1, 1))
	}
	if at(0, 1) != 0 {
		t.Errorf("Expected the maximum distance fully dim, got %d", at(0, 1))
	}
	if !(at(0, 0) > at(1, 0) && at(1, 0) > at(2, 0)) {
		t.Errorf("Expected brightness to fall with distance: %d, %d, %d",
			at(0, 0), at(1, 0), at(2, 0))
	}

	if _, err := RenderDistanceField(dist, 4, 2); err == nil {
		t.Error("Expected an error for mismatched dimensions")
	}
}
