// Package visualization renders segmentation results for QA: volume slices
// with an included-voxel mask highlighted, and 2D cost-distance fields as
// grayscale images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"miraseg/pkg/grid"
)

// dimFactor attenuates unmasked intensities so the mask reads clearly.
const dimFactor = 0.5

// Viewer extracts viewable slices from a volume, optionally overlaying an
// included-voxel mask.
type Viewer struct {
	vol  *grid.Volume
	mask []bool
}

// NewViewer creates a viewer over a volume.
func NewViewer(vol *grid.Volume) *Viewer {
	return &Viewer{vol: vol}
}

// SetMask installs the included-voxel set to highlight, as the flat indices
// a growth result returns. Indices out of range are ignored.
func (v *Viewer) SetMask(indices []uint32) {
	v.mask = make([]bool, v.vol.Len())
	for _, idx := range indices {
		if int(idx) < len(v.mask) {
			v.mask[idx] = true
		}
	}
}

// sample returns the display value for a voxel: full white when masked,
// the attenuated intensity otherwise.
func (v *Viewer) sample(idx int) uint16 {
	if idx < 0 || idx >= len(v.vol.Data) {
		return 0
	}
	if v.mask != nil && v.mask[idx] {
		return 65535
	}
	value := float64(v.vol.Data[idx])
	if v.mask != nil {
		value *= dimFactor
	}
	return uint16(math.Max(0, math.Min(65535, value*65535)))
}

// ExtractSlice extracts a 2D slice image along the specified axis.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16

	switch axis {
	case "x", "X":
		if position >= v.vol.NX {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.vol.NX)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.NZ, v.vol.NY))
		for y := 0; y < v.vol.NY; y++ {
			for z := 0; z < v.vol.NZ; z++ {
				img.SetGray16(z, y, color.Gray16{Y: v.sample(v.vol.Idx(position, y, z))})
			}
		}

	case "y", "Y":
		if position >= v.vol.NY {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.vol.NY)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.NX, v.vol.NZ))
		for z := 0; z < v.vol.NZ; z++ {
			for x := 0; x < v.vol.NX; x++ {
				img.SetGray16(x, z, color.Gray16{Y: v.sample(v.vol.Idx(x, position, z))})
			}
		}

	case "z", "Z":
		if position >= v.vol.NZ {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.vol.NZ)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.NX, v.vol.NY))
		for y := 0; y < v.vol.NY; y++ {
			for x := 0; x < v.vol.NX; x++ {
				img.SetGray16(x, y, color.Gray16{Y: v.sample(v.vol.Idx(x, y, position))})
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves a slice image as JPEG.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the given axis.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.vol.NX
	case "y", "Y":
		maxPos = v.vol.NY
	case "z", "Z":
		maxPos = v.vol.NZ
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// RenderDistanceField renders a 2D cost-distance field as a grayscale
// image: near distances bright, far dim, unreached (+Inf) black.
func RenderDistanceField(dist []float32, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 || len(dist) != w*h {
		return nil, fmt.Errorf("distance field is %d cells, expected %dx%d", len(dist), w, h)
	}

	maxFinite := float32(0)
	for _, d := range dist {
		if !math.IsInf(float64(d), 1) && d > maxFinite {
			maxFinite = d
		}
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := dist[y*w+x]
			if math.IsInf(float64(d), 1) {
				continue // stays black
			}
			value := 1.0
			if maxFinite > 0 {
				value = 1 - float64(d/maxFinite)
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(value * 65535)})
		}
	}
	return img, nil
}
