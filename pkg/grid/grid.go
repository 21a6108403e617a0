// Package grid provides the intensity-grid and geometry types shared by the
// 2D cost-distance mapper and the 3D region grower. Grids are stored as flat
// arrays in row-major order with x varying fastest, matching the layout the
// viewer backend hands over.
package grid

// Point is an integer 2D coordinate.
type Point struct {
	X, Y int
}

// Point3 is an integer 3D coordinate.
type Point3 struct {
	X, Y, Z int
}

// Image is a 2D grid of byte intensities in [0,255].
type Image struct {
	// Pix holds the intensities, row-major, x-fastest, length W*H.
	Pix []uint8

	// W and H are the grid dimensions in pixels.
	W, H int
}

// NewImage allocates a zeroed image with the given dimensions.
func NewImage(w, h int) *Image {
	return &Image{Pix: make([]uint8, w*h), W: w, H: h}
}

// Idx returns the flat index of (x,y).
func (im *Image) Idx(x, y int) int { return y*im.W + x }

// At returns the intensity at (x,y). The caller is responsible for bounds.
func (im *Image) At(x, y int) uint8 { return im.Pix[y*im.W+x] }

// InBounds reports whether (x,y) lies within the grid.
func (im *Image) InBounds(x, y int) bool {
	return x >= 0 && x < im.W && y >= 0 && y < im.H
}

// Volume is a 3D grid of float intensities normalized to [0,1].
type Volume struct {
	// Data holds the intensities, row-major, x-fastest, with strides
	// (1, NX, NX*NY) and length NX*NY*NZ.
	Data []float32

	// NX, NY and NZ are the grid dimensions in voxels.
	NX, NY, NZ int
}

// NewVolume allocates a zeroed volume with the given dimensions.
func NewVolume(nx, ny, nz int) *Volume {
	return &Volume{Data: make([]float32, nx*ny*nz), NX: nx, NY: ny, NZ: nz}
}

// Len returns the total voxel count.
func (v *Volume) Len() int { return v.NX * v.NY * v.NZ }

// Idx returns the flat index of (x,y,z).
func (v *Volume) Idx(x, y, z int) int { return (z*v.NY+y)*v.NX + x }

// Coord returns the (x,y,z) coordinate of a flat index.
func (v *Volume) Coord(idx int) Point3 {
	x := idx % v.NX
	y := (idx / v.NX) % v.NY
	z := idx / (v.NX * v.NY)
	return Point3{X: x, Y: y, Z: z}
}

// At returns the intensity at (x,y,z). The caller is responsible for bounds.
func (v *Volume) At(x, y, z int) float32 { return v.Data[(z*v.NY+y)*v.NX+x] }

// InBounds reports whether (x,y,z) lies within the grid.
func (v *Volume) InBounds(x, y, z int) bool {
	return x >= 0 && x < v.NX && y >= 0 && y < v.NY && z >= 0 && z < v.NZ
}

// Rect is an axis-aligned 2D box with inclusive bounds.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// RectAround returns the rectangle centered at p with the given half extents,
// before any clipping.
func RectAround(p Point, halfX, halfY int) Rect {
	return Rect{X0: p.X - halfX, Y0: p.Y - halfY, X1: p.X + halfX, Y1: p.Y + halfY}
}

// Clip returns r intersected with the bounds of a w*h grid.
func (r Rect) Clip(w, h int) Rect {
	if r.X0 < 0 {
		r.X0 = 0
	}
	if r.Y0 < 0 {
		r.Y0 = 0
	}
	if r.X1 > w-1 {
		r.X1 = w - 1
	}
	if r.Y1 > h-1 {
		r.Y1 = h - 1
	}
	return r
}

// Intersect returns the overlap of r and o, which may be empty.
func (r Rect) Intersect(o Rect) Rect {
	if o.X0 > r.X0 {
		r.X0 = o.X0
	}
	if o.Y0 > r.Y0 {
		r.Y0 = o.Y0
	}
	if o.X1 < r.X1 {
		r.X1 = o.X1
	}
	if o.Y1 < r.Y1 {
		r.Y1 = o.Y1
	}
	return r
}

// Contains reports whether (x,y) lies within the inclusive bounds.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Empty reports whether the rectangle contains no cells.
func (r Rect) Empty() bool { return r.X1 < r.X0 || r.Y1 < r.Y0 }

// Center returns the centroid of the rectangle in continuous coordinates.
func (r Rect) Center() (cx, cy float64) {
	return float64(r.X0+r.X1) / 2, float64(r.Y0+r.Y1) / 2
}

// HalfExtents returns the half width and half height of the rectangle,
// floored at 1 so radial normalization stays finite for degenerate boxes.
func (r Rect) HalfExtents() (hx, hy float64) {
	hx = float64(r.X1-r.X0) / 2
	hy = float64(r.Y1-r.Y0) / 2
	if hx < 1 {
		hx = 1
	}
	if hy < 1 {
		hy = 1
	}
	return hx, hy
}

// Box is an axis-aligned 3D box with inclusive bounds.
type Box struct {
	Min, Max Point3
}

// Clip returns b intersected with the bounds of an nx*ny*nz grid.
func (b Box) Clip(nx, ny, nz int) Box {
	if b.Min.X < 0 {
		b.Min.X = 0
	}
	if b.Min.Y < 0 {
		b.Min.Y = 0
	}
	if b.Min.Z < 0 {
		b.Min.Z = 0
	}
	if b.Max.X > nx-1 {
		b.Max.X = nx - 1
	}
	if b.Max.Y > ny-1 {
		b.Max.Y = ny - 1
	}
	if b.Max.Z > nz-1 {
		b.Max.Z = nz - 1
	}
	return b
}

// Expand returns the box grown by margin voxels on every side.
func (b Box) Expand(margin int) Box {
	b.Min.X -= margin
	b.Min.Y -= margin
	b.Min.Z -= margin
	b.Max.X += margin
	b.Max.Y += margin
	b.Max.Z += margin
	return b
}

// Contains reports whether (x,y,z) lies within the inclusive bounds.
func (b Box) Contains(x, y, z int) bool {
	return x >= b.Min.X && x <= b.Max.X &&
		y >= b.Min.Y && y <= b.Max.Y &&
		z >= b.Min.Z && z <= b.Max.Z
}

// Empty reports whether the box contains no voxels.
func (b Box) Empty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// Len returns the number of voxels covered by the box.
func (b Box) Len() int {
	if b.Empty() {
		return 0
	}
	return (b.Max.X - b.Min.X + 1) * (b.Max.Y - b.Min.Y + 1) * (b.Max.Z - b.Min.Z + 1)
}

// Center returns the centroid of the box in continuous coordinates.
func (b Box) Center() (cx, cy, cz float64) {
	return float64(b.Min.X+b.Max.X) / 2,
		float64(b.Min.Y+b.Max.Y) / 2,
		float64(b.Min.Z+b.Max.Z) / 2
}

// HalfExtents returns the half sizes of the box per axis, floored at 1.
func (b Box) HalfExtents() (hx, hy, hz float64) {
	hx = float64(b.Max.X-b.Min.X) / 2
	hy = float64(b.Max.Y-b.Min.Y) / 2
	hz = float64(b.Max.Z-b.Min.Z) / 2
	if hx < 1 {
		hx = 1
	}
	if hy < 1 {
		hy = 1
	}
	if hz < 1 {
		hz = 1
	}
	return hx, hy, hz
}

// ROIMode selects how a region of interest constrains the growth.
type ROIMode int

const (
	// ROIHard restricts the solver domain to the box exactly; candidates
	// outside it are unreachable.
	ROIHard ROIMode = iota

	// ROIGuide keeps voxels outside the box reachable but costlier, with a
	// tighter acceptance band, over a margin around the box.
	ROIGuide
)

// ROI is a region-of-interest prior for the 3D grower.
type ROI struct {
	Box Box

	// Mode selects hard clamping or guided growth.
	Mode ROIMode

	// OutsideToleranceScale in [0,1] shrinks the acceptance band for voxels
	// outside the box in guide mode. 1 keeps the full band, 0 closes it.
	OutsideToleranceScale float64
}
