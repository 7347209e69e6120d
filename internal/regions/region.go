package regions

import (
	"image"
	"image/color"
	"sort"
)

// Region is one connected component reported by Detect.
//
// Size, Value and ScanLines are fixed at detection time. Shape queries
// (Bounds, Mask, Contour, Perimeter, Holes) are computed on first use from
// the scanlines and cached on the region; a Region is therefore not safe
// for concurrent use either.
//
// A Region borrows storage from the detector that produced it and is only
// valid until that detector's next Detect call. Detach returns an
// independent copy.
type Region[S Sample] struct {
	lines  []ScanLine[S]
	source Raster[S]
	size   int
	value  S
	index  int

	gen   uint64
	owner *Detector[S]

	shape *regionShape
}

// regionShape caches lazily derived geometry.
type regionShape struct {
	bounds    image.Rectangle
	mask      *image.Alpha
	contour   []image.Point
	perimeter int
	holes     int

	haveContour   bool
	havePerimeter bool
	haveHoles     bool
}

// Size returns the number of pixels in the region.
func (r *Region[S]) Size() int { return r.size }

// Value returns the sample of the region's first pixel in raster order.
func (r *Region[S]) Value() S { return r.value }

// Index returns the region's position in the Detect result.
func (r *Region[S]) Index() int { return r.index }

// Source returns the raster the region was found in.
func (r *Region[S]) Source() Raster[S] { return r.source }

// ScanLines returns the region's runs ordered top to bottom, left to right.
// The slice must not be modified.
func (r *Region[S]) ScanLines() []ScanLine[S] { return r.lines }

// Valid reports whether the region's storage is still owned by it, i.e.
// the producing detector has not run again. Detached regions are always valid.
func (r *Region[S]) Valid() bool {
	return r.owner == nil || r.owner.generation == r.gen
}

// Detach returns a copy of the region that no longer depends on the
// detector's storage.
func (r *Region[S]) Detach() *Region[S] {
	lines := make([]ScanLine[S], len(r.lines))
	copy(lines, r.lines)
	return &Region[S]{
		lines:  lines,
		source: r.source,
		size:   r.size,
		value:  r.value,
		index:  r.index,
	}
}

// Contains reports whether pixel (x, y) belongs to the region.
func (r *Region[S]) Contains(x, y int) bool {
	i := sort.Search(len(r.lines), func(i int) bool {
		l := r.lines[i]
		return l.Y > y || (l.Y == y && l.X0 > x)
	})
	return i > 0 && r.lines[i-1].Contains(x, y)
}

// Centroid returns the mean pixel position, measured at pixel centres.
func (r *Region[S]) Centroid() (float64, float64) {
	if r.size == 0 {
		return 0, 0
	}
	var sx, sy float64
	for _, l := range r.lines {
		n := float64(l.Len())
		sx += n * (float64(l.X0+l.X1-1)/2 + 0.5)
		sy += n * (float64(l.Y) + 0.5)
	}
	return sx / float64(r.size), sy / float64(r.size)
}

// Bounds returns the smallest rectangle containing the region.
func (r *Region[S]) Bounds() image.Rectangle {
	return r.geometry().bounds
}

// Mask returns an alpha mask over Bounds with 0xFF for region pixels.
// The mask is shared by later calls and must not be modified.
func (r *Region[S]) Mask() *image.Alpha {
	g := r.geometry()
	if g.mask == nil {
		g.mask = image.NewAlpha(g.bounds)
		for _, l := range r.lines {
			for x := l.X0; x < l.X1; x++ {
				g.mask.SetAlpha(x, l.Y, color.Alpha{A: 0xFF})
			}
		}
	}
	return g.mask
}

// Perimeter returns the number of pixel edges separating the region from
// pixels outside it (including the image border).
func (r *Region[S]) Perimeter() int {
	g := r.geometry()
	if !g.havePerimeter {
		g.perimeter = crackPerimeter(r.Mask())
		g.havePerimeter = true
	}
	return g.perimeter
}

// Contour returns the outer boundary pixels in clockwise order, starting at
// the region's first pixel. Every pixel 4-adjacent to background that Holes
// would count as outside is included. Pixels where the boundary pinches
// appear more than once.
func (r *Region[S]) Contour() []image.Point {
	g := r.geometry()
	if !g.haveContour {
		if len(r.lines) > 0 {
			mask := r.Mask()
			start := image.Point{X: r.lines[0].X0, Y: r.lines[0].Y}
			g.contour = traceContour(func(x, y int) bool {
				return mask.AlphaAt(x, y).A != 0
			}, start, r.size)
		}
		g.haveContour = true
	}
	return g.contour
}

// Holes returns the number of enclosed background components. Background
// is treated as 8-connected, the dual of the region's 4-connectivity.
func (r *Region[S]) Holes() int {
	g := r.geometry()
	if !g.haveHoles {
		g.holes = countHoles(r.Mask())
		g.haveHoles = true
	}
	return g.holes
}

func (r *Region[S]) geometry() *regionShape {
	if r.shape != nil {
		return r.shape
	}
	g := &regionShape{}
	if len(r.lines) > 0 {
		b := image.Rect(r.lines[0].X0, r.lines[0].Y, r.lines[0].X1, r.lines[0].Y+1)
		for _, l := range r.lines[1:] {
			b = b.Union(image.Rect(l.X0, l.Y, l.X1, l.Y+1))
		}
		g.bounds = b
	}
	r.shape = g
	return g
}
