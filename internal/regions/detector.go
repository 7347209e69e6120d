package regions

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
)

// ErrInvalidInput is returned by Detect when the image or ROI cannot be scanned.
// The detector's state is left untouched in that case.
var ErrInvalidInput = errors.New("invalid input")

// Restrictions bound the regions Detect reports.
//
// A region is kept when MinSize <= size <= MaxSize and, if ValueBounded is
// set, MinValue <= value <= MaxValue. Regions outside the bounds are dropped
// silently.
type Restrictions[S Sample] struct {
	MinSize      int
	MaxSize      int
	MinValue     S
	MaxValue     S
	ValueBounded bool
}

// DefaultRestrictions admit every region.
func DefaultRestrictions[S Sample]() Restrictions[S] {
	return Restrictions[S]{MinSize: 1, MaxSize: math.MaxInt}
}

// Validate reports inverted or negative bounds.
func (r Restrictions[S]) Validate() error {
	if r.MinSize < 0 || r.MaxSize < 0 {
		return fmt.Errorf("size bounds must be non-negative: [%d, %d]", r.MinSize, r.MaxSize)
	}
	if r.MinSize > r.MaxSize {
		return fmt.Errorf("min size %d exceeds max size %d", r.MinSize, r.MaxSize)
	}
	if r.ValueBounded && r.MinValue > r.MaxValue {
		return fmt.Errorf("min value %v exceeds max value %v", r.MinValue, r.MaxValue)
	}
	return nil
}

// Admits reports whether a region of the given size and value passes.
func (r Restrictions[S]) Admits(size int, value S) bool {
	if size < r.MinSize || size > r.MaxSize {
		return false
	}
	if r.ValueBounded && !inRange(value, r.MinValue, r.MaxValue) {
		return false
	}
	return true
}

// Stats describes the most recent sweep.
type Stats struct {
	Rows     int `json:"rows" yaml:"rows"`
	Pixels   int `json:"pixels" yaml:"pixels"`
	Parts    int `json:"parts" yaml:"parts"`
	Merges   int `json:"merges" yaml:"merges"`
	Regions  int `json:"regions" yaml:"regions"`
	Filtered int `json:"filtered" yaml:"filtered"`
}

// Detector labels connected regions of a raster.
//
// The zero value is not usable; create detectors with NewDetector. A
// Detector keeps its part arena and line-index map between calls, so it
// must not be used from more than one goroutine at a time.
type Detector[S Sample] struct {
	cmp          Comparator[S]
	restrictions Restrictions[S]

	arena      partArena[S]
	lim        lineIndexMap
	generation uint64
	stats      Stats
}

// NewDetector creates a detector that groups pixels with cmp.
// A nil comparator groups equal samples.
func NewDetector[S Sample](cmp Comparator[S]) *Detector[S] {
	if cmp == nil {
		cmp = Exact[S]{}
	}
	return &Detector[S]{
		cmp:          cmp,
		restrictions: DefaultRestrictions[S](),
	}
}

// SetRestrictions stores size and value bounds for subsequent Detect calls.
func (d *Detector[S]) SetRestrictions(minSize, maxSize int, minVal, maxVal S) {
	d.restrictions = Restrictions[S]{
		MinSize:      minSize,
		MaxSize:      maxSize,
		MinValue:     minVal,
		MaxValue:     maxVal,
		ValueBounded: true,
	}
}

// SetSizeRange changes only the size bounds.
func (d *Detector[S]) SetSizeRange(minSize, maxSize int) {
	d.restrictions.MinSize = minSize
	d.restrictions.MaxSize = maxSize
}

// SetValueRange changes only the value bounds.
func (d *Detector[S]) SetValueRange(minVal, maxVal S) {
	d.restrictions.MinValue = minVal
	d.restrictions.MaxValue = maxVal
	d.restrictions.ValueBounded = true
}

// ClearValueRange removes the value bounds.
func (d *Detector[S]) ClearValueRange() {
	var zero S
	d.restrictions.MinValue, d.restrictions.MaxValue = zero, zero
	d.restrictions.ValueBounded = false
}

// SetRestrictionsFrom replaces all bounds at once.
func (d *Detector[S]) SetRestrictionsFrom(r Restrictions[S]) {
	d.restrictions = r
}

// Restrictions returns the current bounds.
func (d *Detector[S]) Restrictions() Restrictions[S] {
	return d.restrictions
}

// Comparator returns the matching predicate.
func (d *Detector[S]) Comparator() Comparator[S] {
	return d.cmp
}

// Stats returns counters from the most recent successful Detect call.
func (d *Detector[S]) Stats() Stats {
	return d.stats
}

// DetectAll scans the whole image.
func (d *Detector[S]) DetectAll(img Raster[S]) ([]*Region[S], error) {
	if isNilRaster(img) {
		return nil, fmt.Errorf("%w: image is nil", ErrInvalidInput)
	}
	return d.Detect(img, img.Bounds())
}

// Detect finds the connected regions of img inside roi.
//
// Parameters:
//   - img: Single-channel raster to scan.
//   - roi: Rectangle to scan, in image coordinates. It must be non-empty and
//     lie entirely inside img.Bounds().
//
// Returns:
//   - []*Region[S]: Regions passing the restrictions, in raster-discovery
//     order. They stay valid until the next Detect call on d.
//   - error: ErrInvalidInput (wrapped) for a nil image, an image with more
//     than one channel, an empty or out-of-bounds ROI, or an ROI of more
//     than math.MaxInt32 pixels.
//
// # Algorithm
//
// Rows are scanned top to bottom. A pixel that matches its left neighbour
// extends the current run; otherwise the run is closed into its part and a
// new run begins. When a pixel also matches the pixel above, the run's part
// and the part owning the pixel above are the same component: if they
// differ, the younger one is absorbed into the older one and the cells
// already written for the current run are re-pointed. Older rows keep
// whatever index they were written with and are resolved to the surviving
// part when read. Runtime is linear in the ROI area.
func (d *Detector[S]) Detect(img Raster[S], roi image.Rectangle) ([]*Region[S], error) {
	if err := validateInput(img, roi); err != nil {
		return nil, err
	}

	d.generation++
	d.arena.reset()
	d.lim.reset(roi.Dx(), roi.Dy())
	d.stats = Stats{Rows: roi.Dy(), Pixels: roi.Dx() * roi.Dy()}

	d.sweep(img, roi)
	return d.collect(img), nil
}

func validateInput[S Sample](img Raster[S], roi image.Rectangle) error {
	if isNilRaster(img) {
		return fmt.Errorf("%w: image is nil", ErrInvalidInput)
	}
	if n := img.Channels(); n != 1 {
		return fmt.Errorf("%w: image has %d channels, want 1", ErrInvalidInput, n)
	}
	if roi.Empty() {
		return fmt.Errorf("%w: ROI %v has zero area", ErrInvalidInput, roi)
	}
	if b := img.Bounds(); !roi.In(b) {
		return fmt.Errorf("%w: ROI %v outside image bounds %v", ErrInvalidInput, roi, b)
	}
	// part indices are int32 and every pixel may start a part
	if w, h := int64(roi.Dx()), int64(roi.Dy()); w*h > math.MaxInt32 {
		return fmt.Errorf("%w: ROI %v has %d pixels, at most %d are supported", ErrInvalidInput, roi, w*h, math.MaxInt32)
	}
	return nil
}

func isNilRaster[S Sample](img Raster[S]) bool {
	if img == nil {
		return true
	}
	if p, ok := img.(*Plane[S]); ok && p == nil {
		return true
	}
	return false
}

// sweep builds the arena and line-index map for roi.
func (d *Detector[S]) sweep(img Raster[S], roi image.Rectangle) {
	w, h := roi.Dx(), roi.Dy()
	ox, oy := roi.Min.X, roi.Min.Y

	for y := 0; y < h; y++ {
		iy := oy + y
		cur := noPart
		runStart := 0
		var runValue, left S

		for x := 0; x < w; x++ {
			v := img.At(ox+x, iy)

			if x == 0 || !d.cmp.Match(left, v) {
				if x > 0 {
					d.closeRun(cur, ox+runStart, ox+x, iy, runValue)
				}
				runStart, runValue, cur = x, v, noPart
			}

			if y > 0 && d.cmp.Match(img.At(ox+x, iy-1), v) {
				above := d.arena.find(d.lim.get(x, y-1))
				switch {
				case cur == noPart:
					cur = above
				case above != cur:
					root := d.arena.union(cur, above)
					if root != cur {
						d.lim.replaceInRange(runStart, x, y, cur, root)
						cur = root
					}
				}
			}

			if cur == noPart {
				cur = d.arena.alloc()
			}
			d.lim.set(x, y, cur)
			left = v
		}

		d.closeRun(cur, ox+runStart, ox+w, iy, runValue)
	}

	d.stats.Parts = int(d.arena.used)
	d.stats.Merges = d.arena.merges
}

// closeRun emits [x0, x1) on row y into part.
func (d *Detector[S]) closeRun(part int32, x0, x1, y int, value S) {
	d.arena.part(part).add(ScanLine[S]{X0: x0, Y: y, X1: x1, Value: value})
}

// collect wraps every surviving part that passes the restrictions.
func (d *Detector[S]) collect(img Raster[S]) []*Region[S] {
	out := make([]*Region[S], 0)
	for i := int32(0); i < d.arena.used; i++ {
		p := d.arena.part(i)
		if !p.active() || len(p.lines) == 0 {
			continue
		}

		size := 0
		first := p.lines[0]
		for _, s := range p.lines {
			size += s.Len()
			if lessScanLine(s, first) {
				first = s
			}
		}
		value := img.At(first.X0, first.Y)

		if !d.restrictions.Admits(size, value) {
			d.stats.Filtered++
			continue
		}

		lines := p.lines
		sort.Slice(lines, func(a, b int) bool { return lessScanLine(lines[a], lines[b]) })

		out = append(out, &Region[S]{
			lines:  lines,
			source: img,
			size:   size,
			value:  value,
			index:  len(out),
			gen:    d.generation,
			owner:  d,
		})
	}
	d.stats.Regions = len(out)
	return out
}
