package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/region-tools-mcp/internal/imaging"
	"github.com/ironsheep/region-tools-mcp/internal/regions"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1" yaml:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1" yaml:"y1"` // Top edge (inclusive)
	X2 int `json:"x2" yaml:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2" yaml:"y2"` // Bottom edge (exclusive)
}

// BoundsOf converts an image rectangle.
func BoundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect converts back to an image rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x" yaml:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y" yaml:"y"` // Vertical position (0 = topmost)
}

// Centroid is the mean pixel centre of a region.
type Centroid struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Run is one horizontal run of a region: pixels [X0, X1) on row Y.
type Run struct {
	X0 int `json:"x0" yaml:"x0"`
	X1 int `json:"x1" yaml:"x1"`
	Y  int `json:"y" yaml:"y"`
}

// RegionSummary is the serialisable description of one detected region.
type RegionSummary struct {
	// Index is the region's position in discovery order.
	Index int `json:"index" yaml:"index"`

	// Size is the pixel count.
	Size int `json:"size" yaml:"size"`

	// Value is the channel sample shared by the region's first pixel.
	Value int `json:"value" yaml:"value"`

	Bounds    Bounds   `json:"bounds" yaml:"bounds"`
	Centroid  Centroid `json:"centroid" yaml:"centroid"`
	Perimeter int      `json:"perimeter" yaml:"perimeter"`
	Holes     int      `json:"holes" yaml:"holes"`

	// ScanLines is only filled when Options.IncludeScanLines is set.
	ScanLines []Run `json:"scanlines,omitempty" yaml:"scanlines,omitempty"`

	// Contour is only filled when Options.IncludeContour is set.
	Contour []Point `json:"contour,omitempty" yaml:"contour,omitempty"`
}

// Contains reports whether (x, y) lies in the region. Without scanlines the
// answer falls back to the bounding box.
func (s RegionSummary) Contains(x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(s.Bounds.Rect()) {
		return false
	}
	if len(s.ScanLines) == 0 {
		return true
	}
	for _, r := range s.ScanLines {
		if r.Y == y && x >= r.X0 && x < r.X1 {
			return true
		}
	}
	return false
}

// RegionsResult contains every region found in one image.
type RegionsResult struct {
	// Source is the image reference the regions came from, when known.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	Width   int    `json:"width" yaml:"width"`
	Height  int    `json:"height" yaml:"height"`
	ROI     Bounds `json:"roi" yaml:"roi"`
	Channel string `json:"channel" yaml:"channel"`

	// Regions are listed in raster-discovery order.
	Regions []RegionSummary `json:"regions" yaml:"regions"`

	// Count is the number of regions reported.
	Count int `json:"count" yaml:"count"`

	Stats regions.Stats `json:"stats" yaml:"stats"`
}

// Options configures region detection on a colour image.
type Options struct {
	// Channel selects how the image is reduced to one sample per pixel.
	Channel imaging.ChannelSpec `json:"channel" yaml:"channel"`

	// ROI limits the scan. The zero rectangle scans the whole image.
	ROI image.Rectangle `json:"-" yaml:"-"`

	// MinSize and MaxSize bound the pixel count. MaxSize 0 is unbounded.
	MinSize int `json:"min_size,omitempty" yaml:"min_size,omitempty"`
	MaxSize int `json:"max_size,omitempty" yaml:"max_size,omitempty"`

	// MinValue and MaxValue bound the region value when set.
	MinValue *int `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue *int `json:"max_value,omitempty" yaml:"max_value,omitempty"`

	// Quantize groups samples into buckets of this width. 0 and 1 compare
	// samples exactly.
	Quantize int `json:"quantize,omitempty" yaml:"quantize,omitempty"`

	IncludeScanLines bool `json:"include_scanlines,omitempty" yaml:"include_scanlines,omitempty"`
	IncludeContour   bool `json:"include_contour,omitempty" yaml:"include_contour,omitempty"`
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	if err := o.Channel.Validate(); err != nil {
		return err
	}
	if o.MinSize < 0 || o.MaxSize < 0 {
		return fmt.Errorf("size bounds must be non-negative")
	}
	if o.MaxSize > 0 && o.MaxSize < o.MinSize {
		return fmt.Errorf("max_size %d is below min_size %d", o.MaxSize, o.MinSize)
	}
	for _, v := range []*int{o.MinValue, o.MaxValue} {
		if v != nil && (*v < 0 || *v > math.MaxUint8) {
			return fmt.Errorf("value bounds must be between 0 and %d, got %d", math.MaxUint8, *v)
		}
	}
	lo, hi := o.valueRange()
	if lo > hi {
		return fmt.Errorf("min_value %d exceeds max_value %d", lo, hi)
	}
	if o.Quantize < 0 || o.Quantize > math.MaxUint8 {
		return fmt.Errorf("quantize must be between 0 and %d, got %d", math.MaxUint8, o.Quantize)
	}
	return nil
}

func (o Options) valueBounded() bool {
	return o.MinValue != nil || o.MaxValue != nil
}

func (o Options) valueRange() (int, int) {
	lo, hi := 0, math.MaxUint8
	if o.MinValue != nil {
		lo = *o.MinValue
	}
	if o.MaxValue != nil {
		hi = *o.MaxValue
	}
	return lo, hi
}

func (o Options) restrictions() regions.Restrictions[uint8] {
	r := regions.DefaultRestrictions[uint8]()
	if o.MinSize > 1 {
		r.MinSize = o.MinSize
	}
	if o.MaxSize > 0 {
		r.MaxSize = o.MaxSize
	}
	if o.valueBounded() {
		lo, hi := o.valueRange()
		r.MinValue, r.MaxValue, r.ValueBounded = uint8(lo), uint8(hi), true
	}
	return r
}

// IntPtr is a helper for building Options value bounds.
func IntPtr(v int) *int { return &v }

// Runner detects regions while reusing detector storage between images.
//
// A Runner is not safe for concurrent use; give each goroutine its own.
type Runner struct {
	detectors map[int]*regions.Detector[uint8]
}

// NewRunner creates an empty runner.
func NewRunner() *Runner {
	return &Runner{detectors: make(map[int]*regions.Detector[uint8])}
}

func (r *Runner) detector(step int) *regions.Detector[uint8] {
	if step <= 1 {
		step = 1
	}
	d, ok := r.detectors[step]
	if !ok {
		var cmp regions.Comparator[uint8]
		if step > 1 {
			cmp = regions.Quantized[uint8]{Step: uint8(step)}
		}
		d = regions.NewDetector(cmp)
		r.detectors[step] = d
	}
	return d
}

// Regions extracts the channel and returns the live regions together with
// the plane they were found on. The regions stay valid until the next call
// on r with the same quantize step.
func (r *Runner) Regions(img image.Image, opts Options) (*regions.Plane[uint8], []*regions.Region[uint8], regions.Stats, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, regions.Stats{}, err
	}
	plane, err := imaging.ExtractChannel(img, opts.Channel)
	if err != nil {
		return nil, nil, regions.Stats{}, fmt.Errorf("failed to extract channel: %w", err)
	}
	roi := opts.ROI
	if roi.Empty() {
		roi = plane.Bounds()
	}

	d := r.detector(opts.Quantize)
	d.SetRestrictionsFrom(opts.restrictions())
	regs, err := d.Detect(plane, roi)
	if err != nil {
		return nil, nil, regions.Stats{}, err
	}
	return plane, regs, d.Stats(), nil
}

// Detect finds the regions of img and summarises them.
//
// # Errors
//
//   - Returns error for invalid options
//   - Returns error wrapping regions.ErrInvalidInput for an ROI outside the image
func (r *Runner) Detect(img image.Image, opts Options) (*RegionsResult, error) {
	plane, regs, stats, err := r.Regions(img, opts)
	if err != nil {
		return nil, err
	}
	roi := opts.ROI
	if roi.Empty() {
		roi = plane.Bounds()
	}

	result := &RegionsResult{
		Width:   plane.Bounds().Dx(),
		Height:  plane.Bounds().Dy(),
		ROI:     BoundsOf(roi),
		Channel: channelName(opts.Channel),
		Regions: make([]RegionSummary, 0, len(regs)),
		Stats:   stats,
	}
	for _, reg := range regs {
		result.Regions = append(result.Regions, Summarize(reg, opts.IncludeScanLines, opts.IncludeContour))
	}
	result.Count = len(result.Regions)
	return result, nil
}

// DetectRegions is a one-shot convenience around a fresh Runner.
func DetectRegions(img image.Image, opts Options) (*RegionsResult, error) {
	return NewRunner().Detect(img, opts)
}

// Summarize converts a live region into its serialisable form.
func Summarize[S regions.Sample](reg *regions.Region[S], withScanLines, withContour bool) RegionSummary {
	cx, cy := reg.Centroid()
	s := RegionSummary{
		Index:     reg.Index(),
		Size:      reg.Size(),
		Value:     int(reg.Value()),
		Bounds:    BoundsOf(reg.Bounds()),
		Centroid:  Centroid{X: cx, Y: cy},
		Perimeter: reg.Perimeter(),
		Holes:     reg.Holes(),
	}
	if withScanLines {
		lines := reg.ScanLines()
		s.ScanLines = make([]Run, len(lines))
		for i, l := range lines {
			s.ScanLines[i] = Run{X0: l.X0, X1: l.X1, Y: l.Y}
		}
	}
	if withContour {
		pts := reg.Contour()
		s.Contour = make([]Point, len(pts))
		for i, p := range pts {
			s.Contour[i] = Point{X: p.X, Y: p.Y}
		}
	}
	return s
}

func channelName(spec imaging.ChannelSpec) string {
	if spec.Mode == "" {
		return string(imaging.ChannelGray)
	}
	return string(spec.Mode)
}
