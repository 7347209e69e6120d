package detection

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/region-tools-mcp/internal/imaging"
	"github.com/ironsheep/region-tools-mcp/internal/regions"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// fillRect paints [x1,x2) x [y1,y2).
func fillRect(img *image.NRGBA, x1, y1, x2, y2 int, c color.Color) {
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			img.Set(x, y, c)
		}
	}
}

// twoBoxes is a black 10x6 image with white boxes at (1,1)-(4,3) and (6,3)-(9,5).
func twoBoxes() *image.NRGBA {
	img := createTestImage(10, 6, color.Black)
	fillRect(img, 1, 1, 4, 3, color.White)
	fillRect(img, 6, 3, 9, 5, color.White)
	return img
}

var thresholdOnly = imaging.ChannelSpec{Mode: imaging.ChannelThreshold}

func TestDetectRegions_ValueRange(t *testing.T) {
	result, err := DetectRegions(twoBoxes(), Options{
		Channel:  thresholdOnly,
		MinValue: IntPtr(1),
		MaxValue: IntPtr(1),
	})
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}

	if result.Count != 2 || len(result.Regions) != 2 {
		t.Fatalf("Count: got %d (%d regions), want 2", result.Count, len(result.Regions))
	}
	if result.Width != 10 || result.Height != 6 {
		t.Errorf("dimensions: got %dx%d, want 10x6", result.Width, result.Height)
	}
	if result.Channel != "threshold" {
		t.Errorf("Channel: got %s, want threshold", result.Channel)
	}
	if result.ROI != (Bounds{0, 0, 10, 6}) {
		t.Errorf("ROI: got %+v, want full image", result.ROI)
	}

	want := []Bounds{{1, 1, 4, 3}, {6, 3, 9, 5}}
	for i, r := range result.Regions {
		if r.Bounds != want[i] {
			t.Errorf("region %d bounds: got %+v, want %+v", i, r.Bounds, want[i])
		}
		if r.Size != 6 || r.Value != 1 || r.Perimeter != 10 || r.Holes != 0 {
			t.Errorf("region %d: got size %d value %d perimeter %d holes %d", i, r.Size, r.Value, r.Perimeter, r.Holes)
		}
		if r.ScanLines != nil || r.Contour != nil {
			t.Errorf("region %d: scanlines and contour should be omitted by default", i)
		}
	}
	if c := result.Regions[0].Centroid; c != (Centroid{X: 2.5, Y: 2}) {
		t.Errorf("centroid: got %+v, want (2.5, 2)", c)
	}
	if result.Stats.Regions != 2 || result.Stats.Filtered != 1 {
		t.Errorf("Stats: got %+v, want 2 regions and 1 filtered", result.Stats)
	}
}

func TestDetectRegions_AllRegionsInDiscoveryOrder(t *testing.T) {
	result, err := DetectRegions(twoBoxes(), Options{Channel: thresholdOnly})
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}

	var got [][2]int
	for _, r := range result.Regions {
		got = append(got, [2]int{r.Size, r.Value})
	}
	want := [][2]int{{48, 0}, {6, 1}, {6, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
	for i, r := range result.Regions {
		if r.Index != i {
			t.Errorf("region %d has Index %d", i, r.Index)
		}
	}
	if result.Regions[0].Holes != 2 {
		t.Errorf("background holes: got %d, want 2", result.Regions[0].Holes)
	}
}

func TestDetectRegions_SizeFilter(t *testing.T) {
	result, err := DetectRegions(twoBoxes(), Options{Channel: thresholdOnly, MinSize: 10})
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}
	if result.Count != 1 || result.Regions[0].Size != 48 {
		t.Errorf("MinSize 10: got %+v", result.Regions)
	}

	result, err = DetectRegions(twoBoxes(), Options{Channel: thresholdOnly, MaxSize: 10})
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}
	if result.Count != 2 {
		t.Errorf("MaxSize 10: got %d regions, want 2", result.Count)
	}
}

func TestDetectRegions_ROI(t *testing.T) {
	result, err := DetectRegions(twoBoxes(), Options{
		Channel:          thresholdOnly,
		ROI:              image.Rect(5, 2, 10, 6),
		IncludeScanLines: true,
	})
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}

	if result.ROI != (Bounds{5, 2, 10, 6}) {
		t.Errorf("ROI: got %+v", result.ROI)
	}
	if result.Count != 2 {
		t.Fatalf("Count: got %d, want 2", result.Count)
	}
	if r := result.Regions[0]; r.Size != 14 || r.Value != 0 {
		t.Errorf("background in roi: got size %d value %d, want 14/0", r.Size, r.Value)
	}
	want := []Run{{X0: 6, X1: 9, Y: 3}, {X0: 6, X1: 9, Y: 4}}
	if diff := cmp.Diff(want, result.Regions[1].ScanLines); diff != "" {
		t.Errorf("scanlines mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectRegions_ROIOutsideImage(t *testing.T) {
	_, err := DetectRegions(twoBoxes(), Options{Channel: thresholdOnly, ROI: image.Rect(5, 2, 11, 6)})
	if !errors.Is(err, regions.ErrInvalidInput) {
		t.Errorf("got err %v, want ErrInvalidInput", err)
	}
}

func TestDetectRegions_Contour(t *testing.T) {
	result, err := DetectRegions(twoBoxes(), Options{
		Channel:        thresholdOnly,
		MinValue:       IntPtr(1),
		IncludeContour: true,
	})
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}
	want := []Point{{1, 1}, {2, 1}, {3, 1}, {3, 2}, {2, 2}, {1, 2}}
	if diff := cmp.Diff(want, result.Regions[0].Contour); diff != "" {
		t.Errorf("contour mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectRegions_Quantize(t *testing.T) {
	img := createTestImage(4, 1, color.Black)
	for x, v := range []uint8{0, 10, 20, 30} {
		img.SetNRGBA(x, 0, color.NRGBA{R: v, A: 255})
	}

	exact, err := DetectRegions(img, Options{Channel: imaging.ChannelSpec{Mode: imaging.ChannelRed}})
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}
	if exact.Count != 4 {
		t.Errorf("exact: got %d regions, want 4", exact.Count)
	}

	banded, err := DetectRegions(img, Options{Channel: imaging.ChannelSpec{Mode: imaging.ChannelRed}, Quantize: 16})
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}
	var sizes []int
	for _, r := range banded.Regions {
		sizes = append(sizes, r.Size)
	}
	if diff := cmp.Diff([]int{2, 2}, sizes); diff != "" {
		t.Errorf("quantized sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_ReusesDetectors(t *testing.T) {
	r := NewRunner()
	opts := Options{Channel: thresholdOnly, IncludeScanLines: true}

	first, err := r.Detect(twoBoxes(), opts)
	if err != nil {
		t.Fatalf("first Detect failed: %v", err)
	}
	second, err := r.Detect(twoBoxes(), opts)
	if err != nil {
		t.Fatalf("second Detect failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated Detect differs (-first +second):\n%s", diff)
	}
	if len(r.detectors) != 1 {
		t.Errorf("detectors: got %d, want 1", len(r.detectors))
	}

	if _, err := r.Detect(twoBoxes(), Options{Channel: thresholdOnly, Quantize: 4}); err != nil {
		t.Fatalf("quantized Detect failed: %v", err)
	}
	if len(r.detectors) != 2 {
		t.Errorf("detectors after quantized run: got %d, want 2", len(r.detectors))
	}
}

func TestRunner_Regions(t *testing.T) {
	r := NewRunner()
	plane, regs, stats, err := r.Regions(twoBoxes(), Options{Channel: thresholdOnly})
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if plane.Bounds() != image.Rect(0, 0, 10, 6) {
		t.Errorf("plane bounds: got %v", plane.Bounds())
	}
	if len(regs) != 3 || stats.Regions != 3 {
		t.Errorf("got %d regions, stats %+v", len(regs), stats)
	}
	if !regs[1].Contains(2, 2) {
		t.Error("region 1 should contain (2,2)")
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"zero", Options{}, false},
		{"full", Options{MinSize: 2, MaxSize: 9, MinValue: IntPtr(3), MaxValue: IntPtr(200), Quantize: 8}, false},
		{"negative min size", Options{MinSize: -1}, true},
		{"inverted sizes", Options{MinSize: 10, MaxSize: 5}, true},
		{"value too large", Options{MaxValue: IntPtr(256)}, true},
		{"negative value", Options{MinValue: IntPtr(-1)}, true},
		{"inverted values", Options{MinValue: IntPtr(9), MaxValue: IntPtr(3)}, true},
		{"quantize too large", Options{Quantize: 300}, true},
		{"bad channel", Options{Channel: imaging.ChannelSpec{Mode: "infrared"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got err=%v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegionSummary_Contains(t *testing.T) {
	s := RegionSummary{
		Bounds:    Bounds{0, 0, 3, 2},
		ScanLines: []Run{{X0: 0, X1: 1, Y: 0}, {X0: 2, X1: 3, Y: 0}, {X0: 0, X1: 3, Y: 1}},
	}
	if !s.Contains(2, 0) || s.Contains(1, 0) || s.Contains(3, 1) {
		t.Error("Contains with scanlines gives wrong answers")
	}

	s.ScanLines = nil
	if !s.Contains(1, 0) {
		t.Error("Contains without scanlines should fall back to bounds")
	}
}
