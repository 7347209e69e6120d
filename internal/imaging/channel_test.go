package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// quadrantImage paints red, green, blue and white quadrants.
func quadrantImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c color.NRGBA
			switch {
			case x < w/2 && y < h/2:
				c = color.NRGBA{255, 0, 0, 255}
			case y < h/2:
				c = color.NRGBA{0, 255, 0, 255}
			case x < w/2:
				c = color.NRGBA{0, 0, 255, 255}
			default:
				c = color.NRGBA{255, 255, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func corners(t *testing.T, img image.Image, spec ChannelSpec) []uint8 {
	t.Helper()
	p, err := ExtractChannel(img, spec)
	if err != nil {
		t.Fatalf("ExtractChannel(%+v) failed: %v", spec, err)
	}
	b := p.Bounds()
	return []uint8{
		p.At(0, 0), p.At(b.Max.X-1, 0),
		p.At(0, b.Max.Y-1), p.At(b.Max.X-1, b.Max.Y-1),
	}
}

func TestExtractChannel_RGBA(t *testing.T) {
	img := quadrantImage(8, 8)

	tests := []struct {
		mode ChannelMode
		want []uint8
	}{
		{ChannelRed, []uint8{255, 0, 0, 255}},
		{ChannelGreen, []uint8{0, 255, 0, 255}},
		{ChannelBlue, []uint8{0, 0, 255, 255}},
		{ChannelAlpha, []uint8{255, 255, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got := corners(t, img, ChannelSpec{Mode: tt.mode})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("corner samples mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractChannel_Hue(t *testing.T) {
	img := quadrantImage(8, 8)

	got := corners(t, img, ChannelSpec{Mode: ChannelHue})
	// red 0°, green 120°, blue 240° in 30° bins; white is achromatic
	want := []uint8{0, 4, 8, DefaultHueBins}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hue bins mismatch (-want +got):\n%s", diff)
	}

	got = corners(t, img, ChannelSpec{Mode: ChannelHue, HueBins: 3})
	want = []uint8{0, 1, 2, 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("3 hue bins mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractChannel_Palette(t *testing.T) {
	img := quadrantImage(8, 8)
	img.SetNRGBA(7, 7, color.NRGBA{})

	spec := ChannelSpec{
		Mode:    ChannelPalette,
		Palette: []string{"#ffffff", "#e01010", "#1010e0", "#10e010"},
	}
	got := corners(t, img, spec)
	want := []uint8{1, 3, 2, 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("palette indices mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractChannel_GrayAndThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(img.Pix, []uint8{0, 100, 200, 255})

	gray, err := ExtractChannel(img, ChannelSpec{})
	if err != nil {
		t.Fatalf("ExtractChannel gray failed: %v", err)
	}
	if gray.At(0, 0) != 0 {
		t.Errorf("black pixel: got %d, want 0", gray.At(0, 0))
	}
	for x := 1; x < 4; x++ {
		if gray.At(x, 0) <= gray.At(x-1, 0) {
			t.Errorf("gray not increasing at x=%d: %d <= %d", x, gray.At(x, 0), gray.At(x-1, 0))
		}
	}

	bin, err := ExtractChannel(img, ChannelSpec{Mode: ChannelThreshold, Threshold: 150})
	if err != nil {
		t.Fatalf("ExtractChannel threshold failed: %v", err)
	}
	if diff := cmp.Diff([]uint8{0, 0, 1, 1}, bin.Pix); diff != "" {
		t.Errorf("threshold mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractChannel_OffsetImageIsRebased(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 20, 14, 22))
	img.SetNRGBA(10, 20, color.NRGBA{R: 9, A: 255})

	p, err := ExtractChannel(img, ChannelSpec{Mode: ChannelRed})
	if err != nil {
		t.Fatalf("ExtractChannel failed: %v", err)
	}
	if p.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Errorf("bounds: got %v, want (0,0)-(4,2)", p.Bounds())
	}
	if p.At(0, 0) != 9 {
		t.Errorf("origin sample: got %d, want 9", p.At(0, 0))
	}
}

func TestExtractChannel_Blur(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 9, 9))
	img.Pix[4*9+4] = 255

	sharp, err := ExtractChannel(img, ChannelSpec{Mode: ChannelGray})
	if err != nil {
		t.Fatalf("ExtractChannel failed: %v", err)
	}
	soft, err := ExtractChannel(img, ChannelSpec{Mode: ChannelGray, BlurRadius: 2})
	if err != nil {
		t.Fatalf("ExtractChannel blurred failed: %v", err)
	}
	if soft.At(4, 4) >= sharp.At(4, 4) {
		t.Errorf("blur should spread the bright pixel: centre %d -> %d", sharp.At(4, 4), soft.At(4, 4))
	}
	if soft.At(3, 4) == 0 {
		t.Error("blur should brighten the neighbours")
	}
}

func TestChannelSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    ChannelSpec
		wantErr bool
	}{
		{"default", ChannelSpec{}, false},
		{"threshold", ChannelSpec{Mode: ChannelThreshold, Threshold: 10}, false},
		{"unknown mode", ChannelSpec{Mode: "sepia"}, true},
		{"too many hue bins", ChannelSpec{Mode: ChannelHue, HueBins: 255}, true},
		{"negative hue bins", ChannelSpec{Mode: ChannelHue, HueBins: -1}, true},
		{"empty palette", ChannelSpec{Mode: ChannelPalette}, true},
		{"negative blur", ChannelSpec{BlurRadius: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got err=%v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractChannel_Errors(t *testing.T) {
	if _, err := ExtractChannel(nil, ChannelSpec{}); err == nil {
		t.Error("nil image should fail")
	}
	img := quadrantImage(2, 2)
	if _, err := ExtractChannel(img, ChannelSpec{Mode: ChannelPalette, Palette: []string{"nope"}}); err == nil {
		t.Error("bad palette colour should fail")
	}
}
