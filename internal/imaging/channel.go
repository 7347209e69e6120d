package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/region-tools-mcp/internal/regions"
)

// ChannelMode selects how an image is reduced to one sample per pixel.
type ChannelMode string

const (
	ChannelGray      ChannelMode = "gray"
	ChannelThreshold ChannelMode = "threshold"
	ChannelRed       ChannelMode = "red"
	ChannelGreen     ChannelMode = "green"
	ChannelBlue      ChannelMode = "blue"
	ChannelAlpha     ChannelMode = "alpha"
	ChannelHue       ChannelMode = "hue"
	ChannelPalette   ChannelMode = "palette"
)

// ChannelModes lists every supported mode in display order.
var ChannelModes = []ChannelMode{
	ChannelGray, ChannelThreshold, ChannelRed, ChannelGreen,
	ChannelBlue, ChannelAlpha, ChannelHue, ChannelPalette,
}

const (
	// DefaultThreshold is used when ChannelSpec.Threshold is zero.
	DefaultThreshold = 128
	// DefaultHueBins is used when ChannelSpec.HueBins is zero.
	DefaultHueBins = 12
	// achromaticSaturation is the HSV saturation below which a pixel has no hue.
	achromaticSaturation = 0.1
)

// ChannelSpec describes how to turn a colour image into a labelable plane.
type ChannelSpec struct {
	// Mode defaults to gray.
	Mode ChannelMode `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Threshold is the luminance cut for threshold mode. Pixels at or above
	// it become 1, the rest 0.
	Threshold uint8 `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// BlurRadius applies a Gaussian blur before extraction when positive.
	BlurRadius float64 `json:"blur_radius,omitempty" yaml:"blur_radius,omitempty"`

	// HueBins splits the hue circle into equal sectors numbered from 0.
	// Achromatic and transparent pixels get the value HueBins.
	HueBins int `json:"hue_bins,omitempty" yaml:"hue_bins,omitempty"`

	// Palette holds "#RRGGBB" colours. Each pixel maps to the index of the
	// nearest entry by CIE Lab distance; transparent pixels get len(Palette).
	Palette []string `json:"palette,omitempty" yaml:"palette,omitempty"`
}

// Validate reports the first problem with the spec.
func (s ChannelSpec) Validate() error {
	switch s.mode() {
	case ChannelGray, ChannelThreshold, ChannelRed, ChannelGreen, ChannelBlue, ChannelAlpha:
	case ChannelHue:
		if s.HueBins < 0 || s.HueBins > math.MaxUint8-1 {
			return fmt.Errorf("hue_bins must be between 1 and %d, got %d", math.MaxUint8-1, s.HueBins)
		}
	case ChannelPalette:
		if len(s.Palette) == 0 {
			return fmt.Errorf("palette mode needs at least one colour")
		}
		if len(s.Palette) > math.MaxUint8 {
			return fmt.Errorf("palette has %d colours, at most %d allowed", len(s.Palette), math.MaxUint8)
		}
	default:
		return fmt.Errorf("unknown channel mode %q", s.Mode)
	}
	if s.BlurRadius < 0 {
		return fmt.Errorf("blur_radius must not be negative")
	}
	return nil
}

func (s ChannelSpec) mode() ChannelMode {
	if s.Mode == "" {
		return ChannelGray
	}
	return s.Mode
}

// ExtractChannel reduces img to a single-channel 8-bit plane anchored at the
// origin, whatever the image's own bounds.
func ExtractChannel(img image.Image, spec ChannelSpec) (*regions.Plane[uint8], error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	src := img
	if spec.BlurRadius > 0 {
		src = blur.Gaussian(src, spec.BlurRadius)
	}

	switch spec.mode() {
	case ChannelGray:
		return planeFromGray(effect.Grayscale(src)), nil

	case ChannelThreshold:
		level := spec.Threshold
		if level == 0 {
			level = DefaultThreshold
		}
		p := planeFromGray(segment.Threshold(src, level))
		for i, v := range p.Pix {
			if v != 0 {
				p.Pix[i] = 1
			}
		}
		return p, nil

	case ChannelRed:
		return mapNRGBA(src, func(c color.NRGBA) uint8 { return c.R }), nil
	case ChannelGreen:
		return mapNRGBA(src, func(c color.NRGBA) uint8 { return c.G }), nil
	case ChannelBlue:
		return mapNRGBA(src, func(c color.NRGBA) uint8 { return c.B }), nil
	case ChannelAlpha:
		return mapNRGBA(src, func(c color.NRGBA) uint8 { return c.A }), nil

	case ChannelHue:
		bins := spec.HueBins
		if bins == 0 {
			bins = DefaultHueBins
		}
		return mapNRGBA(src, func(c color.NRGBA) uint8 { return hueBin(c, bins) }), nil

	case ChannelPalette:
		pal, err := ParsePalette(spec.Palette)
		if err != nil {
			return nil, err
		}
		memo := make(map[color.NRGBA]uint8)
		return mapNRGBA(src, func(c color.NRGBA) uint8 {
			if v, ok := memo[c]; ok {
				return v
			}
			v := nearestPaletteIndex(c, pal)
			memo[c] = v
			return v
		}), nil
	}
	return nil, fmt.Errorf("unknown channel mode %q", spec.Mode)
}

// ParsePalette decodes "#RRGGBB" strings.
func ParsePalette(hexes []string) ([]colorful.Color, error) {
	out := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func hueBin(c color.NRGBA, bins int) uint8 {
	col, ok := colorful.MakeColor(c)
	if !ok {
		return uint8(bins)
	}
	h, s, _ := col.Hsv()
	if s < achromaticSaturation {
		return uint8(bins)
	}
	b := int(h * float64(bins) / 360)
	if b >= bins {
		b = bins - 1
	}
	return uint8(b)
}

func nearestPaletteIndex(c color.NRGBA, pal []colorful.Color) uint8 {
	col, ok := colorful.MakeColor(c)
	if !ok {
		return uint8(len(pal))
	}
	best, bestDist := 0, math.Inf(1)
	for i, p := range pal {
		if d := col.DistanceLab(p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}

// planeFromGray copies a gray image into an origin-anchored plane.
func planeFromGray(g *image.Gray) *regions.Plane[uint8] {
	b := g.Bounds()
	p := regions.NewPlane[uint8](image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(p.Pix[y*p.Stride:(y+1)*p.Stride], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return p
}

// mapNRGBA applies f to every non-premultiplied pixel.
func mapNRGBA(img image.Image, f func(color.NRGBA) uint8) *regions.Plane[uint8] {
	n := imaging.Clone(img)
	b := n.Bounds()
	p := regions.NewPlane[uint8](image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < b.Dx(); x++ {
			i := x * 4
			p.Pix[y*p.Stride+x] = f(color.NRGBA{R: row[i], G: row[i+1], B: row[i+2], A: row[i+3]})
		}
	}
	return p
}
