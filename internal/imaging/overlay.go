package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/region-tools-mcp/internal/regions"
)

// DefaultOverlayAlpha is the fill opacity used when OverlayOptions.Alpha is zero.
const DefaultOverlayAlpha = 0.5

// goldenAngle spaces successive region hues as far apart as possible.
const goldenAngle = 137.50776405003785

// OverlayOptions controls RenderOverlay.
type OverlayOptions struct {
	// ROI crops the output. The zero rectangle keeps the whole image.
	ROI image.Rectangle

	// Alpha is the fill opacity in (0, 1].
	Alpha float64

	// Scale resizes the output when positive and not 1.
	Scale float64

	// Outline draws each region's contour in its opaque colour.
	Outline bool

	// Labels draws each region's index at its centroid.
	Labels bool
}

// OverlayResult contains the rendered overlay.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Regions     int    `json:"regions"`
}

// RegionColor returns the overlay colour of the region with the given index.
// Colours are deterministic and neighbouring indices differ strongly in hue.
func RegionColor(index int) colorful.Color {
	h := math.Mod(float64(index)*goldenAngle, 360)
	return colorful.Hcl(h, 0.7, 0.65).Clamped()
}

// DrawOverlay paints regions onto a copy of img. Region coordinates are
// relative to img's top-left corner, as produced by ExtractChannel.
func DrawOverlay[S regions.Sample](img image.Image, regs []*regions.Region[S], opts OverlayOptions) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	alpha := opts.Alpha
	if alpha == 0 {
		alpha = DefaultOverlayAlpha
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("overlay alpha must be in (0, 1], got %g", alpha)
	}

	out := imaging.Clone(img)
	for _, r := range regs {
		c := RegionColor(r.Index())
		for _, l := range r.ScanLines() {
			for x := l.X0; x < l.X1; x++ {
				blendPixel(out, x, l.Y, c, alpha)
			}
		}
		if opts.Outline {
			solid := toNRGBA(c)
			for _, p := range r.Contour() {
				out.SetNRGBA(p.X, p.Y, solid)
			}
		}
	}
	if opts.Labels {
		for _, r := range regs {
			drawIndexLabel(out, r)
		}
	}

	if !opts.ROI.Empty() {
		if !opts.ROI.In(out.Bounds()) {
			return nil, fmt.Errorf("overlay roi %v outside image bounds %v", opts.ROI, out.Bounds())
		}
		out = imaging.Crop(out, opts.ROI)
	}
	if opts.Scale > 0 && opts.Scale != 1 {
		w := int(float64(out.Bounds().Dx()) * opts.Scale)
		h := int(float64(out.Bounds().Dy()) * opts.Scale)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("overlay scale %g leaves an empty image", opts.Scale)
		}
		out = imaging.Resize(out, w, h, imaging.NearestNeighbor)
	}
	return out, nil
}

// RenderOverlay draws regions onto img and returns the result as a base64 PNG.
func RenderOverlay[S regions.Sample](img image.Image, regs []*regions.Region[S], opts OverlayOptions) (*OverlayResult, error) {
	out, err := DrawOverlay(img, regs, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Regions:     len(regs),
	}, nil
}

// SaveOverlay writes an overlay image to path; the format follows the extension.
func SaveOverlay(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}

func blendPixel(img *image.NRGBA, x, y int, c colorful.Color, alpha float64) {
	if !(image.Point{X: x, Y: y}.In(img.Rect)) {
		return
	}
	base, ok := colorful.MakeColor(img.NRGBAAt(x, y))
	if !ok {
		base = colorful.Color{}
	}
	img.SetNRGBA(x, y, toNRGBA(base.BlendRgb(c, alpha).Clamped()))
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func drawIndexLabel[S regions.Sample](img *image.NRGBA, r *regions.Region[S]) {
	label := strconv.Itoa(r.Index())
	face := basicfont.Face7x13
	cx, cy := r.Centroid()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	width := d.MeasureString(label).Round()
	d.Dot = fixed.P(int(cx)-width/2, int(cy)+face.Ascent/2)
	d.DrawString(label)
}
