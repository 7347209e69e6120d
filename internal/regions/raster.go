package regions

import (
	"fmt"
	"image"
)

// Raster is a 2D grid of samples.
//
// At takes absolute coordinates inside Bounds and returns the first channel.
// The detector only accepts rasters with exactly one channel.
type Raster[S Sample] interface {
	Bounds() image.Rectangle
	Channels() int
	At(x, y int) S
}

// Plane is a dense, row-major Raster.
//
// Pixel (x, y), channel c lives at
// Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*NumChannels + c].
type Plane[S Sample] struct {
	Pix         []S
	Stride      int
	Rect        image.Rectangle
	NumChannels int
}

// NewPlane allocates a zeroed single-channel plane covering r.
func NewPlane[S Sample](r image.Rectangle) *Plane[S] {
	return NewPlaneChannels[S](r, 1)
}

// NewPlaneChannels allocates a zeroed plane with n interleaved channels.
func NewPlaneChannels[S Sample](r image.Rectangle, n int) *Plane[S] {
	if n < 1 {
		n = 1
	}
	w, h := r.Dx(), r.Dy()
	return &Plane[S]{
		Pix:         make([]S, w*h*n),
		Stride:      w * n,
		Rect:        r,
		NumChannels: n,
	}
}

// PlaneFromRows builds a single-channel plane anchored at (0,0) from a slice
// of equally long rows.
func PlaneFromRows[S Sample](rows [][]S) (*Plane[S], error) {
	if len(rows) == 0 {
		return NewPlane[S](image.Rectangle{}), nil
	}
	w := len(rows[0])
	p := NewPlane[S](image.Rect(0, 0, w, len(rows)))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has %d samples, want %d", y, len(row), w)
		}
		copy(p.Pix[y*p.Stride:], row)
	}
	return p, nil
}

// PlaneFromGray copies an 8-bit grayscale image into a plane with the same bounds.
func PlaneFromGray(img *image.Gray) *Plane[uint8] {
	r := img.Bounds()
	p := NewPlane[uint8](r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := img.Pix[img.PixOffset(r.Min.X, y):]
		copy(p.Pix[(y-r.Min.Y)*p.Stride:(y-r.Min.Y+1)*p.Stride], src[:r.Dx()])
	}
	return p
}

// PlaneFromGray16 copies a 16-bit grayscale image into a plane with the same bounds.
func PlaneFromGray16(img *image.Gray16) *Plane[uint16] {
	r := img.Bounds()
	p := NewPlane[uint16](r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p.Set(x, y, img.Gray16At(x, y).Y)
		}
	}
	return p
}

// Bounds returns the plane's extent.
func (p *Plane[S]) Bounds() image.Rectangle { return p.Rect }

// Channels returns the number of interleaved channels.
func (p *Plane[S]) Channels() int {
	if p.NumChannels < 1 {
		return 1
	}
	return p.NumChannels
}

// At returns channel 0 at (x, y). Out-of-range coordinates yield the zero sample.
func (p *Plane[S]) At(x, y int) S {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		var zero S
		return zero
	}
	return p.Pix[p.offset(x, y)]
}

// Set writes channel 0 at (x, y). Out-of-range coordinates are ignored.
func (p *Plane[S]) Set(x, y int, v S) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	p.Pix[p.offset(x, y)] = v
}

// SetChannel writes channel c at (x, y).
func (p *Plane[S]) SetChannel(x, y, c int, v S) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) || c < 0 || c >= p.Channels() {
		return
	}
	p.Pix[p.offset(x, y)+c] = v
}

func (p *Plane[S]) offset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*p.Channels()
}
