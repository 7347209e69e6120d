package imaging

import (
	"fmt"
	"image"
)

// ROINames lists the names accepted by NamedROI.
var ROINames = []string{
	"full", "top-left", "top-right", "bottom-left", "bottom-right",
	"top-half", "bottom-half", "left-half", "right-half", "center",
}

// ParseROI turns [x1, y1, x2, y2] into a rectangle and checks it against
// bounds. (x1,y1) is inclusive, (x2,y2) exclusive. An empty slice selects
// the whole of bounds.
func ParseROI(coords []int, bounds image.Rectangle) (image.Rectangle, error) {
	if len(coords) == 0 {
		return bounds, nil
	}
	if len(coords) != 4 {
		return image.Rectangle{}, fmt.Errorf("roi needs 4 values [x1, y1, x2, y2], got %d", len(coords))
	}
	x1, y1, x2, y2 := coords[0], coords[1], coords[2], coords[3]

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return image.Rectangle{}, fmt.Errorf("roi (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return image.Rectangle{}, fmt.Errorf("invalid roi: x1 must be < x2, y1 must be < y2")
	}
	return image.Rect(x1, y1, x2, y2), nil
}

// NamedROI returns a named part of bounds.
func NamedROI(bounds image.Rectangle, name string) (image.Rectangle, error) {
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	var x1, y1, x2, y2 int

	switch name {
	case "", "full":
		x1, y1, x2, y2 = 0, 0, w, h
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, w, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, h
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, w, h
	case "top-half":
		x1, y1, x2, y2 = 0, 0, w, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, w, h
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, h
	case "right-half":
		x1, y1, x2, y2 = midX, 0, w, h
	case "center":
		// Center 50% of the image
		qW := w / 4
		qH := h / 4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	default:
		return image.Rectangle{}, fmt.Errorf("unknown roi name: %s", name)
	}

	r := image.Rect(x1, y1, x2, y2).Add(bounds.Min)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("roi %q is empty for a %dx%d image", name, w, h)
	}
	return r, nil
}

// ResolveROI applies explicit coordinates if given, otherwise a name.
func ResolveROI(coords []int, name string, bounds image.Rectangle) (image.Rectangle, error) {
	if len(coords) > 0 {
		if name != "" {
			return image.Rectangle{}, fmt.Errorf("roi and roi_name are mutually exclusive")
		}
		return ParseROI(coords, bounds)
	}
	return NamedROI(bounds, name)
}
