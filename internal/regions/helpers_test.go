package regions

import (
	"image"
	"sort"
	"testing"
	"unicode/utf8"
)

// makePlane builds an int plane from ASCII rows. Digits map to their value,
// '#' to 1 and '.' to 0; any other rune maps to its code point.
func makePlane(t *testing.T, rows ...string) *Plane[int] {
	t.Helper()
	if len(rows) == 0 {
		t.Fatal("makePlane needs at least one row")
	}
	w := utf8.RuneCountInString(rows[0])
	p := NewPlane[int](image.Rect(0, 0, w, len(rows)))
	for y, row := range rows {
		if n := utf8.RuneCountInString(row); n != w {
			t.Fatalf("row %d has %d runes, want %d", y, n, w)
		}
		x := 0
		for _, ch := range row {
			var v int
			switch {
			case ch >= '0' && ch <= '9':
				v = int(ch - '0')
			case ch == '#':
				v = 1
			case ch == '.':
				v = 0
			default:
				v = int(ch)
			}
			p.Set(x, y, v)
			x++
		}
	}
	return p
}

// regionSig is a comparable summary of one region.
type regionSig struct {
	Size   int
	Value  int
	Pixels []image.Point
}

func signatures(regs []*Region[int]) []regionSig {
	out := make([]regionSig, 0, len(regs))
	for _, r := range regs {
		sig := regionSig{Size: r.Size(), Value: r.Value()}
		for _, l := range r.ScanLines() {
			for x := l.X0; x < l.X1; x++ {
				sig.Pixels = append(sig.Pixels, image.Point{X: x, Y: l.Y})
			}
		}
		out = append(out, sig)
	}
	return out
}

// floodFillRegions is a reference labelling: a 4-connected flood fill seeded
// in raster order. It yields regions in the same order Detect does.
func floodFillRegions(p *Plane[int], roi image.Rectangle, cmp Comparator[int]) []regionSig {
	w, h := roi.Dx(), roi.Dy()
	visited := make([]bool, w*h)
	var out []regionSig

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] {
				continue
			}
			sig := regionSig{Value: p.At(roi.Min.X+x, roi.Min.Y+y)}
			stack := []image.Point{{X: x, Y: y}}
			visited[y*w+x] = true
			for len(stack) > 0 {
				c := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				sig.Pixels = append(sig.Pixels, c.Add(roi.Min))
				cv := p.At(roi.Min.X+c.X, roi.Min.Y+c.Y)
				for _, d := range []image.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
					n := c.Add(d)
					if n.X < 0 || n.Y < 0 || n.X >= w || n.Y >= h || visited[n.Y*w+n.X] {
						continue
					}
					if cmp.Match(cv, p.At(roi.Min.X+n.X, roi.Min.Y+n.Y)) {
						visited[n.Y*w+n.X] = true
						stack = append(stack, n)
					}
				}
			}
			sig.Size = len(sig.Pixels)
			sortPoints(sig.Pixels)
			out = append(out, sig)
		}
	}
	return out
}

func sortPoints(pts []image.Point) {
	sort.Slice(pts, func(i, j int) bool { return pointLess(pts[i], pts[j]) })
}

func pointLess(a, b image.Point) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

func sizes(regs []*Region[int]) []int {
	out := make([]int, len(regs))
	for i, r := range regs {
		out[i] = r.Size()
	}
	return out
}

func values(regs []*Region[int]) []int {
	out := make([]int, len(regs))
	for i, r := range regs {
		out[i] = r.Value()
	}
	return out
}
