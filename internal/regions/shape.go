package regions

import "image"

// Crack directions in clockwise order (y grows downward): E, S, W, N.
var (
	crackDX = [4]int{1, 0, -1, 0}
	crackDY = [4]int{0, 1, 0, -1}
)

// traceContour follows the cracks between the region and its outer
// background, keeping the region on the right, and records the region pixel
// beside each crack. Background is 8-connected, so a pocket that reaches the
// outside only through a corner is walked into rather than stepped over.
// start must be the topmost-leftmost pixel so that its north neighbour is
// outside. Tracing stops when the walk is back on start's top edge heading
// east.
func traceContour(inside func(x, y int) bool, start image.Point, area int) []image.Point {
	pts := []image.Point{start}
	p, d := start, 0
	maxSteps := 4*area + 4
	for i := 0; i < maxSteps; i++ {
		left := (d + 3) % 4
		ahead := image.Point{X: p.X + crackDX[d], Y: p.Y + crackDY[d]}
		diag := image.Point{X: ahead.X + crackDX[left], Y: ahead.Y + crackDY[left]}

		switch {
		case !inside(ahead.X, ahead.Y):
			// turn right around p; also taken when diag is inside, as
			// p and diag only touch at a corner
			d = (d + 1) % 4
		case inside(diag.X, diag.Y):
			p, d = diag, left
		default:
			p = ahead
		}

		if p == start && d == 0 {
			break
		}
		if p != pts[len(pts)-1] {
			pts = append(pts, p)
		}
	}
	if n := len(pts); n > 1 && pts[n-1] == start {
		pts = pts[:n-1]
	}
	return pts
}

// crackPerimeter counts 4-neighbour edges between mask pixels and anything
// that is not a mask pixel.
func crackPerimeter(mask *image.Alpha) int {
	b := mask.Bounds()
	in := func(x, y int) bool {
		return image.Point{X: x, Y: y}.In(b) && mask.AlphaAt(x, y).A != 0
	}
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !in(x, y) {
				continue
			}
			if !in(x-1, y) {
				n++
			}
			if !in(x+1, y) {
				n++
			}
			if !in(x, y-1) {
				n++
			}
			if !in(x, y+1) {
				n++
			}
		}
	}
	return n
}

// countHoles counts 8-connected background components of mask that do not
// reach the mask's border.
func countHoles(mask *image.Alpha) int {
	b := mask.Bounds()
	w, h := b.Dx()+2, b.Dy()+2
	open := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				open[y*w+x] = true
				continue
			}
			open[y*w+x] = mask.AlphaAt(b.Min.X+x-1, b.Min.Y+y-1).A == 0
		}
	}

	fill := func(start int) {
		stack := []int{start}
		open[start] = false
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := i%w, i/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if j := ny*w + nx; open[j] {
						open[j] = false
						stack = append(stack, j)
					}
				}
			}
		}
	}

	fill(0)
	holes := 0
	for i, o := range open {
		if o {
			holes++
			fill(i)
		}
	}
	return holes
}
