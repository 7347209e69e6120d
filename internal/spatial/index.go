// Package spatial answers point and area queries over detected regions.
//
// Region centroids are stored in a quadtree. Point queries search a window
// wide enough to reach the centroid of any region whose bounding box covers
// the point, then confirm containment from the region's bounds and, when
// present, its scanlines.
package spatial

import (
	"math"
	"sort"

	"github.com/asim/quadtree"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
)

// margin widens the tree boundary so centroids on the image edge are kept.
const margin = 10

// Index is a read-only spatial index over one image's regions.
type Index struct {
	tree    *quadtree.QuadTree
	regions []detection.RegionSummary

	// maxW and maxH are the largest region bounding-box sides.
	maxW, maxH float64
	// reach is the half-size of a window covering the whole tree.
	reach float64
}

// Hit is a region returned by Nearest together with its centroid distance.
type Hit struct {
	Region   detection.RegionSummary `json:"region"`
	Distance float64                 `json:"distance"`
}

// NewIndex builds an index over regions found in an image with the given bounds.
func NewIndex(bounds detection.Bounds, regions []detection.RegionSummary) *Index {
	minX, minY := float64(bounds.X1), float64(bounds.Y1)
	maxX, maxY := float64(bounds.X2), float64(bounds.Y2)
	midX := (maxX + minX) / 2
	midY := (maxY + minY) / 2
	halfWidth := maxX - midX + margin
	halfHeight := maxY - midY + margin

	aabb := quadtree.NewAABB(
		quadtree.NewPoint(midX, midY, nil),
		quadtree.NewPoint(halfWidth, halfHeight, nil))

	idx := &Index{
		tree:    quadtree.New(aabb, 0, nil),
		regions: regions,
		reach:   2 * math.Max(halfWidth, halfHeight),
	}
	for i, r := range regions {
		idx.tree.Insert(quadtree.NewPoint(r.Centroid.X, r.Centroid.Y, i))
		idx.maxW = math.Max(idx.maxW, float64(r.Bounds.X2-r.Bounds.X1))
		idx.maxH = math.Max(idx.maxH, float64(r.Bounds.Y2-r.Bounds.Y1))
	}
	return idx
}

// Len returns the number of indexed regions.
func (idx *Index) Len() int {
	return len(idx.regions)
}

// At returns the regions containing pixel (x, y), ordered by index.
func (idx *Index) At(x, y int) []detection.RegionSummary {
	// the pixel and the centroid both lie inside the region's bounding box
	px, py := float64(x)+0.5, float64(y)+0.5
	window := quadtree.NewAABB(
		quadtree.NewPoint(px, py, nil),
		quadtree.NewPoint(idx.maxW+1, idx.maxH+1, nil))

	var out []detection.RegionSummary
	for _, p := range idx.tree.Search(window) {
		r := idx.regions[p.Data().(int)]
		if r.Contains(x, y) {
			out = append(out, r)
		}
	}
	sortByIndex(out)
	return out
}

// Within returns the regions whose centroid lies in [x1,x2) x [y1,y2),
// ordered by index.
func (idx *Index) Within(area detection.Bounds) []detection.RegionSummary {
	if area.X2 <= area.X1 || area.Y2 <= area.Y1 {
		return nil
	}
	halfW := float64(area.X2-area.X1) / 2
	halfH := float64(area.Y2-area.Y1) / 2
	window := quadtree.NewAABB(
		quadtree.NewPoint(float64(area.X1)+halfW, float64(area.Y1)+halfH, nil),
		quadtree.NewPoint(halfW, halfH, nil))

	var out []detection.RegionSummary
	for _, p := range idx.tree.Search(window) {
		cx, cy := p.Coordinates()
		if cx < float64(area.X1) || cx >= float64(area.X2) || cy < float64(area.Y1) || cy >= float64(area.Y2) {
			continue
		}
		out = append(out, idx.regions[p.Data().(int)])
	}
	sortByIndex(out)
	return out
}

// Nearest returns up to k regions ordered by the distance from the centre of
// pixel (x, y) to their centroid. Ties are broken by index.
func (idx *Index) Nearest(x, y, k int) []Hit {
	if k <= 0 || len(idx.regions) == 0 {
		return nil
	}
	if k > len(idx.regions) {
		k = len(idx.regions)
	}
	px, py := float64(x)+0.5, float64(y)+0.5

	// Grow a square window until it holds k centroids. The k nearest may
	// still lie outside the square but inside its circumscribed circle, so
	// search once more at that radius before ranking.
	half := math.Max(1, math.Max(idx.maxW, idx.maxH)/2)
	for half < idx.reach && len(idx.search(px, py, half)) < k {
		half *= 2
	}
	points := idx.search(px, py, half*math.Sqrt2)

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		cx, cy := p.Coordinates()
		hits = append(hits, Hit{
			Region:   idx.regions[p.Data().(int)],
			Distance: math.Hypot(cx-px, cy-py),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Region.Index < hits[j].Region.Index
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func (idx *Index) search(px, py, half float64) []*quadtree.Point {
	return idx.tree.Search(quadtree.NewAABB(
		quadtree.NewPoint(px, py, nil),
		quadtree.NewPoint(half, half, nil)))
}

func sortByIndex(rs []detection.RegionSummary) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Index < rs[j].Index })
}
