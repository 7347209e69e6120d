package detection

import (
	"fmt"
	"math"
	"sort"
)

// Blob kinds reported by FindBlobs.
const (
	KindRectangle = "rectangle"
	KindCircle    = "circle"
	KindLine      = "line"
	KindIrregular = "irregular"
)

// Classification thresholds.
const (
	rectFillMin     = 0.9
	circleFillMin   = 0.6
	circleFillMax   = 0.87
	circleAspectMax = 1.3
	circularityMin  = 0.5
	lineAspectMin   = 4.0
	lineFillMin     = 0.5
)

// Blob is a region with a shape classification.
type Blob struct {
	// Index is the region's index in the RegionsResult.
	Index int `json:"index"`

	Kind     string   `json:"kind"`
	Bounds   Bounds   `json:"bounds"`
	Centroid Centroid `json:"centroid"`
	Area     int      `json:"area"`
	Value    int      `json:"value"`

	// FillRatio is area divided by bounding-box area.
	FillRatio float64 `json:"fill_ratio"`

	// Circularity is 4πA/P² using the region's edge-count perimeter, capped at 1.
	Circularity float64 `json:"circularity"`

	// Aspect is the longer bounding-box side over the shorter one.
	Aspect float64 `json:"aspect"`

	// Confidence indicates how well the region fits Kind (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// BlobFilter narrows the output of FindBlobs.
type BlobFilter struct {
	// MinArea drops regions with fewer pixels.
	MinArea int `json:"min_area,omitempty"`

	// MinConfidence drops blobs classified with lower confidence.
	MinConfidence float64 `json:"min_confidence,omitempty"`

	// Kinds keeps only the listed kinds. Empty keeps all.
	Kinds []string `json:"kinds,omitempty"`
}

// BlobsResult contains the classified regions of one image.
type BlobsResult struct {
	// Blobs is sorted by area, largest first.
	Blobs []Blob `json:"blobs"`

	// Count is the number of blobs reported.
	Count int `json:"count"`

	// ByKind counts the reported blobs per kind.
	ByKind map[string]int `json:"by_kind"`
}

// FindBlobs classifies every region of result as a rectangle, circle, line
// or irregular shape.
//
// # Classification
//
//   - rectangle: fill ratio >= 0.9; confidence is the fill ratio
//   - circle: aspect <= 1.3, fill ratio near π/4 and circularity >= 0.5
//   - line: aspect >= 4 with a mostly filled bounding box
//   - irregular: anything else, with confidence 1 - fill ratio
//
// # Limitations
//
//   - Only axis-aligned rectangles and lines classify well; a diagonal line
//     has a sparse bounding box and is reported as irregular
//   - Regions with holes are never circles
func FindBlobs(result *RegionsResult, filter BlobFilter) (*BlobsResult, error) {
	if result == nil {
		return nil, fmt.Errorf("nil regions result")
	}
	if filter.MinConfidence < 0 || filter.MinConfidence > 1 {
		return nil, fmt.Errorf("min_confidence must be between 0 and 1, got %g", filter.MinConfidence)
	}
	kinds := make(map[string]bool, len(filter.Kinds))
	for _, k := range filter.Kinds {
		switch k {
		case KindRectangle, KindCircle, KindLine, KindIrregular:
			kinds[k] = true
		default:
			return nil, fmt.Errorf("unknown blob kind %q", k)
		}
	}

	out := &BlobsResult{Blobs: make([]Blob, 0), ByKind: make(map[string]int)}
	for _, r := range result.Regions {
		if r.Size < filter.MinArea {
			continue
		}
		b := Classify(r)
		if b.Confidence < filter.MinConfidence {
			continue
		}
		if len(kinds) > 0 && !kinds[b.Kind] {
			continue
		}
		out.Blobs = append(out.Blobs, b)
		out.ByKind[b.Kind]++
	}

	sort.SliceStable(out.Blobs, func(i, j int) bool {
		return out.Blobs[i].Area > out.Blobs[j].Area
	})
	out.Count = len(out.Blobs)
	return out, nil
}

// Classify measures one region and picks its kind.
func Classify(r RegionSummary) Blob {
	w := r.Bounds.X2 - r.Bounds.X1
	h := r.Bounds.Y2 - r.Bounds.Y1
	b := Blob{
		Index:    r.Index,
		Bounds:   r.Bounds,
		Centroid: r.Centroid,
		Area:     r.Size,
		Value:    r.Value,
		Kind:     KindIrregular,
	}
	if w <= 0 || h <= 0 || r.Size == 0 {
		return b
	}

	b.FillRatio = float64(r.Size) / float64(w*h)
	if r.Perimeter > 0 {
		p := float64(r.Perimeter)
		b.Circularity = math.Min(1, 4*math.Pi*float64(r.Size)/(p*p))
	}
	long, short := float64(max(w, h)), float64(min(w, h))
	b.Aspect = long / short

	switch {
	case b.Aspect >= lineAspectMin && b.FillRatio >= lineFillMin:
		b.Kind = KindLine
		b.Confidence = b.FillRatio * (1 - 1/b.Aspect)
	case b.FillRatio >= rectFillMin && r.Holes == 0:
		b.Kind = KindRectangle
		b.Confidence = b.FillRatio
	case b.Aspect <= circleAspectMax && r.Holes == 0 &&
		b.FillRatio >= circleFillMin && b.FillRatio <= circleFillMax &&
		b.Circularity >= circularityMin:
		b.Kind = KindCircle
		ideal := math.Pi / 4
		b.Confidence = math.Max(0, 1-math.Abs(b.FillRatio-ideal)/ideal) / b.Aspect
	default:
		b.Confidence = 1 - b.FillRatio
	}
	return b
}
