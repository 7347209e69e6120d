// Package detection finds and describes connected regions in images.
//
// It glues the imaging package (channel extraction) to the regions package
// (single-pass connected-component labelling) and turns the live regions
// into serialisable summaries. It is designed for analyzing diagrams, scans,
// masks and other images with large flat areas.
//
// # Pipeline
//
//  1. Channel Extraction: reduce the image to one 8-bit sample per pixel
//     (gray, threshold, a colour component, hue sector or palette index)
//  2. Labelling: group 4-connected pixels whose samples match, optionally
//     after quantizing them into bands
//  3. Filtering: drop regions outside the size and value bounds
//  4. Summaries: bounds, centroid, perimeter, holes, and on request the
//     scanlines and outer contour of every region
//
// FindBlobs adds a fifth step that classifies each region as a rectangle,
// circle, line or irregular shape.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// # Confidence Scores
//
// Blob classifications carry a confidence between 0.0 and 1.0:
//   - Rectangles: fill ratio of the bounding box
//   - Circles: closeness of the fill ratio to π/4, divided by the aspect ratio
//   - Lines: fill ratio scaled by how elongated the box is
//   - Irregular: the unfilled share of the bounding box
//
// # Concurrency
//
// A Runner reuses detector storage and must stay on one goroutine.
// DetectRegions allocates a fresh Runner per call and is safe to call
// concurrently.
package detection
