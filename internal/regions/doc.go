// Package regions finds maximal connected regions of equal value in a
// single-channel raster.
//
// A region is a 4-connected set of pixels whose values satisfy the
// detector's Comparator pairwise along every left/above adjacency. Regions
// are discovered in a single raster-order sweep: each row is split into
// runs (ScanLines), every run is attached to a provisional region part, and
// parts that turn out to be connected through the row above are merged on
// the spot.
//
// # Algorithm Overview
//
//  1. Validation: reject nil images, multi-channel images and empty ROIs
//  2. Sweep: scan rows top to bottom, pixels left to right, extending the
//     current run while a pixel matches its left neighbour and merging the
//     run's part with the part above whenever the pixel matches the pixel above
//  3. Collection: every part still active after the sweep is a region
//  4. Filtering: keep regions whose size and representative value fall
//     inside the configured restrictions
//
// Parts live in an arena and are addressed by index. The line-index map
// (one index per ROI pixel) records which part owns each pixel; a merged
// part is resolved to its surviving root lazily, so cells written before a
// merge never have to be revisited.
//
// # Coordinate System
//
// ScanLines and all Region accessors use absolute image coordinates with
// the origin at the top-left corner. ScanLine.X1 is exclusive.
//
// # Ordering
//
// Detect returns regions in raster-discovery order: the order in which the
// first pixel of each region is met when scanning the ROI row by row.
// The output is deterministic for identical input and configuration.
//
// # Thread Safety
//
// A Detector reuses its arena and line-index map between calls and is not
// safe for concurrent use. Regions returned by Detect borrow that storage
// and become invalid on the next Detect call on the same detector; use
// Region.Detach to keep one longer. Independent images can be processed
// in parallel with independent detectors.
package regions
