package regions

// ScanLine is one maximal horizontal run of matching pixels in a single row.
//
// The run covers [X0, X1) on row Y. Value is the sample of the run's first
// pixel.
type ScanLine[S Sample] struct {
	X0    int `json:"x0"`
	Y     int `json:"y"`
	X1    int `json:"x1"`
	Value S   `json:"value"`
}

// Len returns the number of pixels in the run.
func (s ScanLine[S]) Len() int {
	return s.X1 - s.X0
}

// Contains reports whether (x, y) lies on the run.
func (s ScanLine[S]) Contains(x, y int) bool {
	return y == s.Y && s.X0 <= x && x < s.X1
}

// Touches reports whether two runs on the same row overlap or abut and
// carry matching values, i.e. whether they could be one run.
func (s ScanLine[S]) Touches(o ScanLine[S], cmp Comparator[S]) bool {
	if s.Y != o.Y {
		return false
	}
	if s.X0 > o.X1 || o.X0 > s.X1 {
		return false
	}
	return cmp.Match(s.Value, o.Value)
}

// lessScanLine orders runs top to bottom, then left to right.
func lessScanLine[S Sample](a, b ScanLine[S]) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X0 < b.X0
}
