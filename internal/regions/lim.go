package regions

// lineIndexMap records, for every pixel of the ROI, the index of the part
// that claimed it. Coordinates are ROI-relative.
//
// Storage grows to the largest ROI seen and is never shrunk.
type lineIndexMap struct {
	width  int
	height int
	cells  []int32
}

// reset sizes the map for a width x height ROI and clears every cell.
func (m *lineIndexMap) reset(width, height int) {
	n := width * height
	if cap(m.cells) < n {
		m.cells = make([]int32, n)
	}
	m.cells = m.cells[:n]
	for i := range m.cells {
		m.cells[i] = noPart
	}
	m.width, m.height = width, height
}

func (m *lineIndexMap) get(x, y int) int32 {
	return m.cells[y*m.width+x]
}

func (m *lineIndexMap) set(x, y int, part int32) {
	m.cells[y*m.width+x] = part
}

// replaceInRange rewrites cells [x0, x1) of row y that hold old so they hold
// repl instead. The detector uses it to re-point the run under construction
// after a merge; cells elsewhere are resolved through partArena.find.
func (m *lineIndexMap) replaceInRange(x0, x1, y int, old, repl int32) int {
	row := m.cells[y*m.width : (y+1)*m.width]
	n := 0
	for x := x0; x < x1; x++ {
		if row[x] == old {
			row[x] = repl
			n++
		}
	}
	return n
}
