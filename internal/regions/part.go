package regions

// partKind tags the state of a region part.
type partKind uint8

const (
	// partActive parts own their scanlines and may still become a region.
	partActive partKind = iota
	// partMerged parts were absorbed; mergedInto names the absorber.
	partMerged
)

// noPart marks an empty line-index map cell or an unset part reference.
const noPart int32 = -1

// regionPart is a provisional connected component built during the sweep.
type regionPart[S Sample] struct {
	kind       partKind
	mergedInto int32
	lines      []ScanLine[S]
}

func (p *regionPart[S]) active() bool {
	return p.kind == partActive
}

// add appends a scanline to the part.
func (p *regionPart[S]) add(s ScanLine[S]) {
	p.lines = append(p.lines, s)
}

// partArena owns every region part of one detector. Parts are addressed by
// index and recycled between sweeps; their scanline slices keep capacity.
type partArena[S Sample] struct {
	parts  []regionPart[S]
	used   int32
	merges int
}

// reset forgets all parts without releasing their storage.
func (a *partArena[S]) reset() {
	a.used = 0
	a.merges = 0
}

// alloc returns the index of a fresh active part.
func (a *partArena[S]) alloc() int32 {
	if int(a.used) == len(a.parts) {
		a.parts = append(a.parts, regionPart[S]{})
	}
	idx := a.used
	p := &a.parts[idx]
	p.kind = partActive
	p.mergedInto = noPart
	p.lines = p.lines[:0]
	a.used++
	return idx
}

func (a *partArena[S]) part(i int32) *regionPart[S] {
	return &a.parts[i]
}

// find resolves i to the active part that currently owns its pixels,
// re-pointing every visited part at its grandparent on the way.
func (a *partArena[S]) find(i int32) int32 {
	for {
		p := &a.parts[i]
		if p.kind == partActive {
			return i
		}
		next := p.mergedInto
		if np := &a.parts[next]; np.kind == partMerged {
			p.mergedInto = np.mergedInto
		}
		i = next
	}
}

// union merges the components owning a and b and returns the survivor.
// The older part (lower index) always survives so that discovery order is
// preserved.
func (a *partArena[S]) union(x, y int32) int32 {
	x, y = a.find(x), a.find(y)
	if x == y {
		return x
	}
	if y < x {
		x, y = y, x
	}
	a.absorb(x, y)
	return x
}

// absorb moves every scanline of victim into survivor and retires victim.
// The victim's backing array is kept for reuse. Absorbing a part into
// itself is a programming error.
func (a *partArena[S]) absorb(survivor, victim int32) {
	if survivor == victim {
		panic("regions: part cannot absorb itself")
	}
	s, v := &a.parts[survivor], &a.parts[victim]
	if len(v.lines) > len(s.lines) {
		s.lines, v.lines = v.lines, s.lines
	}
	s.lines = append(s.lines, v.lines...)
	v.lines = v.lines[:0]
	v.kind = partMerged
	v.mergedInto = survivor
	a.merges++
}
