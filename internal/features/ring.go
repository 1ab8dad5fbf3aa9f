package features

// ring is a fixed-capacity trailing buffer of float64 values.
type ring struct {
	data []float64
	pos  int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{data: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	r.data[r.pos] = v
	r.pos++
	if r.pos >= len(r.data) {
		r.pos = 0
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return len(r.data)
	}
	return r.pos
}

// slice copies the buffer into dst in insertion order and returns it.
func (r *ring) slice(dst []float64) []float64 {
	n := r.len()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	if r.full {
		copy(dst, r.data[r.pos:])
		copy(dst[len(r.data)-r.pos:], r.data[:r.pos])
	} else {
		copy(dst, r.data[:r.pos])
	}
	return dst
}
