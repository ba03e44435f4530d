package fixed

// Window keeps the last Capacity points added to it.
type Window struct {
	buffer []Point
	size   int
	tail   int
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	return &Window{buffer: make([]Point, capacity)}
}

func (w *Window) Len() int      { return w.size }
func (w *Window) Capacity() int { return len(w.buffer) }
func (w *Window) IsFull() bool  { return w.size == len(w.buffer) }

func (w *Window) Add(p Point) {
	w.buffer[w.tail] = p
	w.tail = (w.tail + 1) % len(w.buffer)

	if w.size < len(w.buffer) {
		w.size++
	}
}

// Get returns the idx-th most recent point, Get(0) being the latest.
func (w *Window) Get(idx int) Point {
	if idx < 0 || idx >= w.size {
		panic("window index out of range")
	}
	return w.buffer[(w.tail-1-idx+len(w.buffer))%len(w.buffer)]
}

func (w *Window) Latest() Point {
	return w.Get(0)
}

func (w *Window) Mean() Point {
	if w.size == 0 {
		return Zero
	}

	sum := Zero
	for i := 0; i < w.size; i++ {
		sum = sum.Add(w.Get(i))
	}
	return sum.DivInt(w.size)
}

// SampleStdDev is the standard deviation with Bessel's correction, zero below two points.
func (w *Window) SampleStdDev() Point {
	if w.size <= 1 {
		return Zero
	}

	mean := w.Mean()
	sum := Zero
	for i := 0; i < w.size; i++ {
		diff := w.Get(i).Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}
	return sum.DivInt(w.size - 1).Sqrt()
}

func (w *Window) Min() Point {
	m := w.Latest()
	for i := 1; i < w.size; i++ {
		m = Min(m, w.Get(i))
	}
	return m
}

func (w *Window) Max() Point {
	m := w.Latest()
	for i := 1; i < w.size; i++ {
		m = Max(m, w.Get(i))
	}
	return m
}
