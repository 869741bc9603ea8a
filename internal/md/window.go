package md

// Window holds the last n closes of a series in a circular slice.
type Window struct {
	buf   []float64
	next  int
	count int
}

func NewWindow(n int) *Window {
	return &Window{buf: make([]float64, max(n, 1))}
}

// Push stores v, evicting the oldest close once the window is full.
func (w *Window) Push(v float64) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Ready reports whether every slot holds a close.
func (w *Window) Ready() bool {
	return w.count == len(w.buf)
}

// Mean is the average of a full window; ok is false until then.
func (w *Window) Mean() (mean float64, ok bool) {
	if !w.Ready() {
		return 0, false
	}
	var sum float64
	for _, v := range w.buf {
		sum += v
	}
	return sum / float64(len(w.buf)), true
}
