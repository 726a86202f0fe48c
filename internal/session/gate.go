package session

// gate tracks the audio passthrough window. While the gate is open, bytes
// from the transport are audio payload and bypass the frame reader. The
// window is either finite (a byte budget) or continuous (open until an
// explicit stop or flush).
type gate struct {
	active    bool
	remaining int64 // bytes left in a finite window, -1 when continuous
}

// openWindow arms the gate. A positive limit selects finite mode with that
// byte budget; zero selects continuous mode.
func (g *gate) openWindow(limit int64) {
	g.active = true
	if limit > 0 {
		g.remaining = limit
	} else {
		g.remaining = -1
	}
}

func (g *gate) isOpen() bool {
	return g.active
}

// take reports how many of the next n bytes belong to the audio window and
// consumes them from a finite budget.
func (g *gate) take(n int) int {
	if !g.active || n == 0 {
		return 0
	}
	if g.remaining < 0 {
		return n
	}
	if int64(n) > g.remaining {
		n = int(g.remaining)
	}
	g.remaining -= int64(n)
	return n
}

// exhausted reports whether a finite window has consumed its whole budget.
func (g *gate) exhausted() bool {
	return g.active && g.remaining == 0
}

func (g *gate) close() {
	g.active = false
	g.remaining = 0
}
