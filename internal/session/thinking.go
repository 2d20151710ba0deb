package session

// thinkTracker follows thinking-mode delimiters in sampled pieces. A piece
// must equal a delimiter exactly to switch the mode.
type thinkTracker struct {
	begin, end string
	active     bool
}

func (t *thinkTracker) enabled() bool { return t.begin != "" }

// enter is checked before the piece is classified, so the begin delimiter
// itself is delivered as thinking.
func (t *thinkTracker) enter(piece string) {
	if t.enabled() && !t.active && piece == t.begin {
		t.active = true
	}
}

// leave is checked after delivery, so the end delimiter is still delivered
// as thinking.
func (t *thinkTracker) leave(piece string) {
	if t.active && piece == t.end {
		t.active = false
	}
}
