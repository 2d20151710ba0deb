package session

// revPromptDetector watches the generated byte stream for a reverse prompt
// using a ring buffer as long as the reverse prompt itself.
type revPromptDetector struct {
	target []byte
	buf    []byte
	cursor int
	filled bool
}

func newRevPromptDetector(target string) *revPromptDetector {
	return &revPromptDetector{
		target: []byte(target),
		buf:    make([]byte, len(target)),
		cursor: -1,
	}
}

// push appends every byte of piece to the window.
func (d *revPromptDetector) push(piece string) {
	n := len(d.buf)
	for i := 0; i < len(piece); i++ {
		d.cursor = (d.cursor + 1) % n
		d.buf[d.cursor] = piece[i]
		if d.cursor == n-1 {
			d.filled = true
		}
	}
}

// matched reports whether the last len(target) bytes equal the target. The
// oldest byte sits right after the cursor.
func (d *revPromptDetector) matched() bool {
	if !d.filled {
		return false
	}
	n := len(d.buf)
	for i := n - 1; i >= 0; i-- {
		if d.buf[(i+d.cursor+1)%n] != d.target[i] {
			return false
		}
	}
	return true
}
