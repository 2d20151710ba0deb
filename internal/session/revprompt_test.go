package session

import (
	"strings"
	"testing"
)

func TestRevPromptDetector_MatchesAtAnyOffset(t *testing.T) {
	for prefix := 0; prefix < 9; prefix++ {
		d := newRevPromptDetector("STOP")
		d.push(strings.Repeat("x", prefix))
		for i, c := range "STOP" {
			if d.matched() {
				t.Fatalf("prefix=%d: matched after %d of 4 bytes", prefix, i)
			}
			d.push(string(c))
		}
		if !d.matched() {
			t.Fatalf("prefix=%d: no match after full reverse prompt", prefix)
		}
	}
}

func TestRevPromptDetector_Chunked(t *testing.T) {
	cases := []struct {
		pieces []string
		want   bool
	}{
		{[]string{"Hello", "ST", "OP"}, true},
		{[]string{"xSTOP"}, true},
		{[]string{"STOPx"}, false},
		{[]string{"ST", "O"}, false},
		{[]string{"STO", "PP"}, false},
		{[]string{"SSTOP"}, true},
		{[]string{"stop"}, false},
	}
	for _, c := range cases {
		d := newRevPromptDetector("STOP")
		for _, p := range c.pieces {
			d.push(p)
		}
		if got := d.matched(); got != c.want {
			t.Fatalf("%q: matched=%v want %v", c.pieces, got, c.want)
		}
	}
}

func TestRevPromptDetector_NotFilled(t *testing.T) {
	d := newRevPromptDetector("User:")
	d.push("User")
	if d.filled || d.matched() {
		t.Fatalf("window must not match before it is filled")
	}
	d.push(":")
	if !d.filled || !d.matched() {
		t.Fatalf("expected match once filled")
	}
	if d.cursor < 0 || d.cursor >= len(d.buf) {
		t.Fatalf("cursor out of range: %d", d.cursor)
	}
}

func TestRevPromptDetector_SingleByte(t *testing.T) {
	d := newRevPromptDetector("\n")
	d.push("abc")
	if d.matched() {
		t.Fatalf("unexpected match")
	}
	d.push("a\n")
	if !d.matched() {
		t.Fatalf("expected match")
	}
}
