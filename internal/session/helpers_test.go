package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"genloop/internal/engine"
	"genloop/internal/engine/enginetest"
)

const testModelPath = "/models/test.gguf"

var testPieces = []string{
	"<sys>", "</sys>", "<u>", "</u>", "<a>",
	"You are helpful.", "hi", "Hello", "!", "",
	"1", " 2", "3\n", "STOP", "ST", "OP",
	"<think>", "abc", "</think>", "done", "<ctl>", "<eos>",
}

// testModel returns a fresh model whose sampler follows script.
func testModel(script ...string) *enginetest.Model {
	m := enginetest.NewModel("Test Model", testPieces...)
	m.Control[m.Token("<ctl>")] = true
	for _, s := range script {
		m.Script = append(m.Script, m.Token(s))
	}
	return m
}

// recorder collects delivered events and optionally requests an interrupt
// when a sampled token with the given piece is delivered.
type recorder struct {
	events      []Event
	interruptOn string
}

func (r *recorder) handle(ev Event) bool {
	r.events = append(r.events, ev)
	return r.interruptOn != "" && ev.Type.Sampled() && ev.Piece == r.interruptOn
}

// sampled returns the events produced by the generation loop.
func (r *recorder) sampled() []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Type.Sampled() || ev.Type == TypeIrq || ev.Type == TypeRevPrompt {
			out = append(out, ev)
		}
	}
	return out
}

type pieceType struct {
	Piece string
	Type  TokenType
}

func pieceTypes(evs []Event) []pieceType {
	out := make([]pieceType, len(evs))
	for i, ev := range evs {
		out[i] = pieceType{ev.Piece, ev.Type}
	}
	return out
}

func testParams(rec *recorder) Params {
	p := DefaultParams()
	p.ModelPath = testModelPath
	p.TemplateFromModel = false
	p.Threads = 2
	p.ContextLength = 256
	p.PromptBegin = "<u>"
	p.PromptEnd = "</u><a>"
	p.SystemPromptBegin = "<sys>"
	p.SystemPromptMid = "</sys><u>"
	p.SystemPromptEnd = "</u><a>"
	p.OnToken = rec.handle
	return p
}

func openTest(t *testing.T, m *enginetest.Model, p Params) (*Session, *enginetest.Backend) {
	t.Helper()
	b := enginetest.NewBackend(testModelPath, m)
	s, err := Open(b, p, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, b
}

func fakeContext(s *Session) *enginetest.Context { return s.ctx.(*enginetest.Context) }

func tok(m *enginetest.Model, piece string) engine.Token { return m.Token(piece) }

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
