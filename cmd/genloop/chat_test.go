package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genloop/internal/engine"
	"genloop/internal/engine/enginetest"
	"genloop/internal/session"
	"genloop/internal/snapstore"
)

const chatModelPath = "/models/chat.gguf"

func newTestChat(t *testing.T, store *snapstore.Store) (*chat, *bytes.Buffer) {
	t.Helper()
	m := enginetest.NewModel("Test", "<u>", "</u>", "<a>", "hi", "Hello", "!", "<eos>")
	m.Script = []engine.Token{m.Token("Hello"), m.Token("!")}

	p := session.DefaultParams()
	p.ModelPath = chatModelPath
	p.TemplateFromModel = false
	p.Threads = 1
	p.ContextLength = 128
	p.PromptBegin = "<u>"
	p.PromptEnd = "</u><a>"

	var out bytes.Buffer
	pr := &printer{w: &out}
	p.OnToken = pr.handle
	sess, err := session.Open(enginetest.NewBackend(chatModelPath, m), p, session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return &chat{sess: sess, store: store, out: pr, interrupt: make(chan os.Signal)}, &out
}

func TestChat_QueryAndSlot(t *testing.T) {
	c, out := newTestChat(t, nil)
	in := strings.NewReader("hi\n/snap\n/reset\n/restore\n/clear\n/restore\n/save x\n/bogus\n/quit\n")
	require.NoError(t, c.run(context.Background(), in))

	got := out.String()
	assert.Contains(t, got, "Hello!\n")
	assert.Contains(t, got, "snapshot at 7 tokens")
	assert.Contains(t, got, "restored to 7 tokens")
	assert.Contains(t, got, "error: no snapshot taken")
	assert.Contains(t, got, "error: no snapshot store configured")
	assert.Contains(t, got, "unknown command /bogus")
	assert.Equal(t, 7, c.sess.TokenCount())
}

func TestChat_IdleInterruptDoesNotCancelNextAnswer(t *testing.T) {
	c, out := newTestChat(t, nil)
	sig := make(chan os.Signal, 1)
	sig <- os.Interrupt
	c.interrupt = sig

	require.NoError(t, c.run(context.Background(), strings.NewReader("hi\n")))
	assert.Contains(t, out.String(), "Hello!\n")
	assert.NotContains(t, out.String(), "[interrupted]")
	assert.Empty(t, sig)
}

func TestChat_SaveLoad(t *testing.T) {
	store, err := snapstore.Open(snapstore.Options{InMemory: true, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer store.Close()

	c, out := newTestChat(t, store)
	in := strings.NewReader("hi\n/save first\n/reset\n/load first\n/load missing\n")
	require.NoError(t, c.run(context.Background(), in))

	got := out.String()
	assert.Contains(t, got, "saved first (7 tokens)")
	assert.Contains(t, got, "loaded first (7 tokens)")
	assert.Contains(t, got, "snapshot not found")
	assert.Equal(t, 7, c.sess.TokenCount())
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, color: true, digits: true}
	d := session.DigitProbs{0: 0.1, 7: 0.9}
	for _, ev := range []session.Event{
		{Piece: "<u>", Type: session.TypePrompt},
		{Piece: "hmm", Type: session.TypeSampledThink},
		{Piece: " ok", Type: session.TypeSampledThink},
		{Piece: "7", Type: session.TypeSampledVisible, Digits: &d},
		{Piece: "User:", Type: session.TypeSampledVisible},
		{Piece: "User:", Type: session.TypeRevPrompt},
		{Piece: "<eos>", Type: session.TypeSampledEOG},
	} {
		assert.False(t, p.handle(ev))
	}
	p.finish()
	assert.Equal(t, ansiDim+"hmm ok"+ansiReset+"7User:\ndigits: argmax=7 p=0.900\n", buf.String())
}
