package manager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"genloop/internal/engine"
	"genloop/internal/engine/enginetest"
	"genloop/internal/session"
	"genloop/pkg/types"
)

const testModelPath = "/models/test.gguf"

var testRegistry = []types.Model{{ID: "test.gguf", Name: "test", Path: testModelPath}}

func testModel() *enginetest.Model {
	m := enginetest.NewModel("Test", "<u>", "</u>", "<a>", "hi", "Hello", "!", "<eos>")
	m.Script = []engine.Token{m.Token("Hello"), m.Token("!")}
	return m
}

func testParams() session.Params {
	p := session.DefaultParams()
	p.TemplateFromModel = false
	p.Threads = 1
	p.ContextLength = 128
	p.PromptBegin = "<u>"
	p.PromptEnd = "</u><a>"
	return p
}

// fakeBackends hands out one enginetest backend per Reinit and keeps them
// for inspection.
type fakeBackends struct {
	mu      sync.Mutex
	model   *enginetest.Model
	initErr error
	all     []*enginetest.Backend
}

func (f *fakeBackends) factory() engine.Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := enginetest.NewBackend(testModelPath, f.model)
	b.InitErr = f.initErr
	f.all = append(f.all, b)
	return b
}

func (f *fakeBackends) get(i int) *enginetest.Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.all[i]
}

func newTestManager(t *testing.T, mutate func(*ManagerConfig)) (*Manager, *fakeBackends) {
	t.Helper()
	fb := &fakeBackends{model: testModel()}
	cfg := ManagerConfig{
		Registry:     testRegistry,
		DefaultModel: "test.gguf",
		Backend:      fb.factory,
		Params:       testParams(),
		Logger:       zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m, fb
}

func readyManager(t *testing.T, mutate func(*ManagerConfig)) (*Manager, *fakeBackends) {
	t.Helper()
	m, fb := newTestManager(t, mutate)
	if err := m.Reinit(testCtx(t), types.ReinitRequest{}); err != nil {
		t.Fatalf("Reinit: %v", err)
	}
	return m, fb
}

// ndjson splits a stream into token events and the final done event.
func ndjson(t *testing.T, b []byte) ([]types.TokenEvent, types.DoneEvent) {
	t.Helper()
	var toks []types.TokenEvent
	var done types.DoneEvent
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := sc.Bytes()
		var probe map[string]any
		if err := json.Unmarshal(line, &probe); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		if _, ok := probe["done"]; ok {
			if err := json.Unmarshal(line, &done); err != nil {
				t.Fatalf("bad done line %q: %v", line, err)
			}
			continue
		}
		var te types.TokenEvent
		if err := json.Unmarshal(line, &te); err != nil {
			t.Fatalf("bad token line %q: %v", line, err)
		}
		toks = append(toks, te)
	}
	return toks, done
}

// errWriter writes once, then returns an error on subsequent writes.
type errWriter struct{ wrote int }

func (e *errWriter) Write(p []byte) (int, error) {
	if e.wrote == 0 {
		e.wrote += len(p)
		return len(p), nil
	}
	return 0, errors.New("write fail")
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
