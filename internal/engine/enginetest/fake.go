// Package enginetest provides a deterministic in-memory engine for tests.
//
// Tokenization is a greedy longest match over the model's pieces. Context
// state is the decoded token history, so snapshots round-trip exactly and a
// history-driven Next function reproduces the same continuation after restore.
package enginetest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"genloop/internal/engine"
)

// Model describes a fake model. Zero-valued optional fields disable the
// corresponding feature.
type Model struct {
	Name string
	// Pieces maps token id to text; used for both Piece and Text.
	Pieces []string
	// Texts overrides Text for individual tokens.
	Texts     map[engine.Token]string
	EOG       map[engine.Token]bool
	Control   map[engine.Token]bool
	EOTToken  engine.Token
	EOSToken  engine.Token
	BOSToken  engine.Token
	TrainCtx  int
	Encoder   bool
	// Script is consumed by the sampler in order when Next is nil. Once
	// exhausted the sampler returns EOSToken.
	Script []engine.Token
	// Next picks the next token from the decoded history.
	Next func(history []engine.Token) engine.Token
	// Logits returns the logits after the given history. Nil yields zeros.
	Logits func(history []engine.Token) []float32
	// DecodeErr, if set, is consulted before every decode.
	DecodeErr func(pos int) error
}

// NewModel returns a model with the given pieces, no BOS, no EOT and EOS at
// the last index.
func NewModel(name string, pieces ...string) *Model {
	return &Model{
		Name:     name,
		Pieces:   pieces,
		EOG:      map[engine.Token]bool{},
		Control:  map[engine.Token]bool{},
		EOTToken: engine.NoToken,
		EOSToken: engine.Token(len(pieces) - 1),
		BOSToken: engine.NoToken,
		TrainCtx: 4096,
	}
}

// Token returns the id of the piece equal to s, or panics.
func (m *Model) Token(s string) engine.Token {
	for i, p := range m.Pieces {
		if p == s {
			return engine.Token(i)
		}
	}
	panic(fmt.Sprintf("enginetest: no piece %q", s))
}

// Backend serves Models by path and records lifecycle calls.
type Backend struct {
	Models     map[string]*Model
	InitErr    error
	SamplerErr error
	ContextErr error

	mu    sync.Mutex
	calls []string
	open  int
}

// NewBackend serves m at path.
func NewBackend(path string, m *Model) *Backend {
	return &Backend{Models: map[string]*Model{path: m}}
}

// Calls returns the recorded lifecycle calls in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Open reports how many resources (backend init, models, contexts,
// samplers) are currently unreleased.
func (b *Backend) Open() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *Backend) record(call string, delta int) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.open += delta
	b.mu.Unlock()
}

func (b *Backend) Init() error {
	if b.InitErr != nil {
		return b.InitErr
	}
	b.record("backend.init", 1)
	return nil
}

func (b *Backend) LoadModel(path string, p engine.ModelParams) (engine.Model, error) {
	m, ok := b.Models[path]
	if !ok {
		return nil, fmt.Errorf("enginetest: no model at %q", path)
	}
	b.record("model.load", 1)
	return &model{b: b, m: m}, nil
}

func (b *Backend) Close() error {
	b.record("backend.close", -1)
	return nil
}

type model struct {
	b *Backend
	m *Model
}

func (m *model) Vocab() engine.Vocab { return vocab{m.m} }

func (m *model) Meta(key string) (string, bool) {
	if key == "general.name" && m.m.Name != "" {
		return m.m.Name, true
	}
	return "", false
}

func (m *model) HasEncoder() bool { return m.m.Encoder }

func (m *model) TrainedContextLength() int { return m.m.TrainCtx }

func (m *model) NewSampler(p engine.SamplerParams) (engine.Sampler, error) {
	if m.b.SamplerErr != nil {
		return nil, m.b.SamplerErr
	}
	m.b.record("sampler.new", 1)
	return &sampler{b: m.b, m: m.m}, nil
}

func (m *model) NewContext(p engine.ContextParams) (engine.Context, error) {
	if m.b.ContextErr != nil {
		return nil, m.b.ContextErr
	}
	n := p.ContextLength
	if n == 0 {
		n = m.m.TrainCtx
	}
	m.b.record("context.new", 1)
	return &Context{b: m.b, m: m.m, capacity: n}, nil
}

func (m *model) Close() error {
	m.b.record("model.close", -1)
	return nil
}

type vocab struct{ m *Model }

func (v vocab) Len() int { return len(v.m.Pieces) }

func (v vocab) Tokenize(text string, addSpecial bool) []engine.Token {
	var out []engine.Token
	if addSpecial && v.m.BOSToken != engine.NoToken {
		out = append(out, v.m.BOSToken)
	}
	for len(text) > 0 {
		best, bestLen := engine.NoToken, 0
		for i, p := range v.m.Pieces {
			if len(p) > bestLen && strings.HasPrefix(text, p) {
				best, bestLen = engine.Token(i), len(p)
			}
		}
		if bestLen == 0 {
			// Unknown byte.
			text = text[1:]
			continue
		}
		out = append(out, best)
		text = text[bestLen:]
	}
	return out
}

func (v vocab) Piece(t engine.Token) string {
	if t < 0 || int(t) >= len(v.m.Pieces) {
		return ""
	}
	return v.m.Pieces[t]
}

func (v vocab) Text(t engine.Token) string {
	if s, ok := v.m.Texts[t]; ok {
		return s
	}
	return v.Piece(t)
}

func (v vocab) IsEOG(t engine.Token) bool {
	return v.m.EOG[t] || t == v.m.EOSToken || (t == v.m.EOTToken && t != engine.NoToken)
}

func (v vocab) IsControl(t engine.Token) bool { return v.m.Control[t] }

func (v vocab) EOT() engine.Token { return v.m.EOTToken }

func (v vocab) EOS() engine.Token { return v.m.EOSToken }

func (v vocab) AddBOS() bool { return v.m.BOSToken != engine.NoToken }

// Context is the fake engine context. Its history is exported for
// assertions through History.
type Context struct {
	b        *Backend
	m        *Model
	capacity int
	history  []engine.Token
	// ShortRead truncates StateRead by one byte when set.
	ShortRead bool
}

// History returns a copy of the decoded tokens.
func (c *Context) History() []engine.Token { return append([]engine.Token(nil), c.history...) }

func (c *Context) Capacity() int { return c.capacity }

func (c *Context) Decode(t engine.Token, pos int, logits bool) error {
	if c.m.DecodeErr != nil {
		if err := c.m.DecodeErr(pos); err != nil {
			return err
		}
	}
	if pos > len(c.history) {
		return fmt.Errorf("enginetest: decode at %d past %d positions", pos, len(c.history))
	}
	c.history = c.history[:pos]
	if pos >= c.capacity {
		return errors.New("enginetest: context full")
	}
	c.history = append(c.history, t)
	return nil
}

func (c *Context) Logits() []float32 {
	if c.m.Logits != nil {
		return c.m.Logits(c.History())
	}
	return make([]float32, len(c.m.Pieces))
}

func (c *Context) ClearMemory() { c.history = nil }

func (c *Context) StateSize() int { return 4 + 4*len(c.history) }

func (c *Context) StateRead(dst []byte) int {
	n := c.StateSize()
	if len(dst) < n {
		return 0
	}
	binary.LittleEndian.PutUint32(dst, uint32(len(c.history)))
	for i, t := range c.history {
		binary.LittleEndian.PutUint32(dst[4+4*i:], uint32(t))
	}
	if c.ShortRead {
		return n - 1
	}
	return n
}

func (c *Context) StateWrite(src []byte) int {
	if len(src) < 4 {
		return 0
	}
	n := int(binary.LittleEndian.Uint32(src))
	if len(src) != 4+4*n || n > c.capacity {
		return 0
	}
	h := make([]engine.Token, n)
	for i := range h {
		h[i] = engine.Token(binary.LittleEndian.Uint32(src[4+4*i:]))
	}
	c.history = h
	return len(src)
}

func (c *Context) Close() error {
	c.b.record("context.close", -1)
	return nil
}

type sampler struct {
	b        *Backend
	m        *Model
	next     int
	accepted int
}

func (s *sampler) Sample(c engine.Context) engine.Token {
	if s.m.Next != nil {
		return s.m.Next(c.(*Context).History())
	}
	if s.next >= len(s.m.Script) {
		return s.m.EOSToken
	}
	t := s.m.Script[s.next]
	s.next++
	return t
}

func (s *sampler) Accept(engine.Token) { s.accepted++ }

func (s *sampler) Reset() {
	s.next = 0
	s.accepted = 0
}

func (s *sampler) Close() error {
	s.b.record("sampler.close", -1)
	return nil
}
