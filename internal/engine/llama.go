//go:build llama

package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"
)

var (
	loadOnce sync.Once
	loadErr  error
)

// NewLlamaBackend returns a llama.cpp backend whose shared libraries are
// loaded from libPath on Init.
func NewLlamaBackend(libPath string) Backend { return &llamaBackend{libPath: libPath} }

// Available reports whether the llama.cpp backend is compiled in.
func Available() bool { return true }

type llamaBackend struct {
	libPath string
}

func (b *llamaBackend) Init() error {
	// purego keeps the libraries mapped for the life of the process.
	loadOnce.Do(func() {
		if err := llama.Load(b.libPath); err != nil {
			loadErr = fmt.Errorf("%w: load llama.cpp from %q: %v", ErrUnavailable, b.libPath, err)
		}
	})
	if loadErr != nil {
		return loadErr
	}
	llama.Init()
	return nil
}

func (b *llamaBackend) LoadModel(path string, p ModelParams) (Model, error) {
	mp := llama.ModelDefaultParams()
	mp.NGpuLayers = int32(p.GPULayers)
	mdl, err := llama.ModelLoadFromFile(path, mp)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", path, err)
	}
	return &llamaModel{mdl: mdl, vocab: &llamaVocab{v: llama.ModelGetVocab(mdl)}}, nil
}

func (b *llamaBackend) Close() error {
	llama.BackendFree()
	return nil
}

type llamaModel struct {
	mdl   llama.Model
	vocab *llamaVocab
}

func (m *llamaModel) Vocab() Vocab { return m.vocab }

func (m *llamaModel) Meta(key string) (string, bool) {
	v, ok := llama.ModelMetaValStr(m.mdl, key)
	return v, ok
}

func (m *llamaModel) HasEncoder() bool { return llama.ModelHasEncoder(m.mdl) }

func (m *llamaModel) TrainedContextLength() int { return int(llama.ModelNCtxTrain(m.mdl)) }

func (m *llamaModel) NewSampler(p SamplerParams) (Sampler, error) {
	chain := llama.SamplerChainInit(llama.SamplerChainDefaultParams())
	if p.Grammar != "" {
		g := llama.SamplerInitGrammar(m.vocab.v, p.Grammar, "root")
		if g == 0 {
			llama.SamplerFree(chain)
			return nil, errors.New("grammar sampler: invalid grammar")
		}
		llama.SamplerChainAdd(chain, g)
	}
	llama.SamplerChainAdd(chain, llama.SamplerInitTopK(int32(p.TopK)))
	llama.SamplerChainAdd(chain, llama.SamplerInitTopP(p.TopP, 0))
	llama.SamplerChainAdd(chain, llama.SamplerInitMinP(p.MinP, 0))
	llama.SamplerChainAdd(chain, llama.SamplerInitTemp(p.Temperature))
	llama.SamplerChainAdd(chain, llama.SamplerInitDist(p.Seed))
	return &llamaSampler{s: chain}, nil
}

func (m *llamaModel) NewContext(p ContextParams) (Context, error) {
	cp := llama.ContextDefaultParams()
	cp.NCtx = uint32(p.ContextLength)
	cp.NBatch = 1
	cp.NUbatch = 1
	cp.NSeqMax = 1
	cp.NThreads = int32(p.Threads)
	cp.NThreadsBatch = int32(p.Threads)
	if p.FlashAttention {
		cp.FlashAttentionType = llama.FlashAttentionTypeEnabled
	} else {
		cp.FlashAttentionType = llama.FlashAttentionTypeDisabled
	}
	lctx, err := llama.InitFromModel(m.mdl, cp)
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	return &llamaContext{ctx: lctx, nVocab: m.vocab.Len()}, nil
}

func (m *llamaModel) Close() error {
	llama.ModelFree(m.mdl)
	return nil
}

type llamaVocab struct {
	v llama.Vocab
}

func (v *llamaVocab) Len() int { return int(llama.VocabNTokens(v.v)) }

func (v *llamaVocab) Tokenize(text string, addSpecial bool) []Token {
	toks := llama.Tokenize(v.v, text, addSpecial, true)
	out := make([]Token, len(toks))
	for i, t := range toks {
		out[i] = Token(t)
	}
	return out
}

func (v *llamaVocab) Piece(t Token) string {
	buf := make([]byte, 256)
	n := llama.TokenToPiece(v.v, llama.Token(t), buf, 0, true)
	if n < 0 {
		// Negative length is the required buffer size.
		buf = make([]byte, -n)
		n = llama.TokenToPiece(v.v, llama.Token(t), buf, 0, true)
	}
	if n <= 0 {
		return ""
	}
	return string(buf[:n])
}

func (v *llamaVocab) Text(t Token) string { return llama.VocabGetText(v.v, llama.Token(t)) }

func (v *llamaVocab) IsEOG(t Token) bool { return llama.VocabIsEOG(v.v, llama.Token(t)) }

func (v *llamaVocab) IsControl(t Token) bool { return llama.VocabIsControl(v.v, llama.Token(t)) }

func (v *llamaVocab) EOT() Token { return Token(llama.VocabEOT(v.v)) }

func (v *llamaVocab) EOS() Token { return Token(llama.VocabEOS(v.v)) }

func (v *llamaVocab) AddBOS() bool { return llama.VocabGetAddBOS(v.v) }

type llamaContext struct {
	ctx    llama.Context
	nVocab int
	// n is the number of positions held in memory, or the capacity when
	// unknown after a state load.
	n int
}

func (c *llamaContext) Capacity() int { return int(llama.NCtx(c.ctx)) }

// Decode places t at pos. Positions from pos onward are dropped first, so a
// single-token batch, which the context places after the last remaining
// position, lands exactly at pos. Such a batch always keeps its logits.
func (c *llamaContext) Decode(t Token, pos int, logits bool) error {
	if pos > c.n {
		return fmt.Errorf("decode token %d at %d: only %d positions in memory", t, pos, c.n)
	}
	if pos < c.n {
		if _, err := llama.MemorySeqRm(llama.GetMemory(c.ctx), 0, llama.Pos(pos), -1); err != nil {
			return fmt.Errorf("drop positions from %d: %w", pos, err)
		}
		c.n = pos
	}
	batch := llama.BatchGetOne([]llama.Token{llama.Token(t)})
	if _, err := llama.Decode(c.ctx, batch); err != nil {
		return fmt.Errorf("decode token %d at %d: %w", t, pos, err)
	}
	c.n = pos + 1
	return nil
}

func (c *llamaContext) Logits() []float32 {
	l, err := llama.GetLogitsIth(c.ctx, -1, c.nVocab)
	if err != nil {
		return nil
	}
	return l
}

func (c *llamaContext) ClearMemory() {
	llama.MemoryClear(llama.GetMemory(c.ctx), true)
	c.n = 0
}

func (c *llamaContext) StateSize() int { return int(llama.StateGetSize(c.ctx)) }

func (c *llamaContext) StateRead(dst []byte) int { return int(llama.StateGetData(c.ctx, dst)) }

func (c *llamaContext) StateWrite(src []byte) int {
	read := int(llama.StateSetData(c.ctx, src))
	c.n = c.Capacity()
	return read
}

func (c *llamaContext) Close() error {
	llama.Free(c.ctx)
	return nil
}

type llamaSampler struct {
	s llama.Sampler
}

func (s *llamaSampler) Sample(c Context) Token {
	lc := c.(*llamaContext)
	return Token(llama.SamplerSample(s.s, lc.ctx, -1))
}

func (s *llamaSampler) Accept(t Token) { llama.SamplerAccept(s.s, llama.Token(t)) }

func (s *llamaSampler) Reset() { llama.SamplerReset(s.s) }

func (s *llamaSampler) Close() error {
	llama.SamplerFree(s.s)
	return nil
}
