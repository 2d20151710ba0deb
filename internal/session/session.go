package session

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"genloop/internal/engine"
	"genloop/internal/templates"
)

// Event is one token delivered to the Handler.
type Event struct {
	Token engine.Token
	Piece string
	Type  TokenType
	// Digits is set on the first visible sampled token of a query only.
	Digits *DigitProbs
}

// Handler receives delivered tokens. Returning true requests an interrupt,
// honored at the start of the next loop iteration. The return value is
// ignored for prompt tokens.
type Handler func(Event) bool

// Option configures Open.
type Option func(*Session)

// WithLogger sets the logger. Defaults to the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session is a single conversation bound to one loaded model. It is not safe
// for concurrent use; callers serialize access.
type Session struct {
	params Params
	log    zerolog.Logger

	backend   engine.Backend
	backendUp bool
	model     engine.Model
	vocab     engine.Vocab
	ctx       engine.Context
	sampler   engine.Sampler

	tokCount int
	lastType TokenType

	digitGroups *digitGroups
	closed      bool
}

// Open initializes the backend, loads the model and creates the sampler and
// context described by p. On any failure everything created so far is
// released and no Session is returned.
func Open(backend engine.Backend, p Params, opts ...Option) (*Session, error) {
	s := &Session{params: p, log: log.Logger, backend: backend}
	for _, o := range opts {
		o(s)
	}
	if p.OnToken == nil {
		s.log.Error().Msg("token handler must be set")
		return nil, ErrMissingCallback
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidArgument)
	}
	if err := p.Validate(); err != nil {
		s.log.Error().Err(err).Msg("invalid parameters")
		return nil, err
	}
	if s.params.Threads == 0 {
		s.params.Threads = physicalCores()
	}

	ok := false
	defer func() {
		if !ok {
			if err := s.Close(); err != nil {
				s.log.Warn().Err(err).Msg("rollback after failed open")
			}
		}
	}()

	if err := backend.Init(); err != nil {
		s.log.Error().Err(err).Msg("backend init failed")
		return nil, fmt.Errorf("backend init: %w", err)
	}
	s.backendUp = true

	model, err := backend.LoadModel(s.params.ModelPath, s.params.modelParams())
	if err != nil {
		s.log.Error().Err(err).Str("path", s.params.ModelPath).Msg("failed to load model")
		return nil, err
	}
	s.model = model
	s.vocab = model.Vocab()

	sampler, err := model.NewSampler(s.params.samplerParams())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create sampler chain")
		return nil, fmt.Errorf("sampler: %w", err)
	}
	s.sampler = sampler

	if model.HasEncoder() {
		s.log.Error().Msg("encoder models are not supported")
		return nil, fmt.Errorf("%w: model has an encoder", ErrUnsupportedModel)
	}

	if s.params.TemplateFromModel {
		s.overlayTemplate()
	}
	s.log.Info().Object("params", s.params).Msg("session parameters")

	ctx, err := model.NewContext(s.params.contextParams())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create context")
		return nil, err
	}
	s.ctx = ctx

	if train := model.TrainedContextLength(); train < ctx.Capacity() {
		s.log.Error().Int("trained", train).Int("configured", ctx.Capacity()).Msg("context length too large")
		return nil, fmt.Errorf("%w (%d > %d)", ErrContextTooLarge, ctx.Capacity(), train)
	}

	s.tokCount = 0
	s.lastType = TypeNone
	contextTokens.Set(0)
	ok = true
	return s, nil
}

func (s *Session) overlayTemplate() {
	name, _ := s.model.Meta("general.name")
	t, found := templates.Lookup(name)
	if !found {
		s.log.Warn().Str("model", name).Msg("no prompt template for model, keeping configured delimiters")
		return
	}
	s.params.applyTemplate(t)
	s.log.Info().Str("model", name).Str("family", t.Family).Msg("using prompt template")
}

// Close releases the context, sampler, model and backend in that order. It
// is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.params = Params{}
	s.digitGroups = nil

	var err error
	if s.ctx != nil {
		err = multierr.Append(err, s.ctx.Close())
		s.ctx = nil
	}
	if s.sampler != nil {
		err = multierr.Append(err, s.sampler.Close())
		s.sampler = nil
	}
	if s.model != nil {
		err = multierr.Append(err, s.model.Close())
		s.model = nil
		s.vocab = nil
	}
	if s.backendUp {
		err = multierr.Append(err, s.backend.Close())
		s.backendUp = false
	}
	s.tokCount = 0
	s.lastType = TypeNone
	return err
}

// Reset forgets the conversation: engine memory is cleared and the sampler
// and counters start over.
func (s *Session) Reset() error {
	if err := s.ready(); err != nil {
		return err
	}
	s.ctx.ClearMemory()
	s.sampler.Reset()
	s.lastType = TypeNone
	s.tokCount = 0
	contextTokens.Set(0)
	return nil
}

// CountTokens returns the number of tokens text would occupy without
// decoding it.
func (s *Session) CountTokens(text string, addSpecial bool) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return len(s.vocab.Tokenize(text, addSpecial)), nil
}

func (s *Session) ready() error {
	if s == nil || s.closed || s.ctx == nil {
		return ErrNotInitialized
	}
	return nil
}

// Params returns the effective parameters, including template overlays and
// the resolved thread count.
func (s *Session) Params() Params { return s.params }

// TokenCount is the number of positions occupied in the context.
func (s *Session) TokenCount() int { return s.tokCount }

// LastTokenType is the type of the most recently delivered token.
func (s *Session) LastTokenType() TokenType { return s.lastType }

// Capacity is the context length in tokens, or 0 when closed.
func (s *Session) Capacity() int {
	if s.ready() != nil {
		return 0
	}
	return s.ctx.Capacity()
}

// deliver forwards a token to the handler. Empty pieces are dropped and
// never request an interrupt.
func (s *Session) deliver(ev Event) bool {
	if ev.Piece == "" {
		return false
	}
	tokensTotal.WithLabelValues(ev.Type.String()).Inc()
	return s.params.OnToken(ev)
}
