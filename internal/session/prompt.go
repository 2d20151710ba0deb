package session

import (
	"fmt"

	"genloop/internal/engine"
)

type segment struct {
	text string
	typ  TokenType
}

// promptSegments frames the user prompt. The first query of a conversation
// with a system prompt carries the system prompt; later ones only the user
// turn.
func (s *Session) promptSegments(prompt string) []segment {
	p := &s.params
	if s.tokCount == 0 && p.SystemPrompt != "" {
		return []segment{
			{p.SystemPromptBegin, TypeDelim},
			{p.SystemPrompt, TypeSysPrompt},
			{p.SystemPromptMid, TypeDelim},
			{prompt, TypePrompt},
			{p.SystemPromptEnd, TypeDelim},
		}
	}
	return []segment{
		{p.PromptBegin, TypeDelim},
		{prompt, TypePrompt},
		{p.PromptEnd, TypeDelim},
	}
}

// decodeSegment tokenizes text and decodes it after the tokens already in
// the context.
func (s *Session) decodeSegment(text string, typ TokenType) error {
	addSpecial := s.tokCount == 0 && s.vocab.AddBOS()
	toks := s.vocab.Tokenize(text, addSpecial)
	s.lastType = typ
	if err := s.decodeTokens(toks, s.tokCount, typ); err != nil {
		return err
	}
	s.tokCount += len(toks)
	return nil
}

// decodeTokens decodes toks one at a time starting at pos, keeping logits
// for the last token only. Each token is delivered with typ; the handler
// cannot interrupt here.
func (s *Session) decodeTokens(toks []engine.Token, pos int, typ TokenType) error {
	for i, tok := range toks {
		if err := s.ctx.Decode(tok, pos+i, i == len(toks)-1); err != nil {
			s.log.Error().Err(err).Int("pos", pos+i).Stringer("type", typ).Msg("decode failed")
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		s.sampler.Accept(tok)
		s.deliver(Event{Token: tok, Piece: s.vocab.Piece(tok), Type: typ})
	}
	return nil
}

func (s *Session) decodePrompt(prompt string) error {
	for _, seg := range s.promptSegments(prompt) {
		if err := s.decodeSegment(seg.text, seg.typ); err != nil {
			return err
		}
	}
	return nil
}
