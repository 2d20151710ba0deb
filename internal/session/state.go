package session

import (
	"fmt"
)

// State is a point-in-time copy of a Session's engine context together with
// the counters captured at the same instant. The bytes are opaque and only
// valid for the model and context parameters they were captured from.
type State struct {
	Data          []byte
	LastTokenType TokenType
	TokenCount    int
}

// Size of the engine state in bytes.
func (st *State) Size() int {
	if st == nil {
		return 0
	}
	return len(st.Data)
}

// Release drops the state bytes. Safe on nil and when called twice.
func (st *State) Release() {
	if st == nil {
		return
	}
	st.Data = nil
}

// CaptureState copies the engine state.
func (s *Session) CaptureState() (*State, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	size := s.ctx.StateSize()
	buf := make([]byte, size)
	written := s.ctx.StateRead(buf)
	if written != size {
		s.log.Error().Int("size", size).Int("written", written).Msg("failed to copy engine state")
		return nil, fmt.Errorf("%w: copied %d of %d state bytes", ErrAllocation, written, size)
	}
	s.log.Debug().Int("bytes", size).Int("tokens", s.tokCount).Msg("state captured")
	return &State{Data: buf, LastTokenType: s.lastType, TokenCount: s.tokCount}, nil
}

// RestoreState loads st into the engine context and restores the counters.
// The engine must consume exactly all bytes.
func (s *Session) RestoreState(st *State) error {
	if err := s.ready(); err != nil {
		return err
	}
	if st == nil || len(st.Data) == 0 {
		return fmt.Errorf("%w: empty state", ErrInvalidArgument)
	}
	read := s.ctx.StateWrite(st.Data)
	if read != len(st.Data) {
		s.log.Error().Int("size", len(st.Data)).Int("read", read).Msg("failed to load engine state")
		return fmt.Errorf("%w: engine read %d of %d bytes", ErrStateSizeMismatch, read, len(st.Data))
	}
	s.lastType = st.LastTokenType
	s.tokCount = st.TokenCount
	contextTokens.Set(float64(s.tokCount))
	s.log.Debug().Int("bytes", read).Int("tokens", s.tokCount).Msg("state restored")
	return nil
}

// SnapshotSlot holds at most one State, the "current snapshot".
type SnapshotSlot struct {
	cur *State
}

// Update replaces the held snapshot with a fresh capture of s. The old
// snapshot is released first, so a failed capture leaves the slot empty.
func (sl *SnapshotSlot) Update(s *Session) error {
	sl.Clear()
	st, err := s.CaptureState()
	if err != nil {
		return err
	}
	sl.cur = st
	return nil
}

// Restore loads the held snapshot into s.
func (sl *SnapshotSlot) Restore(s *Session) error {
	if sl.cur == nil {
		return ErrNoSnapshot
	}
	return s.RestoreState(sl.cur)
}

// Clear releases the held snapshot. No-op when empty.
func (sl *SnapshotSlot) Clear() {
	if sl.cur == nil {
		return
	}
	sl.cur.Release()
	sl.cur = nil
}

// Current returns the held snapshot, or nil.
func (sl *SnapshotSlot) Current() *State { return sl.cur }

// Set installs st as the held snapshot, releasing any previous one.
func (sl *SnapshotSlot) Set(st *State) {
	sl.Clear()
	sl.cur = st
}
