package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genloop/internal/engine"
	"genloop/internal/engine/enginetest"
)

// markovModel continues deterministically from the last decoded token, so a
// restored history reproduces the same continuation.
func markovModel() *enginetest.Model {
	m := testModel()
	next := map[engine.Token]engine.Token{
		m.Token("<a>"):   m.Token("Hello"),
		m.Token("Hello"): m.Token("!"),
		m.Token("!"):     m.Token("done"),
		m.Token("done"):  m.Token("<eos>"),
	}
	m.Next = func(h []engine.Token) engine.Token {
		if t, ok := next[h[len(h)-1]]; ok {
			return t
		}
		return m.Token("<eos>")
	}
	return m
}

func TestSnapshot_RoundTripReproducesQuery(t *testing.T) {
	rec := &recorder{}
	p := testParams(rec)
	p.SystemPrompt = "You are helpful."
	s, _ := openTest(t, markovModel(), p)

	_, err := s.Query(testCtx(t), "hi")
	require.NoError(t, err)

	var slot SnapshotSlot
	require.NoError(t, slot.Update(s))
	before := s.TokenCount()
	beforeType := s.LastTokenType()

	rec.events = nil
	first, err := s.Query(testCtx(t), "hi")
	require.NoError(t, err)
	firstEvents := pieceTypes(rec.events)
	afterFirst := s.TokenCount()
	require.Greater(t, afterFirst, before)

	require.NoError(t, slot.Restore(s))
	assert.Equal(t, before, s.TokenCount())
	assert.Equal(t, beforeType, s.LastTokenType())

	rec.events = nil
	second, err := s.Query(testCtx(t), "hi")
	require.NoError(t, err)
	if diff := cmp.Diff(firstEvents, pieceTypes(rec.events)); diff != "" {
		t.Fatalf("restored query diverged (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Generated, second.Generated)
	assert.Equal(t, afterFirst, s.TokenCount())
}

func TestSnapshotSlot_EmptyAndClear(t *testing.T) {
	s, _ := openTest(t, testModel(), testParams(&recorder{}))
	var slot SnapshotSlot
	require.ErrorIs(t, slot.Restore(s), ErrNoSnapshot)
	slot.Clear()
	assert.Nil(t, slot.Current())

	require.NoError(t, slot.Update(s))
	st := slot.Current()
	require.NotNil(t, st)
	require.NoError(t, slot.Update(s))
	assert.Nil(t, st.Data, "previous snapshot released on update")

	slot.Clear()
	assert.Nil(t, slot.Current())
	require.ErrorIs(t, slot.Restore(s), ErrNoSnapshot)
}

func TestRestoreState_SizeMismatch(t *testing.T) {
	s, _ := openTest(t, testModel(), testParams(&recorder{}))
	_, err := s.Query(testCtx(t), "hi")
	require.NoError(t, err)
	count := s.TokenCount()

	err = s.RestoreState(&State{Data: []byte{1, 2, 3}, TokenCount: 99})
	require.ErrorIs(t, err, ErrStateSizeMismatch)
	assert.Equal(t, count, s.TokenCount(), "counters untouched on failure")

	require.ErrorIs(t, s.RestoreState(nil), ErrInvalidArgument)
	require.ErrorIs(t, s.RestoreState(&State{}), ErrInvalidArgument)
}

func TestCaptureState_ShortCopy(t *testing.T) {
	s, _ := openTest(t, testModel(), testParams(&recorder{}))
	fakeContext(s).ShortRead = true
	_, err := s.CaptureState()
	require.ErrorIs(t, err, ErrAllocation)

	var slot SnapshotSlot
	require.ErrorIs(t, slot.Update(s), ErrAllocation)
	assert.Nil(t, slot.Current())
}

func TestState_Release(t *testing.T) {
	var st *State
	st.Release()
	assert.Zero(t, st.Size())
	st = &State{Data: []byte{1, 2}}
	assert.Equal(t, 2, st.Size())
	st.Release()
	st.Release()
	assert.Zero(t, st.Size())
}
