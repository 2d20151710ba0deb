package manager

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"genloop/internal/engine"
	"genloop/internal/session"
	"genloop/pkg/types"
)

func TestInfer_StreamsNDJSON(t *testing.T) {
	m, _ := readyManager(t, nil)
	var buf bytes.Buffer
	flushes := 0
	if err := m.Infer(testCtx(t), types.QueryRequest{Prompt: "hi"}, &buf, func() { flushes++ }); err != nil {
		t.Fatalf("Infer: %v", err)
	}
	toks, done := ndjson(t, buf.Bytes())
	var got []string
	for _, te := range toks {
		got = append(got, te.Type+":"+te.Piece)
	}
	want := "delim:<u> prompt:hi delim:</u> delim:<a> sampled_visible:Hello sampled_visible:! sampled_eog:<eos>"
	if strings.Join(got, " ") != want {
		t.Fatalf("events:\n got %s\nwant %s", strings.Join(got, " "), want)
	}
	if toks[4].Digits == nil {
		t.Fatalf("first visible token should carry digit probabilities")
	}
	if !done.Done || done.Reason != "eog" || done.Usage.PromptTokens != 4 || done.Usage.GeneratedTokens != 3 || done.Usage.ContextTokens != 7 {
		t.Fatalf("unexpected done line: %+v", done)
	}
	if flushes != len(toks)+1 {
		t.Fatalf("expected a flush per line, got %d", flushes)
	}
	st := m.Status()
	if st.State != "ready" || st.TokenCount != 7 || st.ContextLength != 128 || st.LastTokenType != "sampled_eog" || st.QueriesTotal != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestInfer_NoSession(t *testing.T) {
	m, _ := newTestManager(t, nil)
	err := m.Infer(testCtx(t), types.QueryRequest{Prompt: "hi"}, &bytes.Buffer{}, nil)
	if !IsNoSession(err) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if m.Ready() {
		t.Fatalf("manager without session must not be ready")
	}
}

func TestInfer_WriteErrorInterrupts(t *testing.T) {
	m, fb := readyManager(t, nil)
	fb.model.Script = append(fb.model.Script, fb.model.Token("Hello"), fb.model.Token("Hello"))
	err := m.Infer(testCtx(t), types.QueryRequest{Prompt: "hi"}, &errWriter{}, nil)
	if err == nil || err.Error() != "write fail" {
		t.Fatalf("expected write error, got %v", err)
	}
	// prompt(4) + Hello + interrupt EOS
	if got := m.Status().TokenCount; got != 6 {
		t.Fatalf("expected generation to stop after one sampled token, context holds %d", got)
	}
	var buf bytes.Buffer
	if err := m.Infer(testCtx(t), types.QueryRequest{Prompt: "hi"}, &buf, nil); err != nil {
		t.Fatalf("session should stay usable: %v", err)
	}
}

func TestInfer_ErrorAfterStreaming(t *testing.T) {
	m, fb := readyManager(t, nil)
	fb.model.DecodeErr = func(pos int) error {
		if pos == 4 {
			return errors.New("gpu fault")
		}
		return nil
	}
	var buf bytes.Buffer
	err := m.Infer(testCtx(t), types.QueryRequest{Prompt: "hi"}, &buf, nil)
	if !IsStreamed(err) || !errors.Is(err, session.ErrDecode) {
		t.Fatalf("expected streamed decode error, got %v", err)
	}
	_, done := ndjson(t, buf.Bytes())
	if !done.Done || done.Error == "" || done.Reason != "" {
		t.Fatalf("expected error in final line, got %+v", done)
	}
}

func TestInfer_EmptyPromptBeforeStreaming(t *testing.T) {
	m, _ := readyManager(t, nil)
	var buf bytes.Buffer
	err := m.Infer(testCtx(t), types.QueryRequest{}, &buf, nil)
	if IsStreamed(err) || !session.IsInvalidArgument(err) {
		t.Fatalf("expected plain invalid-argument error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written, got %q", buf.String())
	}
}

func TestReinit_UnknownModel(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if err := m.Reinit(testCtx(t), types.ReinitRequest{Model: "nope.gguf"}); !IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
	m2, _ := newTestManager(t, func(c *ManagerConfig) { c.DefaultModel = "" })
	if err := m2.Reinit(testCtx(t), types.ReinitRequest{}); !IsModelNotFound(err) {
		t.Fatalf("expected model not found without default, got %v", err)
	}
}

func TestReinit_RuntimeUnavailable(t *testing.T) {
	m, fb := newTestManager(t, nil)
	fb.initErr = engine.ErrUnavailable
	pub := NewMemoryPublisher()
	m.SetEventPublisher(pub)
	err := m.Reinit(testCtx(t), types.ReinitRequest{})
	if !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	v := m.View()
	if v.State != StateError || v.Err == "" || m.Ready() {
		t.Fatalf("unexpected view after failure: %+v", v)
	}
	names := strings.Join(pub.Names(), ",")
	if names != "reinit_start,reinit_error" {
		t.Fatalf("unexpected events: %s", names)
	}
	if fb.get(0).Open() != 0 {
		t.Fatalf("failed reinit leaked %d resources", fb.get(0).Open())
	}
}

func TestReinit_ReplacesSession(t *testing.T) {
	m, fb := readyManager(t, nil)
	if _, err := m.SnapshotUpdate(testCtx(t)); err != nil {
		t.Fatalf("SnapshotUpdate: %v", err)
	}
	seed := uint32(7)
	if err := m.Reinit(testCtx(t), types.ReinitRequest{Model: "test.gguf", ContextLength: 64, Seed: &seed}); err != nil {
		t.Fatalf("second Reinit: %v", err)
	}
	if fb.get(0).Open() != 0 {
		t.Fatalf("previous session not fully released: %d open", fb.get(0).Open())
	}
	st := m.Status()
	if st.ContextLength != 64 || st.Snapshot != nil || st.ReinitsTotal != 2 || st.ModelPath != testModelPath {
		t.Fatalf("unexpected status after reinit: %+v", st)
	}
	if err := m.SnapshotRestore(testCtx(t)); !errors.Is(err, session.ErrNoSnapshot) {
		t.Fatalf("snapshot must not survive reinit, got %v", err)
	}
}

func TestDeinit(t *testing.T) {
	m, fb := readyManager(t, nil)
	pub := NewMemoryPublisher()
	m.SetEventPublisher(pub)
	if err := m.Deinit(testCtx(t)); err != nil {
		t.Fatalf("Deinit: %v", err)
	}
	if m.Ready() || m.View().State != StateEmpty || m.Status().TokenCount != 0 {
		t.Fatalf("unexpected state after deinit: %+v", m.View())
	}
	if fb.get(0).Open() != 0 {
		t.Fatalf("resources left open: %d", fb.get(0).Open())
	}
	if err := m.Deinit(testCtx(t)); err != nil {
		t.Fatalf("second Deinit: %v", err)
	}
	if got := strings.Join(pub.Names(), ","); got != "deinit,deinit" {
		t.Fatalf("unexpected events: %s", got)
	}
	if err := m.Reset(testCtx(t)); !IsNoSession(err) {
		t.Fatalf("expected no session, got %v", err)
	}
}

func TestResetAndCountTokens(t *testing.T) {
	m, _ := readyManager(t, nil)
	if err := m.Infer(testCtx(t), types.QueryRequest{Prompt: "hi"}, &bytes.Buffer{}, nil); err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if err := m.Reset(testCtx(t)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if st := m.Status(); st.TokenCount != 0 || st.LastTokenType != "none" {
		t.Fatalf("unexpected status after reset: %+v", st)
	}
	n, err := m.CountTokens(testCtx(t), "hiHello!", false)
	if err != nil || n != 3 {
		t.Fatalf("CountTokens = %d, %v", n, err)
	}
}

func TestListModelsCopies(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ms := m.ListModels()
	ms[0].ID = "mutated"
	if m.ListModels()[0].ID != "test.gguf" {
		t.Fatalf("ListModels must return a copy")
	}
}
