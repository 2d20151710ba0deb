package httpapi

import (
	"context"
	"testing"
	"time"
)

type ctxKey struct{}

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	for _, first := range []bool{true, false} {
		a, ac := context.WithCancel(context.Background())
		b, bc := context.WithCancel(context.Background())
		j, cancelJ := joinContexts(a, b)
		if first {
			ac()
		} else {
			bc()
		}
		select {
		case <-j.Done():
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("joined context did not cancel (first=%v)", first)
		}
		cancelJ()
		ac()
		bc()
	}
}

func TestJoinContexts_KeepsRequestValues(t *testing.T) {
	a := context.WithValue(context.Background(), ctxKey{}, "req-1")
	j, cancel := joinContexts(a, context.Background())
	defer cancel()
	if got, _ := j.Value(ctxKey{}).(string); got != "req-1" {
		t.Fatalf("value lost: %q", got)
	}
	cancel()
	if j.Err() == nil {
		t.Fatal("cancel func did not cancel joined context")
	}
}

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	cancel()
	// nolint:staticcheck // SA1012: nil selects the fallback.
	SetBaseContext(nil)
	if serverBaseCtx.Err() != nil {
		t.Fatal("expected background base context")
	}
}
