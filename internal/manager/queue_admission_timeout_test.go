package manager

import (
	"context"
	"testing"
	"time"
)

func TestBeginGeneration_QueueTimeout(t *testing.T) {
	m, _ := newTestManager(t, func(c *ManagerConfig) { c.MaxQueueDepth = 1; c.MaxWait = 20 * time.Millisecond })
	// First acquire to occupy both queue and gen slots
	rel, err := m.beginGeneration(context.Background(), "a")
	if err != nil {
		t.Fatalf("beginGeneration first: %v", err)
	}
	defer rel()
	// Second should timeout on queue slot (since depth=1)
	_, err = m.beginGeneration(context.Background(), "b")
	if err == nil || !IsTooBusy(err) {
		t.Fatalf("expected tooBusyError, got %v", err)
	}
	if st := m.Status(); st.Inflight != 1 || st.QueueLen != 0 || st.MaxQueueDepth != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestBeginGeneration_GenTimeout(t *testing.T) {
	m, _ := newTestManager(t, func(c *ManagerConfig) { c.MaxQueueDepth = 2; c.MaxWait = 20 * time.Millisecond })
	// Occupy genCh so acquisitions will block at gen stage
	m.genCh <- struct{}{}
	defer func() { <-m.genCh }()
	_, err := m.beginGeneration(context.Background(), "query")
	if err == nil || !IsTooBusy(err) {
		t.Fatalf("expected tooBusyError on gen wait, got %v", err)
	}
	if len(m.queueCh) != 0 {
		t.Fatalf("queue slot leaked: %d", len(m.queueCh))
	}
}

func TestBeginGeneration_Canceled(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.beginGeneration(ctx, "query"); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBeginGeneration_SerializesInOrder(t *testing.T) {
	m, _ := newTestManager(t, nil)
	rel, err := m.beginGeneration(context.Background(), "first")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	got := make(chan struct{})
	go func() {
		r2, err := m.beginGeneration(context.Background(), "second")
		if err == nil {
			r2()
		}
		close(got)
	}()
	select {
	case <-got:
		t.Fatalf("second acquired while first holds the slot")
	case <-time.After(30 * time.Millisecond):
	}
	rel()
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatalf("second never acquired")
	}
}
