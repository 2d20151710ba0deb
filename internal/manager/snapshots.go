package manager

import (
	"context"

	"genloop/internal/session"
	"genloop/internal/snapstore"
	"genloop/pkg/types"
)

// SnapshotUpdate replaces the current snapshot with a capture of the session.
func (m *Manager) SnapshotUpdate(ctx context.Context) (types.SnapshotInfo, error) {
	var info types.SnapshotInfo
	err := m.withSession(ctx, "snapshot_update", func(s *session.Session) error {
		if err := m.slot.Update(s); err != nil {
			return err
		}
		info = *stateInfo(m.slot.Current())
		m.publish(Event{Name: "snapshot_update", Fields: map[string]any{"bytes": info.SizeBytes, "tokens": info.TokenCount}})
		return nil
	})
	return info, err
}

// SnapshotRestore loads the current snapshot into the session.
func (m *Manager) SnapshotRestore(ctx context.Context) error {
	return m.withSession(ctx, "snapshot_restore", func(s *session.Session) error {
		if err := m.slot.Restore(s); err != nil {
			return err
		}
		m.publish(Event{Name: "snapshot_restore", Fields: map[string]any{"tokens": s.TokenCount()}})
		return nil
	})
}

// SnapshotClear drops the current snapshot. No-op when there is none.
func (m *Manager) SnapshotClear(ctx context.Context) error {
	release, err := m.beginGeneration(ctx, "snapshot_clear")
	if err != nil {
		return err
	}
	defer release()
	m.slot.Clear()
	m.refresh()
	m.publish(Event{Name: "snapshot_clear", Fields: map[string]any{}})
	return nil
}

func (m *Manager) requireStore() error {
	if m.store == nil {
		return ErrDependencyUnavailable("snapshot store disabled")
	}
	return nil
}

// SaveSnapshot captures the session and stores it under name.
func (m *Manager) SaveSnapshot(ctx context.Context, name string) (types.SnapshotInfo, error) {
	if err := m.requireStore(); err != nil {
		return types.SnapshotInfo{}, err
	}
	if err := snapstore.ValidateName(name); err != nil {
		return types.SnapshotInfo{}, err
	}
	var rec snapstore.Record
	err := m.withSession(ctx, "snapshot_save", func(s *session.Session) error {
		st, err := s.CaptureState()
		if err != nil {
			return err
		}
		rec, err = m.store.Put(ctx, name, st)
		if err != nil {
			return err
		}
		m.publish(Event{Name: "snapshot_save", Fields: map[string]any{"name": name, "id": rec.ID, "bytes": rec.Size}})
		return nil
	})
	return recordInfo(rec), err
}

// LoadSnapshot restores the stored snapshot called name into the session.
func (m *Manager) LoadSnapshot(ctx context.Context, name string) (types.SnapshotInfo, error) {
	if err := m.requireStore(); err != nil {
		return types.SnapshotInfo{}, err
	}
	var rec snapstore.Record
	err := m.withSession(ctx, "snapshot_load", func(s *session.Session) error {
		var err error
		rec, err = m.store.Get(ctx, name)
		if err != nil {
			return err
		}
		if err := s.RestoreState(rec.State()); err != nil {
			return err
		}
		m.publish(Event{Name: "snapshot_load", Fields: map[string]any{"name": name, "id": rec.ID}})
		return nil
	})
	return recordInfo(rec), err
}

// ListSnapshots lists stored snapshots. It does not wait for the session.
func (m *Manager) ListSnapshots(ctx context.Context) ([]types.SnapshotInfo, error) {
	if err := m.requireStore(); err != nil {
		return nil, err
	}
	recs, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.SnapshotInfo, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordInfo(r))
	}
	return out, nil
}

// DeleteSnapshot removes the stored snapshot called name.
func (m *Manager) DeleteSnapshot(ctx context.Context, name string) error {
	if err := m.requireStore(); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, name); err != nil {
		return err
	}
	m.publish(Event{Name: "snapshot_delete", Fields: map[string]any{"name": name}})
	return nil
}

func recordInfo(r snapstore.Record) types.SnapshotInfo {
	if r.ID == "" {
		return types.SnapshotInfo{}
	}
	return types.SnapshotInfo{
		Name:          r.Name,
		ID:            r.ID,
		CreatedUnix:   r.CreatedAt.Unix(),
		TokenCount:    r.TokenCount,
		LastTokenType: r.LastTokenType.String(),
		SizeBytes:     r.Size,
	}
}
