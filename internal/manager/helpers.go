package manager

import (
	"genloop/internal/registry"
	"genloop/internal/session"
	"genloop/pkg/types"
)

// resolveParams merges a reinit request into the base parameters. The model
// comes from the request, else from the default model, else from the base
// ModelPath.
func (m *Manager) resolveParams(req types.ReinitRequest) (session.Params, *ModelInfo, error) {
	p := m.base
	id := req.Model
	if id == "" {
		id = m.defaultModel
	}
	info := &ModelInfo{ID: id, Path: p.ModelPath}
	if id != "" {
		mdl, ok := registry.Find(m.ListModels(), id)
		if !ok {
			return p, nil, ErrModelNotFound(id)
		}
		p.ModelPath = mdl.Path
		info.Path = mdl.Path
	} else if p.ModelPath == "" {
		return p, nil, ErrModelNotFound("(unspecified)")
	}
	if req.SystemPrompt != "" {
		p.SystemPrompt = req.SystemPrompt
	}
	if req.ContextLength > 0 {
		p.ContextLength = req.ContextLength
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if req.Temperature != nil {
		p.Temperature = *req.Temperature
	}
	if req.Grammar != "" {
		p.Grammar = req.Grammar
	}
	p.OnToken = m.dispatch
	return p, info, nil
}

func stateInfo(st *session.State) *types.SnapshotInfo {
	return &types.SnapshotInfo{
		TokenCount:    st.TokenCount,
		LastTokenType: st.LastTokenType.String(),
		SizeBytes:     st.Size(),
	}
}

func tokenEvent(ev session.Event) types.TokenEvent {
	te := types.TokenEvent{Token: int32(ev.Token), Piece: ev.Piece, Type: ev.Type.String()}
	if ev.Digits != nil {
		d := [10]float32(*ev.Digits)
		te.Digits = &d
	}
	return te
}
