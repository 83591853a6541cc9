package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/store"
)

func counterReducer(state map[string]any, e *store.Event) {
	n, _ := state["count"].(int)
	state["count"] = n + 1
}

func TestAppendAssignsContiguousIndices(t *testing.T) {
	s := store.New("main", nil, nil)
	e0 := s.Append("tick", map[string]any{"n": 1}, 0, nil)
	e1 := s.Append("tick", map[string]any{"n": 2}, 10, nil)
	require.Equal(t, 0, e0.Index)
	require.Equal(t, 1, e1.Index)
	require.Equal(t, 1, s.Head())
	require.Len(t, s.Events(), 2)
	require.NotEmpty(t, e0.UUID)
	require.NotEqual(t, e0.UUID, e1.UUID)
}

func TestRegisterReducerReplaysHistory(t *testing.T) {
	s := store.New("main", nil, nil)
	s.Append("tick", nil, 0, nil)
	s.Append("tick", nil, 0, nil)
	s.Append("tick", nil, 0, nil)

	s.RegisterReducer("tick", counterReducer)

	require.Equal(t, 3, s.State()["count"])
}

func TestRebuildStateMatchesLiveState(t *testing.T) {
	s := store.New("main", nil, nil)
	s.RegisterReducer("tick", counterReducer)
	s.Append("tick", nil, 0, nil)
	s.Append("tick", nil, 0, nil)

	rebuilt := s.RebuildState(nil)
	require.Equal(t, s.State(), rebuilt)
}

func TestBranchIsolation(t *testing.T) {
	s := store.New("main", nil, nil)
	s.RegisterReducer("tick", counterReducer)
	s.Append("tick", nil, 0, nil)
	s.Append("tick", nil, 0, nil)
	snap := s.TakeSnapshot()

	branch, err := s.BranchFrom(snap, "experiment", nil)
	require.NoError(t, err)

	branch.Append("tick", nil, 0, nil)
	branch.Append("tick", nil, 0, nil)

	require.Equal(t, 1, s.Head())
	require.Equal(t, 2, s.State()["count"])
	require.Equal(t, 3, branch.Head())
	require.Equal(t, 4, branch.State()["count"])
}

func TestDeepCopyStatePreventsAliasing(t *testing.T) {
	s := store.New("main", nil, nil)
	s.RegisterReducer("set", func(state map[string]any, e *store.Event) {
		state["nested"] = map[string]any{"v": e.Payload["v"]}
	})
	s.Append("set", map[string]any{"v": 1}, 0, nil)

	a := s.State()
	nested := a["nested"].(map[string]any)
	nested["v"] = 999

	b := s.State()
	require.Equal(t, 1, b["nested"].(map[string]any)["v"])
}
