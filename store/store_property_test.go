package store_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vei-sim/vei/store"
)

// TestEventLogIntegrityProperty verifies spec.md §8's event log integrity
// invariant: for any sequence of appends, Head() == len(Events())-1, indices
// are contiguous from 0, and RebuildState matches the live materialised
// state after a reducer is registered retroactively.
func TestEventLogIntegrityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("head tracks contiguous event indices and rebuild matches live state", prop.ForAll(
		func(kinds []string) bool {
			s := store.New("main", nil, nil)
			s.RegisterReducer("k", func(state map[string]any, e *store.Event) {
				count, _ := state["count"].(int)
				state["count"] = count + 1
			})

			for _, k := range kinds {
				s.Append(k, map[string]any{}, 0, nil)
			}

			events := s.Events()
			if s.Head() != len(events)-1 {
				return false
			}
			for i, e := range events {
				if e.Index != i {
					return false
				}
			}

			rebuilt := s.RebuildState(nil)
			live := s.State()
			return rebuilt["count"] == live["count"]
		},
		gen.SliceOf(gen.OneConstOf("k", "other")),
	))

	properties.TestingRun(t)
}

// TestBranchIsolationProperty verifies spec.md §8's branch isolation
// invariant: appending to a branch never mutates the parent's events, head,
// or state, regardless of how many events preceded the branch point.
func TestBranchIsolationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("branch appends never affect the parent", prop.ForAll(
		func(preCount, postCount int) bool {
			if preCount < 0 {
				preCount = -preCount
			}
			if postCount < 0 {
				postCount = -postCount
			}
			preCount, postCount = preCount%10, postCount%10

			s := store.New("main", nil, nil)
			for i := 0; i < preCount; i++ {
				s.Append("k", map[string]any{"i": i}, 0, nil)
			}
			snap := s.TakeSnapshot()
			parentHeadBefore := s.Head()
			parentEventsBefore := len(s.Events())

			child, err := s.BranchFrom(snap, "child", nil)
			if err != nil {
				return false
			}
			for i := 0; i < postCount; i++ {
				child.Append("k", map[string]any{"i": i}, 0, nil)
			}

			return s.Head() == parentHeadBefore && len(s.Events()) == parentEventsBefore
		},
		gen.IntRange(0, 9),
		gen.IntRange(0, 9),
	))

	properties.TestingRun(t)
}
