package itrie

import (
	"testing"

	"github.com/rei-network/executive/state"
	"github.com/rei-network/executive/state/storage"
)

func buildPreState(pre state.PreStates) state.Snapshot {
	s := NewState(storage.NewMemoryStorage())
	snap := s.NewSnapshot()

	if len(pre) == 0 {
		return snap
	}

	snap, _, err := snap.Commit(state.PreStateObjects(pre))
	if err != nil {
		panic(err)
	}

	return snap
}

func TestState(t *testing.T) {
	state.TestWorldState(t, buildPreState)
}
