package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slr "github.com/vivaneiona/genkit-slr"
)

func drain(ch chan slr.Snapshot) []slr.Snapshot {
	var out []slr.Snapshot
	for {
		select {
		case s := <-ch:
			out = append(out, s)
		default:
			return out
		}
	}
}

func TestHub_DropsIntermediateSnapshotsWhenFull(t *testing.T) {
	h := newHub()
	ch := h.subscribe()
	defer h.unsubscribe(ch)

	for i := 0; i < cap(ch)+5; i++ {
		h.publish(slr.Snapshot{State: slr.StateRunning, Completed: i})
	}

	got := drain(ch)
	require.Len(t, got, cap(ch))
	assert.Equal(t, 0, got[0].Completed)
	assert.Equal(t, cap(ch)-1, got[len(got)-1].Completed)
}

func TestHub_TerminalSnapshotReachesFullSubscriber(t *testing.T) {
	for _, state := range []slr.RunState{slr.StateSucceeded, slr.StateFailed} {
		t.Run(string(state), func(t *testing.T) {
			h := newHub()
			ch := h.subscribe()
			defer h.unsubscribe(ch)

			for i := 0; i < cap(ch); i++ {
				h.publish(slr.Snapshot{State: slr.StateRunning, Completed: i})
			}
			h.publish(slr.Snapshot{State: state})

			got := drain(ch)
			require.Len(t, got, cap(ch))
			assert.Equal(t, state, got[len(got)-1].State)
			assert.Equal(t, 1, got[0].Completed, "the oldest pending snapshot made room")
		})
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newHub()
	ch := h.subscribe()
	assert.Equal(t, 1, h.len())
	h.unsubscribe(ch)
	assert.Equal(t, 0, h.len())

	h.publish(slr.Snapshot{State: slr.StateSucceeded})
	assert.Empty(t, drain(ch))
}
