package slr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	units := SplitText(makeRecords(3), 1)
	tr := NewTracker(units)

	done, total := tr.Counts()
	assert.Equal(t, 0, done)
	assert.Equal(t, 3, total)

	for _, u := range tr.Units() {
		assert.Equal(t, StatusQueued, u.Status)
		assert.Equal(t, ModeText, u.Kind)
	}

	require.NoError(t, tr.Processing("batch-1"))
	st, ok := tr.Status("batch-1")
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, st)

	require.NoError(t, tr.Completed("batch-1", 4))
	require.NoError(t, tr.Processing("batch-2"))
	require.NoError(t, tr.Failed("batch-2", errors.New("boom")))

	done, total = tr.Counts()
	assert.Equal(t, 1, done)
	assert.Equal(t, 3, total)

	states := tr.Units()
	assert.Equal(t, StatusCompleted, states[0].Status)
	assert.Equal(t, 4, states[0].Rows)
	assert.Equal(t, StatusError, states[1].Status)
	assert.Equal(t, "boom", states[1].Error)
	assert.Equal(t, StatusQueued, states[2].Status)
}

func TestTracker_RejectsInvalidTransitions(t *testing.T) {
	tr := NewTracker(SplitText(makeRecords(1), 1))

	tests := []struct {
		name string
		fn   func() error
	}{
		{"queued to completed", func() error { return tr.Completed("batch-1", 0) }},
		{"queued to error", func() error { return tr.Failed("batch-1", nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), ErrInvalidTransition)
		})
	}

	require.NoError(t, tr.Processing("batch-1"))
	assert.ErrorIs(t, tr.Processing("batch-1"), ErrInvalidTransition)
	require.NoError(t, tr.Completed("batch-1", 1))

	// no regression out of a terminal state
	assert.ErrorIs(t, tr.Processing("batch-1"), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Failed("batch-1", nil), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Completed("batch-1", 1), ErrInvalidTransition)

	done, _ := tr.Counts()
	assert.Equal(t, 1, done, "completed counter must not double count")
}

func TestTracker_UnknownUnit(t *testing.T) {
	tr := NewTracker(nil)
	assert.ErrorIs(t, tr.Processing("nope"), ErrUnknownUnit)
	_, ok := tr.Status("nope")
	assert.False(t, ok)

	done, total := tr.Counts()
	assert.Zero(t, done)
	assert.Zero(t, total)
}

func TestTracker_FileUnitsUseNames(t *testing.T) {
	units := SplitFiles([]InputFile{{Name: "one.pdf", Data: []byte("%PDF-1.4")}})
	tr := NewTracker(units)
	states := tr.Units()
	require.Len(t, states, 1)
	assert.Equal(t, units[0].ID, states[0].ID)
	assert.Equal(t, "one.pdf", states[0].Name)
	assert.Equal(t, ModeFile, states[0].Kind)
}
