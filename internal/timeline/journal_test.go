package timeline

import (
	"testing"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_IgnoresEngineEdits(t *testing.T) {
	tl := New()
	s, _ := tl.Add(EngineInternal, mk(t, "2020-01-01 10:00", "2020-01-01 11:00", 2))
	end := at("2020-01-01 11:30")
	require.NoError(t, tl.SetInterval(EngineInternal, s, nil, &end))

	assert.False(t, tl.Journal().CanUndo())
	undone, err := tl.Journal().Undo()
	require.NoError(t, err)
	assert.False(t, undone)
	assert.Equal(t, 1, tl.Len())
}

func TestJournal_UndoRedoTransaction(t *testing.T) {
	tl := New()
	s, _ := tl.Add(EngineInternal, mk(t, "2020-01-01 10:00", "2020-01-01 12:00", 2))

	// Split s at 11:00 as one user edit.
	tx := tl.Begin(UserEdit)
	require.NoError(t, tx.SetEnd(s, at("2020-01-01 11:00")))
	second, err := tx.Add(mk(t, "2020-01-01 11:00", "2020-01-01 12:00", 3))
	require.NoError(t, err)
	tx.Commit()

	require.Equal(t, 2, tl.Len())

	undone, err := tl.Journal().Undo()
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, []*slice.Slice{s}, tl.Slices())
	assert.Equal(t, at("2020-01-01 12:00"), s.End())

	redone, err := tl.Journal().Redo()
	require.NoError(t, err)
	assert.True(t, redone)
	assert.Equal(t, []*slice.Slice{s, second}, tl.Slices())
	assert.Equal(t, at("2020-01-01 11:00"), s.End())
	assert.Equal(t, []*slice.Slice{second}, tl.ByTask(3))
}

func TestJournal_NewEditDropsRedo(t *testing.T) {
	tl := New()
	a, _ := tl.Add(UserEdit, mk(t, "2020-01-01 10:00", "2020-01-01 11:00", 2))
	_, err := tl.Journal().Undo()
	require.NoError(t, err)
	assert.True(t, tl.Journal().CanRedo())

	tl.Add(UserEdit, mk(t, "2020-01-01 12:00", "2020-01-01 13:00", 2))
	assert.False(t, tl.Journal().CanRedo())
	assert.False(t, tl.Contains(a))
}

func TestJournal_UndoRemoveRestoresGroups(t *testing.T) {
	tl := New()
	s, _ := tl.Add(EngineInternal, mk(t, "2020-01-01 10:00", "2020-01-01 11:00", 2))
	require.NoError(t, tl.Remove(UserEdit, s))
	assert.Empty(t, tl.ByTask(2))

	_, err := tl.Journal().Undo()
	require.NoError(t, err)
	assert.True(t, tl.Contains(s))
	assert.Equal(t, []*slice.Slice{s}, tl.ByTask(2))
	assert.Equal(t, []*slice.Slice{s}, tl.ByDay(s.Start()))
}
