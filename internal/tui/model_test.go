package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imkarma/zedd/internal/config"
	"github.com/imkarma/zedd/internal/idle"
	"github.com/imkarma/zedd/internal/state"
	"github.com/imkarma/zedd/internal/worker"
)

type harness struct {
	t      *testing.T
	now    time.Time
	st     *state.State
	runner *worker.Runner
	m      Model
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, now: time.Date(2020, 1, 1, 10, 0, 2, 0, time.Local)}
	h.st = state.New()
	h.st.StartTiming("a")
	h.runner = worker.NewRunner(worker.RunnerConfig{
		State:     h.st,
		Idle:      idle.Func(func(context.Context) (time.Duration, error) { return 0, nil }),
		Now:       func() time.Time { return h.now },
		Threshold: 15,
	})
	h.m = New(h.runner, config.DefaultConfig())
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	m, ok := next.(Model)
	require.True(h.t, ok)
	h.m = m
	return cmd
}

func (h *harness) tick() {
	h.send(tickedMsg(h.runner.TickOnce(context.Background())))
}

func (h *harness) press(k string) tea.Cmd {
	switch k {
	case "enter":
		return h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "tab":
		return h.send(tea.KeyMsg{Type: tea.KeyTab})
	case "esc":
		return h.send(tea.KeyMsg{Type: tea.KeyEsc})
	}
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

// comeBackAfter ticks once, then once more after an absence of d.
func (h *harness) comeBackAfter(d time.Duration) {
	h.tick()
	h.now = h.now.Add(d)
	h.tick()
}

func TestIdlePopup_BookOnCurrentTask(t *testing.T) {
	h := newHarness(t)
	h.comeBackAfter(30 * time.Minute)

	require.Equal(t, popupIdle, h.m.popup)
	require.Len(t, h.m.away, 1)
	assert.Contains(t, h.m.View(), "You were away")

	h.press("a")
	assert.Equal(t, popupNone, h.m.popup)
	assert.Empty(t, h.m.away)
	assert.Equal(t, 3, h.st.Timeline.Len())
	assert.Len(t, h.m.dash.slices, 3)
	assert.True(t, h.m.dash.canUndo)

	h.press("u")
	assert.Equal(t, 2, h.st.Timeline.Len())
	h.press("r")
	assert.Equal(t, 3, h.st.Timeline.Len())
}

func TestIdlePopup_Discard(t *testing.T) {
	h := newHarness(t)
	h.comeBackAfter(30 * time.Minute)

	h.press("d")
	assert.Equal(t, popupNone, h.m.popup)
	assert.Equal(t, 2, h.st.Timeline.Len())
	assert.False(t, h.m.dash.canUndo)
}

func TestIdlePopup_BookOnOtherTask(t *testing.T) {
	h := newHarness(t)
	h.comeBackAfter(30 * time.Minute)

	h.press("t")
	require.Equal(t, popupIdleTask, h.m.popup)

	// Esc goes back to the decision.
	h.press("esc")
	require.Equal(t, popupIdle, h.m.popup)

	h.press("t")
	h.m.textInput.SetValue("meeting")
	h.press("enter")
	assert.Equal(t, popupNone, h.m.popup)

	meeting := h.st.Registry.FindByName("meeting")
	require.NotNil(t, meeting)
	assert.Len(t, h.st.Timeline.ByTask(meeting.ID), 1)
	assert.Equal(t, "a", h.st.CurrentTask().Name)
}

func TestIdlePopup_NoCurrentTask(t *testing.T) {
	h := newHarness(t)
	h.comeBackAfter(30 * time.Minute)
	require.NoError(t, h.runner.Do(func(st *state.State) error {
		st.StopTiming()
		return nil
	}))

	h.press("a")
	assert.Equal(t, popupIdle, h.m.popup)
	assert.True(t, h.m.statusErr)
	assert.Len(t, h.m.away, 1)
}

func TestIdlePopup_QueuesAbsences(t *testing.T) {
	h := newHarness(t)
	h.comeBackAfter(30 * time.Minute)
	h.now = h.now.Add(20 * time.Minute)
	h.tick()

	require.Len(t, h.m.away, 2)
	h.press("d")
	assert.Equal(t, popupIdle, h.m.popup)
	h.press("d")
	assert.Equal(t, popupNone, h.m.popup)
}

func TestIdlePopup_AssignShowsNextAbsence(t *testing.T) {
	h := newHarness(t)
	h.comeBackAfter(30 * time.Minute)
	h.now = h.now.Add(20 * time.Minute)
	h.tick()

	require.Len(t, h.m.away, 2)
	h.press("a")
	assert.Equal(t, popupIdle, h.m.popup)
	assert.Len(t, h.m.away, 1)
}

func TestSwitchTask(t *testing.T) {
	h := newHarness(t)
	h.tick()

	h.press("s")
	require.Equal(t, popupSwitch, h.m.popup)
	h.press("tab")
	assert.Equal(t, "a", h.m.textInput.Value())

	h.m.textInput.SetValue("review")
	h.press("enter")
	assert.Equal(t, popupNone, h.m.popup)
	assert.Equal(t, "review", h.st.CurrentTask().Name)
	assert.Equal(t, "review", h.m.dash.task)
	assert.Contains(t, h.m.View(), "review")
}

func TestSwitchTask_EmptyNameIsRejected(t *testing.T) {
	h := newHarness(t)
	h.press("s")
	h.press("enter")
	assert.Equal(t, popupSwitch, h.m.popup)
	assert.Equal(t, "a", h.st.CurrentTask().Name)
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t)
	h.press("p")
	assert.False(t, h.st.Engine.Timing())
	assert.Contains(t, h.m.View(), "paused")
	h.press("p")
	assert.True(t, h.st.Engine.Timing())
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	cmd := h.press("q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, h.m.quitting)
	assert.Empty(t, h.m.View())
}
