// Package tui is the interactive tracker: a dashboard of the current task
// and today's slices that drives the tracking loop and asks what to do with
// away periods.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/zedd/internal/config"
	"github.com/imkarma/zedd/internal/report"
	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/state"
	"github.com/imkarma/zedd/internal/tracker"
	"github.com/imkarma/zedd/internal/worker"
)

// popupKind is the dialog shown over the dashboard.
type popupKind int

const (
	popupNone     popupKind = iota
	popupSwitch             // Choose the task to time
	popupIdle               // Decide about an away period
	popupIdleTask           // Name the task an away period goes to
)

// maxSuggestions bounds the task list in the switch dialog.
const maxSuggestions = 5

// dashboard is the part of the state the view renders, copied out under the
// runner's lock.
type dashboard struct {
	task    string
	timing  bool
	mode    tracker.Mode
	slices  []string
	cursor  int // Index into slices, -1 when the cursor is on another day
	worked  float64
	target  float64
	canUndo bool
	canRedo bool
	recent  []string
}

// Model is the top-level bubbletea model.
type Model struct {
	runner *worker.Runner
	cfg    *config.Config
	width  int
	height int

	dash    dashboard
	lastNow time.Time

	// Away periods waiting for a decision, oldest first.
	away []slice.Interval

	popup       popupKind
	textInput   textinput.Model
	suggestion  int
	suggestions []string

	// Status message at the bottom.
	statusMsg  string
	statusErr  bool
	statusTime time.Time

	quitting bool
}

// New creates a new TUI model.
func New(r *worker.Runner, cfg *config.Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Task name..."
	ti.CharLimit = 200
	ti.Width = 50

	m := Model{
		runner:    r,
		cfg:       cfg,
		textInput: ti,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.doTick()
}

type tickMsg time.Time

type tickedMsg worker.TickResult

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.runner.Interval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// doTick samples the clock off the UI goroutine.
func (m Model) doTick() tea.Cmd {
	r := m.runner
	return func() tea.Msg {
		return tickedMsg(r.TickOnce(context.Background()))
	}
}

func (m Model) now() time.Time {
	if m.lastNow.IsZero() {
		return time.Now()
	}
	return m.lastNow
}

// refresh copies what the view needs out of the state.
func (m *Model) refresh() {
	today := m.now()
	cal := m.cfg.Calendar()
	_ = m.runner.Do(func(st *state.State) error {
		d := dashboard{
			task:    st.CurrentTask().Name,
			timing:  st.Engine.Timing(),
			mode:    st.Engine.Mode(),
			cursor:  -1,
			worked:  report.DayWorkedHours(st.Timeline, today),
			target:  cal.DayTarget(today),
			canUndo: st.Timeline.Journal().CanUndo(),
			canRedo: st.Timeline.Journal().CanRedo(),
		}
		if st.Registry.IsUndefined(st.Engine.Current()) {
			d.task = ""
		}
		cur := st.Engine.Cursor()
		for i, sl := range st.Timeline.ByDay(today) {
			if sl == cur {
				d.cursor = i
			}
			d.slices = append(d.slices, st.FormatSlice(sl))
		}
		for _, t := range st.MostRecentTasks(maxSuggestions) {
			d.recent = append(d.recent, t.Name)
		}
		m.dash = d
		return nil
	})
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusErr = false
	m.statusTime = time.Now()
}

func (m *Model) setError(err error) {
	m.statusMsg = err.Error()
	m.statusErr = true
	m.statusTime = time.Now()
}

// openInput shows a task-name dialog prefilled with the suggestions.
func (m *Model) openInput(kind popupKind) tea.Cmd {
	m.popup = kind
	m.suggestions = m.dash.recent
	m.suggestion = -1
	m.textInput.SetValue("")
	return m.textInput.Focus()
}

func (m *Model) closePopup() {
	m.textInput.Blur()
	m.popup = popupNone
	if len(m.away) > 0 {
		m.popup = popupIdle
	}
}
