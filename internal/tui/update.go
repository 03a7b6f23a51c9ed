package tui

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/zedd/internal/slice"
	"github.com/imkarma/zedd/internal/state"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If popup is active, handle popup keys first.
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, m.doTick()

	case tickedMsg:
		m.lastNow = msg.Now
		if msg.Err != nil {
			m.setError(msg.Err)
		}
		m.away = append(m.away, msg.Idle...)
		if m.popup == popupNone && len(m.away) > 0 {
			m.popup = popupIdle
		}
		// Clear old status messages.
		if m.statusMsg != "" && time.Since(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		m.refresh()
		return m, m.tickCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if err := m.runner.Save(); err != nil {
			log.Printf("tui: save on quit: %v", err)
		}
		m.quitting = true
		return m, tea.Quit

	case "s":
		return m, m.openInput(popupSwitch)

	case "p":
		var on bool
		m.do(func(st *state.State) error {
			on = st.ToggleTiming()
			return nil
		})
		if on {
			m.setStatus("Timing resumed")
		} else {
			m.setStatus("Timing paused")
		}
		return m, nil

	case "u":
		m.undoRedo("Undone", "Nothing to undo", (*state.State).Undo)
		return m, nil

	case "r":
		m.undoRedo("Redone", "Nothing to redo", (*state.State).Redo)
		return m, nil
	}

	return m, nil
}

// do runs fn under the runner's lock, reports its error and refreshes the
// dashboard. It reports whether fn succeeded.
func (m *Model) do(fn func(st *state.State) error) bool {
	err := m.runner.Do(fn)
	if err != nil {
		m.setError(err)
	}
	m.refresh()
	return err == nil
}

func (m *Model) undoRedo(done, none string, op func(*state.State) (bool, error)) {
	var changed bool
	if !m.do(func(st *state.State) (err error) {
		changed, err = op(st)
		return err
	}) {
		return
	}
	if changed {
		m.setStatus(done)
	} else {
		m.setStatus(none)
	}
}

// --- Popups ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupSwitch:
		return m.handleSwitchPopup(msg)
	case popupIdle:
		return m.handleIdlePopup(msg)
	case popupIdleTask:
		return m.handleIdleTaskPopup(msg)
	}
	return m, nil
}

// handleTaskInput handles the keys shared by the task-name dialogs. ok is
// true when a name was submitted.
func (m *Model) handleTaskInput(msg tea.KeyMsg) (name string, ok bool, cmd tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		if len(m.suggestions) > 0 {
			m.suggestion = (m.suggestion + 1) % len(m.suggestions)
			m.textInput.SetValue(m.suggestions[m.suggestion])
			m.textInput.CursorEnd()
		}
		return "", false, nil
	case "shift+tab", "up":
		if len(m.suggestions) > 0 {
			m.suggestion--
			if m.suggestion < 0 {
				m.suggestion = len(m.suggestions) - 1
			}
			m.textInput.SetValue(m.suggestions[m.suggestion])
			m.textInput.CursorEnd()
		}
		return "", false, nil
	case "enter":
		name = strings.TrimSpace(m.textInput.Value())
		if name == "" {
			m.setStatus("Task name cannot be empty")
			return "", false, nil
		}
		return name, true, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return "", false, cmd
}

func (m Model) handleSwitchPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.closePopup()
		return m, nil
	}
	name, ok, cmd := m.handleTaskInput(msg)
	if !ok {
		return m, cmd
	}
	m.closePopup()
	var started string
	m.do(func(st *state.State) error {
		started = st.StartTiming(name).Name
		return nil
	})
	m.setStatus("Timing " + started)
	return m, nil
}

func (m Model) handleIdlePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.away) == 0 {
		m.closePopup()
		return m, nil
	}
	away := m.away[0]

	switch msg.String() {
	case "d", "esc":
		m.away = m.away[1:]
		m.closePopup()
		m.setStatus("Discarded " + away.String())
		return m, nil

	case "a":
		var name string
		ok := m.do(func(st *state.State) error {
			t := st.CurrentTask()
			if st.Registry.IsUndefined(t.ID) {
				return errors.New("no current task; press t to pick one")
			}
			name = t.Name
			_, err := st.AssignInterval(away, t)
			return err
		})
		if ok {
			m.away = m.away[1:]
			m.closePopup()
			m.setStatus(fmt.Sprintf("Booked %s on %s", away, name))
		}
		return m, nil

	case "t":
		return m, m.openInput(popupIdleTask)
	}
	return m, nil
}

func (m Model) handleIdleTaskPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.textInput.Blur()
		m.popup = popupIdle
		return m, nil
	}
	name, ok, cmd := m.handleTaskInput(msg)
	if !ok {
		return m, cmd
	}
	if len(m.away) == 0 {
		m.closePopup()
		return m, nil
	}
	away := m.away[0]
	if m.assign(away, name) {
		m.away = m.away[1:]
		m.closePopup()
		m.setStatus(fmt.Sprintf("Booked %s on %s", away, name))
	}
	return m, nil
}

func (m *Model) assign(away slice.Interval, name string) bool {
	return m.do(func(st *state.State) error {
		_, err := st.AssignInterval(away, st.Registry.GetOrCreate(name))
		return err
	})
}
