// Package tui renders the parent app in a terminal. It mounts whatever tree
// the gate selects: the login flow while signed out, the main app otherwise.
package tui

import (
	"context"
	"errors"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"

	"little-stars/internal/gate"
	"little-stars/internal/session"
)

const (
	mobileLength = 10
	codeLength   = 4
)

// Actions is the part of the session store the UI may drive.
type Actions interface {
	Login(ctx context.Context, identifier, code string) error
	Logout(ctx context.Context) error
}

// MountedMsg carries a gate change into the program.
type MountedMsg gate.Mounted

type loginDoneMsg struct{ err error }

type logoutDoneMsg struct{}

type loginField int

const (
	fieldMobile loginField = iota
	fieldCode
)

// Model is the Bubble Tea model of the app.
type Model struct {
	actions Actions
	mounted gate.Mounted

	// login tree
	mobile  string
	code    string
	field   loginField
	errText string

	// main tree
	cursor int
	screen string

	width int
}

func New(actions Actions, initial gate.Mounted) Model {
	return Model{actions: actions, mounted: initial}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MountedMsg:
		return m.remount(gate.Mounted(msg)), nil
	case loginDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrSuperseded) {
			m.errText = loginErrorText(msg.err)
			m.code = ""
		}
		return m, nil
	case logoutDoneMsg:
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mounted.Tree {
		case gate.TreeAuth:
			return m.updateLogin(msg)
		case gate.TreeMain:
			return m.updateMain(msg)
		}
	}
	return m, nil
}

// remount swaps trees. Leaving the main tree drops all of its state.
func (m Model) remount(next gate.Mounted) Model {
	prev := m.mounted.Tree
	m.mounted = next
	if next.Tree != gate.TreeMain {
		m.cursor = 0
		m.screen = ""
	}
	if next.Tree == gate.TreeMain && prev != gate.TreeMain {
		m.mobile, m.code, m.field, m.errText = "", "", fieldMobile, ""
	}
	return m
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		if m.field == fieldMobile {
			m.field = fieldCode
		} else {
			m.field = fieldMobile
		}
		return m, nil
	case "backspace":
		if m.field == fieldMobile && len(m.mobile) > 0 {
			m.mobile = m.mobile[:len(m.mobile)-1]
		}
		if m.field == fieldCode && len(m.code) > 0 {
			m.code = m.code[:len(m.code)-1]
		}
		return m, nil
	case "enter":
		if m.field == fieldMobile {
			if len(m.mobile) != mobileLength {
				m.errText = "Enter a 10 digit mobile number"
				return m, nil
			}
			m.errText = ""
			m.field = fieldCode
			return m, nil
		}
		if len(m.mobile) != mobileLength {
			m.errText = "Enter a 10 digit mobile number"
			m.field = fieldMobile
			return m, nil
		}
		if len(m.code) != codeLength {
			m.errText = "Enter the 4 digit OTP"
			return m, nil
		}
		m.errText = ""
		return m, m.loginCmd(m.mobile, m.code)
	}

	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			if !unicode.IsDigit(r) {
				continue
			}
			if m.field == fieldMobile && len(m.mobile) < mobileLength {
				m.mobile += string(r)
			}
			if m.field == fieldCode && len(m.code) < codeLength {
				m.code += string(r)
			}
		}
	}
	return m, nil
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.screen != "" {
		switch msg.String() {
		case "esc", "backspace", "h", "left":
			m.screen = ""
		case "q":
			return m, tea.Quit
		case "L":
			return m, m.logoutCmd()
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.mounted.Screens)-1 {
			m.cursor++
		}
	case "enter", "l", "right":
		if m.cursor < len(m.mounted.Screens) {
			m.screen = m.mounted.Screens[m.cursor]
		}
	case "L":
		return m, m.logoutCmd()
	}
	return m, nil
}

func (m Model) loginCmd(mobile, code string) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		return loginDoneMsg{err: actions.Login(context.Background(), mobile, code)}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		_ = actions.Logout(context.Background())
		return logoutDoneMsg{}
	}
}

func loginErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return "That OTP did not match. Please try again."
	case errors.Is(err, session.ErrNetwork):
		return "Could not reach the school server. Check your connection and retry."
	}
	return "Login failed. Please try again."
}
