package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"little-stars/internal/domain"
	"little-stars/internal/gate"
	"little-stars/internal/session"
)

type fakeActions struct {
	mu       sync.Mutex
	logins   [][2]string
	logouts  int
	loginErr error
}

func (f *fakeActions) Login(_ context.Context, id, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, [2]string{id, code})
	return f.loginErr
}

func (f *fakeActions) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func authMounted() gate.Mounted {
	return gate.Mounted{Tree: gate.TreeAuth, Screens: gate.Screens(gate.TreeAuth)}
}

func mainMounted() gate.Mounted {
	u := domain.DemoStudent()
	return gate.Mounted{Tree: gate.TreeMain, User: &u, Screens: gate.Screens(gate.TreeMain)}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		next, c := m.Update(msg)
		m = next.(Model)
		cmd = c
	}
	return m, cmd
}

func TestLoginFormSubmitsDigits(t *testing.T) {
	actions := &fakeActions{}
	m := New(actions, authMounted())

	m, cmd := press(t, m,
		runes("98765abc43210"),
		tea.KeyMsg{Type: tea.KeyEnter},
		runes("12345"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	assert.Equal(t, "9876543210", m.mobile)
	assert.Equal(t, "1234", m.code)
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, loginDoneMsg{}, msg)
	assert.Equal(t, [][2]string{{"9876543210", "1234"}}, actions.logins)
}

func TestLoginFormValidatesBeforeSubmitting(t *testing.T) {
	actions := &fakeActions{}
	m := New(actions, authMounted())

	m, cmd := press(t, m, runes("98765"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, fieldMobile, m.field)
	assert.Contains(t, m.View(), "10 digit mobile")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "9876", m.mobile)
	assert.Empty(t, actions.logins)
}

func TestLoginErrorsAreShown(t *testing.T) {
	m := New(&fakeActions{}, authMounted())
	m.code = "0000"

	m, _ = press(t, m, loginDoneMsg{err: session.ErrInvalidCredentials})
	assert.Contains(t, m.View(), "OTP did not match")
	assert.Empty(t, m.code)

	m, _ = press(t, m, loginDoneMsg{err: session.ErrNetwork})
	assert.Contains(t, m.View(), "Could not reach")

	m.errText = ""
	m, _ = press(t, m, loginDoneMsg{err: session.ErrSuperseded})
	assert.Empty(t, m.errText)
}

func TestMountedTreeFollowsGate(t *testing.T) {
	m := New(&fakeActions{}, authMounted())
	m.mobile = "9876543210"

	m, _ = press(t, m, MountedMsg(gate.Mounted{Tree: gate.TreeLoading}))
	assert.Contains(t, m.View(), "Please wait")

	m, _ = press(t, m, MountedMsg(mainMounted()))
	view := m.View()
	assert.Contains(t, view, "Hello, Rajesh Patel")
	assert.Contains(t, view, "Homework")
	assert.Empty(t, m.mobile)
}

func TestMainNavigationAndProfile(t *testing.T) {
	m := New(&fakeActions{}, mainMounted())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)

	// Profile is the eighth screen.
	for i := 0; i < 7; i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "Profile", m.screen)
	view := m.View()
	assert.Contains(t, view, "STU12345")
	assert.Contains(t, view, "9876543210")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.screen)

	for i := 0; i < 20; i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, len(gate.MainScreens)-1, m.cursor)
}

func TestLogoutDropsMainState(t *testing.T) {
	actions := &fakeActions{}
	m := New(actions, mainMounted())
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "Homework", m.screen)

	m, cmd := press(t, m, runes("L"))
	require.NotNil(t, cmd)
	assert.Equal(t, logoutDoneMsg{}, cmd())
	assert.Equal(t, 1, actions.logouts)

	m, _ = press(t, m, MountedMsg(authMounted()))
	assert.Empty(t, m.screen)
	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, m.View(), "Little Stars")
}

func TestQuitKeys(t *testing.T) {
	m := New(&fakeActions{}, mainMounted())
	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	m = New(&fakeActions{}, authMounted())
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	// q is an ordinary key on the login form
	m, cmd = press(t, m, runes("q"))
	assert.Nil(t, cmd)
	assert.Empty(t, m.mobile)
}
