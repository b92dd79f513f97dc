package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"little-stars/internal/domain"
	"little-stars/internal/gate"
)

func (m Model) View() string {
	switch m.mounted.Tree {
	case gate.TreeLoading:
		return m.viewLoading()
	case gate.TreeMain:
		if m.screen != "" {
			return m.viewScreen()
		}
		return m.viewDashboard()
	default:
		return m.viewLogin()
	}
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Little Stars"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Sign in with the parent's registered mobile number"))
	b.WriteString("\n\n")

	b.WriteString(field("Mobile", "+91 "+m.mobile, m.field == fieldMobile))
	b.WriteString("\n")
	b.WriteString(field("OTP", strings.Repeat("•", len(m.code)), m.field == fieldCode))
	b.WriteString("\n")

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab switch field • enter continue • esc quit"))
	return panelStyle.Render(b.String())
}

func field(label, value string, focused bool) string {
	l := labelStyle.Render(fmt.Sprintf("%-7s", label))
	if focused {
		return cursorStyle.Render("> ") + l + focusStyle.Render(value+"_")
	}
	return "  " + l + valueStyle.Render(value)
}

func (m Model) viewLoading() string {
	return panelStyle.Render(titleStyle.Render("Little Stars") + "\n" + labelStyle.Render("Please wait..."))
}

func (m Model) viewDashboard() string {
	user := m.mounted.User
	var b strings.Builder
	if user != nil {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Hello, %s", user.ParentName)))
		b.WriteString("\n")
		b.WriteString(valueStyle.Render(fmt.Sprintf("%s • %s %s • Roll %s", user.Name, user.Class, user.Division, user.RollNumber)))
		b.WriteString("\n\n")
	}
	for i, name := range m.mounted.Screens {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + name))
		} else {
			b.WriteString("  " + valueStyle.Render(name))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move • enter open • L logout • q quit"))
	return panelStyle.Render(b.String())
}

func (m Model) viewScreen() string {
	var body string
	if m.screen == "Profile" {
		body = profile(m.mounted.User)
	} else {
		body = labelStyle.Render("Nothing here yet.")
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.screen),
		body,
		helpStyle.Render("esc back • L logout • q quit"),
	))
}

func profile(user *domain.User) string {
	if user == nil {
		return ""
	}
	rows := [][2]string{
		{"Student", user.Name},
		{"ID", user.ID},
		{"Class", user.Class + " " + user.Division},
		{"Roll no.", user.RollNumber},
		{"Parent", user.ParentName},
		{"Mobile", user.Mobile},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", r[0])))
		b.WriteString(okStyle.Render(r[1]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
