package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// UsersModel lists every user and toggles locks on the selected one.
type UsersModel struct {
	Session *Session
	Table   table.Model
	Err     error
}

type usersLoadedMsg []UserEntry

func NewUsersModel(s *Session, width, height int) UsersModel {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Email", Width: 34},
		{Title: "Role", Width: 8},
		{Title: "Enabled", Width: 8},
		{Title: "Locked", Width: 8},
		{Title: "Account", Width: 24},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height-10),
	)

	sStyle := table.DefaultStyles()
	sStyle.Header = sStyle.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sStyle.Selected = sStyle.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sStyle)

	return UsersModel{Session: s, Table: t}
}

func (m UsersModel) Init() tea.Cmd {
	return m.loadUsers
}

func (m UsersModel) loadUsers() tea.Msg {
	users, err := m.Session.Users()
	if err != nil {
		return errMsg(err)
	}
	return usersLoadedMsg(users)
}

func (m UsersModel) Update(msg tea.Msg) (UsersModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.loadUsers
		case "l":
			selected := m.Table.SelectedRow()
			if len(selected) > 0 {
				id, err := strconv.ParseUint(selected[0], 10, 32)
				if err == nil {
					return m, func() tea.Msg {
						if err := m.Session.SwitchLocked(uint(id)); err != nil {
							return errMsg(err)
						}
						return m.loadUsers()
					}
				}
			}
		case "esc":
			return m, func() tea.Msg { return BackToDashboardMsg{} }
		case "q":
			return m, tea.Quit
		}

	case usersLoadedMsg:
		rows := make([]table.Row, 0, len(msg))
		for _, u := range msg {
			rows = append(rows, table.Row{
				strconv.FormatUint(uint64(u.ID), 10),
				u.Email,
				u.Role,
				fmt.Sprintf("%t", u.Enabled),
				fmt.Sprintf("%t", u.Locked),
				u.AccountID,
			})
		}
		m.Table.SetRows(rows)
		m.Err = nil

	case errMsg:
		m.Err = msg
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m UsersModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Users") + "\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("'r' refresh, 'l' toggle lock, Esc back, 'q' quit"))

	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
