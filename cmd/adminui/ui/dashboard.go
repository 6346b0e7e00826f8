package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DashboardModel shows the account pool with per-account slot usage.
type DashboardModel struct {
	Session *Session
	Table   table.Model
	Err     error
}

type accountsLoadedMsg []AccountEntry

func NewDashboardModel(s *Session, width, height int) DashboardModel {
	columns := []table.Column{
		{Title: "Account ID", Width: 36},
		{Title: "Email", Width: 30},
		{Title: "Slots", Width: 12},
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

	return DashboardModel{Session: s, Table: t}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.loadAccounts
}

func (m DashboardModel) loadAccounts() tea.Msg {
	accounts, err := m.Session.Accounts()
	if err != nil {
		return errMsg(err)
	}
	return accountsLoadedMsg(accounts)
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.loadAccounts
		case "u":
			return m, func() tea.Msg { return ShowUsersMsg{} }
		case "a":
			return m, func() tea.Msg { return ShowRegisterMsg{} }
		case "q":
			return m, tea.Quit
		}

	case accountsLoadedMsg:
		rows := make([]table.Row, 0, len(msg))
		for _, a := range msg {
			rows = append(rows, table.Row{a.AccountID, a.Email, fmt.Sprintf("%d/%d", a.UserNum, a.Capacity)})
		}
		m.Table.SetRows(rows)
		m.Err = nil

	case errMsg:
		m.Err = msg
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Account Pool") + "\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("'r' refresh, 'u' users, 'a' add account, 'q' quit"))

	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}

// ShowUsersMsg switches to the user list view.
type ShowUsersMsg struct{}

// ShowRegisterMsg switches to the account registration form.
type ShowRegisterMsg struct{}
