package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type state int

const (
	stateLogin state = iota
	stateDashboard
	stateUsers
	stateRegister
)

// BackToDashboardMsg signals transition back to the pool dashboard.
type BackToDashboardMsg struct{}

type RootModel struct {
	State     state
	Session   *Session
	Login     LoginModel
	Dashboard DashboardModel
	Users     UsersModel
	Register  RegisterModel
	Quitting  bool
	width     int
	height    int
}

func NewRootModel() RootModel {
	s := NewSession()
	return RootModel{
		State:   stateLogin,
		Session: s,
		Login:   NewLoginModel(s),
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.Login.Init()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.Dashboard.Table.SetHeight(msg.Height - 10)
		m.Users.Table.SetHeight(msg.Height - 10)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			return m, tea.Quit
		}
	}

	switch m.State {
	case stateLogin:
		if _, ok := msg.(loginDoneMsg); ok {
			m.State = stateDashboard
			m.Dashboard = NewDashboardModel(m.Session, m.width, m.height)
			return m, m.Dashboard.Init()
		}
		newLogin, cmd := m.Login.Update(msg)
		m.Login = newLogin
		cmds = append(cmds, cmd)

	case stateDashboard:
		switch msg.(type) {
		case ShowUsersMsg:
			m.State = stateUsers
			m.Users = NewUsersModel(m.Session, m.width, m.height)
			return m, m.Users.Init()
		case ShowRegisterMsg:
			m.State = stateRegister
			m.Register = NewRegisterModel(m.Session)
			return m, m.Register.Init()
		}
		newDash, cmd := m.Dashboard.Update(msg)
		m.Dashboard = newDash
		cmds = append(cmds, cmd)

	case stateUsers:
		if _, ok := msg.(BackToDashboardMsg); ok {
			m.State = stateDashboard
			return m, m.Dashboard.Init()
		}
		newUsers, cmd := m.Users.Update(msg)
		m.Users = newUsers
		cmds = append(cmds, cmd)

	case stateRegister:
		if _, ok := msg.(BackToDashboardMsg); ok {
			m.State = stateDashboard
			return m, m.Dashboard.Init()
		}
		newReg, cmd := m.Register.Update(msg)
		m.Register = newReg
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) View() string {
	if m.Quitting {
		return "Bye!\n"
	}
	switch m.State {
	case stateLogin:
		return m.Login.View()
	case stateDashboard:
		return m.Dashboard.View()
	case stateUsers:
		return m.Users.View()
	case stateRegister:
		return m.Register.View()
	}
	return "Unknown state"
}
