package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type errMsg error

type loginDoneMsg struct{}

type LoginModel struct {
	Session  *Session
	Inputs   []textinput.Model
	FocusIdx int
	Err      error
}

const (
	inputURL = iota
	inputEmail
	inputPassword
)

func NewLoginModel(s *Session) LoginModel {
	inputs := make([]textinput.Model, 3)

	inputs[inputURL] = textinput.New()
	inputs[inputURL].Placeholder = "http://127.0.0.1:9300"
	inputs[inputURL].Focus()
	inputs[inputURL].Prompt = "Server: "
	inputs[inputURL].SetValue("http://127.0.0.1:9300")

	inputs[inputEmail] = textinput.New()
	inputs[inputEmail].Placeholder = "admin@example.com"
	inputs[inputEmail].Prompt = "Email: "

	inputs[inputPassword] = textinput.New()
	inputs[inputPassword].Placeholder = "password"
	inputs[inputPassword].EchoMode = textinput.EchoPassword
	inputs[inputPassword].Prompt = "Password: "

	return LoginModel{Session: s, Inputs: inputs}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.Inputs))

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			if m.FocusIdx == len(m.Inputs)-1 {
				return m, m.LoginCmd
			}
			m.nextInput()
		case tea.KeyTab, tea.KeyDown:
			m.nextInput()
		case tea.KeyShiftTab, tea.KeyUp:
			m.prevInput()
		}
	case errMsg:
		m.Err = msg
	}

	for i := range m.Inputs {
		m.Inputs[i], cmds[i] = m.Inputs[i].Update(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *LoginModel) nextInput() {
	m.Inputs[m.FocusIdx].Blur()
	m.FocusIdx++
	if m.FocusIdx >= len(m.Inputs) {
		m.FocusIdx = 0
	}
	m.Inputs[m.FocusIdx].Focus()
}

func (m *LoginModel) prevInput() {
	m.Inputs[m.FocusIdx].Blur()
	m.FocusIdx--
	if m.FocusIdx < 0 {
		m.FocusIdx = len(m.Inputs) - 1
	}
	m.Inputs[m.FocusIdx].Focus()
}

func (m LoginModel) LoginCmd() tea.Msg {
	url := strings.TrimRight(m.Inputs[inputURL].Value(), "/")
	email := m.Inputs[inputEmail].Value()
	password := m.Inputs[inputPassword].Value()

	if err := m.Session.Login(url, email, password); err != nil {
		return errMsg(fmt.Errorf("login failed: %v", err))
	}
	return loginDoneMsg{}
}

func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Klik Guard - Admin Login") + "\n\n")

	for i := range m.Inputs {
		b.WriteString(m.Inputs[i].View())
		if i < len(m.Inputs)-1 {
			b.WriteRune('\n')
		}
	}

	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("Press Tab to change fields, Enter to submit"))

	if m.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorMessageStyle(m.Err.Error()))
	}

	return b.String()
}
