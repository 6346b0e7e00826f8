package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// RegisterModel is the form that adds a gateway account to the pool.
type RegisterModel struct {
	Session  *Session
	Inputs   []textinput.Model
	FocusIdx int
	Err      error
	Done     bool
}

const (
	regAccountID = iota
	regEmail
	regToken
)

type accountRegisteredMsg struct{}

func NewRegisterModel(s *Session) RegisterModel {
	inputs := make([]textinput.Model, 3)

	inputs[regAccountID] = textinput.New()
	inputs[regAccountID].Placeholder = "account id"
	inputs[regAccountID].Focus()
	inputs[regAccountID].Prompt = "Account ID: "

	inputs[regEmail] = textinput.New()
	inputs[regEmail].Placeholder = "owner@example.com"
	inputs[regEmail].Prompt = "Owner email: "

	inputs[regToken] = textinput.New()
	inputs[regToken].Placeholder = "api token"
	inputs[regToken].EchoMode = textinput.EchoPassword
	inputs[regToken].Prompt = "API token: "

	return RegisterModel{Session: s, Inputs: inputs}
}

func (m RegisterModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m RegisterModel) Update(msg tea.Msg) (RegisterModel, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.Inputs))

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return m, func() tea.Msg { return BackToDashboardMsg{} }
		case tea.KeyEnter:
			if m.FocusIdx == len(m.Inputs)-1 {
				return m, m.submit
			}
			m.nextInput()
		case tea.KeyTab, tea.KeyDown:
			m.nextInput()
		case tea.KeyShiftTab, tea.KeyUp:
			m.prevInput()
		}
	case accountRegisteredMsg:
		m.Done = true
		m.Err = nil
	case errMsg:
		m.Err = msg
	}

	for i := range m.Inputs {
		m.Inputs[i], cmds[i] = m.Inputs[i].Update(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *RegisterModel) nextInput() {
	m.Inputs[m.FocusIdx].Blur()
	m.FocusIdx++
	if m.FocusIdx >= len(m.Inputs) {
		m.FocusIdx = 0
	}
	m.Inputs[m.FocusIdx].Focus()
}

func (m *RegisterModel) prevInput() {
	m.Inputs[m.FocusIdx].Blur()
	m.FocusIdx--
	if m.FocusIdx < 0 {
		m.FocusIdx = len(m.Inputs) - 1
	}
	m.Inputs[m.FocusIdx].Focus()
}

func (m RegisterModel) submit() tea.Msg {
	accountID := m.Inputs[regAccountID].Value()
	email := m.Inputs[regEmail].Value()
	token := m.Inputs[regToken].Value()
	if accountID == "" || token == "" {
		return errMsg(fmt.Errorf("account id and token are required"))
	}
	if err := m.Session.RegisterAccount(accountID, email, token); err != nil {
		return errMsg(err)
	}
	return accountRegisteredMsg{}
}

func (m RegisterModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Add Account") + "\n\n")

	for i := range m.Inputs {
		b.WriteString(m.Inputs[i].View())
		if i < len(m.Inputs)-1 {
			b.WriteRune('\n')
		}
	}

	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("Tab to change fields, Enter to submit, Esc back"))

	if m.Done {
		b.WriteString("\n\n")
		b.WriteString(focusedStyle.Render("Account registered and bootstrapped."))
	}
	if m.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorMessageStyle(m.Err.Error()))
	}

	return b.String()
}
