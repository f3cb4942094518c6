// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package repl

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	echoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const historyLimit = 200

// Model is the bubbletea model for the interactive session.
type Model struct {
	ctx     context.Context
	session *Session
	input   textinput.Model
	history []string
	width   int
}

// NewModel wires a Session into a terminal model.
func NewModel(ctx context.Context, session *Session) Model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render("cvpc> ")
	ti.Placeholder = "type 'help' for commands"
	ti.Focus()

	return Model{
		ctx:     ctx,
		session: session,
		input:   ti,
		history: []string{"cvpc interactive session (type 'help' for commands)"},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.SetValue("")
			m.append(echoStyle.Render("cvpc> " + line))

			output, quit := m.session.Execute(m.ctx, line)
			if output != "" {
				m.append(output)
			}
			if quit {
				return m, tea.Quit
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 8
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	for _, line := range m.history {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(m.input.View())
	return b.String()
}

func (m *Model) append(line string) {
	m.history = append(m.history, line)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}

// Run starts the interactive session and blocks until the user leaves.
func Run(ctx context.Context, session *Session) error {
	program := tea.NewProgram(NewModel(ctx, session))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running interactive session: %w", err)
	}
	return nil
}
