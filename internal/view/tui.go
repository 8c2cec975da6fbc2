package view

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/volaengine/vola/internal/model"
)

// Querier is the slice of the orchestrator the TUI drives.
type Querier interface {
	RunQuery(ctx context.Context, symbol string) bool
	State() model.DashboardState
}

// StateChangedMsg tells the model to re-read the orchestrator state. Send it
// from the orchestrator's change callback via tea.Program.Send.
type StateChangedMsg struct{}

type cycleDoneMsg struct{}

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// Model is the interactive dashboard.
type Model struct {
	ctx           context.Context
	q             Querier
	input         textinput.Model
	state         model.DashboardState
	defaultSymbol string
}

// NewModel builds the TUI. Init runs a first query for defaultSymbol when
// it is non-empty.
func NewModel(ctx context.Context, q Querier, defaultSymbol string) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter ticker (e.g. AAPL)"
	ti.Prompt = "Symbol > "
	ti.CharLimit = 12
	ti.Width = 20
	ti.SetValue(strings.ToUpper(defaultSymbol))
	ti.Focus()

	return Model{
		ctx:           ctx,
		q:             q,
		input:         ti,
		state:         q.State(),
		defaultSymbol: defaultSymbol,
	}
}

func (m Model) Init() tea.Cmd {
	if strings.TrimSpace(m.defaultSymbol) == "" {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.query(m.defaultSymbol))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			// Submit is disabled while a cycle is in flight.
			if m.q.State().Loading {
				return m, nil
			}
			symbol := strings.TrimSpace(m.input.Value())
			if symbol == "" {
				return m, nil
			}
			m.input.SetValue(strings.ToUpper(symbol))
			m.input.CursorEnd()
			return m, m.query(symbol)
		}
	case StateChangedMsg, cycleDoneMsg:
		m.state = m.q.State()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(RenderReport(m.state))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: analyze • esc/ctrl+c: quit"))
	b.WriteString("\n")
	return b.String()
}

// State is the last state the model rendered.
func (m Model) State() model.DashboardState { return m.state }

func (m Model) query(symbol string) tea.Cmd {
	ctx, q := m.ctx, m.q
	return func() tea.Msg {
		q.RunQuery(ctx, symbol)
		return cycleDoneMsg{}
	}
}
