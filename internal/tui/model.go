package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragserver/internal/domain"
)

// QAPort is the TUI-facing subset of the question-answering API.
type QAPort interface {
	Ask(question string, k int) (domain.Answer, error)
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	api      QAPort
	input    textinput.Model
	viewport viewport.Model
	status   string
	topK     int
	ready    bool
	history  []string
}

// New creates a new chat model bound to the given API.
func New(api QAPort, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if topK <= 0 {
		topK = 3
	}
	return Model{api: api, input: ti, viewport: vp, topK: topK, status: "Connected. Ask away."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header + status + input frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ch)
		m.viewport.SetContent(strings.Join(m.history, "\n\n"))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.status = "Thinking..."
				answer, err := m.api.Ask(q, m.topK)
				if err != nil {
					m.status = "Error: " + err.Error()
				} else {
					m.history = append(m.history, renderExchange(q, answer))
					m.status = fmt.Sprintf("Answered with %d citation(s)", len(answer.Citations))
					m.input.SetValue("")
				}
				m.viewport.SetContent(strings.Join(m.history, "\n\n"))
				m.viewport.GotoBottom()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Knowledge Q&A")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

var (
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	citationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	scoreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func renderExchange(question string, answer domain.Answer) string {
	var sb strings.Builder
	sb.WriteString(questionStyle.Render("You: " + question))
	sb.WriteString("\n")
	sb.WriteString(answer.Text)
	for _, c := range answer.Citations {
		line := fmt.Sprintf("[%s #%d] %s", c.SourceFile, c.ChunkID, c.TextSnippet)
		sb.WriteString("\n")
		sb.WriteString(citationStyle.Render(line))
		sb.WriteString(scoreStyle.Render(fmt.Sprintf(" (%.3f)", c.Score)))
	}
	return sb.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
