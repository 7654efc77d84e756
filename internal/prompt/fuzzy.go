package prompt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

const maxVisible = 10

var (
	promptStyle   = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// FuzzyPicker is a full-screen Picker with incremental fuzzy filtering.
// Enter takes the highlighted match, or the typed text when nothing
// matches; alt+enter always takes the typed text.
type FuzzyPicker struct {
	In  io.Reader
	Out io.Writer
}

// Pick runs the picker until the user accepts or cancels.
func (f *FuzzyPicker) Pick(ctx context.Context, prompt string, candidates []string) (string, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f.In != nil {
		opts = append(opts, tea.WithInput(f.In))
	}
	if f.Out != nil {
		opts = append(opts, tea.WithOutput(f.Out))
	}

	final, err := tea.NewProgram(newFuzzyModel(prompt, candidates), opts...).Run()
	if err != nil {
		return "", fmt.Errorf("prompt: fuzzy picker: %w", err)
	}
	m, ok := final.(fuzzyModel)
	if !ok || m.cancelled || m.choice == "" {
		return "", ErrNoChoice
	}
	return m.choice, nil
}

type fuzzyModel struct {
	prompt     string
	input      textinput.Model
	candidates []string
	matches    []string
	cursor     int
	choice     string
	cancelled  bool
}

func newFuzzyModel(prompt string, candidates []string) fuzzyModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter, or enter a new tag"
	ti.CharLimit = 256
	ti.Width = 40
	ti.Focus()

	return fuzzyModel{
		prompt:     prompt,
		input:      ti,
		candidates: candidates,
		matches:    candidates,
	}
}

func (m fuzzyModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m fuzzyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			typed := strings.TrimSpace(m.input.Value())
			if key.Alt || len(m.matches) == 0 {
				m.choice = typed
			} else {
				m.choice = m.matches[m.cursor]
			}
			return m, tea.Quit
		case tea.KeyUp, tea.KeyCtrlP:
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case tea.KeyDown, tea.KeyCtrlN:
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refilter()
	}
	return m, cmd
}

func (m *fuzzyModel) refilter() {
	m.cursor = 0
	pattern := strings.TrimSpace(m.input.Value())
	if pattern == "" {
		m.matches = m.candidates
		return
	}
	found := fuzzy.Find(pattern, m.candidates)
	m.matches = make([]string, 0, len(found))
	for _, f := range found {
		m.matches = append(m.matches, f.Str)
	}
}

func (m fuzzyModel) View() string {
	var b strings.Builder
	b.WriteString(promptStyle.Render(m.prompt))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.matches) == 0 {
		b.WriteString(dimStyle.Render("  no match; enter creates a new tag"))
		b.WriteString("\n")
	}
	start := 0
	if m.cursor >= maxVisible {
		start = m.cursor - maxVisible + 1
	}
	for i := start; i < len(m.matches) && i < start+maxVisible; i++ {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + m.matches[i]))
		} else {
			b.WriteString("  " + m.matches[i])
		}
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", len(m.matches), len(m.candidates))))
	return b.String()
}
