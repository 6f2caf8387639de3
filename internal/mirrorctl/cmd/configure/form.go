package configure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
)

// ErrCancelled is returned when the operator leaves the form.
var ErrCancelled = errors.New("configuration cancelled")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	focusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// FormPrompter shows every field at once in a terminal form.
type FormPrompter struct {
	In  io.Reader
	Out io.Writer
}

var _ plugin.Prompter = (*FormPrompter)(nil)

func (p *FormPrompter) Ask(ctx context.Context, fields []plugin.Field) (map[string]string, error) {
	prog := tea.NewProgram(newFormModel(fields),
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	)
	final, err := prog.Run()
	if err != nil {
		return nil, err
	}
	m := final.(formModel)
	if m.cancelled {
		return nil, ErrCancelled
	}
	return m.answers(), nil
}

type formModel struct {
	fields    []plugin.Field
	inputs    []textinput.Model
	focus     int
	problem   string
	done      bool
	cancelled bool
}

func newFormModel(fields []plugin.Field) formModel {
	m := formModel{fields: fields, inputs: make([]textinput.Model, len(fields))}
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 512
		ti.SetValue(f.Default)
		if f.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '*'
		}
		m.inputs[i] = ti
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		var cmd tea.Cmd
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.focus < len(m.inputs)-1 {
				cmd = m.setFocus(m.focus + 1)
				return m, cmd
			}
			if i := m.missing(); i >= 0 {
				m.problem = label(m.fields[i]) + " is required"
				cmd = m.setFocus(i)
				return m, cmd
			}
			m.done = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			cmd = m.setFocus(m.focus + 1)
			return m, cmd
		case tea.KeyShiftTab, tea.KeyUp:
			cmd = m.setFocus(m.focus - 1)
			return m, cmd
		}
	}

	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *formModel) setFocus(i int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	i = (i + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

func (m formModel) missing() int {
	for i, f := range m.fields {
		if f.Required && strings.TrimSpace(m.inputs[i].Value()) == "" {
			return i
		}
	}
	return -1
}

func (m formModel) answers() map[string]string {
	out := make(map[string]string, len(m.fields))
	for i, f := range m.fields {
		out[f.Key] = strings.TrimSpace(m.inputs[i].Value())
	}
	return out
}

func (m formModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("mirror configure"))
	b.WriteString("\n\n")
	for i, f := range m.fields {
		style := labelStyle
		if i == m.focus {
			style = focusStyle
		}
		name := label(f)
		if f.Required {
			name += " *"
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", style.Render(name), m.inputs[i].View())
	}
	if m.problem != "" {
		b.WriteString(errStyle.Render(m.problem))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab/shift+tab move, enter next or save, esc cancel"))
	b.WriteString("\n")
	return b.String()
}
