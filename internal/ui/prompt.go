package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is an overlay that takes every key until it closes. Update reports
// done=true when the overlay should be dismissed.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (m Modal, cmd tea.Cmd, done bool)
	View(theme Theme, width, height int) string
}

// promptModal collects one or more text values and hands them to submit.
type promptModal struct {
	title  string
	hint   string
	labels []string
	inputs []textinput.Model
	focus  int
	submit func(values []string) tea.Cmd
}

// promptField describes one input of a prompt.
type promptField struct {
	label       string
	value       string
	placeholder string
}

func newPrompt(title, hint string, fields []promptField, submit func([]string) tea.Cmd) *promptModal {
	p := &promptModal{title: title, hint: hint, submit: submit}
	for i, f := range fields {
		in := textinput.New()
		in.Placeholder = f.placeholder
		in.CharLimit = 200
		in.Width = 36
		in.SetValue(f.value)
		if i == 0 {
			in.Focus()
		}
		p.labels = append(p.labels, f.label)
		p.inputs = append(p.inputs, in)
	}
	return p
}

// Values returns the trimmed input values.
func (p *promptModal) Values() []string {
	out := make([]string, len(p.inputs))
	for i, in := range p.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

func (p *promptModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil, false
	}

	switch {
	case key.Matches(keyMsg, keys.Escape):
		return p, nil, true

	case key.Matches(keyMsg, keys.Confirm):
		var cmd tea.Cmd
		if p.submit != nil {
			cmd = p.submit(p.Values())
		}
		return p, cmd, true

	case keyMsg.Type == tea.KeyTab || keyMsg.Type == tea.KeyDown:
		p.move(1)
		return p, nil, false

	case keyMsg.Type == tea.KeyShiftTab || keyMsg.Type == tea.KeyUp:
		p.move(-1)
		return p, nil, false
	}

	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(keyMsg)
	return p, cmd, false
}

func (p *promptModal) move(step int) {
	if len(p.inputs) < 2 {
		return
	}
	p.inputs[p.focus].Blur()
	p.focus = (p.focus + step + len(p.inputs)) % len(p.inputs)
	p.inputs[p.focus].Focus()
}

func (p *promptModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	labelWidth := 0
	for _, l := range p.labels {
		if n := len([]rune(l)); n > labelWidth {
			labelWidth = n
		}
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(p.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")

	if p.hint != "" {
		b.WriteString(styles.MutedText.Render(p.hint))
		b.WriteString("\n\n")
	}

	for i, in := range p.inputs {
		label := padRight(p.labels[i]+":", labelWidth+2)
		if i == p.focus {
			label = styles.AccentText.Render(label)
		} else {
			label = styles.MutedText.Render(label)
		}
		b.WriteString(label)
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}

	b.WriteString(styles.FaintText.Render("Enter: Apply  •  Esc: Cancel"))

	return centerModal(theme, b.String(), width, height)
}

// confirmModal asks a yes/no question before a write.
type confirmModal struct {
	title   string
	message string
	confirm tea.Cmd
}

func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Confirm), keyMsg.String() == "y":
		return c, c.confirm, true
	case key.Matches(keyMsg, keys.Escape), keyMsg.String() == "n":
		return c, nil, true
	}
	return c, nil, false
}

func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.WarningText.Bold(true).Render(c.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(c.message))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("Enter/y: Confirm  •  Esc/n: Cancel"))

	return centerModal(theme, b.String(), width, height)
}

func centerModal(theme Theme, content string, width, height int) string {
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(56).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
