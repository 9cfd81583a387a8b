// Package tui is the terminal front end for one idea cycle.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nexus/internal/idea"
	"nexus/internal/types"
)

// Machine is the part of idea.Machine the terminal drives.
type Machine interface {
	State() types.State
	Submit(ctx context.Context, seed string) bool
	GenerateVisual(ctx context.Context) bool
	Reset()
	Subscribe(ctx context.Context) <-chan types.State
}

var _ Machine = (*idea.Machine)(nil)

type keyMap struct {
	Submit    key.Binding
	Visualize key.Binding
	NewIdea   key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

var keys = keyMap{
	Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand")),
	Visualize: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "generate visual")),
	NewIdea:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new idea")),
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
}

// stateMsg carries a transition from the machine subscription.
type stateMsg types.State

// closedMsg reports that the subscription ended.
type closedMsg struct{}

// Model renders the current state and maps keys to machine actions. Model
// calls run in commands so the UI keeps animating while they are in flight.
type Model struct {
	machine Machine
	ctx     context.Context
	cancel  context.CancelFunc
	states  <-chan types.State

	input   textinput.Model
	spinner spinner.Model
	state   types.State
	width   int
}

func New(ctx context.Context, machine Machine) *Model {
	ctx, cancel := context.WithCancel(ctx)

	input := textinput.New()
	input.Placeholder = "Describe a raw idea, e.g. Uber for dog walking"
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	return &Model{
		machine: machine,
		ctx:     ctx,
		cancel:  cancel,
		states:  machine.Subscribe(ctx),
		input:   input,
		spinner: sp,
		state:   machine.State(),
		width:   80,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForState())
}

func (m *Model) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case stateMsg:
		m.state = types.State(msg)
		return m, m.waitForState()

	case closedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.state.Stage == types.StageInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		return m.quit()
	}

	switch m.state.Stage {
	case types.StageInput:
		if key.Matches(msg, keys.Submit) {
			seed := m.input.Value()
			if strings.TrimSpace(seed) == "" {
				return m, nil
			}
			return m, m.submit(seed)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case types.StageExpanding:
		switch {
		case key.Matches(msg, keys.NewIdea):
			m.reset()
		case key.Matches(msg, keys.Quit):
			return m.quit()
		}

	case types.StageComplete:
		switch {
		case key.Matches(msg, keys.Visualize):
			if m.state.Expansion != nil && !m.state.IsVisualizing {
				return m, m.visualize()
			}
		case key.Matches(msg, keys.NewIdea):
			m.reset()
		case key.Matches(msg, keys.Quit):
			return m.quit()
		}
	}
	return m, nil
}

func (m *Model) submit(seed string) tea.Cmd {
	ctx := m.ctx
	machine := m.machine
	return func() tea.Msg {
		machine.Submit(ctx, seed)
		return nil
	}
}

func (m *Model) visualize() tea.Cmd {
	ctx := m.ctx
	machine := m.machine
	return func() tea.Msg {
		machine.GenerateVisual(ctx)
		return nil
	}
}

func (m *Model) reset() {
	m.machine.Reset()
	m.input.Reset()
	m.input.Focus()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(brandStyle.Render("NEXUS"))
	b.WriteString(mutedStyle.Render("idea expander"))
	b.WriteString("\n\n")

	switch m.state.Stage {
	case types.StageExpanding:
		fmt.Fprintf(&b, "%s Expanding %q...\n\n", m.spinner.View(), strings.TrimSpace(m.state.Seed))
		b.WriteString(help(keys.NewIdea, keys.Quit))
	case types.StageComplete:
		if m.state.Expansion != nil {
			b.WriteString(m.renderExpansion(*m.state.Expansion))
		}
		b.WriteString("\n")
		b.WriteString(m.renderVisual())
		b.WriteString("\n\n")
		b.WriteString(help(keys.Visualize, keys.NewIdea, keys.Quit))
	default:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.state.Error != "" {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(m.state.Error))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(help(keys.Submit, keys.ForceQuit))
	}
	return b.String() + "\n"
}

func (m *Model) renderExpansion(exp types.Expansion) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(exp.Title))
	b.WriteString("\n")
	b.WriteString(taglineStyle.Render(exp.Tagline))
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Executive Summary"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(max(m.width-4, 20)).Render(exp.Description))
	b.WriteString("\n")
	bullets(&b, sectionStyle, "Core Features", exp.KeyFeatures)
	bullets(&b, sectionStyle, "Target Audience", exp.TargetAudience)

	b.WriteString(sectionStyle.Render("Strategic Pivots"))
	b.WriteString("\n")
	for _, p := range exp.PivotOptions {
		fmt.Fprintf(&b, "  %s  %s\n", titleStyle.Render(p.Name), p.Description)
	}
	bullets(&b, riskStyle, "Risk Assessment", exp.PotentialChallenges)
	return panelStyle.Width(max(m.width-2, 24)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderVisual() string {
	switch {
	case m.state.IsVisualizing:
		return m.spinner.View() + " Generating concept art..."
	case m.state.Image.IsFallback():
		return mutedStyle.Render("Visual unavailable, showing placeholder: " + m.state.Image.String())
	case m.state.Image.IsDataURI():
		return fmt.Sprintf("Visual ready (%s)", describeDataURI(m.state.Image))
	default:
		return mutedStyle.Render("No visual yet.")
	}
}

func bullets(b *strings.Builder, style lipgloss.Style, heading string, items []string) {
	b.WriteString(style.Render(heading))
	b.WriteString("\n")
	for _, it := range items {
		fmt.Fprintf(b, "  • %s\n", it)
	}
}

func help(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, k := range bindings {
		h := k.Help()
		if h.Key == "" {
			h.Key, h.Desc = strings.Join(k.Keys(), "/"), "quit"
		}
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return mutedStyle.Render(strings.Join(parts, " • "))
}

// describeDataURI summarizes an inline image as "<mime>, <n> bytes".
func describeDataURI(img types.ImageArtifact) string {
	s := strings.TrimPrefix(img.String(), "data:")
	mime, payload, _ := strings.Cut(s, ";base64,")
	return fmt.Sprintf("%s, %d bytes", mime, len(payload)*3/4)
}

// Run starts the terminal program and blocks until the user quits.
func Run(ctx context.Context, machine Machine, opts ...tea.ProgramOption) error {
	m := New(ctx, machine)
	defer m.cancel()
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
