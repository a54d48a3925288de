// Package shell is the interactive command shell: a single-threaded REPL
// with tab completion, inline argument hints, and in-memory history. All
// remote work happens inline on the update path; the only concurrency is the
// client transport underneath.
package shell

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danmuck/nexusctl/internal/completion"
	"github.com/danmuck/nexusctl/internal/logging"
	"github.com/danmuck/nexusctl/internal/protocol/wire"
	"github.com/danmuck/nexusctl/internal/registry"
)

var log = logging.New("shell")

const prompt = "cli> "

// Backend issues the remote calls the shell needs. *client.Client satisfies
// it.
type Backend interface {
	Execute(ctx context.Context, service, command string, args []string) (wire.Result, error)
	CompleteExecute(service, command string) (wire.Result, error)
}

var (
	hintStyle = lipgloss.NewStyle().Faint(true)
)

// Model is the REPL state. Output accumulates in a transcript rendered above
// the prompt.
type Model struct {
	backend  Backend
	services []registry.ServiceDescriptor
	engine   *completion.Engine

	input   textinput.Model
	lines   []string
	history []string
	histIdx int
	draft   string
}

func New(services []registry.ServiceDescriptor, backend Backend) Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Focus()

	return Model{
		backend:  backend,
		services: services,
		engine:   completion.New(services, backend),
		input:    ti,
		lines:    []string{"Connected. Type 'help' for available commands, 'quit' to exit."},
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlD:
			return m, tea.Quit

		case tea.KeyCtrlC:
			// Interrupt clears the buffer without leaving the shell.
			m.lines = append(m.lines, prompt+m.input.Value()+"^C")
			m.input.SetValue("")
			m.histIdx = len(m.history)
			m.draft = ""
			return m, nil

		case tea.KeyEnter:
			return m.submit()

		case tea.KeyTab:
			m.complete()
			return m, nil

		case tea.KeyUp:
			m.historyPrev()
			return m, nil

		case tea.KeyDown:
			m.historyNext()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - len(prompt) - 1
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(m.input.View())
	// Hints only make sense with the cursor at the end of the buffer.
	if value := m.input.Value(); m.input.Position() == utf8.RuneCountInString(value) {
		if hint := m.engine.Hint(value); hint != "" {
			b.WriteString(hintStyle.Render(hint))
		}
	}
	b.WriteByte('\n')
	return b.String()
}

// submit echoes and dispatches the current line.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.lines = append(m.lines, prompt+m.input.Value())
	m.input.SetValue("")
	m.draft = ""

	if line == "" {
		m.histIdx = len(m.history)
		return m, nil
	}
	if len(m.history) == 0 || m.history[len(m.history)-1] != line {
		m.history = append(m.history, line)
	}
	m.histIdx = len(m.history)

	if line == "quit" || line == "exit" {
		return m, tea.Quit
	}

	m.print(m.dispatch(line))
	return m, nil
}

// dispatch resolves one submitted line to its output. Builtins never touch
// the wire; everything else becomes an Execute call.
func (m *Model) dispatch(line string) string {
	parts := strings.Fields(line)

	if parts[0] == "help" {
		if len(parts) >= 2 {
			return serviceHelp(m.services, parts[1])
		}
		return overviewHelp(m.services)
	}

	if len(parts) < 2 {
		return "Usage: <service> <command> [args...]"
	}

	res, err := m.backend.Execute(context.Background(), parts[0], parts[1], parts[2:])
	if err != nil {
		log.Debug().Str("line", line).Err(err).Msg("execute failed")
		return "Error: " + err.Error()
	}
	if !res.OK {
		return "Error: " + res.Message
	}
	return res.Message
}

func (m *Model) print(out string) {
	if out == "" {
		return
	}
	m.lines = append(m.lines, strings.Split(out, "\n")...)
}

// complete resolves candidates for the word under the cursor. Only the text
// left of the cursor classifies; the suffix right of it is untouched. A
// single match is inserted in place; multiple matches are listed above the
// prompt.
func (m *Model) complete() {
	value := m.input.Value()
	runes := []rune(value)
	pos := m.input.Position()
	if pos > len(runes) {
		pos = len(runes)
	}
	prefix, suffix := string(runes[:pos]), string(runes[pos:])

	start, candidates := m.engine.Complete(prefix)
	switch len(candidates) {
	case 0:
	case 1:
		completed := prefix[:start] + candidates[0]
		m.input.SetValue(completed + suffix)
		m.input.SetCursor(utf8.RuneCountInString(completed))
	default:
		m.lines = append(m.lines, prompt+value, strings.Join(candidates, "  "))
	}
}

func (m *Model) historyPrev() {
	if m.histIdx == 0 {
		return
	}
	if m.histIdx == len(m.history) {
		m.draft = m.input.Value()
	}
	m.histIdx--
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}

func (m *Model) historyNext() {
	if m.histIdx >= len(m.history) {
		return
	}
	m.histIdx++
	if m.histIdx == len(m.history) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[m.histIdx])
	}
	m.input.CursorEnd()
}

// Run drives the shell to completion on the current terminal.
func Run(services []registry.ServiceDescriptor, backend Backend) error {
	_, err := tea.NewProgram(New(services, backend)).Run()
	return err
}
