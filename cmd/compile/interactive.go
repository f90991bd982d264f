package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/compiler-host/bridge"
	"github.com/wippyai/compiler-host/guest"
	"github.com/wippyai/compiler-host/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateInputSource modelState = iota
	stateCompiling
	stateShowResult
)

type interactiveModel struct {
	bridge     *bridge.Bridge
	handle     registry.Handle
	moduleFile string
	input      textinput.Model
	logView    viewport.Model
	logCh      chan string
	logs       []string
	result     string
	err        error
	state      modelState
}

type logLineMsg string

type compileDoneMsg struct {
	err      error
	artifact int
}

func newInteractiveModel(moduleFile string, b *bridge.Bridge, h registry.Handle, logCh chan string) *interactiveModel {
	input := textinput.New()
	input.Placeholder = "import sq from 'math'; sq(5);"
	input.Focus()
	input.CharLimit = 0
	input.Width = 72

	logView := viewport.New(76, 8)

	return &interactiveModel{
		bridge:     b,
		handle:     h,
		moduleFile: moduleFile,
		input:      input,
		logView:    logView,
		logCh:      logCh,
		state:      stateInputSource,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) compileCmd(source string) tea.Cmd {
	return func() tea.Msg {
		artifact, err := m.bridge.Compile(context.Background(), m.handle, source)
		if err != nil {
			return compileDoneMsg{err: err}
		}
		return compileDoneMsg{artifact: len(artifact.Wasm)}
	}
}

func (m *interactiveModel) waitForLog() tea.Cmd {
	return func() tea.Msg {
		if line, ok := <-m.logCh; ok {
			return logLineMsg(line)
		}
		return nil
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			switch m.state {
			case stateInputSource:
				source := m.input.Value()
				if strings.TrimSpace(source) == "" {
					return m, nil
				}
				m.state = stateCompiling
				m.logs = nil
				return m, tea.Batch(m.compileCmd(source), m.waitForLog())
			case stateShowResult:
				m.state = stateInputSource
				m.input.SetValue("")
				m.input.Focus()
				return m, textinput.Blink
			}
		}

	case logLineMsg:
		m.logs = append(m.logs, string(msg))
		m.logView.SetContent(logStyle.Render(strings.Join(m.logs, "\n")))
		m.logView.GotoBottom()
		return m, m.waitForLog()

	case compileDoneMsg:
		m.state = stateShowResult
		m.err = msg.err
		if msg.err == nil {
			m.result = fmt.Sprintf("artifact: %d bytes", msg.artifact)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.state == stateInputSource {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("compiler-host") + "  " + m.moduleFile + "\n\n")

	switch m.state {
	case stateInputSource:
		b.WriteString("Source:\n")
		b.WriteString(m.input.View() + "\n\n")
		b.WriteString(helpStyle.Render("enter: compile • esc: quit"))

	case stateCompiling:
		b.WriteString("Compiling...\n\n")
		b.WriteString(m.logView.View() + "\n")

	case stateShowResult:
		if len(m.logs) > 0 {
			b.WriteString(m.logView.View() + "\n\n")
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render("✗ "+m.err.Error()) + "\n\n")
		} else {
			b.WriteString(resultStyle.Render("✓ "+m.result) + "\n\n")
		}
		b.WriteString(helpStyle.Render("enter: compile another • esc: quit"))
	}

	return b.String()
}

func runInteractive(moduleFile string, deps map[string]string, depDir string, logger *zap.Logger) error {
	ctx := context.Background()

	moduleBytes, err := os.ReadFile(moduleFile)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	b := bridge.New(
		guest.NewModuleLoader(moduleBytes, guest.WithLogger(logger)),
		bridge.WithLogger(logger),
	)
	defer b.Close(ctx)

	logCh := make(chan string, 64)
	h := b.CreateContext(
		func(msg string) { logCh <- msg },
		fetchFromFiles(deps, depDir),
	)
	defer b.DestroyContext(h)

	p := tea.NewProgram(newInteractiveModel(moduleFile, b, h, logCh))
	_, err = p.Run()
	return err
}
