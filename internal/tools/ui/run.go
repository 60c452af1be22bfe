package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	spinnerSeq = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	tickEvery  = 120 * time.Millisecond
)

type resultMsg struct {
	details []string
	err     error
}

type tickMsg time.Time

type model struct {
	title   string
	started time.Time
	elapsed time.Duration
	frame   int
	details []string
	err     error
	done    bool

	ctx    context.Context
	cancel context.CancelFunc
	action func(context.Context) ([]string, error)
}

func (m model) Init() tea.Cmd {
	run := func() tea.Msg {
		details, err := m.action(m.ctx)
		return resultMsg{details: details, err: err}
	}
	return tea.Batch(run, tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			// The action sees the cancellation and reports back through resultMsg.
			m.cancel()
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		m.elapsed = time.Since(m.started)
		return m, tick()
	case resultMsg:
		m.details = msg.details
		m.err = msg.err
		m.done = true
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	if !m.done {
		fmt.Fprintf(&b, "%s running %s\n", spinnerSeq[m.frame%len(spinnerSeq)], mutedStyle.Render(m.elapsed.Round(time.Second).String()))
		return b.String()
	}
	if m.err != nil {
		fmt.Fprintf(&b, "%s %v\n", failStyle.Render("FAILED"), m.err)
	} else {
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("OK"), mutedStyle.Render(m.elapsed.Round(time.Millisecond).String()))
	}
	for _, d := range m.details {
		step, rest, ok := strings.Cut(d, " ")
		if !ok {
			b.WriteString("  " + d + "\n")
			continue
		}
		b.WriteString("  " + stepStyle.Render(step) + " " + rest + "\n")
	}
	return b.String()
}

// Run executes action under a small progress view. Pressing ctrl+c or q
// cancels the context passed to action.
func Run(ctx context.Context, title string, timeout time.Duration, action func(context.Context) ([]string, error)) ([]string, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	m := model{title: title, started: time.Now(), ctx: actx, cancel: cancel, action: action}
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	return res.details, res.err
}
