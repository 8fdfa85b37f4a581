package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hostloop/fetchq"
	"github.com/hostloop/fetchq/config"
	"github.com/hostloop/fetchq/handle"
	"github.com/hostloop/fetchq/queue"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// tickInterval is the host loop period: one fetchq.Tick per TUI frame.
const tickInterval = 50 * time.Millisecond

type requestRow struct {
	id     handle.ID
	url    string
	status string
	done   bool
	failed bool
}

type monitorModel struct {
	client *fetchq.Client
	input  textinput.Model
	rows   []*requestRow
}

type frameMsg struct{}

func runInteractive(cfg config.Config, opts []fetchq.Option) error {
	client, err := fetchq.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	input := textinput.New()
	input.Placeholder = "https://example.com/api"
	input.Focus()
	input.Width = 60

	m := &monitorModel{client: client, input: input}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, frame())
}

func frame() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		// Drain completed work onto this goroutine; callbacks mutate
		// their rows here, never from a worker.
		m.client.Tick()
		return m, frame()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit(strings.TrimSpace(m.input.Value()))
			m.input.Reset()
			return m, nil
		case tea.KeyCtrlX:
			m.cancelOldestPending()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *monitorModel) submit(url string) {
	if url == "" {
		return
	}
	row := &requestRow{url: url, status: "pending"}
	id, err := m.client.Submit(queue.MethodGet, url, fetchq.Absent, fetchq.Absent, func(out queue.Outcome) {
		row.done = true
		switch out.Kind {
		case queue.OutcomeSuccess:
			row.status = fmt.Sprintf("%d (%d bytes)", out.Status, len(out.Body))
		case queue.OutcomeTimeout:
			row.status = "timeout"
			row.failed = true
		case queue.OutcomeCancelled:
			row.status = "cancelled"
			row.failed = true
		default:
			row.status = "error: " + out.Err.Error()
			row.failed = true
		}
	})
	if err != nil {
		row.done = true
		row.failed = true
		row.status = err.Error()
	} else {
		row.id = id
	}
	m.rows = append(m.rows, row)
}

func (m *monitorModel) cancelOldestPending() {
	for _, row := range m.rows {
		if !row.done && m.client.Cancel(row.id) {
			row.done = true
			row.failed = true
			row.status = "cancelled"
			return
		}
	}
}

func (m *monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("fetchq monitor"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d pending", m.client.Pending())))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	for _, row := range m.rows {
		style := pendingStyle
		if row.done {
			style = successStyle
			if row.failed {
				style = errorStyle
			}
		}
		b.WriteString(fmt.Sprintf("  %-50s %s\n", truncate(row.url, 50), style.Render(row.status)))
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter: fetch · ctrl+x: cancel oldest pending · esc: quit"))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
