// Package main implements chshell, a small interactive REPL that runs
// queries against a live native-protocol connection and renders each
// result block as a table, in the teacher's Model/Update/View shape.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mickamy/chnative/chclient"
	"github.com/mickamy/chnative/chhighlight"
	"github.com/mickamy/chnative/chquery"
	"github.com/mickamy/chnative/clipboard"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// result holds the outcome of running one statement.
type result struct {
	query    string
	columns  []string
	rows     [][]string
	numRows  int
	err      error
	duration time.Duration
}

// Model is the Bubble Tea model for chshell.
type Model struct {
	addr   string
	opts   chclient.Options
	client *chclient.Client

	input  string
	cursor int

	history    []string // past submitted statements, oldest first
	historyIdx int      // index into history while scrolling with up/down; len(history) means "editing fresh"

	last *result
	err  error

	width, height int
	running       bool
}

// New creates a Model that will connect to addr once started.
func New(addr string, opts chclient.Options) Model {
	return Model{addr: addr, opts: opts, historyIdx: 0}
}

type connectedMsg struct{ client *chclient.Client }
type connectErrMsg struct{ err error }
type resultMsg struct{ result result }

func (m Model) Init() tea.Cmd {
	return connect(m.addr, m.opts)
}

func connect(addr string, opts chclient.Options) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c, err := chclient.Connect(ctx, addr, opts)
		if err != nil {
			return connectErrMsg{err: err}
		}
		return connectedMsg{client: c}
	}
}

func runQuery(client *chclient.Client, sql string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		r := result{query: sql}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rows, err := client.QueryRaw(ctx, sql)
		if err != nil {
			r.err = err
			r.duration = time.Since(start)
			return resultMsg{result: r}
		}

		for b := range rows.Blocks {
			if len(r.columns) == 0 && b.NumColumns() > 0 {
				for _, col := range b.Columns {
					r.columns = append(r.columns, col.Name)
				}
			}
			for i := uint64(0); i < b.Rows; i++ {
				row := make([]string, b.NumColumns())
				for c, col := range b.Columns {
					row[c] = col.Values[i].String()
				}
				r.rows = append(r.rows, row)
			}
			r.numRows += int(b.Rows)
		}
		r.err = rows.Err()
		r.duration = time.Since(start)
		return resultMsg{result: r}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		m.client = msg.client
		return m, nil

	case connectErrMsg:
		m.err = msg.err
		return m, nil

	case resultMsg:
		m.running = false
		m.last = &msg.result
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.client != nil {
			_ = m.client.Close()
		}
		return m, tea.Quit

	case "enter":
		if m.running || m.client == nil {
			return m, nil
		}
		stmts := chquery.Split(m.input)
		if len(stmts) == 0 {
			return m, nil
		}
		m.history = append(m.history, m.input)
		m.historyIdx = len(m.history)
		sql := stmts[0]
		m.input = ""
		m.cursor = 0
		m.running = true
		return m, runQuery(m.client, sql)

	case "ctrl+y":
		if m.last != nil {
			_ = clipboard.Copy(context.Background(), m.last.query)
		}
		return m, nil

	case "backspace":
		if m.cursor > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:m.cursor-1]) + string(runes[m.cursor:])
			m.cursor--
		}
		return m, nil

	case "left":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "right":
		if m.cursor < len([]rune(m.input)) {
			m.cursor++
		}
		return m, nil

	case "up":
		if m.historyIdx > 0 {
			m.historyIdx--
			m.input = m.history[m.historyIdx]
			m.cursor = len([]rune(m.input))
		}
		return m, nil

	case "down":
		if m.historyIdx < len(m.history) {
			m.historyIdx++
			if m.historyIdx == len(m.history) {
				m.input = ""
			} else {
				m.input = m.history[m.historyIdx]
			}
			m.cursor = len([]rune(m.input))
		}
		return m, nil
	}

	r := msg.Runes
	if len(r) == 0 {
		return m, nil
	}
	runes := []rune(m.input)
	m.input = string(runes[:m.cursor]) + string(r) + string(runes[m.cursor:])
	m.cursor += len(r)
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	var b strings.Builder

	if m.err != nil {
		b.WriteString(errStyle.Render("connect error: "+m.err.Error()) + "\n")
	} else if m.client == nil {
		b.WriteString(dimStyle.Render("connecting to "+m.addr+"...") + "\n")
	}

	if m.last != nil {
		b.WriteString(m.renderResult(*m.last))
		b.WriteString("\n")
	}

	prompt := promptStyle.Render(m.addr + " > ")
	line := chhighlight.SQL(m.input)
	if m.running {
		line += dimStyle.Render(" (running...)")
	}
	b.WriteString(prompt + line + "\n")
	b.WriteString(dimStyle.Render("enter: run   ctrl+y: copy last query   ctrl+c: quit"))

	return b.String()
}

func (m Model) renderResult(r result) string {
	if r.err != nil {
		return errStyle.Render(fmt.Sprintf("error: %v", r.err))
	}
	if len(r.columns) == 0 {
		return dimStyle.Render(fmt.Sprintf("OK (%d rows, %s)", r.numRows, r.duration))
	}

	widths := make([]int, len(r.columns))
	for i, c := range r.columns {
		widths[i] = lipgloss.Width(c)
	}
	for _, row := range r.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(renderRow(r.columns, widths)) + "\n")
	for _, row := range r.rows {
		b.WriteString(renderRow(row, widths) + "\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d rows (%s)", r.numRows, r.duration)))
	return b.String()
}

func renderRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = padRight(c, widths[i])
	}
	return strings.Join(padded, "  ")
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
