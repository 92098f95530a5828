package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mickamy/chnative/chclient"
)

func typeText(m Model, s string) Model {
	for _, r := range s {
		m2, _ := m.updateKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = m2.(Model)
	}
	return m
}

func TestHistoryNavigationRoundTrips(t *testing.T) {
	m := New("localhost:9000", chclient.Options{})
	m.client = nil // not connected; enter is a no-op, we only exercise typing + history

	m = typeText(m, "SELECT 1")
	m.history = append(m.history, m.input)
	m.historyIdx = len(m.history)
	m.input = ""
	m.cursor = 0

	m = typeText(m, "SELECT 2")
	m.history = append(m.history, m.input)
	m.historyIdx = len(m.history)
	m.input = ""
	m.cursor = 0

	m2, _ := m.updateKey(tea.KeyMsg{Type: tea.KeyUp})
	m = m2.(Model)
	if m.input != "SELECT 2" {
		t.Fatalf("after one up, got %q", m.input)
	}

	m2, _ = m.updateKey(tea.KeyMsg{Type: tea.KeyUp})
	m = m2.(Model)
	if m.input != "SELECT 1" {
		t.Fatalf("after two ups, got %q", m.input)
	}

	m2, _ = m.updateKey(tea.KeyMsg{Type: tea.KeyDown})
	m = m2.(Model)
	if m.input != "SELECT 2" {
		t.Fatalf("after down, got %q", m.input)
	}

	m2, _ = m.updateKey(tea.KeyMsg{Type: tea.KeyDown})
	m = m2.(Model)
	if m.input != "" {
		t.Fatalf("after second down, expected fresh empty input, got %q", m.input)
	}
}

func TestRenderResultShowsColumnsAndRows(t *testing.T) {
	m := New("localhost:9000", chclient.Options{})
	got := m.renderResult(result{
		query:    "SELECT n",
		columns:  []string{"n"},
		rows:     [][]string{{"1"}, {"2"}},
		numRows:  2,
		duration: time.Millisecond,
	})
	if got == "" {
		t.Fatal("expected non-empty rendering")
	}
}

func TestRenderResultShowsError(t *testing.T) {
	m := New("localhost:9000", chclient.Options{})
	got := m.renderResult(result{err: errFixture{}})
	if got == "" {
		t.Fatal("expected non-empty rendering for an error result")
	}
}

type errFixture struct{}

func (errFixture) Error() string { return "boom" }
