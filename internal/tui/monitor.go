// Package tui renders a live terminal view of the locks held in one scope.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relay-dev/relay/internal/lockstore"
	"github.com/relay-dev/relay/internal/scope"
)

// DefaultPollInterval is how often the monitor re-reads the store.
const DefaultPollInterval = 2 * time.Second

type tickMsg time.Time

type locksMsg struct {
	records []lockstore.LockRecord
	head    string
}

type loadErrMsg struct{ err error }

// Monitor is the bubbletea model behind `relay locks --watch`. It polls the
// store on a fixed interval and renders the scope's live locks as a table.
type Monitor struct {
	store    lockstore.Store
	scope    scope.Scope
	interval time.Duration

	records []lockstore.LockRecord
	head    string
	err     error
	now     time.Time
	width   int
}

// NewMonitor creates a Monitor polling the given store and scope.
func NewMonitor(store lockstore.Store, sc scope.Scope, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		store:    store,
		scope:    sc,
		interval: interval,
		now:      time.Now(),
	}
}

// Init implements tea.Model.
func (m *Monitor) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

// Update implements tea.Model.
func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.load()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.now = time.Time(msg)
		return m, tea.Batch(m.load(), m.tick())
	case locksMsg:
		m.records = msg.records
		m.head = msg.head
		m.err = nil
	case loadErrMsg:
		m.err = msg.err
	}
	return m, nil
}

// View implements tea.Model.
func (m *Monitor) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("relay locks — %s", m.scope)))
	b.WriteString("\n")
	head := m.head
	if head == "" {
		head = "unknown"
	}
	b.WriteString(mutedStyle.Render("repo head: " + head))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("store unreachable: " + m.err.Error()))
		b.WriteString("\n")
	}

	if len(m.records) == 0 {
		b.WriteString(mutedStyle.Render("no active locks"))
	} else {
		b.WriteString(renderTable(m.records, m.now))
	}

	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("r refresh · q quit"))
	return b.String()
}

// renderTable lays the records out in fixed-width columns. Widths follow the
// longest cell so the table stays aligned as locks churn.
func renderTable(records []lockstore.LockRecord, now time.Time) string {
	const (
		minFileWidth   = 20
		minHolderWidth = 10
	)
	fileW, holderW := minFileWidth, minHolderWidth
	for _, rec := range records {
		if len(rec.FilePath) > fileW {
			fileW = len(rec.FilePath)
		}
		if len(rec.HolderID) > holderW {
			holderW = len(rec.HolderID)
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s  %-*s  %-8s  %-9s  %s",
		fileW, "FILE", holderW, "HOLDER", "MODE", "EXPIRES", "MESSAGE")))
	b.WriteString("\n")

	for _, rec := range records {
		mode := string(rec.Mode)
		styled := readingStyle.Render(mode)
		if rec.Mode == lockstore.ModeWriting {
			styled = writingStyle.Render(mode)
		}
		// Pad before styling; ANSI escapes break %-*s alignment.
		pad := strings.Repeat(" ", 8-len(mode))
		b.WriteString(fmt.Sprintf("%-*s  %-*s  %s%s  %-9s  %s\n",
			fileW, rec.FilePath,
			holderW, rec.HolderID,
			styled, pad,
			remaining(rec.ExpiresAt, now),
			rec.Message,
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

// remaining formats time-to-expiry as a compact duration.
func remaining(expires, now time.Time) string {
	d := expires.Sub(now)
	if d <= 0 {
		return "expired"
	}
	return d.Truncate(time.Second).String()
}

func (m *Monitor) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Monitor) load() tea.Cmd {
	store, sc := m.store, m.scope
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		records, err := store.ScopeLocks(ctx, sc)
		if err != nil {
			return loadErrMsg{err: err}
		}
		head, err := store.RepoHead(ctx, sc)
		if err != nil {
			return loadErrMsg{err: err}
		}
		return locksMsg{records: records, head: head}
	}
}

// Run starts the monitor in the alternate screen and blocks until quit.
func Run(store lockstore.Store, sc scope.Scope, interval time.Duration) error {
	p := tea.NewProgram(NewMonitor(store, sc, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
