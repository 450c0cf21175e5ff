// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cachedepot/filecached/internal/core"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	barFull    = lipgloss.NewStyle().Background(lipgloss.Color("10"))
	barOver    = lipgloss.NewStyle().Background(lipgloss.Color("9"))
	barEmpty   = lipgloss.NewStyle().Background(lipgloss.Color("0"))
)

const barWidth = 40

type statusMsg core.Status

type errMsg struct{ err error }

type tickMsg struct{}

// model is the viewer's bubbletea state: the last successfully fetched
// status snapshot, the table rendering its file list, and the most
// recent fetch error (if any), kept on screen until the next success.
type model struct {
	address  string
	interval time.Duration
	client   *http.Client

	status core.Status
	table  table.Model
	err    error
}

func newModel(address string, interval time.Duration, client *http.Client) model {
	columns := []table.Column{
		{Title: "Name", Width: 40},
		{Title: "Size", Width: 10},
		{Title: "Priority", Width: 10},
		{Title: "Subscribers", Width: 12},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(20))
	return model{address: address, interval: interval, client: client, table: t}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tick(m.interval))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case statusMsg:
		m.status = core.Status(msg)
		m.err = nil
		m.table.SetRows(rowsFor(m.status))
		return m, nil
	case errMsg:
		m.err = msg.err
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.fetch(), tick(m.interval))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", titleStyle.Render("filecache-viewer — "+m.address))
	fmt.Fprintf(&b, "directory: %s    replace: %s    files: %d\n\n",
		m.status.Directory, displayPolicy(m.status.Policy), m.status.FileCount)
	fmt.Fprintf(&b, "%s\n\n", usageBar(m.status.UsedBytes, m.status.CeilingBytes))

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", errorStyle.Render("error: "+m.err.Error()))
	}
	b.WriteString("\nq to quit\n")
	return b.String()
}

func displayPolicy(policy string) string {
	if policy == "" || policy == "false" {
		return "none"
	}
	return policy
}

func rowsFor(status core.Status) []table.Row {
	files := append([]core.FileStatus(nil), status.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].PriorityKey > files[j].PriorityKey })

	rows := make([]table.Row, 0, len(files))
	for _, f := range files {
		rows = append(rows, table.Row{
			f.Name,
			fmt.Sprintf("%d", f.SizeBytes),
			fmt.Sprintf("%d", f.PriorityKey),
			fmt.Sprintf("%d", f.SubscriberCount),
		})
	}
	return rows
}

// usageBar renders a fixed-width bar showing used/ceiling, red once
// usage exceeds the ceiling (which should never happen if the budget is
// enforced correctly, but the viewer does not assume it).
func usageBar(used, ceiling int64) string {
	if ceiling <= 0 {
		return fmt.Sprintf("usage: %d bytes (unbounded)", used)
	}

	filled := int(float64(barWidth) * float64(used) / float64(ceiling))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	style := barFull
	if used > ceiling {
		style = barOver
	}

	bar := style.Render(strings.Repeat(" ", filled)) + barEmpty.Render(strings.Repeat(" ", barWidth-filled))
	return fmt.Sprintf("usage: [%s] %d / %d bytes", bar, used, ceiling)
}

func (m model) fetch() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Get(strings.TrimSuffix(m.address, "/") + "/debug/status")
		if err != nil {
			return errMsg{err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errMsg{fmt.Errorf("status endpoint returned %d", resp.StatusCode)}
		}

		var status core.Status
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return errMsg{err}
		}
		return statusMsg(status)
	}
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{} })
}
