package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/refresh"
)

// =============================================================================
// WatchModel - Live view of the polled hierarchy
// =============================================================================

// snapshotMsg delivers a published snapshot to the model. written is the
// file the graph was saved to, if any; writeErr is set when saving failed.
type snapshotMsg struct {
	snap     refresh.Snapshot
	written  string
	writeErr error
}

// WatchModel is the bubbletea model for `cursograph watch`.
type WatchModel struct {
	Selector  string
	Selectors []string
	Interval  time.Duration

	// Trigger requests an immediate refresh; Select switches selectors.
	Trigger func()
	Select  func(string)

	snap     refresh.Snapshot
	has      bool
	written  string
	writeErr error
	quitting bool
}

// NewWatchModel creates a model for the given selector. selectors is the
// cycle order for the selector switch key.
func NewWatchModel(selector string, selectors []string, interval time.Duration, trigger func(), sel func(string)) WatchModel {
	return WatchModel{
		Selector:  selector,
		Selectors: selectors,
		Interval:  interval,
		Trigger:   trigger,
		Select:    sel,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return nil
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if m.Trigger != nil {
				m.Trigger()
			}
		case "s", "tab":
			if next := m.nextSelector(); next != m.Selector {
				m.Selector = next
				m.has = false
				m.written, m.writeErr = "", nil
				if m.Select != nil {
					m.Select(next)
				}
			}
		}
	case snapshotMsg:
		if msg.snap.Selector != m.Selector {
			return m, nil
		}
		m.snap = msg.snap
		m.has = msg.snap.Seq > 0
		m.written, m.writeErr = msg.written, msg.writeErr
	}
	return m, nil
}

// nextSelector returns the selector after the current one, wrapping around.
func (m WatchModel) nextSelector() string {
	if len(m.Selectors) == 0 {
		return m.Selector
	}
	for i, s := range m.Selectors {
		if s == m.Selector {
			return m.Selectors[(i+1)%len(m.Selectors)]
		}
	}
	return m.Selectors[0]
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render("cursograph watch"))
	b.WriteString("  ")
	b.WriteString(StyleValue.Render(m.Selector))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  every %s", m.Interval)))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("r refresh  s next selector  q quit"))
	b.WriteString("\n\n")

	if !m.has {
		b.WriteString(StyleDim.Render("Loading structure..."))
		b.WriteString("\n")
		return b.String()
	}

	g := m.snap.Graph
	counts := g.CountKinds()
	rows := make([][]string, 0, len(counts))
	for _, k := range sortedKinds(counts) {
		rows = append(rows, []string{string(k), strconv.Itoa(counts[k])})
	}
	rows = append(rows, []string{"edges", strconv.Itoa(len(g.Edges))})

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Kind", "Count").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == len(rows)-1:
				return lipgloss.NewStyle().Foreground(colorDim)
			case col == 1:
				return StyleNumber
			}
			return StyleValue
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	b.WriteString(StyleDim.Render(fmt.Sprintf("seq %d · fetched %s", m.snap.Seq, m.snap.FetchedAt.Format("15:04:05"))))
	b.WriteString("\n")
	if len(g.Warnings) > 0 {
		b.WriteString(StyleWarning.Render(fmt.Sprintf("%s %d layout warning(s)", iconWarning, len(g.Warnings))))
		b.WriteString("\n")
	}
	if m.snap.Failed() {
		b.WriteString(StyleError.Render(iconError + " could not render structure, retry: " + errors.UserMessage(m.snap.Err)))
		b.WriteString("\n")
	}
	switch {
	case m.writeErr != nil:
		b.WriteString(StyleError.Render(iconError + " " + m.writeErr.Error()))
		b.WriteString("\n")
	case m.written != "":
		b.WriteString(StyleDim.Render(iconArrow + " " + m.written))
		b.WriteString("\n")
	}
	return b.String()
}
