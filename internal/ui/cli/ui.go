package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"slicer/internal/core/errors"
	"slicer/internal/core/ports"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	sourceStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(0, 1)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

type model struct {
	serviceList list.Model
	rerun       tea.Cmd
	sourceExt   string

	result     ports.SliceResult
	err        error
	lastUpdate time.Time
	showSource bool
	showCycles bool
	status     string
	height     int
}

// resultMsg carries the outcome of a slicing run into the UI.
type resultMsg struct {
	result ports.SliceResult
	err    error
}

type editorResultMsg struct {
	target string
	err    error
}

func initialModel(rerun tea.Cmd, sourceExt string) model {
	serviceList := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 20)
	serviceList.Title = "Sliced Services"
	serviceList.SetShowStatusBar(false)
	serviceList.SetFilteringEnabled(true)

	return model{serviceList: serviceList, rerun: rerun, sourceExt: sourceExt}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.height = height
		m.serviceList.SetSize(msg.Width-h, height)
	case resultMsg:
		m.lastUpdate = time.Now()
		m.err = msg.err
		if msg.err == nil {
			m.result = msg.result
			m.status = ""
		}
		items := make([]list.Item, 0, len(m.result.Services))
		for _, svc := range m.result.Services {
			desc := fmt.Sprintf("%d declarations: %s", len(svc.Declarations), strings.Join(svc.Declarations, ", "))
			items = append(items, item{title: svc.Name, desc: desc})
		}
		m.serviceList.SetItems(items)
	case editorResultMsg:
		if msg.err != nil {
			m.status = statusStyle.Render(fmt.Sprintf("Editor failed: %v", msg.err))
		} else {
			m.status = statusStyle.Render(fmt.Sprintf("Edited: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	m.serviceList, cmd = m.serviceList.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %s | %d services | %v",
		m.lastUpdate.Format("15:04:05"), len(m.result.Services), m.result.Duration.Round(time.Millisecond)))

	var summary string
	switch {
	case m.err != nil:
		summary = errorStyle.Render(string(errors.CodeOf(m.err)))
	case len(m.result.Cycles) > 0:
		summary = cycleStyle.Render(fmt.Sprintf("%d cycles", len(m.result.Cycles)))
	default:
		summary = successStyle.Render("OK")
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Service Slicer"), status, summary)
	help := statusStyle.Render("enter: source | c: cycles | r: slice again | o: open in editor | q: quit")

	body := m.serviceList.View()
	if m.showSource {
		body = renderSource(m)
	}
	if m.err != nil {
		body = errorStyle.Render(errors.Summary(m.err)) + "\n\n" + body
	}
	if m.showCycles {
		body += "\n\n" + renderCycles(m.result.Cycles)
	}
	if m.status != "" {
		body += "\n\n" + m.status
	}
	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func (m model) selected() (ports.SlicedService, bool) {
	idx := m.serviceList.Index()
	if idx < 0 || idx >= len(m.result.Services) {
		return ports.SlicedService{}, false
	}
	return m.result.Services[idx], true
}

func renderSource(m model) string {
	svc, ok := m.selected()
	if !ok {
		return statusStyle.Render("No service selected.")
	}
	source := svc.Source
	if m.height > 0 {
		lines := strings.Split(source, "\n")
		if len(lines) > m.height {
			lines = append(lines[:m.height], fmt.Sprintf("... %d more lines", len(lines)-m.height))
		}
		source = strings.Join(lines, "\n")
	}
	return titleStyle(svc.Name) + "\n" + sourceStyle.Render(source)
}

func renderCycles(cycles [][]string) string {
	if len(cycles) == 0 {
		return successStyle.Render("No cyclic declarations.")
	}
	lines := []string{cycleStyle.Render("Cyclic declarations")}
	for _, cycle := range cycles {
		lines = append(lines, "  "+strings.Join(cycle, " -> "))
	}
	return strings.Join(lines, "\n")
}
