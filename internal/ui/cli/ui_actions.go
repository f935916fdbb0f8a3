package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	// Keys typed into the filter prompt belong to the list.
	if m.serviceList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.serviceList, cmd = m.serviceList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "enter":
		m.showSource = !m.showSource
		return m, nil
	case "esc":
		if m.showSource {
			m.showSource = false
			return m, nil
		}
	case "c":
		m.showCycles = !m.showCycles
		return m, nil
	case "r":
		if m.rerun == nil {
			return m, nil
		}
		m.status = statusStyle.Render("Slicing...")
		return m, m.rerun
	case "o":
		target, ok := selectedSourceFile(m)
		if !ok {
			m.status = statusStyle.Render("No written source for this service; run without --dry-run.")
			return m, nil
		}
		return m, openEditorCmd(target)
	}

	var cmd tea.Cmd
	m.serviceList, cmd = m.serviceList.Update(msg)
	return m, cmd
}

func selectedSourceFile(m model) (string, bool) {
	svc, ok := m.selected()
	if !ok || svc.Dir == "" {
		return "", false
	}
	return filepath.Join(svc.Dir, svc.Name+m.sourceExt), true
}

func openEditorCmd(target string) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, target)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorResultMsg{target: target, err: err}
	})
}
