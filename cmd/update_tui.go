package cmd

import (
	"fmt"
	"time"

	"modworks/installer"
	"modworks/sdk"
	"modworks/ui"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// UpdateProgressMsg carries one pipeline notice into the UI loop. A message
// with Done set ends the run and carries the summary line.
type UpdateProgressMsg struct {
	Notice  installer.Notice
	Done    bool
	Summary string
}

// UpdateModel controls the UI for the update command
type UpdateModel struct {
	spinner      spinner.Model
	progressChan chan UpdateProgressMsg
	session      *sdk.Session

	// State
	status      string
	downloading []string
	completed   []string
	skipped     int
	errors      []string
	summary     string
	done        bool
}

func initialUpdateModel(session *sdk.Session) UpdateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return UpdateModel{
		spinner:      s,
		progressChan: make(chan UpdateProgressMsg, 100), // Buffer slightly to avoid blocking
		session:      session,
		status:       "Checking builds...",
		downloading:  []string{},
		completed:    []string{},
		errors:       []string{},
	}
}

func (m UpdateModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startUpdate(),
		m.waitForActivity(),
	)
}

func (m UpdateModel) startUpdate() tea.Cmd {
	return func() tea.Msg {
		m.session.Installer.Notify = func(n installer.Notice) {
			m.progressChan <- UpdateProgressMsg{Notice: n}
		}
		go func() {
			defer close(m.progressChan)
			result := m.session.UpdateInstalled(time.Now())
			m.progressChan <- UpdateProgressMsg{Done: true, Summary: resultLine(result)}
		}()
		return nil
	}
}

func (m UpdateModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressChan
		if !ok {
			return UpdateProgressMsg{Done: true}
		}
		return msg
	}
}

func (m UpdateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case UpdateProgressMsg:
		if msg.Done {
			m.done = true
			m.status = "Finished"
			if msg.Summary != "" {
				m.summary = msg.Summary
			}
			return m, tea.Quit
		}

		n := msg.Notice
		switch n.Kind {
		case installer.NoticeDownloadStart:
			m.status = fmt.Sprintf("Downloading %s...", n.Name)
			m.downloading = append(m.downloading, n.Name)

		case installer.NoticeDownloaded:
			m.status = fmt.Sprintf("Installing %s...", n.Name)

		case installer.NoticeInstalled:
			m.removeFromDownloading(n.Name)
			m.completed = append(m.completed, fmt.Sprintf("Installed %s", n.Name))

		case installer.NoticeSkipped:
			m.skipped++

		case installer.NoticeDropped, installer.NoticeError:
			m.removeFromDownloading(n.Name)
			detail := "dropped"
			if n.Err != nil {
				detail = n.Err.Error()
			}
			m.errors = append(m.errors, fmt.Sprintf("%s: %s", n.Name, detail))
		}

		return m, m.waitForActivity()
	}

	return m, nil
}

func (m *UpdateModel) removeFromDownloading(name string) {
	for i, v := range m.downloading {
		if v == name {
			m.downloading = append(m.downloading[:i], m.downloading[i+1:]...)
			return
		}
	}
}

func (m UpdateModel) View() string {
	var symbol string
	if m.done {
		symbol = ui.Good("✓")
	} else {
		symbol = m.spinner.View()
	}

	s := fmt.Sprintf("\n %s %s\n\n", symbol, m.status)

	if len(m.downloading) > 0 {
		s += ui.Bold("Downloading:") + "\n"
		for _, d := range m.downloading {
			s += fmt.Sprintf("  • %s\n", d)
		}
		s += "\n"
	}

	if len(m.errors) > 0 {
		s += ui.Bad("Errors:") + "\n"
		for _, e := range m.errors {
			s += fmt.Sprintf("  • %s\n", e)
		}
		s += "\n"
	}

	// Show last few completed
	if len(m.completed) > 0 {
		s += ui.Good("Completed:") + "\n"
		start := 0
		if len(m.completed) > 5 && !m.done {
			start = len(m.completed) - 5
		}
		for i := start; i < len(m.completed); i++ {
			s += fmt.Sprintf("  • %s\n", m.completed[i])
		}
		s += "\n"
	}

	if m.skipped > 0 {
		s += ui.Muted(fmt.Sprintf("%d builds already current\n", m.skipped))
	}
	if m.done {
		s += ui.Bold(m.summary) + "\n"
	}

	return s
}
