package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/taskpilot/taskpilot/internal/observability"
)

const eventsPageSize = 200

type eventsModel struct {
	events []observability.Event
	offset int
	width  int
	height int
	err    error
}

// eventsLoadedMsg carries freshly read log entries back to the model.
type eventsLoadedMsg struct {
	events []observability.Event
	err    error
}

// Style definitions.
var (
	eventsTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	eventTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	eventTypeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	eventInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	eventWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	eventErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	eventsHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newEventsModel() eventsModel {
	return eventsModel{}
}

func (m eventsModel) Init() tea.Cmd {
	return loadEvents
}

func (m eventsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, loadEvents
		case "up", "k":
			if m.offset > 0 {
				m.offset--
			}
			return m, nil
		case "down", "j":
			if m.offset < len(m.events)-1 {
				m.offset++
			}
			return m, nil
		case "g":
			m.offset = 0
			return m, nil
		case "G":
			m.offset = max(0, len(m.events)-m.visibleLines())
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventsLoadedMsg:
		m.err = msg.err
		m.events = msg.events
		m.offset = max(0, len(msg.events)-m.visibleLines())
		return m, nil
	}

	return m, nil
}

func (m eventsModel) View() string {
	title := eventsTitleStyle.Render(" taskpilot events ")
	help := eventsHelpStyle.Render("j/k: scroll | g/G: top/bottom | r: refresh | q: quit")

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}
	if len(m.events) == 0 {
		return fmt.Sprintf("%s\n\n  No events logged yet.\n\n%s", title, help)
	}

	var b strings.Builder
	end := min(m.offset+m.visibleLines(), len(m.events))
	for _, ev := range m.events[m.offset:end] {
		line := fmt.Sprintf("%s %s %s",
			eventTimeStyle.Render(ev.Time.Format("01-02 15:04:05")),
			eventTypeStyle.Render(fmt.Sprintf("%-18s", ev.Type)),
			styleForLevel(ev.Level).Render(ev.Message),
		)
		b.WriteString(line)
		b.WriteString("\n")
	}

	position := fmt.Sprintf("%d-%d of %d", m.offset+1, end, len(m.events))
	return fmt.Sprintf("%s  %s\n\n%s\n%s", title, eventsHelpStyle.Render(position), b.String(), help)
}

// visibleLines returns how many log lines fit in the current window.
func (m eventsModel) visibleLines() int {
	if m.height <= 6 {
		return 20
	}
	return m.height - 5
}

func styleForLevel(level string) lipgloss.Style {
	switch level {
	case "ERROR":
		return eventErrorStyle
	case "WARN":
		return eventWarnStyle
	default:
		return eventInfoStyle
	}
}

func loadEvents() tea.Msg {
	if EventLog == nil {
		return eventsLoadedMsg{err: fmt.Errorf("event log not available")}
	}
	events, err := EventLog.Tail(eventsPageSize)
	return eventsLoadedMsg{events: events, err: err}
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Browse the scheduler's event log in a TUI",
	Long: `Launch an interactive viewer over the trigger and action event log.

Scroll with j/k, jump with g/G, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log not initialized")
		}
		p := tea.NewProgram(newEventsModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
