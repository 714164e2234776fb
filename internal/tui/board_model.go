package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/mentalbank/internal/timers"
)

// BoardModel is the timer board: every local timer on the right, the
// selected one as a big clock on the left.
type BoardModel struct {
	ctx     context.Context
	orch    *timers.Orchestrator
	keys    boardKeys
	help    help.Model
	shimmer *shimmer

	width  int
	height int

	entries  []timers.Entry
	selected int

	animation int
	notice    string
	noticeErr bool
	closed    bool // the orchestrator stopped publishing changes
	quitting  bool
}

// changedMsg is delivered when the orchestrator publishes a change.
type changedMsg struct{ open bool }

// opDoneMsg reports the outcome of a backend-bound action.
type opDoneMsg struct {
	action string
	err    error
}

type animationTickMsg struct{}

type shimmerTickMsg struct{}

// NewBoardModel creates a board over orch. ctx bounds the backend calls
// the board issues.
func NewBoardModel(ctx context.Context, orch *timers.Orchestrator) BoardModel {
	h := help.New()
	h.Styles = helpStyles()
	return BoardModel{
		ctx:     ctx,
		orch:    orch,
		keys:    defaultBoardKeys(),
		help:    h,
		shimmer: newShimmer(defaultShimmerConfig()),
		entries: orch.Entries(),
	}
}

// Init starts listening for changes and the animations.
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.orch),
		animationTick(),
		m.shimmerTick(),
	)
}

func waitForChange(orch *timers.Orchestrator) tea.Cmd {
	changes := orch.Changes()
	return func() tea.Msg {
		_, ok := <-changes
		return changedMsg{open: ok}
	}
}

func animationTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func (m BoardModel) shimmerTick() tea.Cmd {
	return tea.Tick(m.shimmer.cfg.Speed, func(time.Time) tea.Msg {
		return shimmerTickMsg{}
	})
}

// Update handles messages
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.refresh()
		if !msg.open {
			m.closed = true
			return m, nil
		}
		return m, waitForChange(m.orch)

	case opDoneMsg:
		m.refresh()
		m.report(msg.action, msg.err)
		return m, nil

	case animationTickMsg:
		m.animation = (m.animation + 1) % 4
		if m.quitting {
			return m, nil
		}
		return m, animationTick()

	case shimmerTickMsg:
		if e, ok := m.current(); ok {
			m.shimmer.setActive(e.Ticking())
			m.shimmer.advance(len([]rune(e.TaskTitle)))
		}
		if m.quitting {
			return m, nil
		}
		return m, m.shimmerTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m BoardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)

	case key.Matches(msg, m.keys.PauseAll):
		m.orch.PauseAll()
		m.refresh()
		m.report("paused all timers", nil)

	case key.Matches(msg, m.keys.ResetAll):
		m.orch.ResetAll()
		m.refresh()
		m.report("reset all timers", nil)

	case key.Matches(msg, m.keys.StopAll):
		return m, m.backendOp("stopped all timers", m.orch.StopAll)

	case key.Matches(msg, m.keys.DeleteAll):
		return m, m.backendOp("deleted all timers", m.orch.DeleteAll)
	}

	e, ok := m.current()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Pause):
		var err error
		action := "paused " + e.TaskTitle
		if e.IsPaused {
			err = m.orch.Resume(e.TaskID)
			action = "resumed " + e.TaskTitle
		} else {
			err = m.orch.Pause(e.TaskID)
		}
		m.refresh()
		m.report(action, err)

	case key.Matches(msg, m.keys.Reset):
		err := m.orch.Reset(e.TaskID)
		m.refresh()
		m.report("reset "+e.TaskTitle, err)

	case key.Matches(msg, m.keys.Stop):
		taskID := e.TaskID
		return m, m.backendOp("stopped "+e.TaskTitle, func(ctx context.Context) error {
			return m.orch.Stop(ctx, taskID)
		})

	case key.Matches(msg, m.keys.Delete):
		taskID := e.TaskID
		return m, m.backendOp("deleted "+e.TaskTitle, func(ctx context.Context) error {
			return m.orch.Delete(ctx, taskID)
		})
	}

	return m, nil
}

// backendOp runs fn off the update loop; its result comes back as opDoneMsg.
func (m BoardModel) backendOp(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m *BoardModel) refresh() {
	var selectedID string
	if e, ok := m.current(); ok {
		selectedID = e.TaskID
	}
	m.entries = m.orch.Entries()

	for i, e := range m.entries {
		if e.TaskID == selectedID {
			m.selected = i
			return
		}
	}
	if m.selected >= len(m.entries) {
		m.selected = len(m.entries) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *BoardModel) report(action string, err error) {
	if err != nil {
		m.notice = err.Error()
		m.noticeErr = true
		return
	}
	m.notice = action
	m.noticeErr = false
}

func (m *BoardModel) moveSelection(delta int) {
	if len(m.entries) == 0 {
		return
	}
	next := m.selected + delta
	if next < 0 || next >= len(m.entries) {
		return
	}
	m.selected = next
	m.shimmer.reset()
}

func (m BoardModel) current() (timers.Entry, bool) {
	if m.selected < 0 || m.selected >= len(m.entries) {
		return timers.Entry{}, false
	}
	return m.entries[m.selected], true
}

// View renders the board
func (m BoardModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	footer := m.renderFooter()
	contentHeight := m.height - lipgloss.Height(footer) - 1

	if m.width < 90 {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderClockPanel(m.width, contentHeight/2),
			m.renderListPanel(m.width, contentHeight-contentHeight/2),
			footer,
		)
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth - 2

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderClockPanel(leftWidth, contentHeight),
		"  ",
		m.renderListPanel(rightWidth, contentHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, content, footer)
}

func (m BoardModel) renderClockPanel(width, height int) string {
	panel := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	e, ok := m.current()
	if !ok {
		empty := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true).
			Render("No timers. Start one with: mbb timers <task-id>")
		return panel.Render(empty)
	}

	center := lipgloss.NewStyle().Align(lipgloss.Center).Width(width)
	var components []string

	animChars := []string{"⏱", "⏲", "⏱", "⏲"}
	header := strings.ToUpper(e.Status())
	if e.Ticking() {
		a := animChars[m.animation]
		header = fmt.Sprintf("%s  TRACKING TIME  %s", a, a)
	}
	components = append(components, center.
		Foreground(lipgloss.Color(statusColor(e))).
		Bold(true).
		Render(header))

	components = append(components, center.Render(m.shimmer.render(e.TaskTitle, width-4)))

	var clock []string
	for _, line := range strings.Split(renderBigClock(e.CurrentTime, statusColor(e)), "\n") {
		clock = append(clock, center.Render(line))
	}
	components = append(components, strings.Join(clock, "\n"))

	earned := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Bold(true)
	rate := "no rate"
	if e.HourlyRateUSD != nil {
		rate = FormatUSD(e.HourlyRateUSD) + "/h"
	}
	components = append(components, center.Render(
		earned.Render(FormatUSD(e.SessionEarnings))+
			lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render("  at "+rate)))

	info := fmt.Sprintf("Started at %s", e.StartTime.Local().Format("15:04:05"))
	if e.Unsynced {
		info += "  ·  not synced"
	}
	components = append(components, center.
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Italic(true).
		Render(info))

	return panel.Render(strings.Join(components, "\n\n"))
}

func (m BoardModel) renderListPanel(width, height int) string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Render(fmt.Sprintf("TIMERS (%d)", len(m.entries)))
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBorder)).
		Render(strings.Repeat("─", max(min(width-2, 60), 0))))
	b.WriteString("\n")

	var total float64
	for i, e := range m.entries {
		if e.SessionEarnings != nil {
			total += *e.SessionEarnings
		}

		cursor := "  "
		titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
		if i == m.selected {
			cursor = "▶ "
			titleStyle = titleStyle.Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
		}

		marker := ""
		if e.Unsynced {
			marker = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Render(" !")
		}

		right := fmt.Sprintf("%8s %9s %-7s", FormatClock(e.CurrentTime), FormatUSD(e.SessionEarnings), e.Status())
		titleWidth := max(width-lipgloss.Width(right)-lipgloss.Width(cursor)-4, 8)
		name := truncate(e.TaskTitle, titleWidth)

		line := cursor +
			titleStyle.Width(titleWidth).Render(name) + " " +
			lipgloss.NewStyle().Foreground(lipgloss.Color(statusColor(e))).Render(right) +
			marker
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSuccess)).
		Render("Total " + FormatUSD(&total)))

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Padding(1, 1).
		Render(b.String())
}

func (m BoardModel) renderFooter() string {
	var lines []string
	if m.notice != "" {
		color := ColorSecondaryText
		if m.noticeErr {
			color = ColorError
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(m.notice))
	}
	lines = append(lines, lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(m.width).
		Render(m.help.View(m.keys)))
	return strings.Join(lines, "\n")
}

func statusColor(e timers.Entry) string {
	switch {
	case e.IsStopped:
		return ColorDisabledText
	case e.IsPaused:
		return ColorWarning
	default:
		return ColorAccentBright
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

var bigDigits = map[rune][5]string{
	'0': {" ███ ", "█   █", "█   █", "█   █", " ███ "},
	'1': {"  █  ", " ██  ", "  █  ", "  █  ", "█████"},
	'2': {" ███ ", "█   █", "   █ ", "  █  ", "█████"},
	'3': {" ███ ", "█   █", "  ██ ", "█   █", " ███ "},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "████ ", "    █", "████ "},
	'6': {" ███ ", "█    ", "████ ", "█   █", " ███ "},
	'7': {"█████", "    █", "   █ ", "  █  ", " █   "},
	'8': {" ███ ", "█   █", " ███ ", "█   █", " ███ "},
	'9': {" ███ ", "█   █", " ████", "    █", " ███ "},
	':': {"     ", "  █  ", "     ", "  █  ", "     "},
}

// renderBigClock renders elapsed seconds as five rows of block digits.
func renderBigClock(seconds int64, color string) string {
	var lines [5]strings.Builder
	for _, char := range FormatClock(seconds) {
		art, ok := bigDigits[char]
		if !ok {
			continue
		}
		for i := range art {
			lines[i].WriteString(art[i])
			lines[i].WriteString(" ")
		}
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
	rows := make([]string, len(lines))
	for i := range lines {
		rows[i] = style.Render(lines[i].String())
	}
	return strings.Join(rows, "\n")
}
