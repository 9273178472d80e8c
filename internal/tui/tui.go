// Package tui provides a Bubble Tea TUI for browsing the recorded interval
// log.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/stint/internal/interval"
	"github.com/fakeyudi/stint/internal/store"
	"github.com/fakeyudi/stint/internal/testrun"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	kindStyles = map[interval.Kind]lipgloss.Style{
		interval.KindTyping:       lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		interval.KindReading:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		interval.KindDebug:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		interval.KindTestRun:      lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
		interval.KindWindowActive: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		interval.KindUserActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true),
	}

	defaultKindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabTimeline tabID = iota
	tabSummary
	tabDocuments
	tabTests
	tabCount
)

var tabNames = [tabCount]string{"Timeline", "Summary", "Documents", "Tests"}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	records   []store.Record
	source    string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
}

// New creates a new TUI model over the given records and their source path.
func New(records []store.Record, source string) Model {
	return Model{records: records, source: source, sortAsc: true}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.viewports[tabTimeline].SetContent(m.renderTimeline())
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  stint  " + m.source)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-4 jump  q quit"
	if m.activeTab == tabTimeline {
		dir := "oldest first"
		if !m.sortAsc {
			dir = "newest first"
		}
		hint += "  s sort (" + dir + ")"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	status := statusBarStyle.Width(m.width).
		Render(hintStyle.Render(hint) + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, status)
}

func (m *Model) initViewports() {
	contentHeight := m.height - 3 // title + tabs + status
	if contentHeight < 1 {
		contentHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		m.viewports[i] = viewport.New(m.width, contentHeight)
	}
	m.viewports[tabTimeline].SetContent(m.renderTimeline())
	m.viewports[tabSummary].SetContent(m.renderSummary())
	m.viewports[tabDocuments].SetContent(m.renderDocuments())
	m.viewports[tabTests].SetContent(m.renderTests())
}

func heading(s string) string {
	return sectionHeader.Render(s) + "\n"
}

func kindStyle(k interval.Kind) lipgloss.Style {
	if s, ok := kindStyles[k]; ok {
		return s
	}
	return defaultKindStyle
}

// renderTimeline lists every record in chronological order.
func (m *Model) renderTimeline() string {
	if len(m.records) == 0 {
		return dimStyle.Render("  no recorded intervals")
	}

	records := make([]store.Record, len(m.records))
	copy(records, m.records)
	sort.SliceStable(records, func(i, j int) bool {
		if m.sortAsc {
			return records[i].Start < records[j].Start
		}
		return records[i].Start > records[j].Start
	})

	var sb strings.Builder
	sb.WriteString(heading(" Recorded intervals"))
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s",
			timeStyle.Render(r.StartTime().Format("15:04:05")),
			kindStyle(r.Kind).Render(fmt.Sprintf("%-13s", r.Kind)),
			formatDuration(r.Duration())))
		if r.Document != nil {
			sb.WriteString(dimStyle.Render("  " + r.Document.Title))
		}
		if r.ModCount > 0 {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d edits", r.ModCount)))
		}
		if r.Perspective != "" {
			sb.WriteString(dimStyle.Render("  " + string(r.Perspective)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderSummary aggregates total time per kind.
func (m *Model) renderSummary() string {
	if len(m.records) == 0 {
		return dimStyle.Render("  no recorded intervals")
	}

	totals := make(map[interval.Kind]time.Duration)
	counts := make(map[interval.Kind]int)
	for _, r := range m.records {
		totals[r.Kind] += r.Duration()
		counts[r.Kind]++
	}

	kinds := make([]interval.Kind, 0, len(totals))
	for k := range totals {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return totals[kinds[i]] > totals[kinds[j]] })

	var sb strings.Builder
	sb.WriteString(heading(" Time per activity"))
	for _, k := range kinds {
		sb.WriteString(fmt.Sprintf("  %s %10s  %s\n",
			kindStyle(k).Render(fmt.Sprintf("%-13s", k)),
			formatDuration(totals[k]),
			dimStyle.Render(fmt.Sprintf("%d intervals", counts[k]))))
	}
	return sb.String()
}

// renderDocuments aggregates reading/typing time per document.
func (m *Model) renderDocuments() string {
	type docTotal struct {
		title    string
		category interval.DocumentCategory
		total    time.Duration
		edits    int
	}
	totals := make(map[string]*docTotal)
	for _, r := range m.records {
		if r.Document == nil {
			continue
		}
		dt, ok := totals[r.Document.Title]
		if !ok {
			dt = &docTotal{title: r.Document.Title, category: r.Document.Category}
			totals[r.Document.Title] = dt
		}
		dt.total += r.Duration()
		dt.edits += r.ModCount
	}
	if len(totals) == 0 {
		return dimStyle.Render("  no document activity recorded")
	}

	docs := make([]*docTotal, 0, len(totals))
	for _, dt := range totals {
		docs = append(docs, dt)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].total > docs[j].total })

	var sb strings.Builder
	sb.WriteString(heading(" Time per document"))
	for _, dt := range docs {
		sb.WriteString(fmt.Sprintf("  %10s  %s %s",
			formatDuration(dt.total),
			labelStyle.Render(dt.title),
			dimStyle.Render("("+string(dt.category)+")")))
		if dt.edits > 0 {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d edits", dt.edits)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderTests lists test-run records with their per-node results.
func (m *Model) renderTests() string {
	var sb strings.Builder
	found := false
	for _, r := range m.records {
		if r.Kind != interval.KindTestRun || r.TestRun == nil {
			continue
		}
		found = true
		sb.WriteString(heading(fmt.Sprintf(" Test run at %s", r.StartTime().Format("15:04:05"))))
		renderExecution(&sb, r.TestRun, 1)
		sb.WriteString("\n")
	}
	if !found {
		return dimStyle.Render("  no test runs recorded")
	}
	return sb.String()
}

func renderExecution(sb *strings.Builder, e *testrun.Execution, depth int) {
	indent := strings.Repeat("  ", depth)
	line := indent + resultLabel(e.Result)
	if e.Duration != nil {
		line += timeStyle.Render(fmt.Sprintf("  %.2fs", *e.Duration))
	}
	if e.MethodHash != "" {
		line += dimStyle.Render("  " + short(e.MethodHash))
	} else if e.ClassHash != "" {
		line += dimStyle.Render("  " + short(e.ClassHash))
	}
	sb.WriteString(line + "\n")
	for _, child := range e.Children {
		renderExecution(sb, child, depth+1)
	}
}

func resultLabel(code string) string {
	switch code {
	case "O":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("PASS")
	case "F":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("FAIL")
	case "E":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Render("ERR ")
	case "I":
		return dimStyle.Render("SKIP")
	default:
		return dimStyle.Render("----")
	}
}

// short truncates a hash for display.
func short(hash string) string {
	if len(hash) > 10 {
		return hash[:10]
	}
	return hash
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Second).String()
}

// Run starts the TUI over the given records.
func Run(records []store.Record, source string) error {
	p := tea.NewProgram(New(records, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
