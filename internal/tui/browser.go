// Package tui is the interactive results browser behind `acto analyze -i`.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/report"
)

// SortField controls the column used for sorting.
type SortField int

const (
	SortByWorst SortField = iota
	SortByCumulative
	SortByName
	SortByPaths
)

var sortLabels = []string{"worst score", "cumulative", "name", "paths"}

type row struct {
	impact   impact.EntityImpact
	expanded bool
	visible  bool
}

// BrowserModel lists affected entities and expands their dependency paths.
type BrowserModel struct {
	result *impact.ImpactResult
	rows   []row
	cursor int

	filter    textinput.Model
	filtering bool

	sortField SortField
	sortDesc  bool

	done   bool
	width  int
	height int

	visibleIdxs []int
}

// NewBrowserModel creates a browser over an analysis result. Rows start
// sorted by worst-case score, highest first.
func NewBrowserModel(res *impact.ImpactResult) BrowserModel {
	rows := make([]row, len(res.EntityImpacts))
	for i, ei := range res.EntityImpacts {
		rows[i] = row{impact: ei, visible: true}
	}

	filter := textinput.New()
	filter.Prompt = "  Filter: "
	filter.Placeholder = "entity name"
	filter.CharLimit = 64

	m := BrowserModel{
		result:   res,
		rows:     rows,
		filter:   filter,
		sortDesc: true,
		width:    100,
		height:   24,
	}
	m.sortRows()
	m.recomputeVisible()
	return m
}

func (m BrowserModel) Init() tea.Cmd {
	return nil
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m BrowserModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.done = true
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)

	case "down", "j":
		m.moveCursor(1)

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		if len(m.visibleIdxs) > 0 {
			m.cursor = len(m.visibleIdxs) - 1
		}

	case "enter", " ":
		m.toggleExpanded()

	case "s":
		m.cycleSort()

	case "/":
		m.filtering = true
		return m, m.filter.Focus()
	}
	return m, nil
}

func (m BrowserModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m BrowserModel) View() string {
	var b strings.Builder
	res := m.result

	b.WriteString(titleStyle.Render(fmt.Sprintf("Impact of %s on %s", res.ChangeType, report.DisplayEntity(res.RootEntity))))
	b.WriteString("\n\n")

	overall := res.OverallImpact
	b.WriteString(fmt.Sprintf("  Overall: %s  score %d", levelStyle(overall.WorstImpactLevel).Render(overall.WorstImpactLevel.String()), overall.WorstRiskScore))
	if overall.RequiresApproval {
		b.WriteString("  " + errStyle.Render("approval required"))
	}
	b.WriteString("\n")
	summary := fmt.Sprintf("  %d paths, %d entities, max depth %d", res.TotalPaths, res.TotalEntities, res.MaxDepthReached)
	if res.IsTruncated {
		summary += warnStyle.Render("  truncated")
	}
	b.WriteString(summary + "\n\n")

	if m.filtering {
		b.WriteString(m.filter.View() + "\n\n")
	} else if v := m.filter.Value(); v != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  Filter: %s (/ to change, esc in filter to clear)", v)) + "\n\n")
	}

	header := fmt.Sprintf("  %-2s %-40s %-9s %7s %10s %5s", "", "Entity", "Level", "Worst", "Cumulative", "Paths")
	b.WriteString(dimStyle.Render(header) + "\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", min(m.width-4, 80))) + "\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("  No downstream dependents") + "\n")
	} else if len(m.visibleIdxs) == 0 {
		b.WriteString(dimStyle.Render("  No entities match the filter") + "\n")
	}

	listHeight := max(m.height-14, 5)
	start := 0
	if m.cursor >= listHeight {
		start = m.cursor - listHeight + 1
	}
	end := min(start+listHeight, len(m.visibleIdxs))

	for vi := start; vi < end; vi++ {
		r := m.rows[m.visibleIdxs[vi]]
		ei := r.impact

		cursor := "  "
		nameStyle := lipgloss.NewStyle()
		if vi == m.cursor {
			cursor = highlightStyle.Render("> ")
			nameStyle = nameStyle.Bold(true)
		}
		marker := "+"
		if r.expanded {
			marker = "-"
		}

		level := fmt.Sprintf("%-9s", ei.WorstCaseImpactLevel)
		line := fmt.Sprintf("%s%s %-40s %s %7d %10d %5d",
			cursor, marker, nameStyle.Render(truncate(report.DisplayEntity(ei.Entity), 40)),
			levelStyle(ei.WorstCaseImpactLevel).Render(level),
			ei.WorstCaseRiskScore, ei.CumulativeRiskScore, len(ei.Paths))
		b.WriteString(line + "\n")

		if r.expanded {
			for _, p := range ei.Paths {
				b.WriteString(dimStyle.Render(fmt.Sprintf("      %s  %s score %d (%s)",
					pathLine(p), p.MaxDependencyType, p.RiskScore, p.ImpactLevel)) + "\n")
			}
		}
	}

	if len(m.visibleIdxs) > listHeight {
		b.WriteString(dimStyle.Render(fmt.Sprintf("\n  Showing %d-%d of %d", start+1, end, len(m.visibleIdxs))) + "\n")
	}

	dir := "↑"
	if m.sortDesc {
		dir = "↓"
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  Sort: %s %s", sortLabels[m.sortField], dir)) + "\n")
	b.WriteString(dimStyle.Render("  enter expand • / filter • s sort • q quit") + "\n")
	return b.String()
}

// Done returns true once the user has quit.
func (m BrowserModel) Done() bool {
	return m.done
}

// Selected returns the entity under the cursor.
func (m BrowserModel) Selected() (impact.EntityImpact, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visibleIdxs) {
		return impact.EntityImpact{}, false
	}
	return m.rows[m.visibleIdxs[m.cursor]].impact, true
}

func (m *BrowserModel) moveCursor(delta int) {
	if len(m.visibleIdxs) == 0 {
		return
	}
	m.cursor = max(0, min(m.cursor+delta, len(m.visibleIdxs)-1))
}

func (m *BrowserModel) toggleExpanded() {
	if m.cursor < 0 || m.cursor >= len(m.visibleIdxs) {
		return
	}
	idx := m.visibleIdxs[m.cursor]
	m.rows[idx].expanded = !m.rows[idx].expanded
}

func (m *BrowserModel) applyFilter() {
	lower := strings.ToLower(m.filter.Value())
	for i := range m.rows {
		name := strings.ToLower(report.DisplayEntity(m.rows[i].impact.Entity))
		m.rows[i].visible = lower == "" || strings.Contains(name, lower)
	}
	m.recomputeVisible()
	if m.cursor >= len(m.visibleIdxs) {
		m.cursor = max(0, len(m.visibleIdxs)-1)
	}
}

func (m *BrowserModel) recomputeVisible() {
	m.visibleIdxs = m.visibleIdxs[:0]
	for i, r := range m.rows {
		if r.visible {
			m.visibleIdxs = append(m.visibleIdxs, i)
		}
	}
}

func (m *BrowserModel) cycleSort() {
	if m.sortDesc {
		m.sortDesc = false
	} else {
		m.sortField = (m.sortField + 1) % SortField(len(sortLabels))
		m.sortDesc = true
	}
	m.sortRows()
	m.recomputeVisible()
	m.cursor = 0
}

func (m *BrowserModel) sortRows() {
	sort.SliceStable(m.rows, func(i, j int) bool {
		if m.sortDesc {
			return m.less(m.rows[j].impact, m.rows[i].impact)
		}
		return m.less(m.rows[i].impact, m.rows[j].impact)
	})
}

func (m *BrowserModel) less(a, b impact.EntityImpact) bool {
	switch m.sortField {
	case SortByCumulative:
		return a.CumulativeRiskScore < b.CumulativeRiskScore
	case SortByName:
		return a.Entity.Name < b.Entity.Name
	case SortByPaths:
		return len(a.Paths) < len(b.Paths)
	default:
		return a.WorstCaseRiskScore < b.WorstCaseRiskScore
	}
}

func pathLine(p impact.DependencyPath) string {
	var b strings.Builder
	for i, n := range p.Nodes {
		if i > 0 {
			b.WriteString(fmt.Sprintf(" -%s-> ", strings.ToLower(p.Edges[i-1].String())))
		}
		if n.Name != "" {
			b.WriteString(n.Name)
		} else {
			b.WriteString(n.String())
		}
	}
	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}

// Browse runs the browser full-screen until the user quits.
func Browse(res *impact.ImpactResult) error {
	_, err := tea.NewProgram(NewBrowserModel(res), tea.WithAltScreen()).Run()
	return err
}
