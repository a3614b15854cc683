package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

func levelStyle(l impact.ImpactLevel) lipgloss.Style {
	switch l {
	case impact.ImpactCritical:
		return errStyle.Bold(true)
	case impact.ImpactHigh:
		return errStyle
	case impact.ImpactMedium:
		return warnStyle
	case impact.ImpactLow:
		return successStyle
	default:
		return dimStyle
	}
}
