package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var TableGray = lipgloss.Color("240")

var Title = lipgloss.NewStyle().Inline(true).Bold(true).Foreground(lipgloss.Color("252")).Render
var Help = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("241")).Render
var TableBase = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(TableGray).Render

var Before = lipgloss.NewStyle().Inline(true).Bold(true).Foreground(lipgloss.Color("214")).Render
var After = lipgloss.NewStyle().Inline(true).Bold(true).Foreground(lipgloss.Color("70")).Render

func TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(TableGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("218")).
		Background(lipgloss.Color("70")).
		Bold(false)
	return s
}
