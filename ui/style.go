// Package ui holds the lipgloss styles shared by the CLI views.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	boldStyle   = lipgloss.NewStyle().Bold(true)
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Bold renders headings.
func Bold(text string) string { return boldStyle.Render(text) }

// Good renders success markers.
func Good(text string) string { return goodStyle.Render(text) }

// Bad renders failure markers.
func Bad(text string) string { return badStyle.Render(text) }

// Accent renders highlighted values.
func Accent(text string) string { return accentStyle.Render(text) }

// Muted renders secondary detail.
func Muted(text string) string { return mutedStyle.Render(text) }
