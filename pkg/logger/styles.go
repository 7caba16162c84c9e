package logger

import (
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

func getDefaultStyles() *charmlog.Styles {
	styles := charmlog.DefaultStyles()
	styles.Keys["operation"] = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styles.Keys["reason"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	styles.Values["reason"] = lipgloss.NewStyle().Bold(true)
	return styles
}
