package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	purple = lipgloss.Color("#7D56F4")
	green  = lipgloss.Color("#04B575")
	red    = lipgloss.Color("#FF0000")
	orange = lipgloss.Color("#FFA500")
	grey   = lipgloss.Color("#626262")
)

var styles = newTheme()

// theme holds the lipgloss styles for the list, status line and dialogs.
type theme struct {
	title   lipgloss.Style
	online  lipgloss.Style
	err     lipgloss.Style
	pending lipgloss.Style
	help    lipgloss.Style
	done    lipgloss.Style
}

func newTheme() theme {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return theme{
		title:   fg(purple).Bold(true).MarginBottom(1),
		online:  fg(green).Bold(true),
		err:     fg(red).Bold(true),
		pending: fg(orange),
		help:    fg(grey).Italic(true),
		done:    fg(grey).Strikethrough(true),
	}
}

// connection renders the online/offline badge.
func (t theme) connection(online bool) string {
	if online {
		return t.online.Render("● online")
	}
	return t.err.Render("○ offline")
}
