package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used across commands.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style

	metricColors map[string]lipgloss.Style
	noColor      bool
}

// NewStyles builds the style set. With noColor every style degrades to a
// plain passthrough.
func NewStyles(noColor bool) *Styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header: plain, Success: plain, Error: plain, Warning: plain, Muted: plain,
			noColor: true,
		}
	}
	return &Styles{
		Header:  lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		metricColors: map[string]lipgloss.Style{
			"green":  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			"yellow": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			"amber":  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			"orange": lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
			"red":    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
			"blue":   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
			"gray":   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		},
	}
}

// MetricColor returns the style for a rule color name; unknown names
// render unstyled.
func (s *Styles) MetricColor(name string) lipgloss.Style {
	if s.noColor {
		return lipgloss.NewStyle()
	}
	if style, ok := s.metricColors[name]; ok {
		return style
	}
	return lipgloss.NewStyle()
}
