package report

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF") // Cyan: headings
	colorAccent  = lipgloss.Color("#FFD700") // Gold: critical path
	colorSuccess = lipgloss.Color("#00E676") // Green: applied fixes
	colorDanger  = lipgloss.Color("#FF5252") // Red: conflicts, cycles
	colorMuted   = lipgloss.Color("#8C8C8C") // Gray: derived edges, detail
)

// Styles holds the lipgloss styles a Strategy renders with. Build one with
// NewStyles.
type Styles struct {
	Heading  lipgloss.Style
	Task     lipgloss.Style
	Critical lipgloss.Style
	Danger   lipgloss.Style
	Success  lipgloss.Style
	Muted    lipgloss.Style
}

// NewStyles returns the colored palette, or plain styles when color is false.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{
			Heading:  plain,
			Task:     plain,
			Critical: plain,
			Danger:   plain,
			Success:  plain,
			Muted:    plain,
		}
	}
	return Styles{
		Heading:  lipgloss.NewStyle().Foreground(colorPrimary).Bold(true),
		Task:     lipgloss.NewStyle().Bold(true),
		Critical: lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Danger:   lipgloss.NewStyle().Foreground(colorDanger).Bold(true),
		Success:  lipgloss.NewStyle().Foreground(colorSuccess),
		Muted:    lipgloss.NewStyle().Foreground(colorMuted),
	}
}
