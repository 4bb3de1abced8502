package output

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles used in text mode.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	ModelPath     lipgloss.Style
	Muted         lipgloss.Style
	Info          lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

// Palette.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#0B7EC4", Dark: "#4FB3F0"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#1F8F3A", Dark: "#3FD16A"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#B36B00", Dark: "#F5A623"}
	colorError   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5F56"}
)

// NewStyles builds styles bound to a lipgloss renderer.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:       lr.NewStyle().Bold(true).Foreground(colorPrimary).Underline(true),
		Header2:       lr.NewStyle().Bold(true).Foreground(colorPrimary),
		Bold:          lr.NewStyle().Bold(true),
		ModelPath:     lr.NewStyle().Foreground(colorInfo),
		Muted:         lr.NewStyle().Foreground(colorMuted),
		Info:          lr.NewStyle().Foreground(colorInfo),
		Success:       lr.NewStyle().Foreground(colorSuccess),
		Warning:       lr.NewStyle().Foreground(colorWarning),
		Error:         lr.NewStyle().Foreground(colorError).Bold(true),
		StatusSuccess: lr.NewStyle().Foreground(colorSuccess).Bold(true),
		StatusFailed:  lr.NewStyle().Foreground(colorError).Bold(true),
	}
}
