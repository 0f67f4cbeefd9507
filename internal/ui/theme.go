package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a named colour palette. Colours are hex strings.
type Theme struct {
	Name string

	Background string
	Surface    string
	SurfaceAlt string

	SelectionBg   string
	SelectionText string

	Border      string
	BorderFocus string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// StatusColors maps a record status or log/audit action to a colour.
	StatusColors map[string]string
}

// StatusColor returns the colour for status, or the text colour when the
// status is unknown.
func (t Theme) StatusColor(status string) string {
	if c, ok := t.StatusColors[strings.ToLower(strings.TrimSpace(status))]; ok {
		return c
	}
	return t.Text
}

// Styles holds the lipgloss styles derived from a Theme.
type Styles struct {
	Background lipgloss.Style
	Surface    lipgloss.Style
	SurfaceAlt lipgloss.Style

	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
}

// Styles builds the style set for t.
func (t Theme) Styles() Styles {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	panel := func(bg string) lipgloss.Style {
		return fg(t.Text).Background(lipgloss.Color(bg))
	}
	return Styles{
		Background: lipgloss.NewStyle().Background(lipgloss.Color(t.Background)),
		Surface:    panel(t.Surface),
		SurfaceAlt: panel(t.SurfaceAlt),

		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),

		Header:   panel(t.Surface).Padding(0, 1),
		Logo:     fg(t.Warning).Bold(true),
		Selected: fg(t.SelectionText).Background(lipgloss.Color(t.SelectionBg)),
	}
}

// WithBackground returns a copy of s where every style carries bgColor, so
// text drawn on a panel never falls back to the terminal background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	for _, st := range []*lipgloss.Style{
		&s.Background, &s.Surface, &s.SurfaceAlt,
		&s.Text, &s.MutedText, &s.FaintText, &s.AccentText,
		&s.SuccessText, &s.WarningText, &s.DangerText,
		&s.Header, &s.Logo, &s.Selected,
	} {
		*st = st.Background(bg)
	}
	return s
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

// GetTheme returns a theme by name, case-insensitively, falling back to
// Nightfox.
func GetTheme(name string) Theme {
	for _, candidate := range themeOrder {
		if strings.EqualFold(candidate, strings.TrimSpace(name)) {
			return themes[candidate]
		}
	}
	return themes["Nightfox"]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns the available themes in cycle order.
func ThemeNames() []string {
	return append([]string(nil), themeOrder...)
}

// withStatuses fills StatusColors from the palette's semantic colours.
func withStatuses(t Theme, accent string) Theme {
	t.StatusColors = map[string]string{
		"active":   t.Success,
		"approved": t.Success,
		"paid":     t.Success,
		"on_duty":  t.Success,
		"in":       t.Success,
		"pending":  t.Warning,
		"blocked":  t.Danger,
		"rejected": t.Danger,
		"overdue":  t.Danger,
		"out":      t.Info,
		"update":   t.Info,
		"create":   accent,
		"inactive": t.Faint,
		"off_duty": t.Faint,
	}
	return t
}

// https://github.com/EdenEast/nightfox.nvim
func nightfoxTheme() Theme {
	return withStatuses(Theme{
		Name:          "Nightfox",
		Background:    "#131a24",
		Surface:       "#192330",
		SurfaceAlt:    "#212e3f",
		SelectionBg:   "#2b3b51",
		SelectionText: "#cdcecf",
		Border:        "#39506d",
		BorderFocus:   "#719cd6",
		Text:          "#cdcecf",
		Muted:         "#738091",
		Faint:         "#71839b",
		Accent:        "#719cd6",
		Success:       "#81b29a",
		Warning:       "#dbc074",
		Danger:        "#c94f6d",
		Info:          "#63cdcf",
	}, "#9d79d6")
}

// https://github.com/rebelot/kanagawa.nvim
func kanagawaTheme() Theme {
	return withStatuses(Theme{
		Name:          "Kanagawa",
		Background:    "#16161D",
		Surface:       "#1F1F28",
		SurfaceAlt:    "#2A2A37",
		SelectionBg:   "#2D4F67",
		SelectionText: "#DCD7BA",
		Border:        "#54546D",
		BorderFocus:   "#7E9CD8",
		Text:          "#DCD7BA",
		Muted:         "#C8C093",
		Faint:         "#727169",
		Accent:        "#7E9CD8",
		Success:       "#98BB6C",
		Warning:       "#E6C384",
		Danger:        "#E46876",
		Info:          "#7FB4CA",
	}, "#957FB8")
}

// Tailwind slate and sky.
func slateTheme() Theme {
	return withStatuses(Theme{
		Name:          "Slate",
		Background:    "#020617",
		Surface:       "#0f172a",
		SurfaceAlt:    "#1e293b",
		SelectionBg:   "#0284c7",
		SelectionText: "#f8fafc",
		Border:        "#334155",
		BorderFocus:   "#38bdf8",
		Text:          "#f1f5f9",
		Muted:         "#94a3b8",
		Faint:         "#64748b",
		Accent:        "#38bdf8",
		Success:       "#22c55e",
		Warning:       "#f59e0b",
		Danger:        "#ef4444",
		Info:          "#06b6d4",
	}, "#0ea5e9")
}
