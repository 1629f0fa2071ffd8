package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the sidebar and menu color scheme.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
}

var (
	ThemeStorm = Theme{
		Name:      "storm",
		Primary:   lipgloss.Color("#8ab4ff"),
		Secondary: lipgloss.Color("#00ffff"),
		Accent:    lipgloss.Color("#ffffff"),
		Text:      lipgloss.Color("#e0e8ff"),
		Muted:     lipgloss.Color("#444466"),
	}

	ThemeEmber = Theme{
		Name:      "ember",
		Primary:   lipgloss.Color("#ff6b35"),
		Secondary: lipgloss.Color("#feca57"),
		Accent:    lipgloss.Color("#ff9ff3"),
		Text:      lipgloss.Color("#fff5f0"),
		Muted:     lipgloss.Color("#6b3b2e"),
	}

	ThemeMoss = Theme{
		Name:      "moss",
		Primary:   lipgloss.Color("#00ff00"),
		Secondary: lipgloss.Color("#88ff88"),
		Accent:    lipgloss.Color("#ccff66"),
		Text:      lipgloss.Color("#d8ffd8"),
		Muted:     lipgloss.Color("#005500"),
	}

	ThemeMono = Theme{
		Name:      "mono",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#cccccc"),
		Accent:    lipgloss.Color("#0088ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
	}

	CurrentTheme = ThemeStorm

	Themes = []Theme{
		ThemeStorm,
		ThemeEmber,
		ThemeMoss,
		ThemeMono,
	}
)

// GetTheme returns the named theme, or the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
