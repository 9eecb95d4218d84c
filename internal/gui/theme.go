package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"jordanella.com/auto-shake-go/internal/policy"
)

var (
	// DefaultWindowSize is the default window dimensions
	DefaultWindowSize = fyne.NewSize(560, 640)

	ColorPrimary    = color.NRGBA{R: 0, G: 150, B: 136, A: 255} // Teal
	ColorSuccess    = color.NRGBA{R: 76, G: 175, B: 80, A: 255}
	ColorWarning    = color.NRGBA{R: 255, G: 152, B: 0, A: 255}
	ColorError      = color.NRGBA{R: 244, G: 67, B: 54, A: 255}
	ColorIdle       = color.NRGBA{R: 120, G: 120, B: 120, A: 255}
	ColorBackground = color.NRGBA{R: 24, G: 26, B: 27, A: 255}
)

// PhaseColor is the chip colour for a policy phase
func PhaseColor(p policy.Phase) color.Color {
	switch p {
	case policy.Armed:
		return ColorWarning
	case policy.Acting:
		return ColorSuccess
	case policy.Cooldown:
		return ColorPrimary
	default:
		return ColorIdle
	}
}

// ShakeTheme is a compact dark theme for the small settings window
type ShakeTheme struct{}

func (t *ShakeTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameButton:
		return ColorPrimary
	case theme.ColorNameBackground:
		return ColorBackground
	case theme.ColorNameSuccess:
		return ColorSuccess
	case theme.ColorNameWarning:
		return ColorWarning
	case theme.ColorNameError:
		return ColorError
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *ShakeTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *ShakeTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *ShakeTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 13
	case theme.SizeNameHeadingText:
		return 18
	case theme.SizeNamePadding:
		return 6
	default:
		return theme.DefaultTheme().Size(name)
	}
}
