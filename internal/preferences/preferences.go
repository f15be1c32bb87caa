// Package preferences persists the console's user settings.
package preferences

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownPreference = errors.New("unknown preference")
	ErrInvalidValue      = errors.New("invalid preference value")
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

type Density string

const (
	DensityCompact     Density = "compact"
	DensityComfortable Density = "comfortable"
	DensitySpacious    Density = "spacious"
)

type FontSize string

const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
)

type Notifications struct {
	Email        bool `json:"email"`
	Push         bool `json:"push"`
	LowStock     bool `json:"low_stock"`
	OrderStatus  bool `json:"order_status"`
	DailyReports bool `json:"daily_reports"`
}

type Layout struct {
	SidebarCollapsed bool    `json:"sidebar_collapsed"`
	Density          Density `json:"density"`
}

type Accessibility struct {
	FontSize      FontSize `json:"font_size"`
	HighContrast  bool     `json:"high_contrast"`
	ReducedMotion bool     `json:"reduced_motion"`
}

type Preferences struct {
	Theme         Theme         `json:"theme"`
	Language      string        `json:"language"`
	Currency      string        `json:"currency"`
	Timezone      string        `json:"timezone"`
	Notifications Notifications `json:"notifications"`
	Layout        Layout        `json:"layout"`
	Accessibility Accessibility `json:"accessibility"`
}

func Defaults() Preferences {
	return Preferences{
		Theme:    ThemeLight,
		Language: "en",
		Currency: "USD",
		Timezone: "America/New_York",
		Notifications: Notifications{
			Email:       true,
			Push:        true,
			LowStock:    true,
			OrderStatus: true,
		},
		Layout: Layout{
			Density: DensityComfortable,
		},
		Accessibility: Accessibility{
			FontSize: FontMedium,
		},
	}
}

func (p Preferences) Validate() error {
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeAuto:
	default:
		return fmt.Errorf("%w: theme %q", ErrInvalidValue, p.Theme)
	}
	switch p.Layout.Density {
	case DensityCompact, DensityComfortable, DensitySpacious:
	default:
		return fmt.Errorf("%w: density %q", ErrInvalidValue, p.Layout.Density)
	}
	switch p.Accessibility.FontSize {
	case FontSmall, FontMedium, FontLarge:
	default:
		return fmt.Errorf("%w: font size %q", ErrInvalidValue, p.Accessibility.FontSize)
	}
	if strings.TrimSpace(p.Language) == "" {
		return fmt.Errorf("%w: empty language", ErrInvalidValue)
	}
	if len(p.Currency) != 3 {
		return fmt.Errorf("%w: currency %q", ErrInvalidValue, p.Currency)
	}
	if strings.TrimSpace(p.Timezone) == "" {
		return fmt.Errorf("%w: empty timezone", ErrInvalidValue)
	}
	return nil
}
