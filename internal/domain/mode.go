package domain

import (
	"fmt"
	"strings"
)

// Mode is the travel mode sent to the directions service.
type Mode string

const (
	ModeDriving   Mode = "DRIVING"
	ModeBicycling Mode = "BICYCLING"
	ModeTransit   Mode = "TRANSIT"
	ModeWalking   Mode = "WALKING"
)

// ParseMode accepts a mode name in any case. An empty string yields ModeDriving.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return ModeDriving, nil
	case ModeDriving, ModeBicycling, ModeTransit, ModeWalking:
		return m, nil
	default:
		return "", fmt.Errorf("unknown travel mode %q", s)
	}
}

// Param returns the lower-cased wire value.
func (m Mode) Param() string {
	if m == "" {
		m = ModeDriving
	}
	return strings.ToLower(string(m))
}
