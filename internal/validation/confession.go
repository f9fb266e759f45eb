// Package validation contains input validation for confession submissions.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"whisperwall/internal/models"
)

// MaxConfessionLength is the maximum confession length in characters after trimming.
const MaxConfessionLength = 500

// ConfessionText trims the text and validates its length.
// Returns the trimmed text to be stored.
func ConfessionText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("text is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxConfessionLength {
		return "", fmt.Errorf("text must be %d characters or less", MaxConfessionLength)
	}
	return trimmed, nil
}

// ConfessionColor validates the color against the fixed palette.
func ConfessionColor(color string) error {
	if color == "" {
		return fmt.Errorf("color is required")
	}
	if !models.IsPaletteColor(color) {
		return fmt.Errorf("invalid color")
	}
	return nil
}
