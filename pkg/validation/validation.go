// Package validation checks scenario data and agent commands before they
// reach the simulation, and limits how often an agent may request a path.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
)

// Limits on scenario content.
const (
	MaxDocumentSize = 16 * 1024 * 1024
	MaxCells        = 250_000
	MaxAgents       = 1024
	MaxNameLen      = 32
	MaxCoordinate   = 1e7
	MaxRadius       = 512.0
	MaxSpeed        = 10_000.0
)

var (
	// ErrNonFinite is returned for NaN or infinite coordinates.
	ErrNonFinite = errors.New("non-finite value")
	// ErrOutOfBounds is returned for values past the limits above.
	ErrOutOfBounds = errors.New("value out of bounds")
)

var validNameChars = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.()]+$`)

// ValidateDocument checks the raw bytes of a scenario or config file. Only
// JSON documents are checked for syntax here; YAML is left to the decoder.
func ValidateDocument(data []byte, isJSON bool) error {
	if len(data) > MaxDocumentSize {
		return fmt.Errorf("document too large: %d bytes (max %d)", len(data), MaxDocumentSize)
	}
	if isJSON && !json.Valid(data) {
		return fmt.Errorf("invalid JSON format")
	}
	return nil
}

// ValidateName validates and trims an agent or scenario name.
func ValidateName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	if len(name) > MaxNameLen {
		return "", fmt.Errorf("name too long: %d characters (max %d)", len(name), MaxNameLen)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("name cannot be only whitespace")
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("name contains control characters")
		}
	}
	if !validNameChars.MatchString(trimmed) {
		return "", fmt.Errorf("name contains invalid characters (only alphanumeric, spaces, hyphens, underscores, dots and parentheses allowed)")
	}
	return trimmed, nil
}

// ValidatePosition rejects non-finite and absurdly distant points.
func ValidatePosition(p physics.Vector2D) error {
	if !p.IsFinite() {
		return fmt.Errorf("position %v: %w", p, ErrNonFinite)
	}
	if math.Abs(p.X) > MaxCoordinate || math.Abs(p.Y) > MaxCoordinate {
		return fmt.Errorf("position %v exceeds %g: %w", p, MaxCoordinate, ErrOutOfBounds)
	}
	return nil
}

// ValidateShape checks the half extents shared by all terrain cells.
func ValidateShape(s terrain.Shape) error {
	if !isFinite(s.HalfWidth) || !isFinite(s.HalfHeight) {
		return fmt.Errorf("cell shape: %w", ErrNonFinite)
	}
	if s.HalfWidth <= 0 || s.HalfHeight <= 0 {
		return fmt.Errorf("cell half extents must be positive, got %gx%g", s.HalfWidth, s.HalfHeight)
	}
	return nil
}

// ValidateCells checks every cell center of a map.
func ValidateCells(cells []terrain.Cell) error {
	if len(cells) > MaxCells {
		return fmt.Errorf("too many cells: %d (max %d): %w", len(cells), MaxCells, ErrOutOfBounds)
	}
	for i, c := range cells {
		if err := ValidatePosition(c.Center()); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
	}
	return nil
}

// ValidateRadius checks an agent's collision radius.
func ValidateRadius(r float64) error {
	if !isFinite(r) {
		return fmt.Errorf("radius: %w", ErrNonFinite)
	}
	if r < 0 || r > MaxRadius {
		return fmt.Errorf("radius %g not in [0, %g]: %w", r, MaxRadius, ErrOutOfBounds)
	}
	return nil
}

// ValidateSpeed checks an agent's speed in world units per second.
func ValidateSpeed(s float64) error {
	if !isFinite(s) {
		return fmt.Errorf("speed: %w", ErrNonFinite)
	}
	if s <= 0 || s > MaxSpeed {
		return fmt.Errorf("speed %g not in (0, %g]: %w", s, MaxSpeed, ErrOutOfBounds)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
