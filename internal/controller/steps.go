package controller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/guidepilot/internal/intent"
)

// ErrNoSteps is returned for a guide file without steps.
var ErrNoSteps = errors.New("controller: guide has no steps")

// Step is one guide instruction. WebText carries the HTML the shortcut
// annotation lives in; Text is the plain fallback.
type Step struct {
	Text    string `yaml:"text,omitempty"     json:"text,omitempty"`
	WebText string `yaml:"web_text,omitempty" json:"web_text,omitempty"`
	PosX    *int   `yaml:"pos_x,omitempty"    json:"pos_x,omitempty"`
	PosY    *int   `yaml:"pos_y,omitempty"    json:"pos_y,omitempty"`
}

// Body returns the text intents are extracted from.
func (s Step) Body() string {
	if s.WebText != "" {
		return s.WebText
	}
	return s.Text
}

// Plain returns the step without markup.
func (s Step) Plain() string { return intent.PlainText(s.Body()) }

// Position returns the step's map position when both coordinates are set.
func (s Step) Position() (intent.Coordinates, bool) {
	if s.PosX == nil || s.PosY == nil {
		return intent.Coordinates{}, false
	}
	return intent.Coordinates{X: *s.PosX, Y: *s.PosY}, true
}

// Guide is an ordered list of steps.
type Guide struct {
	Name  string `yaml:"name"  json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// LoadGuide reads a YAML or JSON guide file. A guide without a name is
// named after the file.
func LoadGuide(path string) (*Guide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read guide: %w", err)
	}
	return ParseGuide(data, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// ParseGuide decodes a guide. JSON input is accepted as YAML.
func ParseGuide(data []byte, fallbackName string) (*Guide, error) {
	var g Guide
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse guide: %w", err)
	}
	if len(g.Steps) == 0 {
		return nil, ErrNoSteps
	}
	if g.Name == "" {
		g.Name = fallbackName
	}
	return &g, nil
}
