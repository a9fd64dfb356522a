// Package intent extracts travel destinations from guide step text.
package intent

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Kind classifies a travel intent.
type Kind string

const (
	// Classic travels by chat command.
	Classic Kind = "classic"
	// ZaapShortcut teleports through the shortcut panel first.
	ZaapShortcut Kind = "zaap_shortcut"
)

// DefaultCommandTemplate renders the chat command for a destination.
const DefaultCommandTemplate = "/travel {x},{y}"

// Coordinates is a map position.
type Coordinates struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

func (c Coordinates) String() string { return fmt.Sprintf("%d,%d", c.X, c.Y) }

// Intent is a travel destination found in step text.
type Intent struct {
	Kind           Kind         `yaml:"kind"                    json:"kind"`
	Coordinates    *Coordinates `yaml:"coordinates"             json:"coordinates"`
	ShortcutName   string       `yaml:"shortcut_name,omitempty" json:"shortcut_name,omitempty"`
	RawCommandText string       `yaml:"command"                 json:"command"`
	// MarkerText is the matched phrase with markup removed, for logs.
	MarkerText string `yaml:"marker" json:"marker"`
}

var (
	markerRe      = regexp.MustCompile(`(?is)(?:allez en|go to).*?\[\s*(-?\d+)\s*,\s*(-?\d+)\s*\]`)
	coordsRe      = regexp.MustCompile(`\[\s*(-?\d+)\s*,\s*(-?\d+)\s*\]`)
	shortcutRe    = regexp.MustCompile(`(?is)<span[^>]*style="[^"]*color:\s*rgb\(\s*98\s*,\s*172\s*,\s*255\s*\)[^"]*"[^>]*>(.*?)</span>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe       = regexp.MustCompile(`\s+`)
	travelPhrases = regexp.MustCompile(`(?i)allez en|go to`)
)

// Extractor turns step text into an Intent.
type Extractor struct {
	// CommandTemplate has {x} and {y} placeholders. Empty means
	// DefaultCommandTemplate.
	CommandTemplate string
}

// Extract uses the default Extractor.
func Extract(stepText string) *Intent {
	return Extractor{}.Extract(stepText)
}

// Extract returns the first travel marker in stepText, or nil when there
// is none. A marker overlapping a shortcut-colored span makes a
// ZaapShortcut.
func (e Extractor) Extract(stepText string) *Intent {
	loc := markerRe.FindStringSubmatchIndex(stepText)
	if loc == nil {
		return nil
	}
	x, errX := strconv.Atoi(stepText[loc[2]:loc[3]])
	y, errY := strconv.Atoi(stepText[loc[4]:loc[5]])
	if errX != nil || errY != nil {
		return nil
	}
	c := Coordinates{X: x, Y: y}

	in := &Intent{
		Kind:           Classic,
		Coordinates:    &c,
		RawCommandText: e.command(c),
		MarkerText:     PlainText(stepText[loc[0]:loc[1]]),
	}

	for _, span := range shortcutRe.FindAllStringSubmatchIndex(stepText, -1) {
		if loc[0] < span[1] && loc[1] > span[0] {
			in.Kind = ZaapShortcut
			in.ShortcutName = shortcutName(stepText, span, c)
			break
		}
	}
	return in
}

func (e Extractor) command(c Coordinates) string {
	tpl := e.CommandTemplate
	if tpl == "" {
		tpl = DefaultCommandTemplate
	}
	return strings.NewReplacer("{x}", strconv.Itoa(c.X), "{y}", strconv.Itoa(c.Y)).Replace(tpl)
}

// shortcutName is the span's text without the travel phrase and
// coordinates, else the word before the span, else the coordinates.
func shortcutName(text string, span []int, c Coordinates) string {
	inner := PlainText(text[span[2]:span[3]])
	inner = coordsRe.ReplaceAllString(inner, " ")
	inner = travelPhrases.ReplaceAllString(inner, " ")
	if name := trimName(inner); name != "" {
		return name
	}
	before := strings.Fields(PlainText(text[:span[0]]))
	for i := len(before) - 1; i >= 0; i-- {
		if name := trimName(before[i]); name != "" {
			return name
		}
	}
	return c.String()
}

func trimName(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// AllCoordinates lists every [x,y] in text, in order.
func AllCoordinates(text string) []Coordinates {
	var out []Coordinates
	for _, m := range coordsRe.FindAllStringSubmatch(text, -1) {
		x, errX := strconv.Atoi(m[1])
		y, errY := strconv.Atoi(m[2])
		if errX == nil && errY == nil {
			out = append(out, Coordinates{X: x, Y: y})
		}
	}
	return out
}

// PlainText strips markup, decodes entities and collapses whitespace.
func PlainText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
