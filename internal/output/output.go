package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// Stdout is where Print writes.
var Stdout io.Writer = os.Stdout

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q (expected yaml or json)", s)
	}
}

// ActionResult is the output of commands that perform one action.
type ActionResult struct {
	OK      bool   `yaml:"ok"                json:"ok"`
	Action  string `yaml:"action"            json:"action"`
	Target  string `yaml:"target,omitempty"  json:"target,omitempty"`
	X       *int   `yaml:"x,omitempty"       json:"x,omitempty"`
	Y       *int   `yaml:"y,omitempty"       json:"y,omitempty"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// Print serializes v to Stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(Stdout, OutputFormat, PrettyOutput, v)
}

// Fprint serializes v to w in format f.
func Fprint(w io.Writer, f Format, pretty bool, v interface{}) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, v, pretty)
	case FormatYAML:
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", f)
	}
}

// Sprint is Fprint into a string.
func Sprint(f Format, pretty bool, v interface{}) (string, error) {
	var b strings.Builder
	if err := Fprint(&b, f, pretty, v); err != nil {
		return "", err
	}
	return b.String(), nil
}
