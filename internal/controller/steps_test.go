package controller

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseGuide_YAML(t *testing.T) {
	g, err := ParseGuide([]byte(`
name: Astrub tour
steps:
  - text: Start here
  - web_text: "Allez en <b>[4,-18]</b>"
    pos_x: 4
    pos_y: -18
`), "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "Astrub tour" || len(g.Steps) != 2 {
		t.Fatalf("got %+v", g)
	}
	if got := g.Steps[1].Plain(); got != "Allez en [4,-18]" {
		t.Errorf("got %q, want %q", got, "Allez en [4,-18]")
	}
	pos, ok := g.Steps[1].Position()
	if !ok || pos.X != 4 || pos.Y != -18 {
		t.Errorf("got %v %v", pos, ok)
	}
	if _, ok := g.Steps[0].Position(); ok {
		t.Error("step without coordinates should have no position")
	}
}

func TestParseGuide_JSON(t *testing.T) {
	g, err := ParseGuide([]byte(`{"steps":[{"text":"a","web_text":"<p>b</p>"}]}`), "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "fallback" {
		t.Errorf("got name %q, want fallback", g.Name)
	}
	if g.Steps[0].Body() != "<p>b</p>" {
		t.Errorf("web_text should win, got %q", g.Steps[0].Body())
	}
}

func TestParseGuide_NoSteps(t *testing.T) {
	if _, err := ParseGuide([]byte("name: x\n"), ""); err != ErrNoSteps {
		t.Errorf("got %v, want ErrNoSteps", err)
	}
}

func TestLoadGuide_NameFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frigost.json")
	if err := os.WriteFile(path, []byte(`{"steps":[{"text":"go"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := LoadGuide(path)
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "frigost" {
		t.Errorf("got %q, want frigost", g.Name)
	}
	if _, err := LoadGuide(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
