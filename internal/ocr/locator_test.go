package ocr

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mj1618/guidepilot/internal/logx"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 890e6, time.UTC) }

func grayImage(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

func TestLocate_TransformsToScreen(t *testing.T) {
	engine := &StaticEngine{Words: []WordBox{{Text: "Lester", Left: 100, Top: 50, Width: 80, Height: 20}}}
	l := NewLocator(engine, Config{Logger: logx.Discard()})

	res, err := l.Locate(grayImage(400, 200), image.Pt(300, 400), "Lester", Options{Scale: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found {
		t.Fatal("expected a match")
	}
	// Box center (140, 60) in scaled space, halved, offset by the origin.
	want := image.Pt(370, 430)
	if res.Point != want {
		t.Errorf("got %v, want %v", res.Point, want)
	}
	if res.Match != MatchWord {
		t.Errorf("got match %q, want word", res.Match)
	}
}

func TestToScreen_Rounds(t *testing.T) {
	w := WordBox{Left: 10, Top: 10, Width: 5, Height: 5}
	got := ToScreen(w, 3, image.Pt(0, 0))
	// center 12.5 / 3 = 4.17
	if got != image.Pt(4, 4) {
		t.Errorf("got %v, want (4,4)", got)
	}
	if got := ToScreen(w, 1, image.Pt(-100, 50)); got != image.Pt(-87, 63) {
		t.Errorf("got %v, want (-87,63)", got)
	}
}

func TestLocate_NotFound(t *testing.T) {
	engine := &StaticEngine{Words: []WordBox{{Text: "Bob", Width: 10, Height: 10}}}
	l := NewLocator(engine, Config{Logger: logx.Discard()})

	res, err := l.Locate(grayImage(10, 10), image.Point{}, "Lester", Options{Scale: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Found || res.Word != nil {
		t.Errorf("got %+v, want no match", res)
	}
	if len(res.Words) != 1 {
		t.Errorf("recognized words should be reported, got %d", len(res.Words))
	}
}

func TestLocate_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	engine := &StaticEngine{}
	l := NewLocator(engine, Config{DebugDir: dir, Logger: logx.Discard()})

	res, err := l.Locate(nil, image.Point{}, "Lester", Options{Scale: 2})
	if err != nil || res.Found {
		t.Errorf("got %+v, %v; want empty result", res, err)
	}
	res, err = l.Locate(grayImage(0, 0), image.Point{}, "Lester", Options{Scale: 2})
	if err != nil || res.Found {
		t.Errorf("got %+v, %v; want empty result", res, err)
	}
	if engine.Calls != 0 {
		t.Errorf("engine called %d times for empty input", engine.Calls)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("no debug file expected, got %d", len(entries))
	}
}

func TestLocate_WritesDebugImage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ocr_screens")
	engine := &StaticEngine{Words: []WordBox{{Text: "Lester", Left: 1, Top: 1, Width: 4, Height: 4}}}
	l := NewLocator(engine, Config{DebugDir: dir, AnnotateDebug: true, Logger: logx.Discard(), Now: fixedNow})

	res, err := l.Locate(grayImage(20, 20), image.Point{}, "Les ter!", Options{Scale: 2.5, Threshold: 190})
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "20260304_050607.890_T190_S2.5_Lester.png")
	if res.DebugPath != want {
		t.Errorf("got %q, want %q", res.DebugPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("debug file missing: %v", err)
	}
	if _, err := os.Stat(AnnotatedPath(want)); err != nil {
		t.Errorf("annotated copy missing: %v", err)
	}
}

func TestLocate_DebugImageIsTheBinarizedInput(t *testing.T) {
	dir := t.TempDir()
	engine := &StaticEngine{Words: []WordBox{{Text: "Lester", Left: 1, Top: 1, Width: 8, Height: 8}}}
	l := NewLocator(engine, Config{DebugDir: dir, AnnotateDebug: true, Logger: logx.Discard(), Now: fixedNow})

	in := grayImage(20, 20)
	res, err := l.Locate(in, image.Point{}, "Lester", Options{Scale: 1})
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(res.DebugPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	saved, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			got := color.GrayModel.Convert(saved.At(x, y)).(color.Gray)
			if got != in.GrayAt(x, y) {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, in.GrayAt(x, y))
			}
		}
	}
}

func TestLocate_DebugWriteFailureIsNotFatal(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	engine := &StaticEngine{Words: []WordBox{{Text: "Lester", Width: 4, Height: 4}}}
	l := NewLocator(engine, Config{DebugDir: filepath.Join(blocker, "sub"), Logger: logx.Discard()})

	res, err := l.Locate(grayImage(10, 10), image.Point{}, "Lester", Options{Scale: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.DebugPath != "" {
		t.Errorf("got %+v, want found without debug path", res)
	}
}

func TestLocate_EngineError(t *testing.T) {
	engine := &StaticEngine{Err: errors.New("boom")}
	l := NewLocator(engine, Config{Logger: logx.Discard()})
	if _, err := l.Locate(grayImage(10, 10), image.Point{}, "Lester", Options{Scale: 1}); err == nil {
		t.Error("expected engine error")
	}
}

func TestLocator_NullEngine(t *testing.T) {
	l := NewLocator(nil, Config{Logger: logx.Discard()})
	if l.Available() {
		t.Error("locator without engine should be unavailable")
	}
	res, err := l.Locate(grayImage(10, 10), image.Point{}, "Lester", Options{Scale: 1})
	if err != nil || res.Found {
		t.Errorf("got %+v, %v; want silent miss", res, err)
	}
	if !NewLocator(&StaticEngine{}, Config{}).Available() {
		t.Error("locator with engine should be available")
	}
}

func TestDebugFilename(t *testing.T) {
	got := DebugFilename(fixedNow(), 200, 3, "Lester the Brave")
	if got != "20260304_050607.890_T200_S3_LestertheBrave.png" {
		t.Errorf("got %q", got)
	}
	if !strings.HasSuffix(DebugFilename(fixedNow(), 1, 1, "///"), "_target.png") {
		t.Error("unsafe-only target should fall back to a placeholder")
	}
}

func TestAnnotate(t *testing.T) {
	img := grayImage(50, 50)
	words := []WordBox{{Text: "a", Left: 10, Top: 10, Width: 10, Height: 10}}
	out := Annotate(img, words, &words[0])
	if out.Bounds() != img.Bounds() {
		t.Errorf("got bounds %v, want %v", out.Bounds(), img.Bounds())
	}
	if c := out.RGBAAt(10, 15); c != matchColor {
		t.Errorf("matched box edge = %v, want %v", c, matchColor)
	}
}
