package ocr

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mj1618/guidepilot/internal/logx"
)

// Options are the per-call locate parameters.
type Options struct {
	// Scale is the upscale factor the image was preprocessed with.
	Scale float64
	// Threshold is recorded in the debug filename only.
	Threshold uint8
	// Similarity is the fuzzy acceptance ratio; 0 means DefaultSimilarity.
	Similarity float64
}

// Result is the outcome of one locate attempt.
type Result struct {
	Found     bool        `yaml:"found"                json:"found"`
	Point     image.Point `yaml:"point"                json:"point"`
	Match     MatchKind   `yaml:"match,omitempty"      json:"match,omitempty"`
	Word      *WordBox    `yaml:"word,omitempty"       json:"word,omitempty"`
	Words     []WordBox   `yaml:"words,omitempty"      json:"words,omitempty"`
	DebugPath string      `yaml:"debug_path,omitempty" json:"debug_path,omitempty"`
}

// Config configures a Locator.
type Config struct {
	// DebugDir receives one PNG per attempt. Empty disables debug output.
	DebugDir string
	// AnnotateDebug also writes a copy with the recognized word boxes
	// drawn on it, next to the binarized image, suffixed "_boxes".
	AnnotateDebug bool
	Logger        *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Locator finds target text in preprocessed images.
type Locator struct {
	engine    Engine
	available bool
	cfg       Config
	log       *slog.Logger
}

// NewLocator wraps engine. A nil engine yields a locator that never finds
// anything and reports itself unavailable.
func NewLocator(engine Engine, cfg Config) *Locator {
	l := &Locator{engine: engine, available: engine != nil, cfg: cfg, log: logx.Component(cfg.Logger, "ocr")}
	if engine == nil {
		l.engine = nullEngine{}
	}
	if l.cfg.Now == nil {
		l.cfg.Now = time.Now
	}
	return l
}

// Probe starts the production engine once. When it is missing the failure
// is logged at error level and nil is returned, so NewLocator falls back to
// the null engine.
func Probe(opts EngineOptions, log *slog.Logger) Engine {
	e, err := NewEngine(opts)
	if err != nil {
		logx.Component(log, "ocr").Error("text recognition disabled", "error", err)
		return nil
	}
	return e
}

// Available reports whether a real engine backs the locator.
func (l *Locator) Available() bool { return l.available }

// Close releases the engine.
func (l *Locator) Close() error { return l.engine.Close() }

// Locate recognizes words in img and matches target against them. origin
// is the absolute screen position of the unscaled capture's (0,0); the
// returned point is in the same screen space.
func (l *Locator) Locate(img *image.Gray, origin image.Point, target string, opts Options) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, nil
	}
	scale := opts.Scale
	if scale < 1 || math.IsNaN(scale) {
		scale = 1
	}
	sim := opts.Similarity
	if sim <= 0 {
		sim = DefaultSimilarity
	}

	words, err := l.engine.Recognize(img)
	if err != nil {
		l.writeDebug(img, nil, nil, target, opts.Threshold, scale)
		return Result{}, fmt.Errorf("ocr: %w", err)
	}

	word, kind := Match(words, target, sim)
	res := Result{Words: words, Match: kind}
	if kind != MatchNone {
		res.Found = true
		res.Word = &word
		res.Point = ToScreen(word, scale, origin)
	}
	res.DebugPath = l.writeDebug(img, words, res.Word, target, opts.Threshold, scale)

	if res.Found {
		l.log.Info("target located", "target", target, "word", word.Text, "match", kind, "x", res.Point.X, "y", res.Point.Y)
	} else {
		l.log.Info("target not found", "target", target, "words", len(words))
	}
	return res, nil
}

// ToScreen maps a box in scaled image space to absolute screen coordinates.
func ToScreen(w WordBox, scale float64, origin image.Point) image.Point {
	cx, cy := w.Center()
	return image.Pt(
		int(math.Round(cx/scale))+origin.X,
		int(math.Round(cy/scale))+origin.Y,
	)
}

func (l *Locator) writeDebug(img *image.Gray, words []WordBox, match *WordBox, target string, threshold uint8, scale float64) string {
	if l.cfg.DebugDir == "" {
		return ""
	}
	if err := os.MkdirAll(l.cfg.DebugDir, 0o755); err != nil {
		l.log.Warn("debug dir unavailable", "error", err)
		return ""
	}
	path := filepath.Join(l.cfg.DebugDir, DebugFilename(l.cfg.Now(), threshold, scale, target))

	if err := writePNG(path, img); err != nil {
		l.log.Warn("debug image not written", "path", path, "error", err)
		return ""
	}
	if l.cfg.AnnotateDebug && len(words) > 0 {
		boxes := AnnotatedPath(path)
		if err := writePNG(boxes, Annotate(img, words, match)); err != nil {
			l.log.Warn("annotated debug image not written", "path", boxes, "error", err)
		}
	}
	return path
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return png.Encode(f, img)
}

// AnnotatedPath is where the annotated copy of the debug image at path goes.
func AnnotatedPath(path string) string {
	return strings.TrimSuffix(path, ".png") + "_boxes.png"
}

// DebugFilename encodes timestamp, threshold, scale and a filesystem-safe
// form of the target.
func DebugFilename(t time.Time, threshold uint8, scale float64, target string) string {
	return fmt.Sprintf("%s_T%d_S%s_%s.png",
		t.Format("20060102_150405.000"),
		threshold,
		strconv.FormatFloat(scale, 'f', -1, 64),
		SafeName(target))
}

// SafeName keeps letters, digits, '_' and '-'.
func SafeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "target"
	}
	return b.String()
}
