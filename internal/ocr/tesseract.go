//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract"
)

// Tesseract recognizes words with libtesseract in sparse-text mode.
// A gosseract client is not safe for concurrent use, so calls serialize.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract starts a Tesseract client.
func NewTesseract(opts EngineOptions) (*Tesseract, error) {
	client := gosseract.NewClient()
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT)
	if opts.Whitelist != "" {
		client.SetWhitelist(opts.Whitelist)
	}
	return &Tesseract{client: client}, nil
}

func (t *Tesseract) Recognize(img image.Image) ([]WordBox, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("ocr: encode: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("ocr: set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("ocr: recognize: %w", err)
	}

	words := make([]WordBox, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		words = append(words, WordBox{
			Text:   text,
			Left:   b.Box.Min.X,
			Top:    b.Box.Min.Y,
			Width:  b.Box.Dx(),
			Height: b.Box.Dy(),
		})
	}
	return words, nil
}

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

// NewEngine returns the production engine.
func NewEngine(opts EngineOptions) (Engine, error) {
	t, err := NewTesseract(opts)
	if err != nil {
		return nil, err
	}
	// A recognition pass over a blank page surfaces missing language data
	// now rather than on the first real request.
	if _, err := t.Recognize(image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Close()
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return t, nil
}
