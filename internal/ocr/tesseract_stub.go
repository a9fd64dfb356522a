//go:build !cgo

package ocr

// NewEngine reports ErrEngineUnavailable: Tesseract needs cgo.
func NewEngine(EngineOptions) (Engine, error) {
	return nil, ErrEngineUnavailable
}
