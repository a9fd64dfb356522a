// Package ocr recognizes words in preprocessed captures and fuzzily matches
// a target string against them, returning the match position in absolute
// screen coordinates.
package ocr

import (
	"errors"
	"image"
)

// ErrEngineUnavailable is returned when no recognition engine is built in
// or the engine fails to start.
var ErrEngineUnavailable = errors.New("ocr: recognition engine unavailable")

// DefaultWhitelist restricts recognition to the characters name tags use.
const DefaultWhitelist = " abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_'"

// WordBox is one recognized word in the preprocessed image's pixel space.
type WordBox struct {
	Text   string `yaml:"text"   json:"text"`
	Left   int    `yaml:"left"   json:"left"`
	Top    int    `yaml:"top"    json:"top"`
	Width  int    `yaml:"width"  json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Center returns the box center, in the same pixel space as the box.
func (w WordBox) Center() (float64, float64) {
	return float64(w.Left) + float64(w.Width)/2, float64(w.Top) + float64(w.Height)/2
}

// Engine recognizes words in an image, in reading order.
type Engine interface {
	Recognize(img image.Image) ([]WordBox, error)
	Close() error
}

// EngineOptions configures the production engine.
type EngineOptions struct {
	Language  string
	Whitelist string
}

// nullEngine stands in when the real engine is missing; it finds nothing.
type nullEngine struct{}

func (nullEngine) Recognize(image.Image) ([]WordBox, error) { return nil, nil }
func (nullEngine) Close() error { return nil }

// StaticEngine returns a fixed word list. Useful for tests and for
// replaying recorded recognitions.
type StaticEngine struct {
	Words []WordBox
	Err   error
	Calls int
}

// Recognize implements Engine.
func (e *StaticEngine) Recognize(image.Image) ([]WordBox, error) {
	e.Calls++
	return e.Words, e.Err
}

// Close implements Engine.
func (e *StaticEngine) Close() error { return nil }
