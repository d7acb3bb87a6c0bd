//go:build !windows

package docconv

import (
	"context"
	"errors"
)

// WordCOM automates Microsoft Word through COM, which only exists on
// Windows. On every other platform the backend reports unavailable.
type WordCOM struct{}

// NewWordCOM creates a Word COM automation backend
func NewWordCOM() *WordCOM {
	return &WordCOM{}
}

// Name identifies the backend in logs and error messages
func (w *WordCOM) Name() string {
	return "word-com"
}

// Available always reports false off Windows
func (w *WordCOM) Available() bool {
	return false
}

// Convert is never reachable through ToPDF because Available is false
func (w *WordCOM) Convert(ctx context.Context, src string, outPDF string) error {
	return errors.New("word COM automation requires windows")
}
