package pdfrender

import (
	"errors"
	"fmt"
	"image"
)

// ErrNoPages is returned when a PDF document contains no pages to render.
var ErrNoPages = errors.New("pdf contains no pages")

// Scale is the rasterization zoom applied on each axis. A scale of 1.0
// renders at the PDF native 72 DPI, so 2.0 doubles the pixel density.
type Scale struct {
	X float64
	Y float64
}

// DefaultScale matches the preview pipeline default of 2.0 on both axes.
var DefaultScale = Scale{X: 2.0, Y: 2.0}

// Renderer defines the interface for PDF to image conversion
type Renderer interface {
	// RenderPDF converts all pages of a PDF file to RGB images at the
	// given scale. Returns a slice of images, one per page, in page order.
	RenderPDF(filename string, scale Scale) ([]image.Image, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer selects a rendering engine by name. The default is go-fitz
// (CGo and MuPDF); "pdfium" selects the WebAssembly PDFium engine which
// needs no CGo.
func NewRenderer(name string) (Renderer, error) {
	switch name {
	case "", "fitz":
		return NewFitzRenderer()
	case "pdfium":
		return NewPDFiumRenderer()
	default:
		return nil, fmt.Errorf("unknown pdf renderer %q", name)
	}
}
