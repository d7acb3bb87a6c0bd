package pdfrender

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

// RenderPDF converts all pages of a PDF file to images using go-fitz.
// Pages are rasterized at 72*scale.X DPI; when the vertical scale differs
// from the horizontal one the page is resized to the target height
// afterwards, since fitz only exposes a uniform DPI.
func (r *FitzRenderer) RenderPDF(filename string, scale Scale) ([]image.Image, error) {
	// Open PDF document using go-fitz
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	// Get number of pages
	numPages := doc.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPages, filename)
	}

	var images []image.Image

	dpi := 72 * scale.X

	// Convert each page to image
	for pageNum := 0; pageNum < numPages; pageNum++ {
		img, err := doc.ImageDPI(pageNum, dpi)
		if err != nil {
			return nil, fmt.Errorf("unable to render page %d: %w", pageNum, err)
		}

		if scale.Y != scale.X {
			bounds := img.Bounds()
			targetHeight := int(math.Round(float64(bounds.Dy()) * scale.Y / scale.X))
			images = append(images, imaging.Resize(img, bounds.Dx(), targetHeight, imaging.Lanczos))
		} else {
			images = append(images, img)
		}
	}

	return images, nil
}

// Close cleans up resources (no-op for Fitz renderer as doc is closed per-render)
func (r *FitzRenderer) Close() error {
	return nil
}
