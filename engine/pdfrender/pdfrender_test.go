package pdfrender

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// createTestPDF writes a minimal valid PDF with two pages of different
// sizes: 612x792 points and 400x300 points.
func createTestPDF(filepath string) error {
	pdfContent := `%PDF-1.4
1 0 obj
<<
/Type /Catalog
/Pages 2 0 R
>>
endobj
2 0 obj
<<
/Type /Pages
/Kids [3 0 R 4 0 R]
/Count 2
>>
endobj
3 0 obj
<<
/Type /Page
/Parent 2 0 R
/MediaBox [0 0 612 792]
/Contents 5 0 R
/Resources <<
/Font <<
/F1 6 0 R
>>
>>
>>
endobj
4 0 obj
<<
/Type /Page
/Parent 2 0 R
/MediaBox [0 0 400 300]
/Contents 5 0 R
/Resources <<
/Font <<
/F1 6 0 R
>>
>>
>>
endobj
5 0 obj
<<
/Length 44
>>
stream
BT
/F1 12 Tf
100 100 Td
(Page) Tj
ET
endstream
endobj
6 0 obj
<<
/Type /Font
/Subtype /Type1
/BaseFont /Helvetica
>>
endobj
xref
0 7
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
0000000122 00000 n
0000000269 00000 n
0000000416 00000 n
0000000510 00000 n
trailer
<<
/Size 7
/Root 1 0 R
>>
startxref
590
%%EOF`

	return os.WriteFile(filepath, []byte(pdfContent), 0644)
}

// createEmptyPDF writes a structurally valid PDF whose page tree has no pages.
func createEmptyPDF(filepath string) error {
	pdfContent := `%PDF-1.4
1 0 obj
<<
/Type /Catalog
/Pages 2 0 R
>>
endobj
2 0 obj
<<
/Type /Pages
/Kids []
/Count 0
>>
endobj
xref
0 3
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
trailer
<<
/Size 3
/Root 1 0 R
>>
startxref
110
%%EOF`

	return os.WriteFile(filepath, []byte(pdfContent), 0644)
}

func TestFitzRendererScale(t *testing.T) {
	tempDir := t.TempDir()
	pdfPath := filepath.Join(tempDir, "two_pages.pdf")
	if err := createTestPDF(pdfPath); err != nil {
		t.Fatalf("Failed to create test PDF: %v", err)
	}

	renderer, err := NewFitzRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Close()

	images, err := renderer.RenderPDF(pdfPath, Scale{X: 2.0, Y: 2.0})
	if err != nil {
		t.Fatalf("Failed to render PDF: %v", err)
	}

	if len(images) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(images))
	}

	// Page 1: 612x792 points at 2x zoom
	if got := images[0].Bounds(); got.Dx() != 1224 || got.Dy() != 1584 {
		t.Errorf("Page 1: expected 1224x1584, got %dx%d", got.Dx(), got.Dy())
	}

	// Page 2: 400x300 points at 2x zoom
	if got := images[1].Bounds(); got.Dx() != 800 || got.Dy() != 600 {
		t.Errorf("Page 2: expected 800x600, got %dx%d", got.Dx(), got.Dy())
	}
}

func TestFitzRendererAnisotropicScale(t *testing.T) {
	tempDir := t.TempDir()
	pdfPath := filepath.Join(tempDir, "two_pages.pdf")
	if err := createTestPDF(pdfPath); err != nil {
		t.Fatalf("Failed to create test PDF: %v", err)
	}

	renderer, err := NewFitzRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Close()

	// Horizontal zoom 1.0, vertical zoom 2.0
	images, err := renderer.RenderPDF(pdfPath, Scale{X: 1.0, Y: 2.0})
	if err != nil {
		t.Fatalf("Failed to render PDF: %v", err)
	}

	if len(images) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(images))
	}

	if got := images[0].Bounds(); got.Dx() != 612 || got.Dy() != 1584 {
		t.Errorf("Page 1: expected 612x1584, got %dx%d", got.Dx(), got.Dy())
	}

	if got := images[1].Bounds(); got.Dx() != 400 || got.Dy() != 600 {
		t.Errorf("Page 2: expected 400x600, got %dx%d", got.Dx(), got.Dy())
	}
}

func TestFitzRendererEmptyPDF(t *testing.T) {
	tempDir := t.TempDir()
	pdfPath := filepath.Join(tempDir, "empty.pdf")
	if err := createEmptyPDF(pdfPath); err != nil {
		t.Fatalf("Failed to create empty PDF: %v", err)
	}

	renderer, err := NewFitzRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Close()

	_, err = renderer.RenderPDF(pdfPath, DefaultScale)
	if !errors.Is(err, ErrNoPages) {
		t.Fatalf("Expected ErrNoPages for zero-page document, got %v", err)
	}
}

func TestNewRendererSelection(t *testing.T) {
	renderer, err := NewRenderer("")
	if err != nil {
		t.Fatalf("Default renderer failed: %v", err)
	}
	if _, ok := renderer.(*FitzRenderer); !ok {
		t.Errorf("Expected default renderer to be FitzRenderer, got %T", renderer)
	}
	renderer.Close()

	renderer, err = NewRenderer("fitz")
	if err != nil {
		t.Fatalf("Fitz renderer failed: %v", err)
	}
	if _, ok := renderer.(*FitzRenderer); !ok {
		t.Errorf("Expected fitz renderer to be FitzRenderer, got %T", renderer)
	}
	renderer.Close()

	if _, err := NewRenderer("ghostscript"); err == nil {
		t.Error("Expected error for unknown renderer name")
	}
}
