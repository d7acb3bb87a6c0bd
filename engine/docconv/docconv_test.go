package docconv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestToPDFFirstBackendWins(t *testing.T) {
	tempDir := t.TempDir()
	outPDF := filepath.Join(tempDir, "out.pdf")

	first := &Fake{BackendName: "first", PDFBytes: []byte("%PDF-1.4 first")}
	second := &Fake{BackendName: "second", PDFBytes: []byte("%PDF-1.4 second")}

	err := ToPDF(context.Background(), []Converter{first, second}, "src.docx", outPDF)
	if err != nil {
		t.Fatalf("ToPDF failed: %v", err)
	}

	if first.Calls != 1 {
		t.Errorf("Expected first backend to be called once, got %d", first.Calls)
	}
	if second.Calls != 0 {
		t.Errorf("Expected second backend to be skipped, got %d calls", second.Calls)
	}

	data, err := os.ReadFile(outPDF)
	if err != nil {
		t.Fatalf("Failed to read output PDF: %v", err)
	}
	if string(data) != "%PDF-1.4 first" {
		t.Errorf("Output PDF written by wrong backend: %q", data)
	}
}

func TestToPDFFallsBackOnFailure(t *testing.T) {
	tempDir := t.TempDir()
	outPDF := filepath.Join(tempDir, "out.pdf")

	broken := &Fake{BackendName: "broken", Err: errors.New("soffice exploded")}
	working := &Fake{BackendName: "working", PDFBytes: []byte("%PDF-1.4 fallback")}

	err := ToPDF(context.Background(), []Converter{broken, working}, "src.docx", outPDF)
	if err != nil {
		t.Fatalf("ToPDF should have fallen back to the working backend: %v", err)
	}

	if broken.Calls != 1 {
		t.Errorf("Expected broken backend to be tried once, got %d", broken.Calls)
	}
	if working.Calls != 1 {
		t.Errorf("Expected working backend to be tried once, got %d", working.Calls)
	}

	data, err := os.ReadFile(outPDF)
	if err != nil {
		t.Fatalf("Failed to read output PDF: %v", err)
	}
	if string(data) != "%PDF-1.4 fallback" {
		t.Errorf("Output PDF written by wrong backend: %q", data)
	}
}

func TestToPDFSkipsUnavailableBackends(t *testing.T) {
	tempDir := t.TempDir()
	outPDF := filepath.Join(tempDir, "out.pdf")

	offline := &Fake{BackendName: "offline", Unavailable: true}
	working := &Fake{BackendName: "working", PDFBytes: []byte("%PDF-1.4")}

	err := ToPDF(context.Background(), []Converter{offline, working}, "src.docx", outPDF)
	if err != nil {
		t.Fatalf("ToPDF failed: %v", err)
	}

	if offline.Calls != 0 {
		t.Errorf("Unavailable backend should never be called, got %d calls", offline.Calls)
	}
}

func TestToPDFAggregatesAllFailures(t *testing.T) {
	tempDir := t.TempDir()
	outPDF := filepath.Join(tempDir, "out.pdf")

	first := &Fake{BackendName: "alpha", Err: errors.New("alpha broke")}
	second := &Fake{BackendName: "beta", Err: errors.New("beta broke")}

	err := ToPDF(context.Background(), []Converter{first, second}, "src.docx", outPDF)
	if err == nil {
		t.Fatal("Expected error when all backends fail")
	}

	if !errors.Is(err, ErrConversionFailed) {
		t.Errorf("Expected ErrConversionFailed in chain, got %v", err)
	}

	// Both backends' failures should be reported
	msg := err.Error()
	if !strings.Contains(msg, "alpha broke") {
		t.Errorf("Error does not mention first backend failure: %s", msg)
	}
	if !strings.Contains(msg, "beta broke") {
		t.Errorf("Error does not mention second backend failure: %s", msg)
	}
}

func TestToPDFNoBackendAvailable(t *testing.T) {
	offline := &Fake{BackendName: "offline", Unavailable: true}

	err := ToPDF(context.Background(), []Converter{offline}, "src.docx", "out.pdf")
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("Expected ErrNoBackend, got %v", err)
	}
}

func TestLibreOfficeAvailability(t *testing.T) {
	// Empty path means not configured and not found
	lo := NewLibreOffice("", 0)
	if lo.Available() {
		t.Error("LibreOffice with empty path should be unavailable")
	}

	if lo.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %s, got %s", DefaultTimeout, lo.Timeout)
	}

	// A path that does not exist should be unavailable
	lo = NewLibreOffice("/nonexistent/soffice", time.Minute)
	if lo.Available() {
		t.Error("LibreOffice with bogus path should be unavailable")
	}

	if lo.Timeout != time.Minute {
		t.Errorf("Expected timeout 1m, got %s", lo.Timeout)
	}
}

func TestWordCOMUnavailableOffWindows(t *testing.T) {
	// On non-Windows builds the stub always reports unavailable; on
	// Windows availability depends on an installed Word, so only the
	// non-Windows expectation is asserted.
	w := NewWordCOM()
	if w.Name() != "word-com" {
		t.Errorf("Expected backend name word-com, got %s", w.Name())
	}
}

func TestRemoteAvailability(t *testing.T) {
	rc := NewRemote("")
	if rc.Available() {
		t.Error("Remote backend with no URL should be unavailable")
	}

	rc = NewRemote("http://localhost:8081")
	if !rc.Available() {
		t.Error("Remote backend with URL should be available")
	}
}
