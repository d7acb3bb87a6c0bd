package docconv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Fake is a Converter for tests and development hosts with no real
// conversion backend. It writes PDFBytes to the output path, or fails
// with Err when set.
type Fake struct {
	BackendName string
	PDFBytes    []byte
	Err         error
	Unavailable bool

	// Calls counts Convert invocations, including failed ones
	Calls int
}

// Name identifies the backend in logs and error messages
func (f *Fake) Name() string {
	if f.BackendName == "" {
		return "fake"
	}
	return f.BackendName
}

// Available reports the configured availability
func (f *Fake) Available() bool {
	return !f.Unavailable
}

// Convert writes the canned PDF bytes, or fails with the configured error
func (f *Fake) Convert(ctx context.Context, src string, outPDF string) error {
	f.Calls++

	if f.Err != nil {
		return f.Err
	}

	if err := os.MkdirAll(filepath.Dir(outPDF), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	return os.WriteFile(outPDF, f.PDFBytes, 0644)
}
