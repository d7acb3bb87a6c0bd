// Package docconv converts word-processing documents to PDF using
// whichever conversion backend is available on the host: a local
// LibreOffice installation, Microsoft Word over COM on Windows, or a
// remote conversion service.
package docconv

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConversionFailed is returned when every available backend was
	// tried and none produced a PDF. The individual backend failures are
	// joined into the error chain.
	ErrConversionFailed = errors.New("document conversion failed")

	// ErrNoBackend is returned when no conversion backend is available
	// on this host.
	ErrNoBackend = errors.New("no conversion backend available")
)

// Converter converts a word-processing document to PDF.
type Converter interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// Available reports whether the backend can run on this host.
	Available() bool

	// Convert writes a PDF rendition of src to outPDF.
	Convert(ctx context.Context, src string, outPDF string) error
}

// ToPDF converts src to outPDF using the first available backend that
// succeeds. Backends that report unavailable are skipped; backends that
// fail are recorded and the next one is tried. If all available backends
// fail the returned error wraps ErrConversionFailed together with each
// backend's failure.
func ToPDF(ctx context.Context, converters []Converter, src string, outPDF string) error {
	var errs []error
	tried := 0

	for _, converter := range converters {
		if !converter.Available() {
			continue
		}
		tried++

		err := converter.Convert(ctx, src, outPDF)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", converter.Name(), err))
	}

	if tried == 0 {
		return ErrNoBackend
	}

	return fmt.Errorf("%w: %w", ErrConversionFailed, errors.Join(errs...))
}
