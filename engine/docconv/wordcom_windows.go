//go:build windows

package docconv

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// wdFormatPDF is the Word SaveAs2 file format constant for PDF output.
const wdFormatPDF = 17

// WordCOM converts documents by automating an installed Microsoft Word
// through COM. Used as a fallback when LibreOffice is not present.
type WordCOM struct{}

// NewWordCOM creates a Word COM automation backend
func NewWordCOM() *WordCOM {
	return &WordCOM{}
}

// Name identifies the backend in logs and error messages
func (w *WordCOM) Name() string {
	return "word-com"
}

// Available reports whether Word is registered on this machine
func (w *WordCOM) Available() bool {
	// S_FALSE from an already initialised thread is harmless
	ole.CoInitialize(0)
	defer ole.CoUninitialize()

	_, err := ole.ClassIDFrom("Word.Application")
	return err == nil
}

// Convert opens src in an invisible Word instance and saves it as PDF.
// Word automation offers no cancellation hook, so the context is only
// checked before the instance is started.
func (w *WordCOM) Convert(ctx context.Context, src string, outPDF string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// S_FALSE from an already initialised thread is harmless
	ole.CoInitialize(0)
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Word.Application")
	if err != nil {
		return fmt.Errorf("failed to start Word: %w", err)
	}

	word, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		unknown.Release()
		return fmt.Errorf("failed to query Word dispatch: %w", err)
	}
	defer word.Release()
	defer oleutil.CallMethod(word, "Quit")

	if _, err := oleutil.PutProperty(word, "Visible", false); err != nil {
		return fmt.Errorf("failed to hide Word window: %w", err)
	}

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	absOut, err := filepath.Abs(outPDF)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	documentsVar, err := oleutil.GetProperty(word, "Documents")
	if err != nil {
		return fmt.Errorf("failed to get Documents collection: %w", err)
	}
	documents := documentsVar.ToIDispatch()
	defer documents.Release()

	docVar, err := oleutil.CallMethod(documents, "Open", absSrc)
	if err != nil {
		return fmt.Errorf("failed to open %s in Word: %w", src, err)
	}
	doc := docVar.ToIDispatch()
	defer doc.Release()
	defer oleutil.CallMethod(doc, "Close", false)

	if _, err := oleutil.CallMethod(doc, "SaveAs2", absOut, wdFormatPDF); err != nil {
		return fmt.Errorf("word SaveAs2 failed: %w", err)
	}

	return nil
}
