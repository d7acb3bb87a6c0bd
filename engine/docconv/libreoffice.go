package docconv

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a single LibreOffice conversion.
const DefaultTimeout = 120 * time.Second

// LibreOffice converts documents by spawning a headless soffice process.
type LibreOffice struct {
	Path    string        // soffice binary, either an absolute path or a name on PATH
	Timeout time.Duration // per-conversion budget
}

// NewLibreOffice creates a LibreOffice backend. An empty path marks the
// backend unavailable; a zero timeout falls back to DefaultTimeout.
func NewLibreOffice(path string, timeout time.Duration) *LibreOffice {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LibreOffice{
		Path:    path,
		Timeout: timeout,
	}
}

// Name identifies the backend in logs and error messages
func (lo *LibreOffice) Name() string {
	return "libreoffice"
}

// Available reports whether the soffice binary can be resolved
func (lo *LibreOffice) Available() bool {
	if lo.Path == "" {
		return false
	}
	_, err := exec.LookPath(lo.Path)
	return err == nil
}

// Convert runs soffice --headless --convert-to pdf on src. soffice names
// its output after the source file, so the result is renamed when the
// requested output name differs.
func (lo *LibreOffice) Convert(ctx context.Context, src string, outPDF string) error {
	ctx, cancel := context.WithTimeout(ctx, lo.Timeout)
	defer cancel()

	outDir := filepath.Dir(outPDF)
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	args := []string{"--headless", "--convert-to", "pdf", "--outdir", outDir, src}
	sofficeCMD := exec.CommandContext(ctx, lo.Path, args...)

	var stdBuffer bytes.Buffer
	sofficeCMD.Stdout = &stdBuffer
	sofficeCMD.Stderr = &stdBuffer

	if err := sofficeCMD.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("conversion timed out after %s: %w", lo.Timeout, ctx.Err())
		}
		return fmt.Errorf("soffice failed: %w: %s", err, strings.TrimSpace(stdBuffer.String()))
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	produced := filepath.Join(outDir, base+".pdf")
	if produced != outPDF {
		if err := os.Rename(produced, outPDF); err != nil {
			return fmt.Errorf("unable to move converted pdf into place: %w", err)
		}
	}

	// soffice exits zero on some failures, so insist on the artifact
	if _, err := os.Stat(outPDF); err != nil {
		return fmt.Errorf("soffice reported success but produced no pdf: %s", strings.TrimSpace(stdBuffer.String()))
	}

	return nil
}
