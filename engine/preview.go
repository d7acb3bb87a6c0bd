package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drummonds/goPreview/config"
	"github.com/drummonds/goPreview/engine/compose"
	"github.com/drummonds/goPreview/engine/docconv"
	"github.com/drummonds/goPreview/engine/pdfrender"
	"github.com/ledongthuc/pdf"
)

// ErrSourceNotFound reports that the source document is missing on disk.
var ErrSourceNotFound = errors.New("source document not found")

// File names written into every preview output directory. The intermediate
// PDF keeps the source's base name; the composite and data URL names are
// fixed so callers can find them without a database lookup.
const (
	CompositeName = "img.jpg"
	DataURLName   = "base64.txt"
)

// Result holds the artifact paths and geometry of one generated preview.
type Result struct {
	PDFPath     string
	ImagePath   string
	DataURLPath string
	PageCount   int
	ImageWidth  int
	ImageHeight int
}

// Pipeline turns a word-processing document into a single vertically
// stacked JPEG plus its base64 data URL. The three stages run strictly in
// sequence: convert the source to PDF, rasterize every page, stack the
// pages onto one canvas and encode it.
type Pipeline struct {
	Converters  []docconv.Converter
	Renderer    pdfrender.Renderer
	Scale       pdfrender.Scale
	JPEGQuality int
}

// NewPipeline assembles the conversion pipeline from the server config.
func NewPipeline(serverConfig config.ServerConfig) (*Pipeline, error) {
	renderer, err := pdfrender.NewRenderer(serverConfig.Renderer)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(serverConfig.ConvertTimeout) * time.Second
	converters := []docconv.Converter{
		docconv.NewLibreOffice(serverConfig.SofficePath, timeout),
		docconv.NewWordCOM(),
	}
	if serverConfig.ConvertServiceURL != "" {
		converters = append(converters, docconv.NewRemote(serverConfig.ConvertServiceURL))
	}
	scale := pdfrender.Scale{X: serverConfig.ZoomX, Y: serverConfig.ZoomY}
	if scale.X <= 0 || scale.Y <= 0 {
		scale = pdfrender.DefaultScale
	}
	quality := serverConfig.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 95
	}
	return &Pipeline{
		Converters:  converters,
		Renderer:    renderer,
		Scale:       scale,
		JPEGQuality: quality,
	}, nil
}

// Close releases the renderer. Call once when the pipeline is retired.
func (pipeline *Pipeline) Close() error {
	return pipeline.Renderer.Close()
}

// OutputDir returns the directory holding the preview artifacts for a
// source document: a folder named after the source's base name, next to
// the source itself. The same source always maps to the same directory,
// so regenerating a preview overwrites the previous artifacts in place.
func OutputDir(sourcePath string) string {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return filepath.Join(filepath.Dir(sourcePath), base)
}

// GeneratePreview runs the full pipeline for one source document and
// returns the three artifact paths plus the composite geometry. The
// source must exist before any converter is spawned. A repeat call for
// the same source writes to the same paths.
func (pipeline *Pipeline) GeneratePreview(ctx context.Context, sourcePath string) (Result, error) {
	var result Result
	if _, err := os.Stat(sourcePath); err != nil {
		return result, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	outDir := OutputDir(sourcePath)
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return result, fmt.Errorf("unable to create output directory: %w", err)
	}
	result.PDFPath = filepath.Join(outDir, base+".pdf")
	result.ImagePath = filepath.Join(outDir, CompositeName)
	result.DataURLPath = filepath.Join(outDir, DataURLName)

	if strings.EqualFold(filepath.Ext(sourcePath), ".pdf") {
		// Already fixed-layout, just stage a copy next to the other artifacts.
		if err := copyFile(sourcePath, result.PDFPath); err != nil {
			return result, fmt.Errorf("unable to stage pdf source: %w", err)
		}
	} else {
		if err := docconv.ToPDF(ctx, pipeline.Converters, sourcePath, result.PDFPath); err != nil {
			return result, err
		}
	}
	if err := probePDF(result.PDFPath); err != nil {
		return result, err
	}

	pages, err := pipeline.Renderer.RenderPDF(result.PDFPath, pipeline.Scale)
	if err != nil {
		return result, err
	}

	combined, err := compose.StackVertical(pages)
	if err != nil {
		return result, err
	}
	if err := compose.SaveJPEG(result.ImagePath, combined, pipeline.JPEGQuality); err != nil {
		return result, fmt.Errorf("unable to save composite image: %w", err)
	}
	var jpegBuf bytes.Buffer
	if err := compose.EncodeJPEG(&jpegBuf, combined, pipeline.JPEGQuality); err != nil {
		return result, fmt.Errorf("unable to encode composite image: %w", err)
	}
	dataURL := compose.DataURL(jpegBuf.Bytes())
	if err := os.WriteFile(result.DataURLPath, []byte(dataURL), 0644); err != nil {
		return result, fmt.Errorf("unable to write data url: %w", err)
	}

	bounds := combined.Bounds()
	result.PageCount = len(pages)
	result.ImageWidth = bounds.Dx()
	result.ImageHeight = bounds.Dy()
	Logger.Info("Preview generated", "source", sourcePath,
		"pages", result.PageCount, "width", result.ImageWidth, "height", result.ImageHeight)
	return result, nil
}

// probePDF sanity checks a freshly converted document. A zero-byte
// artifact always fails. A strict-parse failure only warns: MuPDF repairs
// documents that stricter parsers reject, so the renderer gets its chance.
func probePDF(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("converted document missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("converted document is empty: %s", path)
	}
	file, reader, err := pdf.Open(path)
	if err != nil {
		Logger.Warn("Converted document failed strict parse, leaving repair to the renderer", "path", path, "error", err)
		return nil
	}
	defer file.Close()
	Logger.Debug("Converted document parsed", "path", path, "pages", reader.NumPage())
	return nil
}

// copyFile duplicates a file on disk, creating or truncating the target.
func copyFile(srcPath, destPath string) error {
	contents, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, contents, 0644)
}
