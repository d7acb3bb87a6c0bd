// Command convert generates previews from the command line. Each argument
// is converted to PDF, rasterized and stacked into a single JPEG with a
// base64 data URL, all written to a directory next to the source file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	config "github.com/drummonds/goPreview/config"
	database "github.com/drummonds/goPreview/database"
	engine "github.com/drummonds/goPreview/engine"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

func main() {
	zoomX := flag.Float64("zoom-x", 2.0, "horizontal render scale")
	zoomY := flag.Float64("zoom-y", 2.0, "vertical render scale")
	quality := flag.Int("quality", 95, "JPEG quality of the composite image (1-100)")
	timeout := flag.Int("timeout", 120, "seconds allowed for one document conversion")
	soffice := flag.String("soffice", "", "path to the LibreOffice binary (searched on PATH when empty)")
	service := flag.String("service", "", "URL of a conversion service to try when local backends fail")
	renderer := flag.String("renderer", "fitz", "PDF renderer, fitz or pdfium")
	verbose := flag.Bool("v", false, "verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] document...\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Generates a preview for each document: an intermediate PDF, a JPEG of")
		fmt.Fprintln(flag.CommandLine.Output(), "every page stacked vertically and a base64 data URL.")
		fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Logs go to stderr so stdout stays clean for the artifact paths
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	injectGlobals(logger)

	serverConfig := config.ServerConfig{
		SofficePath:       config.FindSoffice(*soffice),
		ConvertTimeout:    *timeout,
		ConvertServiceURL: *service,
		Renderer:          *renderer,
		ZoomX:             *zoomX,
		ZoomY:             *zoomY,
		JPEGQuality:       *quality,
	}
	if serverConfig.SofficePath == "" && serverConfig.ConvertServiceURL == "" {
		Logger.Warn("LibreOffice not found and no conversion service given, only PDF sources will convert")
	}

	pipeline, err := engine.NewPipeline(serverConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create preview pipeline:", err)
		os.Exit(1)
	}

	failures := 0
	for _, sourcePath := range flag.Args() {
		result, err := pipeline.GeneratePreview(context.Background(), sourcePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", sourcePath, err)
			failures++
			continue
		}
		fmt.Printf("✅ %s (%d pages, %dx%d)\n", sourcePath, result.PageCount, result.ImageWidth, result.ImageHeight)
		fmt.Printf("   pdf:      %s\n", result.PDFPath)
		fmt.Printf("   image:    %s\n", result.ImagePath)
		fmt.Printf("   data url: %s\n", result.DataURLPath)
	}
	pipeline.Close()

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d documents failed\n", failures, flag.NArg())
		os.Exit(1)
	}
}
