package compose

import (
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// ErrNoImages is returned when there are no page images to compose.
var ErrNoImages = errors.New("no images to compose")

// DataURLPrefix is the scheme prepended to the base64 JPEG payload.
const DataURLPrefix = "data:image/jpeg;base64,"

// StackVertical combines page images top to bottom on a single white
// canvas. The canvas is as wide as the widest page and as tall as all
// pages together; narrower pages are centred horizontally, with the
// offset rounded down when the margin is odd.
func StackVertical(pages []image.Image) (*image.NRGBA, error) {
	if len(pages) == 0 {
		return nil, ErrNoImages
	}

	// Calculate total height and max width
	totalHeight := 0
	maxWidth := 0
	for _, img := range pages {
		bounds := img.Bounds()
		totalHeight += bounds.Dy()
		if bounds.Dx() > maxWidth {
			maxWidth = bounds.Dx()
		}
	}

	combined := imaging.New(maxWidth, totalHeight, color.White)

	currentY := 0
	for _, img := range pages {
		bounds := img.Bounds()
		offsetX := (maxWidth - bounds.Dx()) / 2
		combined = imaging.Paste(combined, img, image.Pt(offsetX, currentY))
		currentY += bounds.Dy()
	}

	return combined, nil
}

// EncodeJPEG writes img to w as JPEG at the given quality (1-100).
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// SaveJPEG writes img to path as JPEG at the given quality (1-100).
func SaveJPEG(path string, img image.Image, quality int) error {
	return imaging.Save(img, path, imaging.JPEGQuality(quality))
}

// DataURL wraps already-encoded JPEG bytes as a base64 data URL.
func DataURL(jpegBytes []byte) string {
	return DataURLPrefix + base64.StdEncoding.EncodeToString(jpegBytes)
}
