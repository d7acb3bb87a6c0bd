package engine

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
)

// CountParagraphs reports how many body paragraphs a .docx source holds.
// Other source types report zero, as does any parse failure: the count is
// informational metadata and must never block preview generation.
func CountParagraphs(sourcePath string) int {
	if !strings.EqualFold(filepath.Ext(sourcePath), ".docx") {
		return 0
	}
	count, err := docxParagraphCount(sourcePath)
	if err != nil {
		Logger.Warn("Unable to count paragraphs", "path", sourcePath, "error", err)
		return 0
	}
	return count
}

func docxParagraphCount(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	parsed, err := docx.Parse(file, info.Size())
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range parsed.Document.Body.Items {
		if _, ok := item.(*docx.Paragraph); ok {
			count++
		}
	}
	return count, nil
}
