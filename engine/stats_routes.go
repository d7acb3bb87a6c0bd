package engine

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/drummonds/goPreview/database"
	"github.com/labstack/echo/v4"
)

// GetStats returns aggregate statistics about generated previews
// @Summary Get preview statistics
// @Description Retrieve per-type preview counts, table totals and artifact disk usage
// @Tags Stats
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Statistics with types, summary and artifacts"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /stats [get]
func (serverHandler *ServerHandler) GetStats(c echo.Context) error {
	typeStats, err := serverHandler.DB.GetTypeStats()
	if err != nil {
		Logger.Error("Failed to get type stats", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve statistics",
		})
	}

	summary, err := serverHandler.DB.GetPreviewSummary()
	if err != nil {
		Logger.Error("Failed to get preview summary", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve statistics",
		})
	}

	// Artifact usage comes from the last disk scan. A missing row just means
	// no scan has run yet, so fall back to zero values.
	usage, err := serverHandler.DB.GetArtifactUsage()
	if err != nil {
		Logger.Warn("Failed to get artifact usage", "error", err)
		usage = &database.ArtifactUsage{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"types":     typeStats,
		"summary":   summary,
		"artifacts": usage,
	})
}

// RecalculateStats triggers a rescan of artifact disk usage
// @Summary Recalculate artifact usage
// @Description Walk every preview's artifact folder on disk and store the file and byte totals
// @Tags Stats
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Scan started"
// @Router /stats/recalculate [post]
func (serverHandler *ServerHandler) RecalculateStats(c echo.Context) error {
	Logger.Info("Manual artifact usage scan triggered via API")

	// Run the scan in a goroutine so we can return immediately
	go func() {
		if err := serverHandler.scanArtifactUsage(); err != nil {
			Logger.Error("Artifact usage scan failed", "error", err)
		} else {
			Logger.Info("Artifact usage scan completed successfully")
		}
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Artifact usage scan started",
		"status":  "processing",
	})
}

// scanArtifactUsage walks the artifact folder of every preview record and
// totals the files it finds, then stores the result in the database.
func (serverHandler *ServerHandler) scanArtifactUsage() error {
	previews, err := serverHandler.DB.GetAllPreviews()
	if err != nil {
		return err
	}

	var files int
	var totalBytes int64
	seen := make(map[string]bool)

	for _, preview := range previews {
		if preview.ImagePath == "" {
			continue
		}
		dir := filepath.Dir(preview.ImagePath)
		if seen[dir] {
			continue
		}
		seen[dir] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			// Artifacts may have been removed since the record was written
			Logger.Warn("Could not read artifact folder", "folder", dir, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files++
			totalBytes += info.Size()
		}
	}

	Logger.Info("Artifact usage scan finished", "folders", len(seen), "files", files, "bytes", totalBytes)
	return serverHandler.DB.UpdateArtifactUsage(files, totalBytes)
}
