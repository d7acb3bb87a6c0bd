package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drummonds/goPreview/database"
	"github.com/oklog/ulid/v2"
)

// errSkipDocument marks files that need no work this run: sources already
// previewed and unchanged, or duplicate copies of a tracked document.
var errSkipDocument = errors.New("document skipped")

// IngestDocumentWithSteps generates a preview for one document through explicit steps with progress tracking
// Step 1: Calculate hash, check duplicates and create the initial database record
// Step 2: Run the preview pipeline (convert, rasterize, composite, encode)
// Step 3: Inspect the source, record the artifact paths and publish the view routes
func (serverHandler *ServerHandler) IngestDocumentWithSteps(ctx context.Context, pipeline *Pipeline, filePath string, db database.Repository, jobID ulid.ULID, fileNum, totalFiles int) error {
	fileName := filepath.Base(filePath)
	baseProgress := int((float64(fileNum) / float64(totalFiles)) * 90) // Reserve 90% for file processing, 10% for final steps

	// Step 1: Calculate hash and check for duplicates
	stepMsg := fmt.Sprintf("[%d/%d] %s - Step 1: Calculating hash", fileNum+1, totalFiles, fileName)
	db.UpdateJobProgress(jobID, baseProgress, stepMsg)
	Logger.Info("Step 1: Calculating hash", "filePath", filePath)

	fileHash, err := database.CalculateHash(filePath)
	if err != nil {
		return fmt.Errorf("step 1 failed (hash calculation): %w", err)
	}

	duplicate, existing := serverHandler.checkDuplicate(fileHash, fileName, db)
	if duplicate {
		if existing.SourcePath != filepath.ToSlash(filePath) {
			Logger.Info("Duplicate document detected, skipping", "fileName", fileName, "existingPreview", existing.Name)
			return fmt.Errorf("%w: duplicate of %s (hash %s)", errSkipDocument, existing.SourcePath, fileHash)
		}
		if _, err := os.Stat(existing.ImagePath); err == nil {
			// Same path, same content, artifacts on disk: nothing to do.
			// This is the normal case for preserved sources on every scheduled run.
			Logger.Debug("Document unchanged and artifacts present, skipping", "fileName", fileName)
			return fmt.Errorf("%w: already processed (hash %s)", errSkipDocument, fileHash)
		}
		Logger.Info("Artifacts missing for known document, regenerating", "fileName", fileName)
	}

	// Create initial database record with hash (upsert by source path, so a
	// changed document replaces its old record)
	preview, err := serverHandler.createInitialPreview(filePath, fileHash, db)
	if err != nil {
		return fmt.Errorf("step 1 failed (create record): %w", err)
	}

	Logger.Info("Step 1 complete: Preview record created", "ulid", preview.ULID.String(), "hash", fileHash)

	// Step 2: Generate the preview artifacts
	stepMsg = fmt.Sprintf("[%d/%d] %s - Step 2: Generating preview", fileNum+1, totalFiles, fileName)
	db.UpdateJobProgress(jobID, baseProgress+10, stepMsg)
	Logger.Info("Step 2: Generating preview", "filePath", filePath)

	result, err := pipeline.GeneratePreview(ctx, filePath)
	if err != nil {
		// Rollback: delete the database record so the next run retries cleanly
		db.DeletePreview(preview.ULID.String())
		return fmt.Errorf("step 2 failed (preview generation): %w", err)
	}

	Logger.Info("Step 2 complete: Artifacts generated", "image", result.ImagePath, "pages", result.PageCount)

	// Step 3: Inspect the source and record the artifacts
	// NOTE: This step should NEVER fail the document - the artifacts already exist on disk
	stepMsg = fmt.Sprintf("[%d/%d] %s - Step 3: Recording artifacts", fileNum+1, totalFiles, fileName)
	db.UpdateJobProgress(jobID, baseProgress+20, stepMsg)
	Logger.Info("Step 3: Recording artifacts and publishing routes", "filePath", filePath)

	if strings.EqualFold(filepath.Ext(filePath), ".docx") {
		preview.Paragraphs = CountParagraphs(filePath)
	}
	preview.PDFPath = result.PDFPath
	preview.ImagePath = result.ImagePath
	preview.DataURLPath = result.DataURLPath
	preview.PageCount = result.PageCount
	preview.ImageWidth = result.ImageWidth
	preview.ImageHeight = result.ImageHeight

	// Add preview view routes so the artifacts are live immediately
	preview.URL = serverHandler.registerPreviewRoutes(preview)

	if err := db.SavePreview(preview); err != nil {
		Logger.Error("Failed to record artifacts, preview still generated on disk", "error", err, "ulid", preview.ULID.String())
		// Don't return error - the artifacts exist, the next run repairs the record
	}

	Logger.Info("Step 3 complete: Artifacts recorded", "fileName", fileName, "url", preview.URL)

	// Post-process the source per config (preserve in place, move, or delete)
	if err := sourceCleanup(filePath, serverHandler.ServerConfig); err != nil {
		Logger.Warn("Source post-processing failed", "filePath", filePath, "error", err)
	}

	Logger.Info("Document ingress complete", "fileName", fileName, "ulid", preview.ULID.String())

	return nil
}

// checkDuplicate checks if a preview for the same source content already exists
func (serverHandler *ServerHandler) checkDuplicate(fileHash string, fileName string, db database.Repository) (bool, *database.Preview) {
	preview, err := db.GetPreviewByHash(fileHash)
	if err != nil || preview == nil {
		return false, nil
	}
	Logger.Debug("Matching preview found for hash", "fileName", fileName, "existingPreview", preview.Name, "hash", fileHash)
	return true, preview
}

// createInitialPreview creates a minimal preview record with hash
func (serverHandler *ServerHandler) createInitialPreview(filePath string, fileHash string, db database.Repository) (*database.Preview, error) {
	newTime := time.Now()
	newULID, err := database.CalculateUUID(newTime)
	if err != nil {
		return nil, fmt.Errorf("cannot generate ULID: %w", err)
	}

	preview := &database.Preview{
		Name:        filepath.Base(filePath),
		SourcePath:  filepath.ToSlash(filePath),
		Folder:      filepath.ToSlash(filepath.Dir(filePath)),
		Hash:        fileHash,
		ULID:        newULID,
		SourceType:  strings.ToLower(filepath.Ext(filePath)),
		IngressTime: newTime,
	}

	// Save initial preview record
	if err := db.SavePreview(preview); err != nil {
		return nil, fmt.Errorf("unable to save preview: %w", err)
	}

	return preview, nil
}
