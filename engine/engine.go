package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/drummonds/goPreview/config"
	"github.com/drummonds/goPreview/database"
	"github.com/oklog/ulid/v2"
)

func (serverHandler *ServerHandler) ingressJobFunc(serverConfig config.ServerConfig, db database.Repository) {
	// Add panic recovery to prevent entire application crash
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in ingress job", "panic", r)
		}
	}()

	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		Logger.Error("Error reading config from database", "error", err)
	}
	Logger.Info("Starting Ingress Job on folder", "path", serverConfig.IngressPath)

	ingressFiles, err := collectIngressFiles(serverConfig.IngressPath)
	if err != nil {
		Logger.Error("Error reading files in from ingress", "error", err)
		return
	}
	if len(ingressFiles) == 0 {
		Logger.Info("No documents to process in ingress folder")
		return
	}

	pipeline, err := NewPipeline(serverConfig)
	if err != nil {
		Logger.Error("Unable to build preview pipeline", "error", err)
		return
	}
	defer pipeline.Close()

	for i, filePath := range ingressFiles {
		Logger.Debug("Starting processing for file", "filePath", filePath)
		// Zero job ID: the scheduled walk is untracked, step progress updates land nowhere
		err := serverHandler.IngestDocumentWithSteps(context.Background(), pipeline, filePath, db, ulid.ULID{}, i, len(ingressFiles))
		if err != nil && !errors.Is(err, errSkipDocument) {
			Logger.Error("Failed to generate preview", "filePath", filePath, "error", err)
		}
	}
	if serverConfig.IngressDelete || serverConfig.IngressMoveFolder != "" {
		deleteEmptyIngressFolders(serverConfig.IngressPath) //after ingress clean folders the post-processing emptied
	}
}

// ingressJobFuncWithTracking wraps the ingress job with progress tracking
func (serverHandler *ServerHandler) ingressJobFuncWithTracking(serverConfig config.ServerConfig, db database.Repository, jobID ulid.ULID) {
	// Add panic recovery and update job status on panic
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in ingress job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	// Mark job as running
	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Scanning ingress folder"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		Logger.Error("Error reading config from database", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Failed to fetch config: %v", err))
		return
	}

	Logger.Info("Starting Ingress Job with tracking", "path", serverConfig.IngressPath, "jobID", jobID)

	ingressFiles, err := collectIngressFiles(serverConfig.IngressPath)
	if err != nil {
		Logger.Error("Error scanning ingress folder", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Scan failed: %v", err))
		return
	}

	totalFiles := len(ingressFiles)
	if totalFiles == 0 {
		Logger.Info("No documents to process in ingress folder")
		db.CompleteJob(jobID, `{"filesProcessed": 0, "message": "No files found"}`)
		return
	}

	pipeline, err := NewPipeline(serverConfig)
	if err != nil {
		Logger.Error("Unable to build preview pipeline", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Pipeline setup failed: %v", err))
		return
	}
	defer pipeline.Close()

	Logger.Info("Found documents to process", "count", totalFiles)
	processedFiles := 0
	errorCount := 0
	skippedCount := 0

	// Process each file with detailed step tracking
	for i, filePath := range ingressFiles {
		fileName := filepath.Base(filePath)

		Logger.Info("Processing document with step-based ingress", "file", fileName, "number", i+1, "total", totalFiles)

		err := serverHandler.IngestDocumentWithSteps(context.Background(), pipeline, filePath, db, jobID, i, totalFiles)
		switch {
		case errors.Is(err, errSkipDocument):
			Logger.Info("Skipped document", "filePath", filePath, "reason", err)
			skippedCount++
			processedFiles++ // Count as processed (successfully skipped)
		case err != nil:
			Logger.Error("Failed to process document", "filePath", filePath, "error", err)
			errorCount++
		default:
			processedFiles++
		}
	}

	// Clean up folders the post-processing emptied
	if serverConfig.IngressDelete || serverConfig.IngressMoveFolder != "" {
		db.UpdateJobProgress(jobID, 95, "Cleaning empty ingress folders")
		deleteEmptyIngressFolders(serverConfig.IngressPath)
	}

	// Complete the job
	result := fmt.Sprintf(`{"filesProcessed": %d, "filesTotal": %d, "errors": %d, "skipped": %d}`, processedFiles, totalFiles, errorCount, skippedCount)
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark job as complete", "error", err)
	}

	Logger.Info("Ingress job completed", "jobID", jobID, "processed", processedFiles, "total", totalFiles, "errors", errorCount, "skipped", skippedCount)
}

// cleanupJobFuncWithTracking performs database cleanup with job tracking
func (serverHandler *ServerHandler) cleanupJobFuncWithTracking(db database.Repository, jobID ulid.ULID) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in cleanup job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	// Mark job as running
	db.UpdateJobStatus(jobID, database.JobStatusRunning, "Fetching preview records from database")

	previews, err := db.GetAllPreviews()
	if err != nil {
		Logger.Error("Failed to fetch previews for cleanup", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Failed to fetch previews: %v", err))
		return
	}

	totalPreviews := len(previews)
	deletedCount := 0

	Logger.Info("Starting database cleanup", "total_previews", totalPreviews)
	db.UpdateJobProgress(jobID, 10, fmt.Sprintf("Checking %d preview records", totalPreviews))

	// Step 1: Remove records whose source and artifacts are both gone.
	// A missing source alone is fine: post-processing may have moved or
	// deleted it while the artifacts live on.
	for i, preview := range previews {
		progress := 10 + int((float64(i)/float64(totalPreviews))*50)
		db.UpdateJobProgress(jobID, progress, fmt.Sprintf("Checking preview %d/%d", i+1, totalPreviews))

		_, sourceErr := os.Stat(preview.SourcePath)
		_, imageErr := os.Stat(preview.ImagePath)
		if os.IsNotExist(sourceErr) && os.IsNotExist(imageErr) {
			Logger.Info("Source and artifacts gone, removing record", "path", preview.SourcePath, "ulid", preview.ULID.String())

			if err := database.DeletePreview(preview.ULID.String(), db); err != nil {
				Logger.Error("Failed to delete preview from DB", "error", err, "ulid", preview.ULID.String())
				continue
			}
			deletedCount++
		}
	}

	// Step 2: Remove orphaned artifact folders
	db.UpdateJobProgress(jobID, 60, "Scanning for orphaned artifacts")
	removedArtifacts := 0
	orphanedDirs, err := serverHandler.findOrphanedArtifacts(previews)
	if err != nil {
		Logger.Error("Failed to scan for orphaned artifacts", "error", err)
		// Continue with cleanup even if the orphan scan fails
	} else {
		totalOrphans := len(orphanedDirs)
		for i, orphanDir := range orphanedDirs {
			progress := 60 + int((float64(i)/float64(totalOrphans))*20)
			db.UpdateJobProgress(jobID, progress, fmt.Sprintf("Removing orphaned artifacts %d/%d", i+1, totalOrphans))

			if err := DeleteFile(orphanDir); err != nil {
				Logger.Error("Failed to remove orphaned artifacts", "path", orphanDir, "error", err)
			} else {
				removedArtifacts++
			}
		}
	}

	// Step 3: Prune finished jobs older than a week
	db.UpdateJobProgress(jobID, 85, "Pruning old jobs")
	prunedJobs, err := db.DeleteOldJobs(7 * 24 * time.Hour)
	if err != nil {
		Logger.Error("Failed to prune old jobs", "error", err)
	}

	// Complete the job
	result := fmt.Sprintf(`{"scanned": %d, "deleted": %d, "artifactsRemoved": %d, "jobsPruned": %d}`, totalPreviews, deletedCount, removedArtifacts, prunedJobs)
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark cleanup job as complete", "error", err)
	}

	Logger.Info("Database cleanup job completed", "jobID", jobID, "scanned", totalPreviews, "deleted", deletedCount, "artifactsRemoved", removedArtifacts, "jobsPruned", prunedJobs)
}

// collectIngressFiles walks the ingress tree and returns the supported source
// documents, skipping generated artifact folders entirely
func collectIngressFiles(ingressPath string) ([]string, error) {
	var ingressFiles []string
	err := filepath.Walk(ingressPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			Logger.Warn("Unable to get information for file, won't process", "filePath", path, "error", err)
			return nil
		}
		if info.IsDir() {
			if path != ingressPath && isArtifactDir(path) {
				Logger.Debug("Skipping artifact folder", "filePath", path)
				return filepath.SkipDir
			}
			return nil
		}
		if !isSupportedDocument(path) {
			Logger.Debug("Skipping unsupported file type", "filePath", path)
			return nil
		}
		ingressFiles = append(ingressFiles, path)
		return nil
	})
	return ingressFiles, err
}

// isArtifactDir reports whether a directory holds generated preview artifacts.
// Completed artifact folders carry the composite; a folder sitting at the
// output location of a present source document is reserved for its artifacts
// even before the composite lands.
func isArtifactDir(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, CompositeName)); err == nil {
		return true
	}
	return sourceForArtifactDir(dir) != ""
}

func (serverHandler *ServerHandler) ingressDocument(filePath string, source string) { //source is either from ingress folder or from upload
	// Add panic recovery to prevent one bad document from crashing the server
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered while processing document", "filePath", filePath, "panic", r)
		}
	}()

	if !isSupportedDocument(filePath) {
		Logger.Warn("Invalid file type", "file", filepath.Base(filePath))
		return
	}

	pipeline, err := NewPipeline(serverHandler.ServerConfig)
	if err != nil {
		Logger.Error("Unable to build preview pipeline", "error", err)
		return
	}
	defer pipeline.Close()

	// Zero job ID: single-document runs are untracked
	err = serverHandler.IngestDocumentWithSteps(context.Background(), pipeline, filePath, serverHandler.DB, ulid.ULID{}, 0, 1)
	switch {
	case errors.Is(err, errSkipDocument):
		Logger.Info("Document already previewed", "filePath", filePath, "reason", err)
	case err != nil:
		Logger.Error("Failed to generate preview for document", "filePath", filePath, "source", source, "error", err)
	default:
		Logger.Info("Added preview to the database", "filePath", filePath, "source", source)
	}
}

// sourceCleanup applies the configured post-processing to a source document
// after its preview is generated: delete it, move it aside, or (default)
// preserve it in place. The artifacts always stay with the record.
func sourceCleanup(filePath string, serverConfig config.ServerConfig) error {
	switch {
	case serverConfig.IngressDelete:
		Logger.Debug("Deleting source after preview", "filePath", filePath)
		return os.Remove(filePath)
	case serverConfig.IngressMoveFolder != "":
		newFile := filepath.FromSlash(serverConfig.IngressMoveFolder + "/" + filepath.Base(filePath))
		Logger.Debug("Moving source after preview", "from", filePath, "to", newFile)
		return os.Rename(filePath, newFile)
	default:
		return nil
	}
}

func deleteEmptyIngressFolders(path string) {
	Logger.Info("Running cleanup on ingress folder", "path", path)
	err := filepath.Walk(path, func(currentFile string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path == currentFile {
			Logger.Debug("Skipping root dir", "path", path)
			return nil
		}
		f, err := os.Open(currentFile)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = f.Readdirnames(1)
		if err == io.EOF {
			Logger.Debug("Removing Empty Folder", "currentFile", currentFile)
			os.RemoveAll(currentFile)
			return nil
		}
		return nil
	})
	if err != nil {
		Logger.Error("Error cleaning ingress folder", "path", path, "error", err)
	}
}

// DeleteFile deletes a folder (or file) and everything in that folder
func DeleteFile(filePath string) error {
	err := os.RemoveAll(filePath)
	if err != nil {
		Logger.Error("Error deleting File/Folder", "error", err)
		return err
	}
	return nil
}
