package database

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/drummonds/goPreview/config"
	"github.com/oklog/ulid/v2"
)

func TestBunSQLiteDatabase(t *testing.T) {
	// Initialize logger for tests
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	// In-memory database keeps the test self contained
	tmpFile := ":memory:"

	// Setup Bun with SQLite
	db := NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: tmpFile})
	defer db.Close()

	t.Log("Bun SQLite database setup successfully")

	// Test preview operations
	t.Run("Create and retrieve preview", func(t *testing.T) {
		preview := &Preview{
			Name:        "test.docx",
			SourcePath:  "/tmp/test.docx",
			IngressTime: time.Now(),
			Folder:      "/tmp",
			Hash:        "test123hash",
			ULID:        ulid.Make(),
			SourceType:  ".docx",
			Paragraphs:  3,
			PageCount:   2,
			ImageWidth:  1190,
			ImageHeight: 3368,
			PDFPath:     "/tmp/test/test.pdf",
			ImagePath:   "/tmp/test/img.jpg",
			DataURLPath: "/tmp/test/base64.txt",
			URL:         "http://example.com/test.docx",
		}

		// Save preview
		err := db.SavePreview(preview)
		if err != nil {
			t.Fatalf("Failed to save preview: %v", err)
		}

		if preview.ID == 0 {
			t.Error("Preview ID was not set after save")
		}

		// Retrieve by ID
		retrieved, err := db.GetPreviewByID(preview.ID)
		if err != nil {
			t.Fatalf("Failed to get preview by ID: %v", err)
		}

		if retrieved.Name != preview.Name {
			t.Errorf("Expected name %s, got %s", preview.Name, retrieved.Name)
		}

		if retrieved.PageCount != preview.PageCount {
			t.Errorf("Expected page count %d, got %d", preview.PageCount, retrieved.PageCount)
		}

		// Retrieve by ULID
		retrievedByULID, err := db.GetPreviewByULID(preview.ULID.String())
		if err != nil {
			t.Fatalf("Failed to get preview by ULID: %v", err)
		}

		if retrievedByULID.ID != preview.ID {
			t.Errorf("Expected ID %d, got %d", preview.ID, retrievedByULID.ID)
		}

		// Retrieve by source path
		retrievedByPath, err := db.GetPreviewByPath(preview.SourcePath)
		if err != nil {
			t.Fatalf("Failed to get preview by path: %v", err)
		}

		if retrievedByPath.ID != preview.ID {
			t.Errorf("Expected ID %d, got %d", preview.ID, retrievedByPath.ID)
		}

		t.Log("Preview create and retrieve test passed")
	})

	// Regenerating a preview for the same source must update the existing row
	t.Run("Upsert preview by source path", func(t *testing.T) {
		preview := &Preview{
			Name:        "upsert.odt",
			SourcePath:  "/tmp/upsert.odt",
			IngressTime: time.Now(),
			Folder:      "/tmp",
			Hash:        "hash-v1",
			ULID:        ulid.Make(),
			SourceType:  ".odt",
			PageCount:   1,
		}

		err := db.SavePreview(preview)
		if err != nil {
			t.Fatalf("Failed to save preview: %v", err)
		}
		firstID := preview.ID

		// Same source path, new content
		updated := &Preview{
			Name:        "upsert.odt",
			SourcePath:  "/tmp/upsert.odt",
			IngressTime: time.Now(),
			Folder:      "/tmp",
			Hash:        "hash-v2",
			ULID:        ulid.Make(),
			SourceType:  ".odt",
			PageCount:   4,
		}

		err = db.SavePreview(updated)
		if err != nil {
			t.Fatalf("Failed to upsert preview: %v", err)
		}

		if updated.ID != firstID {
			t.Errorf("Expected upsert to reuse ID %d, got %d", firstID, updated.ID)
		}

		retrieved, err := db.GetPreviewByPath("/tmp/upsert.odt")
		if err != nil {
			t.Fatalf("Failed to get upserted preview: %v", err)
		}

		if retrieved.Hash != "hash-v2" {
			t.Errorf("Expected hash hash-v2, got %s", retrieved.Hash)
		}

		if retrieved.PageCount != 4 {
			t.Errorf("Expected page count 4, got %d", retrieved.PageCount)
		}

		t.Log("Upsert test passed")
	})

	// Hash lookups signal duplicates; a miss is not an error
	t.Run("Get preview by hash", func(t *testing.T) {
		found, err := db.GetPreviewByHash("test123hash")
		if err != nil {
			t.Fatalf("Failed to get preview by hash: %v", err)
		}
		if found == nil {
			t.Fatal("Expected to find preview by hash, got nil")
		}

		missing, err := db.GetPreviewByHash("no-such-hash")
		if err != nil {
			t.Fatalf("Hash miss should not error: %v", err)
		}
		if missing != nil {
			t.Errorf("Expected nil for unknown hash, got %+v", missing)
		}

		t.Log("Hash lookup test passed")
	})

	// Test config operations
	t.Run("Save and retrieve config", func(t *testing.T) {
		cfg := &config.ServerConfig{
			ListenAddrPort:  "9000",
			IngressPath:     "/tmp/ingress",
			IngressInterval: 15,
			ConvertTimeout:  90,
			Renderer:        "fitz",
			ZoomX:           2.0,
			ZoomY:           2.0,
			JPEGQuality:     95,
		}

		err := db.SaveConfig(cfg)
		if err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}

		retrievedCfg, err := db.GetConfig()
		if err != nil {
			t.Fatalf("Failed to get config: %v", err)
		}

		if retrievedCfg.ListenAddrPort != cfg.ListenAddrPort {
			t.Errorf("Expected port %s, got %s", cfg.ListenAddrPort, retrievedCfg.ListenAddrPort)
		}

		if retrievedCfg.IngressInterval != cfg.IngressInterval {
			t.Errorf("Expected interval %d, got %d", cfg.IngressInterval, retrievedCfg.IngressInterval)
		}

		if retrievedCfg.ConvertTimeout != cfg.ConvertTimeout {
			t.Errorf("Expected convert timeout %d, got %d", cfg.ConvertTimeout, retrievedCfg.ConvertTimeout)
		}

		t.Log("Config save and retrieve test passed")
	})

	// Test job operations
	t.Run("Create and retrieve job", func(t *testing.T) {
		job, err := db.CreateJob(JobTypeIngress, "Test ingress job")
		if err != nil {
			t.Fatalf("Failed to create job: %v", err)
		}

		if job.ID.String() == "" {
			t.Error("Job ID was not set after create")
		}

		// Retrieve job
		retrievedJob, err := db.GetJob(job.ID)
		if err != nil {
			t.Fatalf("Failed to get job: %v", err)
		}

		if retrievedJob.Message != job.Message {
			t.Errorf("Expected message %s, got %s", job.Message, retrievedJob.Message)
		}

		// Update job progress
		err = db.UpdateJobProgress(job.ID, 50, "Rendering pages")
		if err != nil {
			t.Fatalf("Failed to update job progress: %v", err)
		}

		// Complete job
		err = db.CompleteJob(job.ID, `{"processed": 10}`)
		if err != nil {
			t.Fatalf("Failed to complete job: %v", err)
		}

		// Verify completion
		completedJob, err := db.GetJob(job.ID)
		if err != nil {
			t.Fatalf("Failed to get completed job: %v", err)
		}

		if completedJob.Status != JobStatusCompleted {
			t.Errorf("Expected status %s, got %s", JobStatusCompleted, completedJob.Status)
		}

		if completedJob.Progress != 100 {
			t.Errorf("Expected progress 100, got %d", completedJob.Progress)
		}

		t.Log("Job operations test passed")
	})

	// Test search functionality
	t.Run("Search previews", func(t *testing.T) {
		// Create a searchable preview
		preview := &Preview{
			Name:        "quarterly-report.docx",
			SourcePath:  "/tmp/quarterly-report.docx",
			IngressTime: time.Now(),
			Folder:      "/tmp",
			Hash:        "searchtest123",
			ULID:        ulid.Make(),
			SourceType:  ".docx",
			PageCount:   5,
		}

		err := db.SavePreview(preview)
		if err != nil {
			t.Fatalf("Failed to save preview: %v", err)
		}

		// Search by source name (SQLite will use LIKE search)
		results, err := db.SearchPreviews("quarterly")
		if err != nil {
			t.Fatalf("Failed to search previews: %v", err)
		}

		if len(results) == 0 {
			t.Error("Expected to find at least one preview, got none")
		}

		t.Logf("Search test passed, found %d previews", len(results))
	})

	// Test pagination
	t.Run("Paginate newest previews", func(t *testing.T) {
		previews, total, err := db.GetNewestPreviewsWithPagination(1, 2)
		if err != nil {
			t.Fatalf("Failed to get paginated previews: %v", err)
		}

		if total < 3 {
			t.Errorf("Expected at least 3 previews in total, got %d", total)
		}

		if len(previews) != 2 {
			t.Errorf("Expected page of 2 previews, got %d", len(previews))
		}

		t.Logf("Pagination test passed, %d previews in total", total)
	})
}
