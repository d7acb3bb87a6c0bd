package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	database "github.com/drummonds/goPreview/database"
)

// TestSearchEndpoint provides comprehensive tests for the search API endpoint
func TestSearchEndpoint(t *testing.T) {
	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	// Create temporary directory for test documents
	tempDir := t.TempDir()

	// Create test documents, the search runs over names and paths
	testDocuments := []struct {
		name   string
		folder string
		pages  int
	}{
		{name: "Invoice_2024_Q1.pdf", folder: "Finance", pages: 2},
		{name: "Receipt_Office_Supplies.pdf", folder: "Receipts", pages: 1},
		{name: "Contract_Agreement.pdf", folder: "Legal", pages: 12},
		{name: "Meeting_Notes_January.docx", folder: "Notes", pages: 3},
		{name: "Invoice_2024_Q2.pdf", folder: "Finance", pages: 2},
		{name: "Tax_Document_2023.pdf", folder: "Finance", pages: 7},
		{name: "Quarterly Report.odt", folder: "Reports", pages: 9},
	}

	// Insert test previews into database and create actual files
	for i, doc := range testDocuments {
		ulid, err := database.CalculateUUID(time.Now().Add(time.Duration(i) * time.Millisecond))
		if err != nil {
			t.Fatalf("Failed to generate ULID: %v", err)
		}

		// Create folder structure
		folderPath := filepath.Join(tempDir, doc.folder)
		if err := os.MkdirAll(folderPath, 0755); err != nil {
			t.Fatalf("Failed to create folder %s: %v", folderPath, err)
		}

		// Create actual file
		filePath := filepath.Join(folderPath, doc.name)
		if err := os.WriteFile(filePath, []byte("placeholder source content"), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", filePath, err)
		}

		newPreview := &database.Preview{
			Name:        doc.name,
			SourcePath:  filePath,
			Folder:      doc.folder,
			Hash:        fmt.Sprintf("hash_%d", i),
			IngressTime: time.Now(),
			SourceType:  filepath.Ext(doc.name),
			PageCount:   doc.pages,
			ULID:        ulid,
			URL:         fmt.Sprintf("/preview/view/%s", ulid.String()),
		}

		err = serverHandler.DB.SavePreview(newPreview)
		if err != nil {
			t.Fatalf("Failed to save test preview %s: %v", doc.name, err)
		}
	}

	t.Run("Search with valid term - single word", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=invoice", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse search results: %v\nBody: %s", err, rec.Body.String())
		}

		fileSystem, ok := response["fileSystem"].([]interface{})
		if !ok {
			t.Fatalf("Expected fileSystem array in response, got %T", response["fileSystem"])
		}

		// Should find the 2 invoice previews plus the SearchResults root
		if len(fileSystem) != 3 {
			t.Errorf("Expected 3 results for 'invoice' (including root), got %d", len(fileSystem))
		}

		t.Logf("Search for 'invoice' returned %d results", len(fileSystem))
	})

	t.Run("Search matches the source path", func(t *testing.T) {
		// Folder names live in the path, so they are searchable too
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=finance", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse search results: %v", err)
		}

		fileSystem, ok := response["fileSystem"].([]interface{})
		if !ok {
			t.Fatalf("Expected fileSystem array in response")
		}

		// Three previews live under Finance, plus the root node
		if len(fileSystem) != 4 {
			t.Errorf("Expected 4 results for 'finance' (including root), got %d", len(fileSystem))
		}
	})

	t.Run("Search with prefix matching", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=tax", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
			t.Errorf("Expected status 200 or 204, got %d", rec.Code)
		}

		if rec.Code == http.StatusOK {
			var response map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to parse search results: %v", err)
			}

			fileSystem, ok := response["fileSystem"].([]interface{})
			if !ok {
				t.Fatalf("Expected fileSystem array in response")
			}

			// Should find the tax document (plus SearchResults root)
			if len(fileSystem) < 2 {
				t.Errorf("Expected at least 2 results for 'tax' (including root), got %d", len(fileSystem))
			}
		}
	})

	t.Run("Search with no results", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=nonexistentterm12345", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		// Should return 204 No Content for no results
		if rec.Code != http.StatusNoContent {
			t.Errorf("Expected status 204 for no results, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Search with empty term", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		// Should return 404 Not Found for empty term
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 for empty term, got %d", rec.Code)
		}

		// Check error message
		var errorResponse map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &errorResponse); err == nil {
			t.Logf("Error response: %v", errorResponse)
		}
	})

	t.Run("Search without term parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		// Should return 404 for missing term
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 for missing term, got %d", rec.Code)
		}
	})

	t.Run("Search with URL encoded term", func(t *testing.T) {
		// "Quarterly Report.odt" has a space in its name
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=quarterly%20report", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse search results: %v", err)
		}

		fileSystem, ok := response["fileSystem"].([]interface{})
		if !ok {
			t.Fatalf("Expected fileSystem array in response")
		}
		if len(fileSystem) < 2 {
			t.Errorf("Expected at least 2 results for URL encoded term, got %d", len(fileSystem))
		}
		t.Logf("URL encoded search returned %d results", len(fileSystem))
	})

	t.Run("Search with special characters", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=$1500", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		// Should handle gracefully - may return 200, 204, or 500 depending on implementation
		if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent && rec.Code != http.StatusInternalServerError {
			t.Logf("Search with special characters returned status %d", rec.Code)
		}
	})

	t.Run("Search results contain required fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=invoice", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Skip("No results to validate")
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse search response: %v", err)
		}

		fileSystem, ok := response["fileSystem"].([]interface{})
		if !ok || len(fileSystem) == 0 {
			t.Skip("No results returned")
		}

		// Convert to map for easier access
		var results []map[string]interface{}
		for _, item := range fileSystem {
			if m, ok := item.(map[string]interface{}); ok {
				results = append(results, m)
			}
		}

		if len(results) == 0 {
			t.Skip("No results returned")
		}

		// Validate the first result has expected fields
		firstResult := results[0]
		requiredFields := []string{"id", "name", "fullPath"}
		for _, field := range requiredFields {
			if _, ok := firstResult[field]; !ok {
				t.Errorf("Search result missing required field: %s", field)
			}
		}

		t.Logf("First search result: %+v", firstResult)
	})

	t.Run("Search case insensitivity", func(t *testing.T) {
		// Search with different cases
		terms := []string{"INVOICE", "Invoice", "invoice"}
		var resultCounts []int

		for _, term := range terms {
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/search?term=%s", term), nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code == http.StatusOK {
				var response map[string]interface{}
				if err := json.Unmarshal(rec.Body.Bytes(), &response); err == nil {
					if fileSystem, ok := response["fileSystem"].([]interface{}); ok {
						resultCounts = append(resultCounts, len(fileSystem))
					}
				}
			} else if rec.Code == http.StatusNoContent {
				resultCounts = append(resultCounts, 0)
			}
		}

		// ILIKE matching means every case variant returns the same results
		if len(resultCounts) >= 2 {
			for i := 1; i < len(resultCounts); i++ {
				if resultCounts[i] != resultCounts[0] {
					t.Errorf("Case-sensitive search detected. Results: %v", resultCounts)
				}
			}
		}
	})

	t.Run("Search returns proper Content-Type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=invoice", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		contentType := rec.Header().Get("Content-Type")
		if rec.Code == http.StatusOK && !contains(contentType, "application/json") {
			t.Errorf("Expected Content-Type to contain 'application/json', got '%s'", contentType)
		}
	})
}

// TestSearchPerformance tests search endpoint performance
func TestSearchPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	// Create temporary directory
	tempDir := t.TempDir()

	// Insert multiple previews
	for i := 0; i < 50; i++ {
		ulid, _ := database.CalculateUUID(time.Now().Add(time.Duration(i) * time.Millisecond))

		// Create actual file
		filePath := filepath.Join(tempDir, fmt.Sprintf("Searchable_Document_%d.pdf", i))
		if err := os.WriteFile(filePath, []byte("placeholder source content"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}

		preview := &database.Preview{
			Name:        fmt.Sprintf("Searchable_Document_%d.pdf", i),
			SourcePath:  filePath,
			Folder:      "Test",
			Hash:        fmt.Sprintf("hash_%d", i),
			IngressTime: time.Now(),
			SourceType:  ".pdf",
			PageCount:   i%5 + 1,
			ULID:        ulid,
		}
		serverHandler.DB.SavePreview(preview)
	}

	t.Run("Search performance with 50 previews", func(t *testing.T) {
		iterations := 20
		start := time.Now()

		for i := 0; i < iterations; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/search?term=searchable", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
				t.Errorf("Search request %d failed with status %d", i, rec.Code)
			}
		}

		elapsed := time.Since(start)
		avgTime := elapsed / time.Duration(iterations)

		t.Logf("Completed %d search requests in %v (avg: %v per request)", iterations, elapsed, avgTime)

		if avgTime > 200*time.Millisecond {
			t.Logf("Warning: Average search time (%v) is higher than expected", avgTime)
		}
	})
}

// TestSearchConcurrency tests concurrent search requests
func TestSearchConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	// Create temporary directory
	tempDir := t.TempDir()

	// Insert test previews
	for i := 0; i < 10; i++ {
		ulid, _ := database.CalculateUUID(time.Now().Add(time.Duration(i) * time.Millisecond))

		// Create actual file
		filePath := filepath.Join(tempDir, fmt.Sprintf("Concurrent_Test_%d.pdf", i))
		if err := os.WriteFile(filePath, []byte("placeholder source content"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}

		preview := &database.Preview{
			Name:        fmt.Sprintf("Concurrent_Test_%d.pdf", i),
			SourcePath:  filePath,
			Folder:      "Test",
			Hash:        fmt.Sprintf("hash_%d", i),
			IngressTime: time.Now(),
			SourceType:  ".pdf",
			PageCount:   1,
			ULID:        ulid,
		}
		serverHandler.DB.SavePreview(preview)
	}

	t.Run("Concurrent search requests", func(t *testing.T) {
		concurrency := 10
		done := make(chan bool, concurrency)
		errors := make(chan error, concurrency)

		for i := 0; i < concurrency; i++ {
			go func(id int) {
				req := httptest.NewRequest(http.MethodGet, "/api/search?term=concurrent", nil)
				rec := httptest.NewRecorder()
				e.ServeHTTP(rec, req)

				if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
					errors <- fmt.Errorf("concurrent search request %d failed with status %d", id, rec.Code)
				}
				done <- true
			}(i)
		}

		// Wait for all requests
		for i := 0; i < concurrency; i++ {
			<-done
		}

		close(errors)
		errorCount := 0
		for err := range errors {
			t.Error(err)
			errorCount++
		}

		if errorCount == 0 {
			t.Logf("Successfully handled %d concurrent search requests", concurrency)
		}
	})
}

// TestSearchResultFormat validates the format of search results
func TestSearchResultFormat(t *testing.T) {
	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	// Create temporary directory and file
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "Test_Format.pdf")
	if err := os.WriteFile(filePath, []byte("placeholder source content"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	// Insert a test preview
	ulid, _ := database.CalculateUUID(time.Now())
	preview := &database.Preview{
		Name:        "Test_Format.pdf",
		SourcePath:  filePath,
		Folder:      "FormatTest",
		Hash:        "hash_format",
		IngressTime: time.Now(),
		SourceType:  ".pdf",
		PageCount:   2,
		ULID:        ulid,
		URL:         "/preview/view/" + ulid.String(),
	}
	serverHandler.DB.SavePreview(preview)

	t.Run("Search results have valid structure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?term=format", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Skip("No results to validate")
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		// Verify response has fileSystem field
		fileSystem, ok := response["fileSystem"].([]interface{})
		if !ok {
			t.Fatalf("Response missing fileSystem array")
		}

		if len(fileSystem) == 0 {
			t.Skip("No results returned")
		}

		// Convert to map slice for easier access
		var results []map[string]interface{}
		for _, item := range fileSystem {
			if m, ok := item.(map[string]interface{}); ok {
				results = append(results, m)
			}
		}

		// Verify array structure
		if len(results) < 1 {
			t.Fatal("Results should be a non-empty array")
		}

		// The first item should be the "SearchResults" root node
		rootNode := results[0]
		if id, ok := rootNode["id"].(string); ok {
			if id == "SearchResults" {
				t.Log("Found SearchResults root node")
			}
		}

		// Find an actual preview result
		var previewNode map[string]interface{}
		for _, result := range results {
			if id, ok := result["id"].(string); ok && id != "SearchResults" {
				previewNode = result
				break
			}
		}

		if previewNode == nil {
			t.Fatal("No preview nodes found in results")
		}

		// Validate preview node structure
		expectedFields := map[string]string{
			"id":         "string",
			"name":       "string",
			"fullPath":   "string",
			"previewURL": "string",
			"isDir":      "bool",
		}

		for field, expectedType := range expectedFields {
			value, ok := previewNode[field]
			if !ok {
				t.Errorf("Preview node missing field: %s", field)
				continue
			}

			switch expectedType {
			case "string":
				if _, ok := value.(string); !ok {
					t.Errorf("Field %s should be string, got %T", field, value)
				}
			case "bool":
				if _, ok := value.(bool); !ok {
					t.Errorf("Field %s should be bool, got %T", field, value)
				}
			}
		}

		t.Logf("Preview node structure validated: %+v", previewNode)
	})
}
