package engine

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/drummonds/goPreview/config"
	"github.com/drummonds/goPreview/database"
	"github.com/drummonds/goPreview/internal/build"
	"github.com/labstack/echo/v4"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
}

type fullFileSystem struct {
	FileSystem []fileTreeStruct `json:"fileSystem"`
	Error      string           `json:"error"`
}

type fileTreeStruct struct {
	ID          string   `json:"id"`
	ULIDStr     string   `json:"ulid"`
	Name        string   `json:"name"`
	Size        int64    `json:"size"`
	ModDate     string   `json:"modDate"`
	Openable    bool     `json:"openable"`
	ParentID    string   `json:"parentID"`
	IsDir       bool     `json:"isDir"`
	ChildrenIDs []string `json:"childrenIDs"`
	FullPath    string   `json:"fullPath"`
	PreviewURL  string   `json:"previewURL"`
}

// supportedExtensions are the source document types the preview pipeline accepts
var supportedExtensions = []string{".pdf", ".doc", ".docx", ".odt", ".rtf"}

// isSupportedDocument checks if a file is a document type the pipeline can preview
func isSupportedDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, validExt := range supportedExtensions {
		if ext == validExt {
			return true
		}
	}
	return false
}

// AddPreviewViewRoutes adds view routes for every preview already in the database
func (serverHandler *ServerHandler) AddPreviewViewRoutes() error {
	previews, err := serverHandler.DB.GetAllPreviews()
	if err != nil {
		return err
	}
	for _, preview := range previews {
		serverHandler.registerPreviewRoutes(&preview)
	}
	return nil
}

// registerPreviewRoutes serves the artifacts of one preview and returns the base URL.
// The composite lives at the base URL, the data URL text and the intermediate
// PDF hang off it.
func (serverHandler *ServerHandler) registerPreviewRoutes(preview *database.Preview) string {
	previewURL := "/preview/view/" + preview.ULID.String()
	serverHandler.Echo.File(previewURL, preview.ImagePath)
	serverHandler.Echo.File(previewURL+"/base64", preview.DataURLPath)
	if preview.PDFPath != "" {
		serverHandler.Echo.File(previewURL+"/pdf", preview.PDFPath)
	}
	return previewURL
}

// DeleteFile deletes a folder or file from the ingress tree (and all children if folder)
// (and the preview record plus its artifacts if a tracked document)
// @Summary Delete a file or folder
// @Description Deletes a document or folder from the system, including the preview record and generated artifacts
// @Tags Previews
// @Accept json
// @Produce json
// @Param id query string false "Preview ULID"
// @Param path query string false "File path relative to ingress root"
// @Success 200 {string} string "Preview Deleted" or "Folder Deleted"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /preview [delete]
func (serverHandler *ServerHandler) DeleteFile(context echo.Context) error {
	var err error
	params := context.QueryParams()
	ulidStr := params.Get("id")
	path := params.Get("path")
	path = filepath.Join(serverHandler.ServerConfig.IngressPath, path)
	path, err = filepath.Abs(path)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, err)
	}
	absIngress, err := filepath.Abs(serverHandler.ServerConfig.IngressPath)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, err)
	}
	if path == absIngress { //never purge the entire ingress tree through the API
		return context.JSON(http.StatusBadRequest, "refusing to delete the ingress root")
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		Logger.Error("Unable to get information for file", "path", path, "error", err)
		return context.JSON(http.StatusNotFound, err)
	}
	if fileInfo.IsDir() { //If a directory, just delete it and all children
		err = DeleteFile(path)
		if err != nil {
			Logger.Error("Unable to delete folder from ingress filesystem", "path", path, "error", err)
			return context.JSON(http.StatusInternalServerError, err)
		}
		return context.JSON(http.StatusOK, "Folder Deleted")
	}
	preview, _, err := database.FetchPreview(ulidStr, serverHandler.DB)
	if err != nil {
		Logger.Error("Unable to find preview record for file", "path", path, "error", err)
		return context.JSON(http.StatusNotFound, err)
	}
	err = database.DeletePreview(ulidStr, serverHandler.DB)
	if err != nil {
		Logger.Error("Unable to delete preview from database", "name", preview.Name, "error", err)
		return context.JSON(http.StatusNotFound, err)
	}
	err = DeleteFile(preview.SourcePath)
	if err != nil {
		Logger.Error("Unable to delete source document from file system", "path", preview.SourcePath, "error", err)
		return context.JSON(http.StatusNotFound, err)
	}
	if preview.ImagePath != "" { //the artifact folder holds the composite, data URL and PDF
		err = DeleteFile(filepath.Dir(preview.ImagePath))
		if err != nil {
			Logger.Error("Unable to delete preview artifacts from file system", "path", filepath.Dir(preview.ImagePath), "error", err)
			return context.JSON(http.StatusNotFound, err)
		}
	}
	return context.JSON(http.StatusOK, "Preview Deleted")
}

// UploadDocuments handles documents uploaded through the API
// @Summary Upload a document
// @Description Upload a new document file to the ingress folder and generate its preview
// @Tags Previews
// @Accept multipart/form-data
// @Produce json
// @Param path formData string false "Upload path (relative to ingress folder)"
// @Param file formData file true "Document file to upload"
// @Success 200 {string} string "Path to uploaded file"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /preview/upload [post]
func (serverHandler *ServerHandler) UploadDocuments(context echo.Context) error {
	request := context.Request()
	uploadPath := request.FormValue("path")
	file, fileHeader, err := request.FormFile("file")
	if err != nil {
		Logger.Error("Problem finding file in upload", "error", err)
		return err
	}
	defer file.Close()
	//Upload lands in the ingress folder so a bad document sticks there instead of half-processed artifacts.
	path := filepath.ToSlash(serverHandler.ServerConfig.IngressPath + "/" + uploadPath + fileHeader.Filename)
	_, err = os.Stat(filepath.Dir(path)) //since this is the ingress folder we MAY need to create the directory path.
	if err != nil {
		if os.IsNotExist(err) {
			err := os.MkdirAll(filepath.Dir(path), os.ModePerm)
			if err != nil {
				Logger.Error("Unable to create filepath for upload", "path", path, "error", err)
				return err
			}
		}
	}
	Logger.Debug("Creating path for file upload to ingress", "dir", filepath.Dir(path))
	body, err := io.ReadAll(file) //get the file, write it to the filesystem
	if err != nil {
		Logger.Error("Unable to read uploaded file", "path", path, "error", err)
		return err
	}
	err = os.WriteFile(path, body, 0644)
	if err != nil {
		Logger.Error("Unable to write uploaded file", "path", path, "error", err)
		return err
	}
	serverHandler.ingressDocument(path, "upload") //generate the preview and record inline
	return context.JSON(http.StatusOK, path)
}

// SearchPreviews matches the search term against stored preview records
// @Summary Search previews
// @Description Search preview records by source document name or path
// @Tags Search
// @Accept json
// @Produce json
// @Param term query string true "Search term"
// @Success 200 {object} fullFileSystem "Search results"
// @Success 204 "No results found"
// @Failure 404 {string} string "Empty search term"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /search [get]
func (serverHandler *ServerHandler) SearchPreviews(context echo.Context) error {
	searchParams := context.QueryParams()
	searchTerm := searchParams.Get("term")
	if searchTerm == "" {
		return context.JSON(http.StatusNotFound, "Empty search term")
	}

	Logger.Debug("Searching preview records", "searchTerm", searchTerm)
	previews, err := serverHandler.DB.SearchPreviews(searchTerm)
	if err != nil {
		Logger.Error("Search failed", "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}

	if len(previews) == 0 {
		Logger.Info("Search returned no results", "searchTerm", searchTerm)
		return context.JSON(http.StatusNoContent, nil)
	}

	fullResults, err := convertPreviewsToFileTree(previews)
	if err != nil {
		Logger.Error("Unable to convert search results to file tree", "error", err)
		return context.JSON(http.StatusNotFound, err)
	}

	// Wrap the results in fullFileSystem struct so clients get one shape for listings and searches
	response := fullFileSystem{
		FileSystem: *fullResults,
		Error:      "",
	}
	return context.JSON(http.StatusOK, response)
}

// GetPreview will return a preview record by ULID
// @Summary Get a preview by ID
// @Description Retrieve preview record details by ULID
// @Tags Previews
// @Accept json
// @Produce json
// @Param id path string true "Preview ULID"
// @Success 200 {object} database.Preview "Preview details"
// @Failure 404 {object} map[string]interface{} "Preview not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /preview/{id} [get]
func (serverHandler *ServerHandler) GetPreview(context echo.Context) error {
	ulidStr := context.Param("id")
	preview, httpStatus, err := database.FetchPreview(ulidStr, serverHandler.DB)
	if err != nil {
		Logger.Error("GetPreview API call failed", "error", err)
		return context.JSON(httpStatus, err)
	}
	return context.JSON(httpStatus, preview)

}

// GetPreviewFileSystem will scan the ingress folder and get the complete tree,
// sources and generated artifact folders included
// @Summary Get ingress filesystem tree
// @Description Retrieve the complete ingress folder structure as a tree
// @Tags Previews
// @Accept json
// @Produce json
// @Success 200 {object} fullFileSystem "Complete filesystem tree"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /previews/filesystem [get]
func (serverHandler *ServerHandler) GetPreviewFileSystem(context echo.Context) error {
	fileSystem, err := fileTree(serverHandler.ServerConfig.IngressPath, serverHandler.DB)
	if err != nil {
		return err
	}
	return context.JSON(http.StatusOK, fileSystem)

}

func convertPreviewsToFileTree(previews []database.Preview) (fullFileTree *[]fileTreeStruct, err error) {
	var fileTree []fileTreeStruct
	var currentFile fileTreeStruct
	for _, preview := range previews {
		currentFile = fileTreeStruct{}
		currentFile.ID = preview.ULID.String()
		currentFile.ULIDStr = currentFile.ID
		currentFile.Name = preview.Name
		currentFile.Openable = true
		currentFile.ModDate = preview.IngressTime.String()
		currentFile.IsDir = false
		currentFile.FullPath = preview.SourcePath
		currentFile.PreviewURL = preview.URL
		currentFile.ParentID = "SearchResults"
		//the source may have been moved or deleted after processing, record fields stand in
		if sourceInfo, err := os.Stat(preview.SourcePath); err == nil {
			currentFile.Size = sourceInfo.Size()
			currentFile.ModDate = sourceInfo.ModTime().String()
		}
		fileTree = append(fileTree, currentFile)
	}
	childrenIDs := func() []string {
		var ids []string
		for _, file := range fileTree {
			ids = append(ids, file.Name)
		}
		return ids
	}
	rootDir := fileTreeStruct{ //creating a fake root directory to display results in
		ID:          "SearchResults",
		Size:        0,
		Name:        "Search Results",
		Openable:    true,
		ModDate:     time.Now().String(),
		IsDir:       true,
		FullPath:    "null",
		ChildrenIDs: childrenIDs(),
	}
	fileTree = append([]fileTreeStruct{rootDir}, fileTree...)
	return &fileTree, nil
}

func fileTree(rootPath string, db database.Repository) (fileTree *fullFileSystem, err error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}
	var fullFileTree fullFileSystem
	var currentFile fileTreeStruct

	walkFunc := func(path string, info os.FileInfo, err error) error {
		newTime := time.Now()
		if err != nil {
			return err
		}
		// Reset currentFile struct for each iteration to avoid data pollution
		currentFile = fileTreeStruct{}
		currentFile.Name = info.Name()
		currentFile.FullPath = path

		for _, fileElement := range fullFileTree.FileSystem { //Find the parentID
			if fileElement.FullPath == filepath.Dir(path) {
				currentFile.ParentID = fileElement.ID
			}
		}

		if info.IsDir() {
			ULID, err := database.CalculateUUID(newTime)
			if err != nil {
				return err
			}
			currentFile.ID = ULID.String() + filepath.Base(path)
			currentFile.IsDir = true
			currentFile.Openable = true
			childIDs, err := getChildrenIDs(path)
			if err != nil {
				return err
			}
			currentFile.ChildrenIDs = *childIDs
		} else { //for files process size, moddate, ulid
			currentFile.Size = info.Size()
			currentFile.Openable = true
			currentFile.IsDir = false
			currentFile.ModDate = info.ModTime().String()

			preview, err := db.GetPreviewByPath(filepath.ToSlash(path))
			if err != nil {
				//artifacts themselves carry no record, only untracked sources are worth flagging
				if isSupportedDocument(path) {
					fullFileTree.Error = fmt.Sprintf("Document found in ingress without preview record, run ingress to process: %s", path)
				}
			} else {
				currentFile.PreviewURL = preview.URL
				currentFile.ID = preview.ULID.String()
				currentFile.ULIDStr = preview.ULID.String()
			}
		}

		fullFileTree.FileSystem = append(fullFileTree.FileSystem, currentFile)
		return nil
	}
	err = filepath.Walk(absRoot, walkFunc)
	if err != nil {
		return nil, err
	}
	return &fullFileTree, nil
}

func getChildrenIDs(rootPath string) (*[]string, error) {
	results, err := os.ReadDir(rootPath)
	if err != nil {
		return nil, err
	}
	var childIDs []string
	for _, result := range results {
		childIDs = append(childIDs, result.Name())
	}
	return &childIDs, nil

}

// GetLatestPreviews gets the latest previews that were generated
// @Summary Get latest previews
// @Description Retrieve the most recently generated previews with pagination
// @Tags Previews
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Success 200 {object} map[string]interface{} "Paginated previews with metadata"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /previews/latest [get]
func (serverHandler *ServerHandler) GetLatestPreviews(context echo.Context) error {
	// Get page parameter (default to 1)
	page := 1
	if pageParam := context.QueryParam("page"); pageParam != "" {
		if p, err := strconv.Atoi(pageParam); err == nil && p > 0 {
			page = p
		}
	}

	// Fixed page size of 20
	pageSize := 20

	// Get paginated previews and total count
	previews, totalCount, err := serverHandler.DB.GetNewestPreviewsWithPagination(page, pageSize)
	if err != nil {
		Logger.Error("Can't find latest previews", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to fetch previews",
		})
	}

	// Calculate pagination metadata
	totalPages := (totalCount + pageSize - 1) / pageSize // Ceiling division

	return context.JSON(http.StatusOK, map[string]interface{}{
		"previews":    previews,
		"page":        page,
		"pageSize":    pageSize,
		"totalCount":  totalCount,
		"totalPages":  totalPages,
		"hasNext":     page < totalPages,
		"hasPrevious": page > 1,
	})
}

// GetFolder fetches all the preview records for sources in the folder
// @Summary Get folder contents
// @Description Retrieve all preview records for documents in a specific folder
// @Tags Folders
// @Accept json
// @Produce json
// @Param folder path string true "Folder name"
// @Success 200 {array} database.Preview "List of previews in folder"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /folder/{folder} [get]
func (serverHandler *ServerHandler) GetFolder(context echo.Context) error {
	folderName := context.Param("folder")

	folderContents, err := database.FetchFolder(folderName, serverHandler.DB)
	if err != nil {
		Logger.Error("API GetFolder call failed", "error", err)
		return err
	}
	return context.JSON(http.StatusOK, folderContents)

}

// CreateFolder creates a folder in the ingress tree
// @Summary Create a new folder
// @Description Create a new folder in the ingress filesystem
// @Tags Folders
// @Accept json
// @Produce json
// @Param folder query string true "Folder name"
// @Param path query string true "Parent path"
// @Success 200 {string} string "Full folder path created"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /folder [post]
func (serverHandler *ServerHandler) CreateFolder(context echo.Context) error {
	params := context.QueryParams()
	folderName := params.Get("folder")
	folderPath := params.Get("path")
	fullFolder := filepath.Join(folderPath, folderName)
	fullFolder = filepath.Join(serverHandler.ServerConfig.IngressPath, fullFolder)
	fullFolder = filepath.Clean(fullFolder)
	Logger.Debug("Creating ingress folder", "fullFolder", fullFolder, "folderName", folderName, "path", folderPath)
	err := os.Mkdir(fullFolder, os.ModePerm)
	if err != nil {
		Logger.Error("Unable to create directory", "error", err)
		return err
	}
	return context.JSON(http.StatusOK, fullFolder)
}

// GetAboutInfo returns information about the application configuration
// @Summary Get application information
// @Description Retrieve information about the converter backends, renderer, version, and database
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {

	// Determine converter status
	sofficeConfigured := serverHandler.ServerConfig.SofficePath != ""

	// Get database type
	dbType := serverHandler.ServerConfig.DatabaseType
	dbHost := serverHandler.ServerConfig.DatabaseHost
	dbPort := serverHandler.ServerConfig.DatabasePort
	dbName := serverHandler.ServerConfig.DatabaseDbname

	aboutInfo := map[string]interface{}{
		"version":           build.Version,
		"sofficeConfigured": sofficeConfigured,
		"sofficePath":       serverHandler.ServerConfig.SofficePath,
		"convertServiceURL": serverHandler.ServerConfig.ConvertServiceURL,
		"renderer":          serverHandler.ServerConfig.Renderer,
		"zoomX":             serverHandler.ServerConfig.ZoomX,
		"zoomY":             serverHandler.ServerConfig.ZoomY,
		"jpegQuality":       serverHandler.ServerConfig.JPEGQuality,
		"databaseType":      dbType,
		"databaseHost":      dbHost,
		"databasePort":      dbPort,
		"databaseName":      dbName,
		"ingressPath":       serverHandler.ServerConfig.IngressPath,
	}

	return c.JSON(http.StatusOK, aboutInfo)
}

// RunIngestNow triggers the ingress process manually
// @Summary Trigger preview ingress
// @Description Manually trigger the ingress process to generate previews for files in the ingress folder
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Job created with job ID"
// @Router /ingest [post]
func (serverHandler *ServerHandler) RunIngestNow(c echo.Context) error {
	Logger.Info("Manual ingress triggered via API")

	// Create a job to track the ingress run
	job, err := serverHandler.DB.CreateJob(database.JobTypeIngress, "Starting preview ingress")
	if err != nil {
		Logger.Error("Failed to create ingress job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create job",
		})
	}

	// Run ingress in a goroutine so we can return immediately
	go func() {
		serverHandler.ingressJobFuncWithTracking(serverHandler.ServerConfig, serverHandler.DB, job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Ingress started",
		"jobId":   job.ID.String(),
	})
}

// CleanDatabase removes preview records whose source and artifacts are both gone,
// deletes orphaned artifact folders, and prunes old finished jobs
// @Summary Clean database
// @Description Remove preview records for vanished documents and delete orphaned artifact folders
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Job created with jobId"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /clean [post]
func (serverHandler *ServerHandler) CleanDatabase(c echo.Context) error {
	Logger.Info("Database cleanup triggered via API")

	// Create a job to track the cleanup
	job, err := serverHandler.DB.CreateJob(database.JobTypeCleanup, "Starting database cleanup")
	if err != nil {
		Logger.Error("Failed to create cleanup job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create cleanup job",
		})
	}

	// Run cleanup in goroutine with job tracking
	go func() {
		serverHandler.cleanupJobFuncWithTracking(serverHandler.DB, job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Database cleanup started",
		"jobId":   job.ID.String(),
	})
}

// findOrphanedArtifacts scans the ingress tree for preview artifact folders that
// have neither a database record nor a source document left to regenerate from
func (serverHandler *ServerHandler) findOrphanedArtifacts(previews []database.Preview) ([]string, error) {
	// Create a map of all composite paths in the database for quick lookup
	dbImages := make(map[string]bool)
	for _, preview := range previews {
		if preview.ImagePath != "" {
			dbImages[filepath.ToSlash(preview.ImagePath)] = true
		}
	}

	var orphanedDirs []string
	ingressPath := serverHandler.ServerConfig.IngressPath

	err := filepath.Walk(ingressPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			Logger.Warn("Error accessing path during orphan scan", "path", path, "error", err)
			return nil // Continue walking
		}

		if !info.IsDir() || path == ingressPath {
			return nil
		}

		// An artifact folder is recognised by the composite it holds
		compositePath := filepath.Join(path, CompositeName)
		if _, err := os.Stat(compositePath); err != nil {
			return nil
		}
		if dbImages[filepath.ToSlash(compositePath)] {
			return nil // tracked
		}
		if sourceForArtifactDir(path) != "" {
			return nil // source still present, the next ingress run re-adopts it
		}

		Logger.Info("Found orphaned preview artifacts", "path", path)
		orphanedDirs = append(orphanedDirs, path)
		return filepath.SkipDir
	})

	if err != nil {
		return nil, err
	}

	return orphanedDirs, nil
}

// sourceForArtifactDir looks for a source document the artifact folder could belong to.
// Artifacts for <dir>/report.docx live in <dir>/report/, so the candidate sources are
// the folder name plus each supported extension.
func sourceForArtifactDir(dir string) string {
	base := filepath.Join(filepath.Dir(dir), filepath.Base(dir))
	for _, ext := range supportedExtensions {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	return ""
}
