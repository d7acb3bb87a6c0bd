package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"crypto/md5"

	"github.com/drummonds/goPreview/config"
	"github.com/oklog/ulid/v2"
)

// Preview is all of the information stored about one generated document preview
type Preview struct {
	ID          int
	Name        string // source file name
	SourcePath  string // full path to the source document
	Folder      string // directory containing the source document
	Hash        string // md5 of the source, used for duplicate detection
	ULID        ulid.ULID
	SourceType  string // extension of the source (.docx, .odt, ...)
	Paragraphs  int    // DOCX paragraph count, 0 when unknown
	PageCount   int
	ImageWidth  int
	ImageHeight int
	PDFPath     string // intermediate rendered document
	ImagePath   string // stacked composite JPEG
	DataURLPath string // text file holding the base64 data URL
	IngressTime time.Time
	URL         string // route serving the composite image
}

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Repository defines database operations
type Repository interface {
	Close() error
	SavePreview(preview *Preview) error
	GetPreviewByID(id int) (*Preview, error)
	GetPreviewByULID(ulid string) (*Preview, error)
	GetPreviewByPath(path string) (*Preview, error)
	GetPreviewByHash(hash string) (*Preview, error)
	GetNewestPreviews(limit int) ([]Preview, error)
	GetNewestPreviewsWithPagination(page int, pageSize int) ([]Preview, int, error)
	GetAllPreviews() ([]Preview, error)
	GetPreviewsByFolder(folder string) ([]Preview, error)
	SearchPreviews(searchTerm string) ([]Preview, error)
	DeletePreview(ulid string) error
	UpdatePreviewURL(ulid string, url string) error
	SaveConfig(config *config.ServerConfig) error
	GetConfig() (*config.ServerConfig, error)
	// Job tracking methods
	CreateJob(jobType JobType, message string) (*Job, error)
	UpdateJobProgress(jobID ulid.ULID, progress int, currentStep string) error
	UpdateJobStatus(jobID ulid.ULID, status JobStatus, message string) error
	UpdateJobError(jobID ulid.ULID, errorMsg string) error
	CompleteJob(jobID ulid.ULID, result string) error
	GetJob(jobID ulid.ULID) (*Job, error)
	GetRecentJobs(limit, offset int) ([]Job, error)
	GetActiveJobs() ([]Job, error)
	DeleteOldJobs(olderThan time.Duration) (int, error)
	// Statistics methods
	GetTypeStats() ([]TypeStat, error)
	GetPreviewSummary() (*PreviewSummary, error)
	GetArtifactUsage() (*ArtifactUsage, error)
	UpdateArtifactUsage(files int, totalBytes int64) error
}

// FetchConfigFromDB pulls the server config from the database
func FetchConfigFromDB(db Repository) (config.ServerConfig, error) {
	serverConfig, err := db.GetConfig()
	if err != nil {
		Logger.Error("Unable to fetch server config from db", "error", err)
		return config.ServerConfig{}, err
	}
	return *serverConfig, nil
}

// WriteConfigToDB writes the serverconfig to the database for later retrieval
func WriteConfigToDB(serverConfig config.ServerConfig, db Repository) {
	serverConfig.ID = 1 // config is a single row
	err := db.SaveConfig(&serverConfig)
	if err != nil {
		Logger.Error("Unable to write server config to database", "error", err)
	}
}

// FetchNewestPreviews fetches the previews that were generated last
func FetchNewestPreviews(numberOf int, db Repository) ([]Preview, error) {
	newestPreviews, err := db.GetNewestPreviews(numberOf)
	if err != nil {
		Logger.Error("Unable to find the latest previews", "error", err)
		return newestPreviews, err
	}
	return newestPreviews, nil
}

// FetchPreview fetches the requested preview by ULID
func FetchPreview(previewULIDSt string, db Repository) (Preview, int, error) {
	foundPreview, err := db.GetPreviewByULID(previewULIDSt)
	if err != nil {
		if err == sql.ErrNoRows {
			Logger.Error("Unable to find the requested preview", "ulid", previewULIDSt, "error", err)
			return Preview{}, http.StatusNotFound, err
		}
		Logger.Error("Database error fetching preview", "error", err)
		return Preview{}, http.StatusInternalServerError, err
	}
	return *foundPreview, http.StatusOK, nil
}

// FetchPreviewFromPath fetches the preview record for a source document path
func FetchPreviewFromPath(path string, db Repository) (Preview, error) {
	path = filepath.ToSlash(path) // converting to slash before search
	foundPreview, err := db.GetPreviewByPath(path)
	if err != nil {
		Logger.Error("Unable to find the requested preview from path", "path", path, "error", err)
		return Preview{}, err
	}
	return *foundPreview, nil
}

// FetchFolder grabs all of the preview records for sources in a folder
func FetchFolder(folderName string, db Repository) ([]Preview, error) {
	folderContents, err := db.GetPreviewsByFolder(folderName)
	if err != nil {
		Logger.Error("Unable to find the requested folder", "error", err)
		return folderContents, err
	}
	return folderContents, nil
}

// DeletePreview removes the requested preview record by ULID
func DeletePreview(previewULIDSt string, db Repository) error {
	err := db.DeletePreview(previewULIDSt)
	if err != nil {
		Logger.Error("Unable to delete requested preview", "error", err)
		return err
	}
	return nil
}

// UpdatePreviewField updates a single field in a preview record
func UpdatePreviewField(previewULIDSt string, field string, newValue interface{}, db Repository) (int, error) {
	var err error

	switch field {
	case "URL":
		if url, ok := newValue.(string); ok {
			err = db.UpdatePreviewURL(previewULIDSt, url)
		} else {
			return http.StatusBadRequest, errors.New("URL value must be a string")
		}
	default:
		return http.StatusBadRequest, errors.New("unsupported field update: " + field)
	}

	if err != nil {
		Logger.Error("Unable to update preview in db", "ulid", previewULIDSt, "field", field, "error", err)
		return http.StatusNotFound, err
	}
	return http.StatusOK, nil
}

// CalculateHash computes the md5 hash of a file on disk
func CalculateHash(fileName string) (string, error) {
	var fileHash string
	file, err := os.Open(fileName)
	if err != nil {
		return fileHash, err
	}
	defer file.Close()
	hash := md5.New()
	_, err = io.Copy(hash, file)
	if err != nil {
		return fileHash, err
	}
	fileHash = fmt.Sprintf("%x", hash.Sum(nil))
	return fileHash, nil
}

// CalculateUUID mints a ULID for the incoming file
func CalculateUUID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
