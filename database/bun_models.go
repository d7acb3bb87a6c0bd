package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunPreview represents the previews table for Bun ORM
type BunPreview struct {
	bun.BaseModel `bun:"table:previews,alias:p"`

	ID          int       `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	SourcePath  string    `bun:"source_path,notnull,unique"`
	Folder      string    `bun:"folder,notnull"`
	Hash        string    `bun:"hash,notnull"`
	ULID        string    `bun:"ulid,notnull,unique"` // Stored as string in DB
	SourceType  string    `bun:"source_type,notnull"`
	Paragraphs  int       `bun:"paragraphs,default:0"`
	PageCount   int       `bun:"page_count,default:0"`
	ImageWidth  int       `bun:"image_width,default:0"`
	ImageHeight int       `bun:"image_height,default:0"`
	PDFPath     string    `bun:"pdf_path,nullzero"`
	ImagePath   string    `bun:"image_path,nullzero"`
	DataURLPath string    `bun:"data_url_path,nullzero"`
	IngressTime time.Time `bun:"ingress_time,notnull,default:current_timestamp"`
	URL         string    `bun:"url,nullzero"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToPreview converts BunPreview to Preview
func (bp *BunPreview) ToPreview() (*Preview, error) {
	parsedULID, err := ulid.Parse(bp.ULID)
	if err != nil {
		return nil, err
	}

	return &Preview{
		ID:          bp.ID,
		Name:        bp.Name,
		SourcePath:  bp.SourcePath,
		Folder:      bp.Folder,
		Hash:        bp.Hash,
		ULID:        parsedULID,
		SourceType:  bp.SourceType,
		Paragraphs:  bp.Paragraphs,
		PageCount:   bp.PageCount,
		ImageWidth:  bp.ImageWidth,
		ImageHeight: bp.ImageHeight,
		PDFPath:     bp.PDFPath,
		ImagePath:   bp.ImagePath,
		DataURLPath: bp.DataURLPath,
		IngressTime: bp.IngressTime,
		URL:         bp.URL,
	}, nil
}

// FromPreview converts Preview to BunPreview
func FromPreview(preview *Preview) *BunPreview {
	return &BunPreview{
		ID:          preview.ID,
		Name:        preview.Name,
		SourcePath:  preview.SourcePath,
		Folder:      preview.Folder,
		Hash:        preview.Hash,
		ULID:        preview.ULID.String(),
		SourceType:  preview.SourceType,
		Paragraphs:  preview.Paragraphs,
		PageCount:   preview.PageCount,
		ImageWidth:  preview.ImageWidth,
		ImageHeight: preview.ImageHeight,
		PDFPath:     preview.PDFPath,
		ImagePath:   preview.ImagePath,
		DataURLPath: preview.DataURLPath,
		IngressTime: preview.IngressTime,
		URL:         preview.URL,
	}
}

// BunServerConfig represents the server_config table for Bun ORM
type BunServerConfig struct {
	bun.BaseModel `bun:"table:server_config,alias:sc"`

	ID                int       `bun:"id,pk"`
	ListenAddrIP      string    `bun:"listen_addr_ip,default:''"`
	ListenAddrPort    string    `bun:"listen_addr_port,notnull,default:'8000'"`
	IngressPath       string    `bun:"ingress_path,notnull,default:''"`
	IngressDelete     bool      `bun:"ingress_delete,notnull,default:false"`
	IngressMoveFolder string    `bun:"ingress_move_folder,notnull,default:''"`
	IngressPreserve   bool      `bun:"ingress_preserve,notnull,default:true"`
	IngressInterval   int       `bun:"ingress_interval,notnull,default:10"`
	SofficePath       string    `bun:"soffice_path,default:''"`
	ConvertTimeout    int       `bun:"convert_timeout,notnull,default:120"`
	ConvertServiceURL string    `bun:"convert_service_url,default:''"`
	Renderer          string    `bun:"renderer,notnull,default:'fitz'"`
	ZoomX             float64   `bun:"zoom_x,notnull,default:2.0"`
	ZoomY             float64   `bun:"zoom_y,notnull,default:2.0"`
	JPEGQuality       int       `bun:"jpeg_quality,notnull,default:95"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// BunStatsMetadata represents the stats_metadata table for Bun ORM
type BunStatsMetadata struct {
	bun.BaseModel `bun:"table:stats_metadata,alias:sm"`

	ID            int        `bun:"id,pk"`
	LastScan      *time.Time `bun:"last_scan,nullzero"`
	ArtifactFiles int        `bun:"artifact_files,notnull,default:0"`
	ArtifactBytes int64      `bun:"artifact_bytes,notnull,default:0"`
	Version       int        `bun:"version,notnull,default:0"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// BunJob represents the jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          string     `bun:"id,pk"` // ULID as string
	Type        string     `bun:"type,notnull"`
	Status      string     `bun:"status,default:'pending'"`
	Progress    int        `bun:"progress,default:0"`
	CurrentStep string     `bun:"current_step,default:''"`
	TotalSteps  int        `bun:"total_steps,default:0"`
	Message     string     `bun:"message,default:''"`
	Error       string     `bun:"error,nullzero"`
	Result      string     `bun:"result,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:          parsedULID,
		Type:        JobType(bj.Type),
		Status:      JobStatus(bj.Status),
		Progress:    bj.Progress,
		CurrentStep: bj.CurrentStep,
		TotalSteps:  bj.TotalSteps,
		Message:     bj.Message,
		Error:       bj.Error,
		Result:      bj.Result,
		CreatedAt:   bj.CreatedAt,
		UpdatedAt:   bj.UpdatedAt,
		StartedAt:   bj.StartedAt,
		CompletedAt: bj.CompletedAt,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		TotalSteps:  job.TotalSteps,
		Message:     job.Message,
		Error:       job.Error,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}
