package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	config "github.com/drummonds/goPreview/config"
	"github.com/oklog/ulid/v2"
)

// PostgresDB implements Repository for PostgreSQL using database/sql directly
type PostgresDB struct {
	db         *sql.DB
	isEmbedded bool // Refers to ephemeral instances
}

// SetupPostgresDatabase initializes PostgreSQL database with migrations
// If connectionString is empty, it will use ephemeral PostgreSQL
func SetupPostgresDatabase(connectionString string) (*PostgresDB, error) {
	var db *sql.DB
	var isEmbedded bool
	var err error

	if connectionString == "" {
		// Use ephemeral PostgreSQL for development
		Logger.Info("No connection string provided, using ephemeral PostgreSQL...")

		ephemeralDB, err := SetupEphemeralPostgresDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to setup ephemeral postgres: %w", err)
		}

		// Return the PostgresDB part, the ephemeral wrapper will handle cleanup
		return ephemeralDB.PostgresDB, nil
	} else {
		isEmbedded = false
		Logger.Info("Connecting to external PostgreSQL/CockroachDB server...")
	}

	// Open PostgreSQL database
	db, err = sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Logger.Info("Connected to PostgreSQL database successfully")

	// Run migrations
	Logger.Info("Running database migrations...")
	if err := runPostgresMigrations(db); err != nil {
		Logger.Error("Failed to run database migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	Logger.Info("Database migrations completed successfully")

	return &PostgresDB{
		db:         db,
		isEmbedded: isEmbedded,
	}, nil
}

func runPostgresMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Try to find the migrations directory
	// First try from project root
	migrationsPath, err := filepath.Abs("database/migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// If running from within the database directory (during tests), adjust path
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		migrationsPath, err = filepath.Abs("migrations")
		if err != nil {
			return fmt.Errorf("failed to get migrations path: %w", err)
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Check current version and apply migrations
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if dirty {
		// Try to force clean and retry
		Logger.Warn("Database is in dirty state, attempting to recover")
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force migration version: %w", err)
		}
	}

	// Apply latest migrations
	Logger.Info("Applying database migrations")
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	Logger.Info("Database migrations completed successfully")
	return nil
}

// Close closes the database connection
// Ephemeral PostgreSQL cleanup is handled by EphemeralPostgresDB.Close()
func (p *PostgresDB) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return err
		}
	}
	return nil
}

// SavePreview saves or updates a preview, keyed by source path
func (p *PostgresDB) SavePreview(preview *Preview) error {
	query := `
		INSERT INTO previews (name, source_path, ingress_time, folder, hash, ulid, source_type,
			paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT(source_path) DO UPDATE SET
			name = EXCLUDED.name,
			ingress_time = EXCLUDED.ingress_time,
			folder = EXCLUDED.folder,
			hash = EXCLUDED.hash,
			ulid = EXCLUDED.ulid,
			source_type = EXCLUDED.source_type,
			paragraphs = EXCLUDED.paragraphs,
			page_count = EXCLUDED.page_count,
			image_width = EXCLUDED.image_width,
			image_height = EXCLUDED.image_height,
			pdf_path = EXCLUDED.pdf_path,
			image_path = EXCLUDED.image_path,
			data_url_path = EXCLUDED.data_url_path,
			url = EXCLUDED.url,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	err := p.db.QueryRow(query,
		preview.Name, preview.SourcePath, preview.IngressTime, preview.Folder, preview.Hash,
		preview.ULID.String(), preview.SourceType, preview.Paragraphs, preview.PageCount,
		preview.ImageWidth, preview.ImageHeight, preview.PDFPath, preview.ImagePath,
		preview.DataURLPath, preview.URL,
	).Scan(&preview.ID)

	return err
}

// GetPreviewByID retrieves a preview by ID
func (p *PostgresDB) GetPreviewByID(id int) (*Preview, error) {
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews WHERE id = $1`

	return p.queryPreview(query, id)
}

// GetPreviewByULID retrieves a preview by ULID
func (p *PostgresDB) GetPreviewByULID(ulidStr string) (*Preview, error) {
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews WHERE ulid = $1`

	return p.queryPreview(query, ulidStr)
}

// GetPreviewByPath retrieves a preview by the source document path
func (p *PostgresDB) GetPreviewByPath(path string) (*Preview, error) {
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews WHERE source_path = $1`

	return p.queryPreview(query, path)
}

// GetPreviewByHash retrieves a preview by source hash
func (p *PostgresDB) GetPreviewByHash(hash string) (*Preview, error) {
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews WHERE hash = $1`

	preview, err := p.queryPreview(query, hash)
	if err == sql.ErrNoRows {
		return nil, nil // No duplicate found
	}
	return preview, err
}

// queryPreview runs a single-row preview query
func (p *PostgresDB) queryPreview(query string, args ...interface{}) (*Preview, error) {
	preview := &Preview{}
	var ulidStr string

	err := p.db.QueryRow(query, args...).Scan(
		&preview.ID, &preview.Name, &preview.SourcePath, &preview.IngressTime,
		&preview.Folder, &preview.Hash, &ulidStr, &preview.SourceType,
		&preview.Paragraphs, &preview.PageCount, &preview.ImageWidth, &preview.ImageHeight,
		&preview.PDFPath, &preview.ImagePath, &preview.DataURLPath, &preview.URL,
	)

	if err != nil {
		return nil, err
	}

	id, err := ulid.Parse(ulidStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ULID: %w", err)
	}
	preview.ULID = id

	return preview, nil
}

// scanPreviews is a helper function to scan rows into Preview structs
func scanPreviews(rows *sql.Rows) ([]Preview, error) {
	var previews []Preview

	for rows.Next() {
		preview := Preview{}
		var ulidStr string

		err := rows.Scan(
			&preview.ID, &preview.Name, &preview.SourcePath, &preview.IngressTime,
			&preview.Folder, &preview.Hash, &ulidStr, &preview.SourceType,
			&preview.Paragraphs, &preview.PageCount, &preview.ImageWidth, &preview.ImageHeight,
			&preview.PDFPath, &preview.ImagePath, &preview.DataURLPath, &preview.URL,
		)
		if err != nil {
			return nil, err
		}

		id, err := ulid.Parse(ulidStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ULID: %w", err)
		}
		preview.ULID = id

		previews = append(previews, preview)
	}

	return previews, rows.Err()
}

// GetNewestPreviews retrieves the newest previews
func (p *PostgresDB) GetNewestPreviews(limit int) ([]Preview, error) {
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews ORDER BY ingress_time DESC LIMIT $1`

	rows, err := p.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPreviews(rows)
}

// GetNewestPreviewsWithPagination retrieves previews with pagination support
func (p *PostgresDB) GetNewestPreviewsWithPagination(page int, pageSize int) ([]Preview, int, error) {
	// Calculate offset
	offset := (page - 1) * pageSize

	// Get total count
	var totalCount int
	countQuery := `SELECT COUNT(*) FROM previews`
	err := p.db.QueryRow(countQuery).Scan(&totalCount)
	if err != nil {
		return nil, 0, err
	}

	// Get paginated previews
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews ORDER BY ingress_time DESC LIMIT $1 OFFSET $2`

	rows, err := p.db.Query(query, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	previews, err := scanPreviews(rows)
	if err != nil {
		return nil, 0, err
	}

	return previews, totalCount, nil
}

// GetAllPreviews retrieves all previews
func (p *PostgresDB) GetAllPreviews() ([]Preview, error) {
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews ORDER BY id`

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPreviews(rows)
}

// GetPreviewsByFolder retrieves previews for sources in a specific folder
func (p *PostgresDB) GetPreviewsByFolder(folder string) ([]Preview, error) {
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews WHERE folder = $1`

	rows, err := p.db.Query(query, folder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPreviews(rows)
}

// SearchPreviews finds previews whose source name or path matches the search term.
// Preview records carry no extracted text so this is a plain ILIKE match rather
// than full-text search.
func (p *PostgresDB) SearchPreviews(searchTerm string) ([]Preview, error) {
	query := `SELECT id, name, source_path, ingress_time, folder, hash, ulid, source_type,
	                 paragraphs, page_count, image_width, image_height, pdf_path, image_path, data_url_path, url
	          FROM previews
	          WHERE name ILIKE $1 OR source_path ILIKE $1
	          ORDER BY ingress_time DESC`

	searchPattern := "%" + searchTerm + "%"

	rows, err := p.db.Query(query, searchPattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPreviews(rows)
}

// DeletePreview deletes a preview by ULID
func (p *PostgresDB) DeletePreview(ulidStr string) error {
	query := `DELETE FROM previews WHERE ulid = $1`
	_, err := p.db.Exec(query, ulidStr)
	return err
}

// UpdatePreviewURL updates the URL field of a preview
func (p *PostgresDB) UpdatePreviewURL(ulidStr string, url string) error {
	query := `UPDATE previews SET url = $1, updated_at = CURRENT_TIMESTAMP WHERE ulid = $2`
	_, err := p.db.Exec(query, url, ulidStr)
	return err
}

// SaveConfig saves server configuration
func (p *PostgresDB) SaveConfig(cfg *config.ServerConfig) error {
	query := `
		UPDATE server_config SET
			listen_addr_ip = $1,
			listen_addr_port = $2,
			ingress_path = $3,
			ingress_delete = $4,
			ingress_move_folder = $5,
			ingress_preserve = $6,
			ingress_interval = $7,
			soffice_path = $8,
			convert_timeout = $9,
			convert_service_url = $10,
			renderer = $11,
			zoom_x = $12,
			zoom_y = $13,
			jpeg_quality = $14
		WHERE id = 1
	`

	_, err := p.db.Exec(query,
		cfg.ListenAddrIP, cfg.ListenAddrPort, cfg.IngressPath,
		cfg.IngressDelete, cfg.IngressMoveFolder, cfg.IngressPreserve,
		cfg.IngressInterval, cfg.SofficePath, cfg.ConvertTimeout,
		cfg.ConvertServiceURL, cfg.Renderer, cfg.ZoomX, cfg.ZoomY,
		cfg.JPEGQuality,
	)

	return err
}

// GetConfig retrieves server configuration
func (p *PostgresDB) GetConfig() (*config.ServerConfig, error) {
	query := `
		SELECT listen_addr_ip, listen_addr_port, ingress_path, ingress_delete,
		       ingress_move_folder, ingress_preserve, ingress_interval, soffice_path,
		       convert_timeout, convert_service_url, renderer, zoom_x, zoom_y, jpeg_quality
		FROM server_config WHERE id = 1
	`

	cfg := &config.ServerConfig{}
	err := p.db.QueryRow(query).Scan(
		&cfg.ListenAddrIP, &cfg.ListenAddrPort, &cfg.IngressPath,
		&cfg.IngressDelete, &cfg.IngressMoveFolder, &cfg.IngressPreserve,
		&cfg.IngressInterval, &cfg.SofficePath, &cfg.ConvertTimeout,
		&cfg.ConvertServiceURL, &cfg.Renderer, &cfg.ZoomX, &cfg.ZoomY,
		&cfg.JPEGQuality,
	)

	if err != nil {
		return nil, err
	}

	cfg.ID = 1
	return cfg, nil
}
