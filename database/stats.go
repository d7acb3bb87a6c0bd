package database

import (
	"database/sql"
	"fmt"
	"time"
)

// TypeStat aggregates preview counts for one source type
type TypeStat struct {
	SourceType string `json:"sourceType"`
	Count      int    `json:"count"`
	Pages      int    `json:"pages"`
}

// PreviewSummary holds whole-table totals for the previews table
type PreviewSummary struct {
	TotalPreviews int       `json:"totalPreviews"`
	TotalPages    int       `json:"totalPages"`
	OldestIngress time.Time `json:"oldestIngress"`
	NewestIngress time.Time `json:"newestIngress"`
}

// ArtifactUsage reports the disk footprint of generated preview artifacts.
// The totals come from the last filesystem scan, not a live walk.
type ArtifactUsage struct {
	Files    int       `json:"files"`
	Bytes    int64     `json:"bytes"`
	LastScan time.Time `json:"lastScan"`
	Version  int       `json:"version"`
}

// GetTypeStats aggregates preview counts and page totals per source type
func (p *PostgresDB) GetTypeStats() ([]TypeStat, error) {
	query := `
		SELECT source_type, COUNT(*), COALESCE(SUM(page_count), 0)
		FROM previews
		GROUP BY source_type
		ORDER BY COUNT(*) DESC, source_type ASC
	`

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query type stats: %w", err)
	}
	defer rows.Close()

	// Initialize as empty slice so JSON marshals to [] instead of null
	stats := make([]TypeStat, 0)
	for rows.Next() {
		var ts TypeStat
		err := rows.Scan(&ts.SourceType, &ts.Count, &ts.Pages)
		if err != nil {
			return nil, fmt.Errorf("failed to scan type stat: %w", err)
		}
		stats = append(stats, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return stats, nil
}

// GetPreviewSummary returns totals across every preview record
func (p *PostgresDB) GetPreviewSummary() (*PreviewSummary, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(page_count), 0),
		       MIN(ingress_time), MAX(ingress_time)
		FROM previews
	`

	var summary PreviewSummary
	var oldest, newest sql.NullTime

	err := p.db.QueryRow(query).Scan(
		&summary.TotalPreviews,
		&summary.TotalPages,
		&oldest,
		&newest,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get preview summary: %w", err)
	}

	// MIN/MAX are NULL on an empty table
	if oldest.Valid {
		summary.OldestIngress = oldest.Time
	}
	if newest.Valid {
		summary.NewestIngress = newest.Time
	}

	return &summary, nil
}

// GetArtifactUsage retrieves the stored artifact disk usage totals
func (p *PostgresDB) GetArtifactUsage() (*ArtifactUsage, error) {
	query := `
		SELECT artifact_files, artifact_bytes, last_scan, version
		FROM stats_metadata
		WHERE id = 1
	`

	var usage ArtifactUsage
	var lastScan sql.NullTime

	err := p.db.QueryRow(query).Scan(
		&usage.Files,
		&usage.Bytes,
		&lastScan,
		&usage.Version,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get artifact usage: %w", err)
	}

	if lastScan.Valid {
		usage.LastScan = lastScan.Time
	}

	return &usage, nil
}

// UpdateArtifactUsage stores the result of an artifact disk scan
func (p *PostgresDB) UpdateArtifactUsage(files int, totalBytes int64) error {
	query := `
		UPDATE stats_metadata SET
			artifact_files = $1,
			artifact_bytes = $2,
			last_scan = CURRENT_TIMESTAMP,
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`

	_, err := p.db.Exec(query, files, totalBytes)
	if err != nil {
		return fmt.Errorf("failed to update artifact usage: %w", err)
	}

	return nil
}
