package db

import (
	"context"
	"database/sql"
)

// ScanLedger persists the "scans performed" counter named as an existing
// collaborator in the analysis pipeline: a minimal Postgres-backed binding
// rather than a full feature, since the pipeline itself never reads it back.
type ScanLedger struct {
	DB *sql.DB
}

// RecordScan increments the scan counter for a video id, inserting a fresh
// row on first scan.
func (l *ScanLedger) RecordScan(ctx context.Context, videoID string) error {
	_, err := l.DB.ExecContext(ctx, `
		INSERT INTO scan_counts(video_id, scan_count, last_scanned_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT(video_id) DO UPDATE SET
			scan_count = scan_counts.scan_count + 1,
			last_scanned_at = NOW()
	`, videoID)
	return err
}

// ScanCount returns how many times a video id has been analyzed. Returns 0
// for a video id that has never been scanned.
func (l *ScanLedger) ScanCount(ctx context.Context, videoID string) (int, error) {
	var count int
	err := l.DB.QueryRowContext(ctx, `SELECT scan_count FROM scan_counts WHERE video_id = $1`, videoID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

// TotalScans sums the scan counter across every video id, used by the
// admin monitor endpoint.
func (l *ScanLedger) TotalScans(ctx context.Context) (int, error) {
	var total sql.NullInt64
	err := l.DB.QueryRowContext(ctx, `SELECT SUM(scan_count) FROM scan_counts`).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
