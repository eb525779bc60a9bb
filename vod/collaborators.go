package vod

import "context"

// ScanCounter is the out-of-scope "scans performed" business logic, modeled
// only as an interface the orchestrator depends on. db.ScanLedger is the
// concrete Postgres-backed binding.
type ScanCounter interface {
	RecordScan(ctx context.Context, videoID string) error
}

// ClipCutter is the out-of-scope clip-cutting pipeline (transcoder
// invocation, aspect-ratio filters, output streaming). Nothing in this
// package implements it; it exists so a future caller can wire a concrete
// cutter against the moments Analyze returns without this package importing
// a media-processing dependency it has no use for yet.
type ClipCutter interface {
	CutClip(ctx context.Context, videoID string, m Moment) (clipURL string, err error)
}
