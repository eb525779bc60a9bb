package vod

import (
	"context"
	"errors"

	"github.com/onnwee/vod-highlights/telemetry"
	"github.com/onnwee/vod-highlights/twitchapi"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultMaxPages is the iterator's own page budget, independent of the
// orchestrator's larger configured ceiling.
const DefaultMaxPages = 10000

// ErrCancelled is the distinguished cancellation signal. It carries no data;
// the orchestrator treats it as a soft budget event rather than a failure.
var ErrCancelled = errors.New("analysis cancelled")

// BatchFunc consumes one page's edges. Returning ErrCancelled stops the
// iterator immediately without fetching further pages.
type BatchFunc func(edges []twitchapi.CommentEdge) error

// IteratorOptions configures IterateChat. Zero values fall back to defaults.
type IteratorOptions struct {
	MaxPages           int
	StartOffsetSeconds int
}

// IteratorResult reports how far ingestion got.
type IteratorResult struct {
	PagesProcessed    int
	LastOffsetSeconds int
}

// IterateChat walks the comment feed for videoID from opts.StartOffsetSeconds,
// handing each non-empty page to onBatch synchronously before fetching the
// next. It stops when the feed reports no further page, a page comes back
// empty, the page budget is exhausted, or onBatch returns an error (in which
// case that error, including ErrCancelled, propagates to the caller
// unchanged).
func IterateChat(ctx context.Context, feed *twitchapi.CommentFeedClient, videoID string, onBatch BatchFunc, opts IteratorOptions) (IteratorResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "vod", "chat-iterator", attribute.String("video_id", videoID))
	defer span.End()

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	result := IteratorResult{LastOffsetSeconds: opts.StartOffsetSeconds}
	cursor := ""
	offset := opts.StartOffsetSeconds

	for result.PagesProcessed < maxPages {
		page, err := feed.FetchCommentPage(ctx, videoID, cursor, offset)
		if err != nil {
			span.SetAttributes(attribute.Int("pages_processed", result.PagesProcessed))
			telemetry.RecordError(span, err)
			return result, err
		}
		result.PagesProcessed++

		if len(page.Edges) == 0 {
			break
		}
		result.LastOffsetSeconds = page.Edges[len(page.Edges)-1].ContentOffsetSeconds

		if err := onBatch(page.Edges); err != nil {
			span.SetAttributes(attribute.Int("pages_processed", result.PagesProcessed))
			if !errors.Is(err, ErrCancelled) {
				telemetry.RecordError(span, err)
			}
			return result, err
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	span.SetAttributes(attribute.Int("pages_processed", result.PagesProcessed))
	telemetry.SetSpanSuccess(span)
	return result, nil
}
