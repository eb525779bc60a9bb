package vod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/onnwee/vod-highlights/chat"
	"github.com/onnwee/vod-highlights/telemetry"
	"github.com/onnwee/vod-highlights/twitchapi"
)

// videoIDInURL matches the ".../videos/<digits>" path shape named in the
// video-identifier extraction contract.
var videoIDInURL = regexp.MustCompile(`videos/(\d+)`)

// bareVideoID accepts a plain numeric id, for callers that already resolved
// one rather than holding a full URL.
var bareVideoID = regexp.MustCompile(`^\d+$`)

// ExtractVideoID pulls a Twitch video id out of a URL (or accepts a bare
// numeric id directly). Anything else is rejected with a descriptive error.
func ExtractVideoID(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("video identifier is empty")
	}
	if m := videoIDInURL.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if bareVideoID.MatchString(input) {
		return input, nil
	}
	return "", fmt.Errorf("could not extract a video id from %q", input)
}

// Options configures one analysis run. Zero values fall back to the
// documented defaults.
type Options struct {
	WindowSec         int
	ClipDurationSec   int
	MinGapSec         int
	ThresholdFactor   float64
	MaxHighlights     int
	MaxPages          int
	AnalysisTimeoutMs int
}

const defaultMaxPages = 15000
const defaultAnalysisTimeoutMs = 180000

func (o Options) withDefaults() Options {
	if o.WindowSec <= 0 {
		o.WindowSec = chat.DefaultWindowSeconds
	}
	if o.ClipDurationSec <= 0 {
		o.ClipDurationSec = defaultClipDurationSec
	}
	if o.MinGapSec <= 0 {
		o.MinGapSec = defaultMinGapSec
	}
	if o.ThresholdFactor <= 0 {
		o.ThresholdFactor = defaultThresholdFactor
	}
	if o.MaxPages <= 0 {
		o.MaxPages = defaultMaxPages
	}
	if o.AnalysisTimeoutMs <= 0 {
		o.AnalysisTimeoutMs = defaultAnalysisTimeoutMs
	}
	return o
}

func (o Options) analysisTimeout() time.Duration {
	return time.Duration(o.AnalysisTimeoutMs) * time.Millisecond
}

// TimelinePoint is one (bucketStart, messageCount) sample in the response's
// plotting-friendly timeline.
type TimelinePoint struct {
	Sec   int `json:"sec"`
	Count int `json:"count"`
}

// Response is the orchestrator's assembled analysis result.
type Response struct {
	VideoID         string          `json:"videoId"`
	TotalMessages   int             `json:"totalMessages"`
	BucketsAnalyzed int             `json:"bucketsAnalyzed"`
	Moments         []Moment        `json:"moments"`
	Timeline        []TimelinePoint `json:"timeline"`
}

// Orchestrator drives a single video's analysis: validates the input,
// paginates the comment feed through the accumulator, and runs peak
// detection once ingestion completes or the wall-clock budget is spent.
type Orchestrator struct {
	Feed  *twitchapi.CommentFeedClient
	Helix *twitchapi.HelixClient // optional; used only to validate a video id exists before ingesting
	Scans ScanCounter            // optional; recorded after a successful analysis
}

// Analyze runs the full pipeline for rawInput (a VOD URL or bare video id)
// and returns the assembled response, or an *AnalysisError describing why it
// could not.
func (o *Orchestrator) Analyze(ctx context.Context, rawInput string, opts Options) (resp *Response, err error) {
	opts = opts.withDefaults()

	telemetry.IncAnalysesStarted()
	start := time.Now()
	defer func() {
		telemetry.ObserveAnalysisDuration(time.Since(start))
		if err != nil {
			telemetry.IncAnalysesFailed()
			return
		}
		telemetry.IncAnalysesSucceeded()
		telemetry.AddMessagesIngested(resp.TotalMessages)
		telemetry.AddHighlightsDetected(len(resp.Moments))
	}()

	videoID, err := ExtractVideoID(rawInput)
	if err != nil {
		return nil, newAnalysisErrorf(StatusInvalidInput, "%v", err)
	}

	if o.Helix != nil {
		if _, err := o.Helix.GetVideo(ctx, videoID); err != nil {
			if twitchapi.ClassifyFetchError(err) == twitchapi.FetchFatal {
				return nil, newAnalysisErrorf(StatusInvalidInput, "video %s not found: %v", videoID, err)
			}
			return nil, newAnalysisErrorf(StatusUpstreamUnavailable, "could not verify video %s: %v", videoID, err)
		}
	}

	accumulator := chat.NewAccumulator(opts.WindowSec)
	deadline := time.Now().Add(opts.analysisTimeout())

	onBatch := func(edges []twitchapi.CommentEdge) error {
		for _, e := range edges {
			accumulator.AddMessage(chat.Message{
				OffsetSeconds: e.ContentOffsetSeconds,
				Author:        e.CommenterDisplayName,
				Fragments:     convertFragments(e.Fragments),
			})
		}
		if time.Now().After(deadline) {
			return ErrCancelled
		}
		return nil
	}

	iterResult, iterErr := IterateChat(ctx, o.Feed, videoID, onBatch, IteratorOptions{MaxPages: opts.MaxPages})
	if iterErr != nil && !errors.Is(iterErr, ErrCancelled) {
		return nil, newAnalysisErrorf(StatusUpstreamUnavailable, "fetching chat for video %s: %v", videoID, iterErr)
	}
	if errors.Is(iterErr, ErrCancelled) {
		slog.Info("analysis hit wall-clock budget, returning partial result",
			slog.String("video_id", videoID), slog.Int("pages_processed", iterResult.PagesProcessed))
	}

	buckets := accumulator.GetBuckets()
	if len(buckets) == 0 {
		return nil, newAnalysisErrorf(StatusNoData, "no chat messages found for video %s", videoID)
	}

	moments := DetectPeaks(ctx, buckets, PeakOptions{
		WindowSec:       opts.WindowSec,
		ClipDurationSec: opts.ClipDurationSec,
		MinGapSec:       opts.MinGapSec,
		ThresholdFactor: opts.ThresholdFactor,
		MaxHighlights:   opts.MaxHighlights,
	})

	// buckets is already chronological (chat.Accumulator.GetBuckets sorts by
	// StartSec), so the timeline inherits that order for free.
	totalMessages := 0
	timeline := make([]TimelinePoint, 0, len(buckets))
	for _, b := range buckets {
		totalMessages += b.MessageCount
		timeline = append(timeline, TimelinePoint{Sec: b.StartSec, Count: b.MessageCount})
	}

	if o.Scans != nil {
		if err := o.Scans.RecordScan(ctx, videoID); err != nil {
			slog.Warn("failed to record scan", slog.String("video_id", videoID), slog.Any("err", err))
		}
	}

	return &Response{
		VideoID:         videoID,
		TotalMessages:   totalMessages,
		BucketsAnalyzed: len(buckets),
		Moments:         moments,
		Timeline:        timeline,
	}, nil
}

func convertFragments(in []twitchapi.CommentFragment) []chat.Fragment {
	out := make([]chat.Fragment, len(in))
	for i, f := range in {
		if f.IsEmote {
			out[i] = chat.EmoteFragment(f.EmoteName)
			continue
		}
		out[i] = chat.TextFragment(f.Text)
	}
	return out
}
