package vod

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/onnwee/vod-highlights/chat"
	"github.com/onnwee/vod-highlights/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// PeakOptions configures the peak detector. Zero values fall back to the
// documented defaults.
type PeakOptions struct {
	WindowSec       int
	ClipDurationSec int
	MinGapSec       int
	ThresholdFactor float64
	MaxHighlights   int
}

const (
	defaultClipDurationSec = 30
	defaultMinGapSec       = 45
	defaultThresholdFactor = 1.0
	reactionDelaySec       = 20
	burstWindowSec         = 5
	burstMinTimestamps     = 10
	burstMinMsgsPerSec     = 5.0
	spamMinSamples         = 3
	spamFreqRatio          = 0.6
	spamMinFreq            = 3
)

func (o PeakOptions) withDefaults() PeakOptions {
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
	return o
}

// Moment is a selected time range surfaced as a highlight candidate.
type Moment struct {
	StartSec       int           `json:"startSec"`
	EndSec         int           `json:"endSec"`
	Score          float64       `json:"score"`
	MessagesPerSec float64       `json:"messagesPerSec"`
	MessageCount   int           `json:"messageCount"`
	Tag            chat.Category `json:"tag"`
	CategoryScores chat.Scores   `json:"categoryScores"`
	BurstScore     float64       `json:"burstScore"`
	SampleMessages []string      `json:"sampleMessages"`
}

// mergedBucket is the virtual combination of a bucket with its immediate
// chronological successor, built fresh per composite computation and never
// written back into the accumulator's own bucket map.
type mergedBucket struct {
	messageCount      int
	reactionScore     float64
	emoteCount        int
	categoryScores    chat.Scores
	messageTimestamps []int
	sampleMessages    []string
}

func mergeBuckets(cur, next *chat.Bucket) mergedBucket {
	m := mergedBucket{
		messageCount:      cur.MessageCount,
		reactionScore:     cur.ReactionScore,
		emoteCount:        cur.EmoteCount,
		categoryScores:    cur.CategoryScores,
		messageTimestamps: append([]int(nil), cur.MessageTimestamps...),
		sampleMessages:    append([]string(nil), cur.SampleMessages...),
	}
	if next == nil {
		return m
	}
	m.messageCount += next.MessageCount
	m.reactionScore += next.ReactionScore
	m.emoteCount += next.EmoteCount
	m.categoryScores = chat.Add(m.categoryScores, next.CategoryScores)
	m.messageTimestamps = append(m.messageTimestamps, next.MessageTimestamps...)
	for _, s := range next.SampleMessages {
		if len(m.sampleMessages) >= 10 {
			break
		}
		m.sampleMessages = append(m.sampleMessages, s)
	}
	return m
}

// burstScore measures an intra-bucket density spike via a 5-second sliding
// window over sorted timestamps.
func burstScore(timestamps []int) float64 {
	if len(timestamps) < burstMinTimestamps {
		return 0
	}
	sorted := append([]int(nil), timestamps...)
	sort.Ints(sorted)

	maxCount := 0
	left := 0
	for right := 0; right < len(sorted); right++ {
		for sorted[right]-sorted[left] >= burstWindowSec {
			left++
		}
		count := right - left + 1
		if count > maxCount {
			maxCount = count
		}
	}

	msgsPerSec := float64(maxCount) / float64(burstWindowSec)
	if msgsPerSec < burstMinMsgsPerSec {
		return 0
	}
	return math.Round(msgsPerSec*(msgsPerSec/burstWindowSec)*10) / 10
}

// normalizeSample lowercases and trims a sample message for frequency
// comparison.
func normalizeSample(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// spamScore estimates repetition within a bucket's bounded sample window.
// It is deliberately biased toward scoring messages only, per the sample
// bank the accumulator retains; see computeComposites for how the result is
// used.
func spamScore(samples []string) float64 {
	if len(samples) < spamMinSamples {
		return 0
	}
	freq := make(map[string]int, len(samples))
	for _, s := range samples {
		freq[normalizeSample(s)]++
	}
	maxFreq := 0
	for _, n := range freq {
		if n > maxFreq {
			maxFreq = n
		}
	}
	if float64(maxFreq)/float64(len(samples)) >= spamFreqRatio && maxFreq >= spamMinFreq {
		return float64(maxFreq) * 3
	}
	return 0
}

// diversityBonus rewards a varied sample set and penalizes repetitive chatter.
func diversityBonus(samples []string) float64 {
	if len(samples) < 2 {
		return 1.0
	}
	distinct := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		distinct[normalizeSample(s)] = struct{}{}
	}
	uniqueRatio := float64(len(distinct)) / float64(len(samples))
	return 0.5 + uniqueRatio*0.5
}

// velocityMultiplier compares the current bucket's activity to a rolling
// average of up to the two preceding buckets.
func velocityMultiplier(buckets []*chat.Bucket, i int) float64 {
	if i == 0 {
		return 1.0
	}
	start := i - 2
	if start < 0 {
		start = 0
	}
	prev := buckets[start:i]
	sum := 0
	for _, b := range prev {
		sum += b.MessageCount
	}
	prevAvg := float64(sum) / float64(len(prev))

	if prevAvg < 1 {
		if buckets[i].MessageCount > 5 {
			return 2.0
		}
		return 1.0
	}

	ratio := float64(buckets[i].MessageCount) / prevAvg
	switch {
	case ratio >= 4:
		return 2.5
	case ratio >= 3:
		return 2.0
	case ratio >= 2:
		return 1.5
	case ratio >= 1.5:
		return 1.2
	default:
		return 1.0
	}
}

// windowComposite is the per-bucket intermediate result carried from phase 1
// into phase 2/3.
type windowComposite struct {
	bucketKey int
	merged    mergedBucket
	burst     float64
	spam      float64
	score     float64
}

func computeComposites(buckets []*chat.Bucket) []windowComposite {
	out := make([]windowComposite, len(buckets))
	for i, b := range buckets {
		var next *chat.Bucket
		if i+1 < len(buckets) {
			next = buckets[i+1]
		}
		merged := mergeBuckets(b, next)

		burst := burstScore(merged.messageTimestamps)
		spam := spamScore(merged.sampleMessages)
		if spam > 0 {
			slog.Debug("bucket spam score computed but not folded into composite",
				slog.Int("bucket_start", b.StartSec), slog.Float64("spam_score", spam))
		}

		velocity := velocityMultiplier(buckets, i)
		diversity := diversityBonus(merged.sampleMessages)

		raw := float64(merged.messageCount) + merged.reactionScore*3 + float64(merged.emoteCount)*2 + burst*0.5
		score := raw * velocity * diversity

		out[i] = windowComposite{
			bucketKey: b.StartSec,
			merged:    merged,
			burst:     burst,
			spam:      spam,
			score:     score,
		}
	}
	return out
}

// adaptiveThreshold returns the mean and population-stddev across composite
// scores, and the resulting threshold.
func adaptiveThreshold(composites []windowComposite, thresholdFactor float64) (mean, stddev, threshold float64) {
	if len(composites) == 0 {
		return 0, 0, 0
	}
	var sum float64
	for _, c := range composites {
		sum += c.score
	}
	mean = sum / float64(len(composites))

	var variance float64
	for _, c := range composites {
		d := c.score - mean
		variance += d * d
	}
	variance /= float64(len(composites))
	stddev = math.Sqrt(variance)

	threshold = mean + thresholdFactor*stddev
	return mean, stddev, threshold
}

func dominantTag(scores chat.Scores) chat.Category {
	return scores.Dominant()
}

// filterSurvivors keeps only composites at or above the adaptive threshold.
func filterSurvivors(composites []windowComposite, threshold float64) []windowComposite {
	survivors := make([]windowComposite, 0, len(composites))
	for _, c := range composites {
		if c.score >= threshold {
			survivors = append(survivors, c)
		}
	}
	return survivors
}

// selectNonOverlapping runs the greedy, score-descending selection phase:
// each candidate's padded interval must clear every already-selected
// interval, and selection stops once maxHighlights candidates are chosen
// (0 = unlimited). The result is re-sorted chronologically by StartSec.
func selectNonOverlapping(survivors []windowComposite, opts PeakOptions) []Moment {
	ordered := append([]windowComposite(nil), survivors...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].score > ordered[j].score })

	type selected struct {
		startSec, endSec int
		moment           Moment
	}
	var chosen []selected

	for _, c := range ordered {
		if opts.MaxHighlights > 0 && len(chosen) >= opts.MaxHighlights {
			break
		}
		start := c.bucketKey - reactionDelaySec
		if start < 0 {
			start = 0
		}
		end := start + opts.ClipDurationSec

		overlaps := false
		for _, s := range chosen {
			if start < s.endSec+opts.MinGapSec && end > s.startSec-opts.MinGapSec {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		messagesPerSec := math.Round(float64(c.merged.messageCount)/float64(opts.WindowSec)*10) / 10
		moment := Moment{
			StartSec:       start,
			EndSec:         end,
			Score:          c.score,
			MessagesPerSec: messagesPerSec,
			MessageCount:   c.merged.messageCount,
			Tag:            dominantTag(c.merged.categoryScores),
			CategoryScores: c.merged.categoryScores,
			BurstScore:     c.burst,
			SampleMessages: c.merged.sampleMessages,
		}
		chosen = append(chosen, selected{startSec: start, endSec: end, moment: moment})
	}

	sort.Slice(chosen, func(i, j int) bool { return chosen[i].startSec < chosen[j].startSec })

	moments := make([]Moment, len(chosen))
	for i, s := range chosen {
		moments[i] = s.moment
	}
	return moments
}

// DetectPeaks runs all three phases of peak detection over the accumulator's
// buckets and returns the selected, chronologically sorted moments.
func DetectPeaks(ctx context.Context, buckets []*chat.Bucket, opts PeakOptions) []Moment {
	_, span := telemetry.StartSpan(ctx, "vod", "peak-detector", attribute.Int("buckets", len(buckets)))
	defer span.End()

	opts = opts.withDefaults()
	if len(buckets) == 0 {
		telemetry.SetSpanSuccess(span)
		return nil
	}

	composites := computeComposites(buckets)
	_, _, threshold := adaptiveThreshold(composites, opts.ThresholdFactor)
	survivors := filterSurvivors(composites, threshold)
	moments := selectNonOverlapping(survivors, opts)

	span.SetAttributes(attribute.Int("moments_selected", len(moments)))
	telemetry.SetSpanSuccess(span)
	return moments
}
