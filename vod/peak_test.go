package vod

import (
	"context"
	"testing"

	"github.com/onnwee/vod-highlights/chat"
)

func evenlySpread(start, count, spanSec int) []int {
	out := make([]int, count)
	for i := 0; i < count; i++ {
		out[i] = start + (i*spanSec)/count
	}
	return out
}

func spike(start, count, spikeSec int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = start + (i % spikeSec)
	}
	return out
}

func TestBurstScore_TooFewTimestamps(t *testing.T) {
	if got := burstScore([]int{1, 2, 3}); got != 0 {
		t.Errorf("burstScore() = %v, want 0", got)
	}
}

func TestBurstScore_EvenSpreadStaysBelowThreshold(t *testing.T) {
	ts := evenlySpread(0, 60, 30)
	if got := burstScore(ts); got != 0 {
		t.Errorf("burstScore(even spread) = %v, want 0", got)
	}
}

// A 3-second spike of the same message volume scores a strictly higher
// burst than an even spread across the whole window.
func TestBurstScore_SpikeExceedsEvenSpread(t *testing.T) {
	evenTS := evenlySpread(0, 60, 30)
	spikeTS := spike(10, 60, 3)

	burstEven := burstScore(evenTS)
	burstSpike := burstScore(spikeTS)

	if burstSpike <= burstEven {
		t.Fatalf("burstSpike = %v, burstEven = %v; want spike strictly greater", burstSpike, burstEven)
	}
	if burstEven != 0 {
		t.Errorf("burstEven = %v, want 0 (density stays below 5 msgs/sec)", burstEven)
	}
	if burstSpike <= 0 {
		t.Errorf("burstSpike = %v, want > 0", burstSpike)
	}
}

func TestSpamScore_BelowMinSamples(t *testing.T) {
	if got := spamScore([]string{"a", "b"}); got != 0 {
		t.Errorf("spamScore() = %v, want 0", got)
	}
}

func TestSpamScore_HighRepetitionScores(t *testing.T) {
	samples := []string{"gg", "gg", "gg", "gg", "lol"}
	if got := spamScore(samples); got != 12 {
		t.Errorf("spamScore() = %v, want 12", got)
	}
}

func TestSpamScore_LowRepetitionStaysZero(t *testing.T) {
	samples := []string{"gg", "wow", "lol", "nice", "omg"}
	if got := spamScore(samples); got != 0 {
		t.Errorf("spamScore() = %v, want 0", got)
	}
}

func TestDiversityBonus_Range(t *testing.T) {
	allSame := diversityBonus([]string{"gg", "gg", "gg", "gg"})
	if allSame != 0.625 {
		t.Errorf("diversityBonus(all same) = %v, want 0.625", allSame)
	}
	allUnique := diversityBonus([]string{"a", "b", "c", "d"})
	if allUnique != 1.0 {
		t.Errorf("diversityBonus(all unique) = %v, want 1.0", allUnique)
	}
	tooFew := diversityBonus([]string{"a"})
	if tooFew != 1.0 {
		t.Errorf("diversityBonus(<2 samples) = %v, want 1.0", tooFew)
	}
}

func TestVelocityMultiplier_FirstBucketIsBaseline(t *testing.T) {
	buckets := []*chat.Bucket{{StartSec: 0, MessageCount: 500}}
	if got := velocityMultiplier(buckets, 0); got != 1.0 {
		t.Errorf("velocityMultiplier(i=0) = %v, want 1.0", got)
	}
}

func TestVelocityMultiplier_StepFunction(t *testing.T) {
	tests := []struct {
		prevAvgCount int
		curCount     int
		want         float64
	}{
		{prevAvgCount: 10, curCount: 40, want: 2.5}, // ratio 4
		{prevAvgCount: 10, curCount: 30, want: 2.0}, // ratio 3
		{prevAvgCount: 10, curCount: 20, want: 1.5}, // ratio 2
		{prevAvgCount: 10, curCount: 15, want: 1.2}, // ratio 1.5
		{prevAvgCount: 10, curCount: 10, want: 1.0}, // ratio 1
	}
	for _, tt := range tests {
		buckets := []*chat.Bucket{
			{StartSec: 0, MessageCount: tt.prevAvgCount},
			{StartSec: 30, MessageCount: tt.curCount},
		}
		if got := velocityMultiplier(buckets, 1); got != tt.want {
			t.Errorf("velocityMultiplier(prevAvg=%d cur=%d) = %v, want %v", tt.prevAvgCount, tt.curCount, got, tt.want)
		}
	}
}

func TestVelocityMultiplier_LowPrevAvgSpecialCase(t *testing.T) {
	buckets := []*chat.Bucket{
		{StartSec: 0, MessageCount: 0},
		{StartSec: 30, MessageCount: 6},
	}
	if got := velocityMultiplier(buckets, 1); got != 2.0 {
		t.Errorf("velocityMultiplier() = %v, want 2.0 for >5 messages after near-zero prior activity", got)
	}
	buckets[1].MessageCount = 3
	if got := velocityMultiplier(buckets, 1); got != 1.0 {
		t.Errorf("velocityMultiplier() = %v, want 1.0 for <=5 messages after near-zero prior activity", got)
	}
}

// Two adjacent high-score buckets 30s apart; the second is rejected by the
// padded-overlap test and only one moment survives.
func TestSelectNonOverlapping_RejectsPaddedOverlap(t *testing.T) {
	opts := PeakOptions{WindowSec: 30, ClipDurationSec: 30, MinGapSec: 45, ThresholdFactor: 1.0}

	composites := []windowComposite{
		{bucketKey: 600, score: 100, merged: mergedBucket{messageCount: 80}},
		{bucketKey: 630, score: 90, merged: mergedBucket{messageCount: 70}},
	}

	moments := selectNonOverlapping(composites, opts)

	if len(moments) != 1 {
		t.Fatalf("len(moments) = %d, want 1", len(moments))
	}
	if moments[0].StartSec != 580 {
		t.Errorf("moments[0].StartSec = %d, want 580", moments[0].StartSec)
	}
	if moments[0].EndSec != 610 {
		t.Errorf("moments[0].EndSec = %d, want 610", moments[0].EndSec)
	}
}

func TestSelectNonOverlapping_NonOverlappingBothSurvive(t *testing.T) {
	opts := PeakOptions{WindowSec: 30, ClipDurationSec: 30, MinGapSec: 45, ThresholdFactor: 1.0}

	composites := []windowComposite{
		{bucketKey: 0, score: 100, merged: mergedBucket{messageCount: 80}},
		{bucketKey: 1000, score: 90, merged: mergedBucket{messageCount: 70}},
	}

	moments := selectNonOverlapping(composites, opts)
	if len(moments) != 2 {
		t.Fatalf("len(moments) = %d, want 2", len(moments))
	}
	if moments[0].StartSec >= moments[1].StartSec {
		t.Errorf("moments not sorted chronologically: %d then %d", moments[0].StartSec, moments[1].StartSec)
	}
}

func TestSelectNonOverlapping_MaxHighlightsCutoff(t *testing.T) {
	opts := PeakOptions{WindowSec: 30, ClipDurationSec: 30, MinGapSec: 45, ThresholdFactor: 1.0, MaxHighlights: 1}

	composites := []windowComposite{
		{bucketKey: 0, score: 100, merged: mergedBucket{messageCount: 80}},
		{bucketKey: 1000, score: 90, merged: mergedBucket{messageCount: 70}},
		{bucketKey: 2000, score: 80, merged: mergedBucket{messageCount: 60}},
	}

	moments := selectNonOverlapping(composites, opts)
	if len(moments) != 1 {
		t.Fatalf("len(moments) = %d, want 1", len(moments))
	}
}

func TestDominantTag_TiesAndZero(t *testing.T) {
	zero := chat.Scores{}
	if got := dominantTag(zero); got != chat.Hype {
		t.Errorf("dominantTag(zero) = %v, want Hype", got)
	}
	tied := chat.Scores{Fun: 5, Hype: 5}
	if got := dominantTag(tied); got != chat.Fun {
		t.Errorf("dominantTag(tied fun/hype) = %v, want Fun", got)
	}
}

func TestDetectPeaks_EmptyInput(t *testing.T) {
	if got := DetectPeaks(context.Background(), nil, PeakOptions{}); got != nil {
		t.Errorf("DetectPeaks(nil) = %v, want nil", got)
	}
}

// A ban event surfaces as a moment tagged "ban".
func TestDetectPeaks_BanSurfaces(t *testing.T) {
	acc := chat.NewAccumulator(30)
	for i := 0; i < 40; i++ {
		acc.AddMessage(chat.Message{OffsetSeconds: i % 30, Fragments: []chat.Fragment{chat.TextFragment("hey there")}})
	}
	acc.AddMessage(chat.Message{OffsetSeconds: 15, Fragments: []chat.Fragment{chat.TextFragment("xXx has been banned.")}})

	// A second, quiet bucket keeps the statistics from collapsing the
	// adaptive threshold onto the single populated window.
	for i := 0; i < 3; i++ {
		acc.AddMessage(chat.Message{OffsetSeconds: 60 + i, Fragments: []chat.Fragment{chat.TextFragment("ok")}})
	}

	moments := DetectPeaks(context.Background(), acc.GetBuckets(), PeakOptions{WindowSec: 30, ClipDurationSec: 30, MinGapSec: 45, ThresholdFactor: 1.0})

	found := false
	for _, m := range moments {
		if m.Tag == chat.Ban {
			found = true
			if m.CategoryScores.Ban < 15 {
				t.Errorf("moment ban score = %v, want >= 15", m.CategoryScores.Ban)
			}
		}
	}
	if !found {
		t.Fatalf("no ban-tagged moment among %d moments", len(moments))
	}
}

// A mass gift at N>=15 earns sub credit and can surface a sub-tagged moment;
// a gift below the threshold earns nothing.
func TestDetectPeaks_MassGiftGating(t *testing.T) {
	acc := chat.NewAccumulator(30)
	for i := 0; i < 50; i++ {
		acc.AddMessage(chat.Message{OffsetSeconds: i % 30, Fragments: []chat.Fragment{chat.TextFragment("chatting away")}})
	}
	acc.AddMessage(chat.Message{OffsetSeconds: 10, Fragments: []chat.Fragment{chat.TextFragment("Foo is gifting 20 subs")}})

	for i := 0; i < 50; i++ {
		acc.AddMessage(chat.Message{OffsetSeconds: 30 + i%30, Fragments: []chat.Fragment{chat.TextFragment("chatting away")}})
	}
	acc.AddMessage(chat.Message{OffsetSeconds: 40, Fragments: []chat.Fragment{chat.TextFragment("Bar is gifting 10 subs")}})

	buckets := acc.GetBuckets()
	var bucket0, bucket30 *chat.Bucket
	for _, b := range buckets {
		switch b.StartSec {
		case 0:
			bucket0 = b
		case 30:
			bucket30 = b
		}
	}
	if bucket0 == nil || bucket30 == nil {
		t.Fatalf("expected buckets at 0 and 30, got %+v", buckets)
	}
	if bucket0.CategoryScores.Sub < 12 {
		t.Errorf("bucket0 sub score = %v, want >= 12 (N=20 bonus)", bucket0.CategoryScores.Sub)
	}
	if bucket30.CategoryScores.Sub != 0 {
		t.Errorf("bucket30 sub score = %v, want 0 (N=10 below threshold)", bucket30.CategoryScores.Sub)
	}
}

// A uniform, keyword-free feed produces near-zero spread, so the adaptive
// threshold admits few or no moments.
func TestDetectPeaks_UniformFeedYieldsFewMoments(t *testing.T) {
	acc := chat.NewAccumulator(30)
	for bucket := 0; bucket < 40; bucket++ {
		start := bucket * 30
		for i := 0; i < 100; i++ {
			acc.AddMessage(chat.Message{
				OffsetSeconds: start + (i*30)/100,
				Fragments:     []chat.Fragment{chat.TextFragment("watching along")},
			})
		}
	}

	moments := DetectPeaks(context.Background(), acc.GetBuckets(), PeakOptions{WindowSec: 30, ClipDurationSec: 30, MinGapSec: 45, ThresholdFactor: 1.0})
	if len(moments) > 10 {
		t.Errorf("len(moments) = %d, want a small number for a uniform feed", len(moments))
	}
}
