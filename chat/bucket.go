package chat

// sampleMessageMaxLen is the truncation length applied to a bucket's sample
// message text.
const sampleMessageMaxLen = 80

// sampleMessageCap bounds how many sample messages a bucket retains.
const sampleMessageCap = 10

// Bucket aggregates scored messages whose offset falls in
// [StartSec, StartSec+windowSec).
type Bucket struct {
	StartSec          int
	MessageCount      int
	ReactionScore     float64
	EmoteCount        int
	CategoryScores    Scores
	MessageTimestamps []int
	SampleMessages    []string
}

// deposit folds one scored message into the bucket. offsetSec must already be
// known to fall within the bucket's window; deposit does not re-check it.
func (b *Bucket) deposit(offsetSec int, text string, score Score) {
	b.MessageCount++
	b.ReactionScore += score.ReactionScore
	b.EmoteCount += score.EmoteCount
	b.CategoryScores = Add(b.CategoryScores, score.Categories)
	b.MessageTimestamps = append(b.MessageTimestamps, offsetSec)

	if score.ReactionScore > 0 && len(b.SampleMessages) < sampleMessageCap {
		if len(text) > sampleMessageMaxLen {
			text = text[:sampleMessageMaxLen]
		}
		b.SampleMessages = append(b.SampleMessages, text)
	}
}
