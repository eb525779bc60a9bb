package chat

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Score is the scorer's pure output for one message.
type Score struct {
	ReactionScore float64
	EmoteCount    int
	Categories    Scores
}

var banPattern = regexp.MustCompile(`(?i)has been banned`)
var giftingPattern = regexp.MustCompile(`(?i)is gifting (\d+)`)
var allCapsLetter = regexp.MustCompile(`[A-Za-z]`)

// ScoreMessage classifies a single chat message into the five reaction
// categories and returns an aggregate reaction score plus an emote count. It
// is a pure function: no I/O, no shared mutable state, same input always
// produces the same output.
func ScoreMessage(m Message) Score {
	text := m.Text()
	var score Score

	giftedSub := false

	// Privileged events apply first and are never diluted by the ordinary
	// keyword loop below.
	if banPattern.MatchString(text) {
		score.ReactionScore += 15
		score.Categories.AddTo(Ban, 15)
	}
	if match := giftingPattern.FindStringSubmatch(text); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			if n >= 15 {
				bonus := math.Min(math.Round(float64(n)*0.6), 20)
				score.ReactionScore += bonus
				score.Categories.AddTo(Sub, bonus)
				giftedSub = true
			}
		}
	}

	cats := loadCategories()

	// Emote scoring: at most one category credit per fragment, first match wins.
	for _, frag := range m.Fragments {
		if !frag.IsEmote {
			continue
		}
		for _, cp := range cats {
			if _, ok := cp.emotes[frag.EmoteName]; ok {
				score.ReactionScore += 2
				score.EmoteCount++
				score.Categories.AddTo(cp.category, 2)
				break
			}
		}
	}

	// Keyword scoring: at most one match per category, sub category gated on
	// a gifting event having already fired above.
	for _, cp := range cats {
		if cp.category == Sub && !giftedSub {
			continue
		}
		if cp.keyword.MatchString(text) {
			score.ReactionScore += 1
			score.Categories.AddTo(cp.category, 1)
		}
	}

	// ALL-CAPS bonus.
	if len(text) >= 5 && allCapsLetter.MatchString(text) && text == strings.ToUpper(text) {
		score.ReactionScore += 0.5
		score.Categories.AddTo(Hype, 0.5)
	}

	return score
}
