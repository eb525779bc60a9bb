package chat

import (
	"encoding/json"
	"regexp"
	"sync"
)

// Category is one of the five closed-set reaction labels.
type Category int

const (
	Fun Category = iota
	Hype
	Ban
	Sub
	Donation
)

func (c Category) String() string {
	switch c {
	case Fun:
		return "fun"
	case Hype:
		return "hype"
	case Ban:
		return "ban"
	case Sub:
		return "sub"
	case Donation:
		return "donation"
	default:
		return "unknown"
	}
}

// MarshalJSON renders a Category as its lowercase label in API responses.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// priorityOrder breaks dominant-tag ties deterministically.
var priorityOrder = []Category{Fun, Hype, Ban, Sub, Donation}

// Scores is a category score vector. All five categories are always present;
// zero value means unused. Fields are exported for the peak detector's direct
// access during bucket merges.
type Scores struct {
	Fun      float64 `json:"fun"`
	Hype     float64 `json:"hype"`
	Ban      float64 `json:"ban"`
	Sub      float64 `json:"sub"`
	Donation float64 `json:"donation"`
}

// Add returns the element-wise sum of two score vectors.
func Add(a, b Scores) Scores {
	return Scores{
		Fun:      a.Fun + b.Fun,
		Hype:     a.Hype + b.Hype,
		Ban:      a.Ban + b.Ban,
		Sub:      a.Sub + b.Sub,
		Donation: a.Donation + b.Donation,
	}
}

// AddTo increments the category's score in place.
func (s *Scores) AddTo(cat Category, delta float64) {
	switch cat {
	case Fun:
		s.Fun += delta
	case Hype:
		s.Hype += delta
	case Ban:
		s.Ban += delta
	case Sub:
		s.Sub += delta
	case Donation:
		s.Donation += delta
	}
}

// Get returns the score for a single category.
func (s Scores) Get(cat Category) float64 {
	switch cat {
	case Fun:
		return s.Fun
	case Hype:
		return s.Hype
	case Ban:
		return s.Ban
	case Sub:
		return s.Sub
	case Donation:
		return s.Donation
	default:
		return 0
	}
}

// Dominant returns the category with the highest score, breaking ties by the
// fixed priority order [fun, hype, ban, sub, donation]. When every category is
// zero, it defaults to Hype.
func (s Scores) Dominant() Category {
	best := Hype
	bestScore := -1.0
	allZero := true
	for _, cat := range priorityOrder {
		v := s.Get(cat)
		if v != 0 {
			allZero = false
		}
		if v > bestScore {
			bestScore = v
			best = cat
		}
	}
	if allZero {
		return Hype
	}
	return best
}

// categoryPattern bundles a category's keyword regex with its emote set.
// Patterns are compiled once at first use and never mutated afterward.
type categoryPattern struct {
	category Category
	keyword  *regexp.Regexp
	emotes   map[string]struct{}
}

var categoriesOnce sync.Once
var categories []categoryPattern

func emoteSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// loadCategories compiles the keyword regexes and emote sets exactly once.
func loadCategories() []categoryPattern {
	categoriesOnce.Do(func() {
		categories = []categoryPattern{
			{
				category: Fun,
				keyword:  regexp.MustCompile(`(?i)\b(mdr+|ptdr+|lmao+|rofl+)\b|ha(ha)+a*|xd{2,}`),
				emotes:   emoteSet("LUL", "OMEGALUL", "KEKW", "Jebaited", "4Head"),
			},
			{
				category: Hype,
				keyword:  regexp.MustCompile(`(?i)\bpog(gers)?\b|let'?s go+|\binsane\b|\bomg\b|\bwtf\b|holy shit`),
				emotes:   emoteSet("PogChamp", "Pog", "PogU", "EZ", "HYPERS"),
			},
			{
				category: Ban,
				keyword:  regexp.MustCompile(`(?i)has been banned`),
				emotes:   emoteSet("BibleThump"),
			},
			{
				category: Sub,
				keyword:  regexp.MustCompile(`(?i)is gifting`),
				emotes:   emoteSet("PartyHat", "SeemsGood"),
			},
			{
				category: Donation,
				keyword:  regexp.MustCompile(`(?i)cheer\d+|\bbits\b|don(o|at(e|ion|ed))|[$€£]\s?\d+(\.\d+)?`),
				emotes:   emoteSet("cheerBronze1", "cheerSilver1", "cheerGold1"),
			},
		}
	})
	return categories
}
