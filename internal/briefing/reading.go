package briefing

import (
	"regexp"

	"github.com/bryan-buckman/iantel/internal/model"
)

// Reading genres, in output order.
const (
	GenreHistory   = "history"
	GenreBiography = "biography"
	GenreBusiness  = "business"
	GenreFiction   = "fiction"
	GenreScience   = "science"
)

// GenreOrder is the order buckets appear in the reading section.
var GenreOrder = []string{GenreHistory, GenreBiography, GenreBusiness, GenreFiction, GenreScience}

// ReadingLimit caps the bucketed reading section.
const ReadingLimit = 5

// GenreRule assigns Genre to titles matching Pattern.
type GenreRule struct {
	Genre   string
	Pattern *regexp.Regexp
}

// GenreRules are evaluated top-down; the first match wins. Titles matching
// none fall into GenreScience.
var GenreRules = []GenreRule{
	{GenreHistory, regexp.MustCompile(`(?i)history|war|empire|ancient|after`)},
	{GenreBiography, regexp.MustCompile(`(?i)biograph|memoir|life of|diary`)},
	{GenreBusiness, regexp.MustCompile(`(?i)invest|market|business|econom|money`)},
	{GenreFiction, regexp.MustCompile(`(?i)novel|fiction|story`)},
}

// Classify returns the genre bucket for a title.
func Classify(title string) string {
	for _, r := range GenreRules {
		if r.Pattern.MatchString(title) {
			return r.Genre
		}
	}
	return GenreScience
}

// BucketReading picks the first item of each non-empty genre bucket, in
// GenreOrder, suffixing its source with the genre. At most limit items are
// returned.
func BucketReading(items []model.Item, limit int) []model.Item {
	buckets := make(map[string][]model.Item, len(GenreOrder))
	for _, it := range items {
		g := Classify(it.Title)
		buckets[g] = append(buckets[g], it)
	}

	out := make([]model.Item, 0, len(GenreOrder))
	for _, g := range GenreOrder {
		for _, it := range PickN(buckets[g], 1) {
			it.Source = it.Source + " · " + g
			out = append(out, it)
		}
	}
	if len(out) > limit {
		out = out[:max(limit, 0)]
	}
	return out
}
