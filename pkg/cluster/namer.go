package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tubemap/backend/pkg/channel"
)

// Taxonomy maps a category name to the lowercase keywords that indicate it.
// The taxonomy is configuration: callers may pass their own vocabulary.
type Taxonomy map[string][]string

// DefaultTaxonomy returns the built-in content-category vocabulary.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"Music":         {"music", "band", "song", "singer", "rapper", "artist", "piano", "guitar", "drum"},
		"Gaming":        {"game", "gaming", "playthrough", "minecraft", "fortnite", "gamer", "xbox", "playstation", "nintendo"},
		"Technology":    {"tech", "technology", "programming", "code", "developer", "computer", "software", "hardware"},
		"Science":       {"science", "physics", "chemistry", "biology", "astronomy", "space", "experiment"},
		"Education":     {"education", "learn", "school", "university", "college", "academic", "lecture", "course"},
		"Entertainment": {"entertainment", "funny", "comedy", "prank", "skit", "humor"},
		"News":          {"news", "politics", "current events", "journalist", "report"},
		"Sports":        {"sports", "football", "basketball", "soccer", "baseball", "nfl", "nba", "fitness"},
		"Art":           {"art", "drawing", "painting", "animation", "design", "creative"},
		"Food":          {"food", "cooking", "recipe", "chef", "baking", "cuisine", "restaurant"},
		"Fashion":       {"fashion", "clothing", "style", "beauty", "makeup", "model"},
		"Travel":        {"travel", "vlog", "adventure", "tourism", "explore", "destination"},
		"Automotive":    {"car", "auto", "vehicle", "motorcycle", "racing", "engine"},
		"Finance":       {"finance", "money", "investing", "stock", "crypto", "bitcoin", "business"},
		"DIY":           {"diy", "craft", "how to", "tutorial", "woodworking", "maker", "build"},
		"Lifestyle":     {"lifestyle", "minimalism", "productivity", "self-improvement", "motivation"},
		"History":       {"history", "historical", "ancient", "medieval", "civilization", "war"},
	}
}

// secondaryRatio is the fraction of the top category score a runner-up must
// reach to be appended as a secondary category.
const secondaryRatio = 0.7

// keywordFieldWeight weights occurrences in the channel keyword list higher
// than occurrences in free text.
const keywordFieldWeight = 2

// NameClusters assigns a human-readable name and descriptive metadata to
// every cluster. Names combine the top-scoring taxonomy category (plus a
// close runner-up) with the cluster's engagement level relative to the whole
// run. Clusters matching no keyword at all are named exactly
// "Cluster <label>".
func NameClusters(groups map[string][]*channel.Record, taxonomy Taxonomy) (map[string]string, map[string]channel.ClusterMetadata) {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}

	names := make(map[string]string, len(groups))
	metadata := make(map[string]channel.ClusterMetadata, len(groups))

	lowCut, highCut := engagementCutPoints(groups)

	for label, members := range groups {
		scores := scoreCategories(members, taxonomy)
		top := rankCategories(scores)

		avgEngagement := meanEngagement(members)
		level := engagementLevel(avgEngagement, lowCut, highCut)

		name := ""
		if len(top) > 0 && scores[top[0]] > 0 {
			name = top[0]
			if len(top) > 1 && float64(scores[top[1]]) >= float64(scores[top[0]])*secondaryRatio && scores[top[1]] > 0 {
				name = fmt.Sprintf("%s & %s", top[0], top[1])
			}
			name = fmt.Sprintf("%s (%s Engagement)", name, level)
		} else {
			name = "Cluster " + label
		}

		topCategories := make([]string, 0, 3)
		for _, cat := range top {
			if scores[cat] == 0 || len(topCategories) == 3 {
				break
			}
			topCategories = append(topCategories, cat)
		}

		names[label] = name
		metadata[label] = channel.ClusterMetadata{
			AvgEngagement:   avgEngagement,
			Size:            len(members),
			TopCategories:   topCategories,
			EngagementLevel: level,
		}
	}

	return names, metadata
}

// scoreCategories counts taxonomy keyword occurrences over the combined
// lowercased text of all cluster members. The channel keyword list counts
// double relative to titles and descriptions.
func scoreCategories(members []*channel.Record, taxonomy Taxonomy) map[string]int {
	var text strings.Builder
	var keywordText strings.Builder
	for _, rec := range members {
		text.WriteString(strings.ToLower(rec.Title))
		text.WriteString(" ")
		text.WriteString(strings.ToLower(rec.Description))
		text.WriteString(" ")
		if len(rec.Keywords) > 0 {
			keywordText.WriteString(strings.ToLower(strings.Join(rec.Keywords, " ")))
			keywordText.WriteString(" ")
		}
	}
	blob := text.String()
	keywords := keywordText.String()

	scores := make(map[string]int, len(taxonomy))
	for category, terms := range taxonomy {
		score := 0
		for _, term := range terms {
			score += strings.Count(blob, term)
			score += keywordFieldWeight * strings.Count(keywords, term)
		}
		scores[category] = score
	}
	return scores
}

// rankCategories orders category names by descending score, name ascending
// as a deterministic tiebreak.
func rankCategories(scores map[string]int) []string {
	ranked := make([]string, 0, len(scores))
	for cat := range scores {
		ranked = append(ranked, cat)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}

func meanEngagement(members []*channel.Record) float64 {
	if len(members) == 0 {
		return 0
	}
	sum := 0.0
	for _, rec := range members {
		sum += rec.EngagementRate()
	}
	return sum / float64(len(members))
}

// engagementCutPoints derives the run-wide 25th and 75th percentile of
// channel engagement rates; cluster means are classified against them.
func engagementCutPoints(groups map[string][]*channel.Record) (float64, float64) {
	rates := make([]float64, 0)
	for _, members := range groups {
		for _, rec := range members {
			rates = append(rates, rec.EngagementRate())
		}
	}
	if len(rates) == 0 {
		return 0, 0
	}
	sort.Float64s(rates)
	return percentile(rates, 0.25), percentile(rates, 0.75)
}

// percentile interpolates linearly over sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func engagementLevel(rate, lowCut, highCut float64) string {
	switch {
	case rate < lowCut:
		return "Low"
	case rate > highCut:
		return "High"
	default:
		return "Medium"
	}
}
