package cluster

import (
	"math"
	"strings"

	"github.com/tubemap/backend/internal/util"
	"github.com/tubemap/backend/pkg/channel"
)

// NumMetadataFeatures is the width of the numeric metadata block appended to
// every semantic embedding.
const NumMetadataFeatures = 5

// socialPlatforms are scanned for in lowercased descriptions to derive the
// presence-of-social-links signal.
var socialPlatforms = []string{
	"twitter",
	"instagram",
	"facebook",
	"tiktok",
	"discord",
	"twitch",
	"patreon",
}

// ExtractText builds the text blob a channel is embedded from: title and
// description, with readable topic names appended when topic URLs are
// present. Missing fields contribute nothing; the result may be empty.
func ExtractText(rec *channel.Record) string {
	var b strings.Builder
	b.WriteString(rec.Title)
	b.WriteString(" - ")
	b.WriteString(rec.Description)

	if len(rec.Topics) > 0 {
		names := make([]string, 0, len(rec.Topics))
		for _, topicURL := range rec.Topics {
			names = append(names, util.TopicNameFromURL(topicURL))
		}
		b.WriteString(" - Topics: ")
		b.WriteString(strings.Join(names, ", "))
	}

	return b.String()
}

// ExtractNumeric builds the fixed-order numeric feature block for a channel:
// log1p(subscriber count), log1p(video count), views per video, a social-link
// presence flag, and a website presence flag. Missing counts are zero before
// transformation, so an absent statistic never fails.
func ExtractNumeric(rec *channel.Record) []float64 {
	desc := strings.ToLower(rec.Description)

	hasSocial := 0.0
	for _, platform := range socialPlatforms {
		if strings.Contains(desc, platform) {
			hasSocial = 1.0
			break
		}
	}

	hasWebsite := 0.0
	if strings.Contains(desc, "http") || strings.Contains(desc, "www") {
		hasWebsite = 1.0
	}

	videoDivisor := float64(rec.VideoCount)
	if videoDivisor < 1 {
		videoDivisor = 1
	}

	return []float64{
		math.Log1p(float64(rec.SubscriberCount)),
		math.Log1p(float64(rec.VideoCount)),
		float64(rec.ViewCount) / videoDivisor,
		hasSocial,
		hasWebsite,
	}
}

// Extract turns one channel record into its text blob and numeric feature
// block. The blob is attached to the record as VectorizedText; that is the
// only mutation the pipeline ever performs on a record.
func Extract(rec *channel.Record) (string, []float64) {
	text := ExtractText(rec)
	rec.VectorizedText = text
	return text, ExtractNumeric(rec)
}
