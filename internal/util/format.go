package util

import (
	"fmt"
	"regexp"
	"strings"
)

var reChannelURL = regexp.MustCompile(`youtube\.com/channel/([^/?&]+)`)

// FormatSubscriberCount renders a subscriber count for display,
// abbreviating millions and thousands (1.2M, 3.4K).
func FormatSubscriberCount(count int64) string {
	switch {
	case count >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.1fK", float64(count)/1_000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

// TopicNameFromURL extracts a readable topic name from a Freebase topic URL.
// The trailing path segment is used, with underscores replaced by spaces.
func TopicNameFromURL(url string) string {
	segments := strings.Split(url, "/")
	topic := segments[len(segments)-1]
	return strings.ReplaceAll(topic, "_", " ")
}

// ExtractChannelIDFromURL extracts a channel ID from a YouTube channel URL.
// Returns an empty string for user/custom URLs, which cannot be resolved
// without an API call.
func ExtractChannelIDFromURL(url string) string {
	m := reChannelURL.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
