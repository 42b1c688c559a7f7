package channel

// Record represents one subscribed channel as delivered by the fetch stage.
// Absent statistics are zero; a zero value and a missing value carry the
// same meaning everywhere in the pipeline.
//
// Records are enriched once by the feature extractor (which fills
// VectorizedText) and are otherwise treated as immutable input.
type Record struct {
	ChannelID       string   `json:"channel_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	PublishedAt     string   `json:"published_at,omitempty"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	SubscriberCount int64    `json:"subscriber_count"`
	VideoCount      int64    `json:"video_count"`
	ViewCount       int64    `json:"view_count"`
	Topics          []string `json:"topics,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Country         string   `json:"country,omitempty"`
	DefaultLanguage string   `json:"default_language,omitempty"`

	Engagement *Engagement `json:"engagement,omitempty"`

	// VectorizedText is the text blob the embedder saw, attached by the
	// feature extractor for inspection. Never read by downstream stages.
	VectorizedText string `json:"vectorized_text,omitempty"`
}

// Engagement summarizes a channel's recent-video activity.
// Averages are count-weighted over the sampled videos; EngagementRate is
// (likes + comments) / views, or 0 when no views were sampled.
type Engagement struct {
	RecentVideoCount    int     `json:"recent_video_count"`
	AvgViewsPerVideo    float64 `json:"avg_views_per_video"`
	AvgLikesPerVideo    float64 `json:"avg_likes_per_video"`
	AvgCommentsPerVideo float64 `json:"avg_comments_per_video"`
	EngagementRate      float64 `json:"engagement_rate"`
}

// EngagementRate returns the channel's engagement rate, or 0 when no
// engagement summary is present.
func (r *Record) EngagementRate() float64 {
	if r.Engagement == nil {
		return 0
	}
	return r.Engagement.EngagementRate
}

// SubscriptionGraph maps a channel ID to the IDs of channels it subscribes
// to. A missing entry means "no known outbound relationships"; callers must
// not distinguish it from an empty list.
type SubscriptionGraph map[string][]string

// Outbound returns the known outbound subscriptions for a channel.
// Returns nil for unknown channels.
func (g SubscriptionGraph) Outbound(channelID string) []string {
	if g == nil {
		return nil
	}
	return g[channelID]
}
