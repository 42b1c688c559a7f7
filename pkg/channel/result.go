package channel

import "encoding/json"

// PlacedRecord is a channel record enriched with 2-D plot coordinates for
// the rendering stage.
type PlacedRecord struct {
	Record
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClusterMetadata describes one cluster for the rendering stage.
type ClusterMetadata struct {
	AvgEngagement   float64  `json:"avg_engagement"`
	Size            int      `json:"size"`
	TopCategories   []string `json:"top_categories"`
	EngagementLevel string   `json:"engagement_level"`
}

// ClusterResult is the serializable output of one pipeline run. Cluster keys
// are decimal group indices, with "-1" holding density-clustering noise.
// SilhouetteScore is nil ("not applicable") when fewer than two non-noise
// clusters exist. ClusterNames and ClusterMetadata are optional; consumers
// fall back to "Cluster <label>" when absent.
type ClusterResult struct {
	Algorithm       string                     `json:"algorithm"`
	NClusters       int                        `json:"n_clusters"`
	SilhouetteScore *float64                   `json:"silhouette_score"`
	Channels        map[string][]PlacedRecord  `json:"channels"`
	ClusterNames    map[string]string          `json:"cluster_names,omitempty"`
	ClusterMetadata map[string]ClusterMetadata `json:"cluster_metadata,omitempty"`
}

// Marshal serializes the result as JSON. All values are plain Go numbers,
// strings, slices, and maps, so every field round-trips losslessly.
func (r *ClusterResult) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// UnmarshalClusterResult deserializes a result persisted by Marshal.
func UnmarshalClusterResult(data []byte) (*ClusterResult, error) {
	var r ClusterResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Name returns the display name for a cluster, falling back to
// "Cluster <label>" when no name was assigned.
func (r *ClusterResult) Name(label Label) string {
	if name, ok := r.ClusterNames[label.String()]; ok {
		return name
	}
	return "Cluster " + label.String()
}

// Size returns the total number of channels in the result, noise included.
func (r *ClusterResult) Size() int {
	n := 0
	for _, members := range r.Channels {
		n += len(members)
	}
	return n
}
