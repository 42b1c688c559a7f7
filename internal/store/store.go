package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tubemap/backend/internal/util"
	"github.com/tubemap/backend/pkg/channel"
	"github.com/tubemap/backend/pkg/logger"
)

const (
	subscriptionsCSV  = "subscriptions.csv"
	subscriptionsJSON = "subscriptions.json"
	clustersJSON      = "clusters.json"
	graphJSON         = "subscription_graph.json"

	timestampLayout = "20060102_150405"
)

// Store persists subscription records, the subscription graph, and cluster
// results as flat files under a data directory. It is the interface between
// the fetch collaborator (which writes subscriptions) and the rendering
// collaborator (which reads cluster results).
type Store struct {
	dataDir string
}

// New creates a Store rooted at dataDir, creating the directory if needed.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory must not be empty")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

// LoadSubscriptions reads the saved subscription list, preferring the JSON
// file and falling back to CSV.
func (s *Store) LoadSubscriptions() ([]*channel.Record, error) {
	jsonPath := filepath.Join(s.dataDir, subscriptionsJSON)
	if _, err := os.Stat(jsonPath); err == nil {
		return s.loadSubscriptionsJSON(jsonPath)
	}

	csvPath := filepath.Join(s.dataDir, subscriptionsCSV)
	if _, err := os.Stat(csvPath); err == nil {
		return s.loadSubscriptionsCSV(csvPath)
	}

	return nil, fmt.Errorf("no subscription file found in %q: %w", s.dataDir, os.ErrNotExist)
}

func (s *Store) loadSubscriptionsJSON(path string) ([]*channel.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	var records []*channel.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt subscription file %q: %w", path, err)
	}
	return records, nil
}

var csvHeader = []string{
	"channel_id", "title", "description", "subscriber_count", "video_count",
	"view_count", "topics", "keywords", "country", "default_language",
	"engagement_rate",
}

func (s *Store) loadSubscriptionsCSV(path string) ([]*channel.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("corrupt subscription file %q: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("subscription file %q is empty", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]*channel.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id := field(row, "channel_id")
		// exports sometimes carry a full channel URL instead of the raw ID
		if extracted := util.ExtractChannelIDFromURL(id); extracted != "" {
			id = extracted
		}
		rec := &channel.Record{
			ChannelID:       id,
			Title:           field(row, "title"),
			Description:     field(row, "description"),
			SubscriberCount: parseCount(field(row, "subscriber_count")),
			VideoCount:      parseCount(field(row, "video_count")),
			ViewCount:       parseCount(field(row, "view_count")),
			Topics:          splitList(field(row, "topics")),
			Keywords:        splitList(field(row, "keywords")),
			Country:         field(row, "country"),
			DefaultLanguage: field(row, "default_language"),
		}
		if rateStr := field(row, "engagement_rate"); rateStr != "" {
			if rate, err := strconv.ParseFloat(rateStr, 64); err == nil {
				rec.Engagement = &channel.Engagement{EngagementRate: rate}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseCount converts a statistic to int64, degrading absent or non-numeric
// values to 0.
func parseCount(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SaveSubscriptions writes the subscription list as both JSON and CSV,
// each alongside a timestamped copy.
func (s *Store) SaveSubscriptions(records []*channel.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode subscriptions: %w", err)
	}
	if err := s.writeWithTimestamp(subscriptionsJSON, data); err != nil {
		return err
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		rate := ""
		if rec.Engagement != nil {
			rate = strconv.FormatFloat(rec.Engagement.EngagementRate, 'f', -1, 64)
		}
		row := []string{
			rec.ChannelID,
			rec.Title,
			rec.Description,
			strconv.FormatInt(rec.SubscriberCount, 10),
			strconv.FormatInt(rec.VideoCount, 10),
			strconv.FormatInt(rec.ViewCount, 10),
			strings.Join(rec.Topics, "|"),
			strings.Join(rec.Keywords, "|"),
			rec.Country,
			rec.DefaultLanguage,
			rate,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return s.writeWithTimestamp(subscriptionsCSV, []byte(b.String()))
}

// SaveClusters persists a cluster result as clusters.json plus a timestamped
// copy, and returns the primary path.
func (s *Store) SaveClusters(result *channel.ClusterResult) (string, error) {
	data, err := result.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode cluster result: %w", err)
	}
	if err := s.writeWithTimestamp(clustersJSON, data); err != nil {
		return "", err
	}
	return filepath.Join(s.dataDir, clustersJSON), nil
}

// LoadClusters reads back the most recently persisted cluster result.
func (s *Store) LoadClusters() (*channel.ClusterResult, error) {
	path := filepath.Join(s.dataDir, clustersJSON)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no cluster result found at %q: %w", path, err)
	}
	result, err := channel.UnmarshalClusterResult(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt cluster result %q: %w", path, err)
	}
	return result, nil
}

// LoadGraph reads the saved subscription graph. A missing file means no
// known relationships and returns an empty graph, not an error.
func (s *Store) LoadGraph() (channel.SubscriptionGraph, error) {
	path := filepath.Join(s.dataDir, graphJSON)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No subscription graph file found", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	var graph channel.SubscriptionGraph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("corrupt subscription graph %q: %w", path, err)
	}
	return graph, nil
}

func (s *Store) writeWithTimestamp(name string, data []byte) error {
	path := filepath.Join(s.dataDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	stamped := fmt.Sprintf("%s_%s%s", base, time.Now().Format(timestampLayout), ext)
	if err := os.WriteFile(filepath.Join(s.dataDir, stamped), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", stamped, err)
	}
	return nil
}
