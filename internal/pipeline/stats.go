package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/store"
)

// Stats is the corpus-wide rollup over every stored case.
type Stats struct {
	TotalCases    int            `json:"total_cases"`
	AvgConfidence float64        `json:"avg_confidence"`
	HighCount     int            `json:"high_count"`
	MediumCount   int            `json:"medium_count"`
	LowCount      int            `json:"low_count"`
	ByCategory    map[string]int `json:"by_category"`
}

// Collector computes aggregate statistics from the case store.
type Collector struct {
	store store.Store
}

// NewCollector creates a Collector backed by the given store.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect re-derives every bucket from the stored confidence scores instead
// of trusting per-job counters, so the rollup stays correct even if a past
// run's counters drifted.
func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	summaries, err := c.store.ListCaseSummaries(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "stats: list case summaries")
	}

	stats := &Stats{ByCategory: make(map[string]int)}
	var sum float64
	for _, s := range summaries {
		stats.TotalCases++
		sum += s.CombinedConfidence

		switch Route(s.CombinedConfidence).Bucket {
		case model.BucketHigh:
			stats.HighCount++
		case model.BucketMedium:
			stats.MediumCount++
		case model.BucketLow:
			stats.LowCount++
		}

		category := s.AICategory
		if category == "" {
			category = "unclassified"
		}
		stats.ByCategory[category]++
	}

	if stats.TotalCases > 0 {
		stats.AvgConfidence = sum / float64(stats.TotalCases)
	}
	return stats, nil
}
