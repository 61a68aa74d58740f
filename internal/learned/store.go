// Package learned persists which selectors historically worked for a
// (domain, field) pair, so later runs can try proven selectors first. Counts
// only ever increase and rows are never deleted. Store unavailability is
// fatal to callers: learning state is the whole point of the component.
package learned

import (
	"context"
	"time"
)

// Pattern is the historical evidence for one (domain, field, selector) key.
type Pattern struct {
	Domain       string    `json:"domain" yaml:"domain"`
	EngineType   string    `json:"engine_type" yaml:"engine_type"`
	FieldName    string    `json:"field_name" yaml:"field_name"`
	Selector     string    `json:"selector" yaml:"selector"`
	SuccessCount int       `json:"success_count" yaml:"success_count"`
	FailCount    int       `json:"fail_count" yaml:"fail_count"`
	LastUsed     time.Time `json:"last_used" yaml:"last_used"`
}

// UniversalPattern is a selector's evidence aggregated across all domains.
type UniversalPattern struct {
	Selector     string  `json:"selector"`
	SuccessCount int     `json:"success_count"`
	FailCount    int     `json:"fail_count"`
	SuccessRate  float64 `json:"success_rate"` // Laplace-smoothed: s/(s+f+1)
}

const (
	bestSelectorsCap     = 5
	universalPatternsCap = 10
)

// Store is the durable upsert-counter table behind selector learning.
type Store interface {
	// RecordSuccess and RecordFailure insert the row with count 1 when
	// absent, otherwise atomically increment the counter and refresh
	// last_used. Each call adds exactly one.
	RecordSuccess(ctx context.Context, domain, engineType, fieldName, selector string) error
	RecordFailure(ctx context.Context, domain, engineType, fieldName, selector string) error

	// BestSelectors returns selectors with more successes than failures for
	// the domain and field, ordered by (success-fail) descending then
	// last_used descending, capped at 5.
	BestSelectors(ctx context.Context, domain, fieldName string) ([]string, error)

	// UniversalPatterns aggregates evidence across all domains per selector
	// and keeps those at or above minSuccessRate (Laplace-smoothed), ordered
	// by raw success count descending, capped at 10.
	UniversalPatterns(ctx context.Context, fieldName string, minSuccessRate float64) ([]UniversalPattern, error)

	// Export dumps the full table; Import merges counts additively per
	// unique key rather than overwriting.
	Export(ctx context.Context) ([]Pattern, error)
	Import(ctx context.Context, patterns []Pattern) error

	Migrate(ctx context.Context) error
	Close() error
}
