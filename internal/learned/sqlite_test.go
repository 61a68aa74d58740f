package learned

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CountsAreMonotonic(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, st.RecordSuccess(ctx, "acme-exchange.io", "spa_exchanger", "amount_from", "#amount"))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, st.RecordFailure(ctx, "acme-exchange.io", "spa_exchanger", "amount_from", "#amount"))
	}

	patterns, err := st.Export(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 3, patterns[0].SuccessCount)
	assert.Equal(t, 2, patterns[0].FailCount)
	assert.Equal(t, "spa_exchanger", patterns[0].EngineType)
}

func TestSQLite_BestSelectors_ExcludesLosers(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Winner: 3 successes, 1 failure.
	for i := 0; i < 3; i++ {
		require.NoError(t, st.RecordSuccess(ctx, "acme-exchange.io", "", "wallet", "input[name=wallet]"))
	}
	require.NoError(t, st.RecordFailure(ctx, "acme-exchange.io", "", "wallet", "input[name=wallet]"))

	// Loser: equal successes and failures must never surface as best.
	require.NoError(t, st.RecordSuccess(ctx, "acme-exchange.io", "", "wallet", ".wallet-input"))
	require.NoError(t, st.RecordFailure(ctx, "acme-exchange.io", "", "wallet", ".wallet-input"))

	selectors, err := st.BestSelectors(ctx, "acme-exchange.io", "wallet")
	require.NoError(t, err)
	assert.Equal(t, []string{"input[name=wallet]"}, selectors)
}

func TestSQLite_BestSelectors_OrderAndCap(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Seven selectors with increasing net score; only the top five survive,
	// ordered by (success - fail) descending.
	names := []string{"#s1", "#s2", "#s3", "#s4", "#s5", "#s6", "#s7"}
	for i, sel := range names {
		for j := 0; j <= i; j++ {
			require.NoError(t, st.RecordSuccess(ctx, "acme-exchange.io", "", "email", sel))
		}
	}

	selectors, err := st.BestSelectors(ctx, "acme-exchange.io", "email")
	require.NoError(t, err)
	assert.Equal(t, []string{"#s7", "#s6", "#s5", "#s4", "#s3"}, selectors)
}

func TestSQLite_BestSelectors_ScopedToDomain(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordSuccess(ctx, "a.example", "", "email", "#email-a"))
	require.NoError(t, st.RecordSuccess(ctx, "b.example", "", "email", "#email-b"))

	selectors, err := st.BestSelectors(ctx, "a.example", "email")
	require.NoError(t, err)
	assert.Equal(t, []string{"#email-a"}, selectors)
}

func TestSQLite_UniversalPatterns_LaplaceSmoothing(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// 7 successes and 3 failures spread across domains: smoothed rate is
	// 7/(7+3+1) = 0.636...
	domains := []string{"a.example", "b.example", "c.example"}
	succ, fail := 7, 3
	for i := 0; i < succ; i++ {
		require.NoError(t, st.RecordSuccess(ctx, domains[i%len(domains)], "", "wallet", "input[name=wallet]"))
	}
	for i := 0; i < fail; i++ {
		require.NoError(t, st.RecordFailure(ctx, domains[i%len(domains)], "", "wallet", "input[name=wallet]"))
	}

	included, err := st.UniversalPatterns(ctx, "wallet", 0.6)
	require.NoError(t, err)
	require.Len(t, included, 1)
	assert.Equal(t, "input[name=wallet]", included[0].Selector)
	assert.Equal(t, 7, included[0].SuccessCount)
	assert.Equal(t, 3, included[0].FailCount)
	assert.InDelta(t, 7.0/11.0, included[0].SuccessRate, 1e-9)

	excluded, err := st.UniversalPatterns(ctx, "wallet", 0.64)
	require.NoError(t, err)
	assert.Empty(t, excluded)
}

func TestSQLite_ImportMergesAdditively(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordSuccess(ctx, "acme-exchange.io", "spa_exchanger", "email", "#email"))

	now := time.Now().UTC()
	err := st.Import(ctx, []Pattern{
		{Domain: "acme-exchange.io", EngineType: "spa_exchanger", FieldName: "email", Selector: "#email", SuccessCount: 4, FailCount: 2, LastUsed: now},
		{Domain: "new.example", FieldName: "wallet", Selector: ".wallet", SuccessCount: 1, LastUsed: now},
	})
	require.NoError(t, err)

	patterns, err := st.Export(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	byKey := map[string]Pattern{}
	for _, p := range patterns {
		byKey[p.Domain+"/"+p.FieldName] = p
	}
	assert.Equal(t, 5, byKey["acme-exchange.io/email"].SuccessCount)
	assert.Equal(t, 2, byKey["acme-exchange.io/email"].FailCount)
	assert.Equal(t, 1, byKey["new.example/wallet"].SuccessCount)
}

func TestSQLite_ExportRoundTrip(t *testing.T) {
	src := newTestSQLiteStore(t)
	dst := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, src.RecordSuccess(ctx, "acme-exchange.io", "multi_page", "card", "input[name=card_number]"))
	require.NoError(t, src.RecordFailure(ctx, "acme-exchange.io", "multi_page", "card", "input[name=card_number]"))

	dump, err := src.Export(ctx)
	require.NoError(t, err)
	require.NoError(t, dst.Import(ctx, dump))

	got, err := dst.Export(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].SuccessCount)
	assert.Equal(t, 1, got[0].FailCount)
	assert.Equal(t, "multi_page", got[0].EngineType)
}
