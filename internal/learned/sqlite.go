package learned

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. SQLite serializes
// writers itself, which is what keeps concurrent increments to the same key
// safe without caller-side locking.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "learned: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "learned: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS learned_patterns (
	id            TEXT PRIMARY KEY,
	domain        TEXT NOT NULL,
	engine_type   TEXT NOT NULL DEFAULT '',
	field_name    TEXT NOT NULL,
	selector      TEXT NOT NULL,
	success_count INTEGER NOT NULL DEFAULT 0,
	fail_count    INTEGER NOT NULL DEFAULT 0,
	last_used     DATETIME NOT NULL,
	UNIQUE(domain, field_name, selector)
);

CREATE INDEX IF NOT EXISTS idx_learned_domain_field ON learned_patterns(domain, field_name);
CREATE INDEX IF NOT EXISTS idx_learned_field ON learned_patterns(field_name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "learned: migrate sqlite")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordSuccess(ctx context.Context, domain, engineType, fieldName, selector string) error {
	return s.record(ctx, domain, engineType, fieldName, selector, 1, 0)
}

func (s *SQLiteStore) RecordFailure(ctx context.Context, domain, engineType, fieldName, selector string) error {
	return s.record(ctx, domain, engineType, fieldName, selector, 0, 1)
}

func (s *SQLiteStore) record(ctx context.Context, domain, engineType, fieldName, selector string, succ, fail int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learned_patterns (id, domain, engine_type, field_name, selector, success_count, fail_count, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain, field_name, selector) DO UPDATE SET
			success_count = success_count + excluded.success_count,
			fail_count    = fail_count + excluded.fail_count,
			engine_type   = excluded.engine_type,
			last_used     = excluded.last_used`,
		uuid.New().String(), domain, engineType, fieldName, selector, succ, fail, time.Now().UTC(),
	)
	return eris.Wrapf(err, "learned: record %s/%s", domain, fieldName)
}

func (s *SQLiteStore) BestSelectors(ctx context.Context, domain, fieldName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT selector FROM learned_patterns
		WHERE domain = ? AND field_name = ? AND success_count > fail_count
		ORDER BY (success_count - fail_count) DESC, last_used DESC
		LIMIT ?`,
		domain, fieldName, bestSelectorsCap,
	)
	if err != nil {
		return nil, eris.Wrap(err, "learned: best selectors")
	}
	defer rows.Close()

	var selectors []string
	for rows.Next() {
		var sel string
		if err := rows.Scan(&sel); err != nil {
			return nil, eris.Wrap(err, "learned: scan selector")
		}
		selectors = append(selectors, sel)
	}
	return selectors, eris.Wrap(rows.Err(), "learned: best selectors iterate")
}

func (s *SQLiteStore) UniversalPatterns(ctx context.Context, fieldName string, minSuccessRate float64) ([]UniversalPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT selector, SUM(success_count), SUM(fail_count)
		FROM learned_patterns
		WHERE field_name = ?
		GROUP BY selector
		HAVING CAST(SUM(success_count) AS REAL) / (SUM(success_count) + SUM(fail_count) + 1) >= ?
		ORDER BY SUM(success_count) DESC
		LIMIT ?`,
		fieldName, minSuccessRate, universalPatternsCap,
	)
	if err != nil {
		return nil, eris.Wrap(err, "learned: universal patterns")
	}
	defer rows.Close()

	var patterns []UniversalPattern
	for rows.Next() {
		var p UniversalPattern
		if err := rows.Scan(&p.Selector, &p.SuccessCount, &p.FailCount); err != nil {
			return nil, eris.Wrap(err, "learned: scan universal pattern")
		}
		p.SuccessRate = float64(p.SuccessCount) / float64(p.SuccessCount+p.FailCount+1)
		patterns = append(patterns, p)
	}
	return patterns, eris.Wrap(rows.Err(), "learned: universal patterns iterate")
}

func (s *SQLiteStore) Export(ctx context.Context) ([]Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, engine_type, field_name, selector, success_count, fail_count, last_used
		FROM learned_patterns
		ORDER BY domain, field_name, selector`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "learned: export")
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		var p Pattern
		if err := rows.Scan(&p.Domain, &p.EngineType, &p.FieldName, &p.Selector, &p.SuccessCount, &p.FailCount, &p.LastUsed); err != nil {
			return nil, eris.Wrap(err, "learned: scan pattern")
		}
		patterns = append(patterns, p)
	}
	return patterns, eris.Wrap(rows.Err(), "learned: export iterate")
}

// Import merges counts additively per unique key. Existing evidence is never
// overwritten, only added to.
func (s *SQLiteStore) Import(ctx context.Context, patterns []Pattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "learned: import begin tx")
	}
	defer tx.Rollback()

	for _, p := range patterns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO learned_patterns (id, domain, engine_type, field_name, selector, success_count, fail_count, last_used)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(domain, field_name, selector) DO UPDATE SET
				success_count = success_count + excluded.success_count,
				fail_count    = fail_count + excluded.fail_count,
				last_used     = MAX(last_used, excluded.last_used)`,
			uuid.New().String(), p.Domain, p.EngineType, p.FieldName, p.Selector, p.SuccessCount, p.FailCount, p.LastUsed.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "learned: import %s/%s", p.Domain, p.FieldName)
		}
	}
	return eris.Wrap(tx.Commit(), "learned: import commit")
}
