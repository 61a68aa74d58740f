package learned

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool, for server deployments where
// several harvester processes share one learning table. The ON CONFLICT
// upsert serializes concurrent increments to the same key.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "learned: parse postgres config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "learned: create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "learned: ping postgres")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS learned_patterns (
	id            TEXT PRIMARY KEY,
	domain        TEXT NOT NULL,
	engine_type   TEXT NOT NULL DEFAULT '',
	field_name    TEXT NOT NULL,
	selector      TEXT NOT NULL,
	success_count INTEGER NOT NULL DEFAULT 0,
	fail_count    INTEGER NOT NULL DEFAULT 0,
	last_used     TIMESTAMPTZ NOT NULL,
	UNIQUE(domain, field_name, selector)
);

CREATE INDEX IF NOT EXISTS idx_learned_domain_field ON learned_patterns(domain, field_name);
CREATE INDEX IF NOT EXISTS idx_learned_field ON learned_patterns(field_name);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "learned: migrate postgres")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordSuccess(ctx context.Context, domain, engineType, fieldName, selector string) error {
	return s.record(ctx, domain, engineType, fieldName, selector, 1, 0)
}

func (s *PostgresStore) RecordFailure(ctx context.Context, domain, engineType, fieldName, selector string) error {
	return s.record(ctx, domain, engineType, fieldName, selector, 0, 1)
}

func (s *PostgresStore) record(ctx context.Context, domain, engineType, fieldName, selector string, succ, fail int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO learned_patterns (id, domain, engine_type, field_name, selector, success_count, fail_count, last_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (domain, field_name, selector) DO UPDATE SET
			success_count = learned_patterns.success_count + EXCLUDED.success_count,
			fail_count    = learned_patterns.fail_count + EXCLUDED.fail_count,
			engine_type   = EXCLUDED.engine_type,
			last_used     = EXCLUDED.last_used`,
		uuid.New().String(), domain, engineType, fieldName, selector, succ, fail, time.Now().UTC(),
	)
	return eris.Wrapf(err, "learned: record %s/%s", domain, fieldName)
}

func (s *PostgresStore) BestSelectors(ctx context.Context, domain, fieldName string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT selector FROM learned_patterns
		WHERE domain = $1 AND field_name = $2 AND success_count > fail_count
		ORDER BY (success_count - fail_count) DESC, last_used DESC
		LIMIT $3`,
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

func (s *PostgresStore) UniversalPatterns(ctx context.Context, fieldName string, minSuccessRate float64) ([]UniversalPattern, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT selector, SUM(success_count), SUM(fail_count)
		FROM learned_patterns
		WHERE field_name = $1
		GROUP BY selector
		HAVING SUM(success_count)::float / (SUM(success_count) + SUM(fail_count) + 1) >= $2
		ORDER BY SUM(success_count) DESC
		LIMIT $3`,
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

func (s *PostgresStore) Export(ctx context.Context) ([]Pattern, error) {
	rows, err := s.pool.Query(ctx, `
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

func (s *PostgresStore) Import(ctx context.Context, patterns []Pattern) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "learned: import begin tx")
	}
	defer tx.Rollback(ctx)

	for _, p := range patterns {
		_, err := tx.Exec(ctx, `
			INSERT INTO learned_patterns (id, domain, engine_type, field_name, selector, success_count, fail_count, last_used)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (domain, field_name, selector) DO UPDATE SET
				success_count = learned_patterns.success_count + EXCLUDED.success_count,
				fail_count    = learned_patterns.fail_count + EXCLUDED.fail_count,
				last_used     = GREATEST(learned_patterns.last_used, EXCLUDED.last_used)`,
			uuid.New().String(), p.Domain, p.EngineType, p.FieldName, p.Selector, p.SuccessCount, p.FailCount, p.LastUsed.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "learned: import %s/%s", p.Domain, p.FieldName)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "learned: import commit")
}
