package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS crossbot_decisions (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT        NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	instrument  TEXT        NOT NULL,
	signal      TEXT        NOT NULL DEFAULT '',
	result      TEXT        NOT NULL,
	position    BIGINT      NOT NULL,
	payload     JSONB       NOT NULL
)`

// Postgres stores decisions in the crossbot_decisions table, creating it on
// first use.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create decisions table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Append(ctx context.Context, decision Decision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO crossbot_decisions (run_id, ts, instrument, signal, result, position, payload) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		decision.RunID, decision.Timestamp, decision.Instrument, decision.Signal, decision.Result, decision.Position, payload)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
