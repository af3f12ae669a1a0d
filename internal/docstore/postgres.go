package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"reclaimAPI/internal/docstore/migrations"
)

// PostgresStore keeps every collection in one JSONB table. Rows read inside a
// transaction are locked with FOR UPDATE; Create relies on the primary key.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(p.db)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

const (
	selectDocQuery = `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	upsertDocQuery = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	insertDocQuery = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id) DO NOTHING
	`
)

func (p *PostgresStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	var raw []byte
	err := p.db.QueryRow(ctx, selectDocQuery, collection, id).Scan(&raw)
	if err != nil {
		return nil, translatePostgres(err)
	}
	return jsonSnapshot{id: id, raw: raw}, nil
}

func (p *PostgresStore) Set(ctx context.Context, collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	_, err = p.db.Exec(ctx, upsertDocQuery, collection, id, raw)
	return translatePostgres(err)
}

func (p *PostgresStore) Create(ctx context.Context, collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	tag, err := p.db.Exec(ctx, insertDocQuery, collection, id, raw)
	if err != nil {
		return translatePostgres(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (p *PostgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	match := make(map[string]any, len(filters))
	for _, f := range filters {
		match[f.Field] = f.Value
	}
	containment, err := json.Marshal(match)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode filter: %w", err)
	}

	rows, err := p.db.Query(ctx, `
		SELECT id, data FROM documents
		WHERE collection = $1 AND data @> $2::jsonb
		ORDER BY id
	`, collection, containment)
	if err != nil {
		return nil, translatePostgres(err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap jsonSnapshot
		if err := rows.Scan(&snap.id, &snap.raw); err != nil {
			return nil, translatePostgres(err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePostgres(err)
	}
	return out, nil
}

func (p *PostgresStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return translatePostgres(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &postgresTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translatePostgres(err)
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return translatePostgres(p.db.Ping(ctx))
}

func (p *PostgresStore) Close() error {
	p.db.Close()
	return nil
}

type postgresTx struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *postgresTx) Get(collection, id string) (Snapshot, error) {
	var raw []byte
	err := t.tx.QueryRow(t.ctx, selectDocQuery+` FOR UPDATE`, collection, id).Scan(&raw)
	if err != nil {
		return nil, translatePostgres(err)
	}
	return jsonSnapshot{id: id, raw: raw}, nil
}

func (t *postgresTx) Set(collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	_, err = t.tx.Exec(t.ctx, upsertDocQuery, collection, id, raw)
	return translatePostgres(err)
}

func (t *postgresTx) Create(collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	tag, err := t.tx.Exec(t.ctx, insertDocQuery, collection, id, raw)
	if err != nil {
		return translatePostgres(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func translatePostgres(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
