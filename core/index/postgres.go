package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// registryTable records the schema of every index created in the database.
const registryTable = "constpipe_indexes"

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// PostgresEngine stores each index as a table and keeps the schemas in a
// registry table.
type PostgresEngine struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresEngine connects to the database at dsn and makes sure the
// registry table exists.
func NewPostgresEngine(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+registryTable+` (
		name TEXT PRIMARY KEY,
		schema JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create index registry: %w", err)
	}

	logger.Debug("postgres_engine_ready")
	return &PostgresEngine{db: pool, logger: logger}, nil
}

// RetrieveIndex reads the registered schema of an index.
func (e *PostgresEngine) RetrieveIndex(ctx context.Context, name string) (*Schema, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var raw []byte
	err := e.db.QueryRow(ctx, `SELECT schema FROM `+registryTable+` WHERE name = $1`, name).Scan(&raw)
	if err != nil {
		return nil, registryError(name, "failed to query index registry", err)
	}

	var schema Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, NewError(KindSchema, name, fmt.Errorf("decoding stored schema: %w", err))
	}
	return &schema, nil
}

// CreateIndex creates the table of an index and registers its schema in
// one transaction.
func (e *PostgresEngine) CreateIndex(ctx context.Context, schema Schema) error {
	name := schema.Name
	if err := ValidateName(name); err != nil {
		return err
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return NewError(KindSchema, name, err)
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return NewError(KindTransport, name, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `INSERT INTO `+registryTable+` (name, schema) VALUES ($1, $2)`, name, raw)
	if err != nil {
		return registryError(name, "failed to register index", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(schema)); err != nil {
		return NewError(KindTransport, name, fmt.Errorf("failed to create table: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return NewError(KindTransport, name, fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// UpsertBatch coerces every record, then sends the valid ones in a single
// pgx.Batch of INSERT ... ON CONFLICT (key) DO UPDATE statements.
func (e *PostgresEngine) UpsertBatch(ctx context.Context, name string, records []Record, _ UpsertOptions) ([]DocResult, error) {
	schema, err := e.RetrieveIndex(ctx, name)
	if err != nil {
		return nil, err
	}

	valid, positions, results := coerceAll(*schema, records)
	if len(valid) == 0 {
		return results, nil
	}

	query := upsertSQL(*schema)
	batch := &pgx.Batch{}
	for _, rec := range valid {
		args := make([]any, len(schema.Fields))
		for i, f := range schema.Fields {
			args[i] = rec[f.Name]
		}
		batch.Queue(query, args...)
	}

	br := e.db.SendBatch(ctx, batch)
	for range valid {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return nil, NewError(KindTransport, name, fmt.Errorf("failed to upsert batch: %w", err))
		}
	}
	if err := br.Close(); err != nil {
		return nil, NewError(KindTransport, name, fmt.Errorf("failed to close batch: %w", err))
	}

	for _, pos := range positions {
		results[pos].OK = true
	}
	return results, nil
}

// Close closes the connection pool.
func (e *PostgresEngine) Close() error {
	e.db.Close()
	return nil
}

// registryError maps a registry query failure to an index error kind: a
// missing row is KindNotFound, a duplicate name KindAlreadyExists, anything
// else KindTransport.
func registryError(name, op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NewError(KindNotFound, name, nil)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return NewError(KindAlreadyExists, name, nil)
	}
	return NewError(KindTransport, name, fmt.Errorf("%s: %w", op, err))
}

func tableName(name string) string {
	return pgx.Identifier{"idx_" + strings.ReplaceAll(name, "-", "_")}.Sanitize()
}

func columnType(t FieldType) string {
	switch t {
	case TypeInt:
		return "BIGINT"
	case TypeStringList:
		return "TEXT[]"
	default:
		return "TEXT"
	}
}

func createTableSQL(schema Schema) string {
	var cols []string
	for _, f := range schema.Fields {
		col := pgx.Identifier{f.Name}.Sanitize() + " " + columnType(f.Type)
		if f.Key {
			col += " PRIMARY KEY"
		} else if !f.Optional {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", tableName(schema.Name), strings.Join(cols, ",\n\t"))
}

func upsertSQL(schema Schema) string {
	var cols, params, updates []string
	key := schema.Key()
	for i, f := range schema.Fields {
		col := pgx.Identifier{f.Name}.Sanitize()
		cols = append(cols, col)
		params = append(params, fmt.Sprintf("$%d", i+1))
		if f.Name != key {
			updates = append(updates, col+" = EXCLUDED."+col)
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName(schema.Name),
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
		pgx.Identifier{key}.Sanitize(),
		strings.Join(updates, ", "))
}
