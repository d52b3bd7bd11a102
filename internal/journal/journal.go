// Package journal keeps an append-only audit trail of lending transitions
// in PostgreSQL. The engine never reads it back; lending state starts empty
// on every run.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libralend/internal/lending"
)

var (
	ErrDuplicateEntry = errors.New("duplicate journal entry")
)

// Entry is one recorded transition.
type Entry struct {
	ID         int64     `json:"id" db:"id"`
	EntryID    uuid.UUID `json:"entry_id" db:"entry_id"`
	Item       string    `json:"item" db:"item"`
	FromStatus string    `json:"from_status" db:"from_status"`
	ToStatus   string    `json:"to_status" db:"to_status"`
	Cause      string    `json:"cause" db:"cause"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}

// Journal appends lending transitions to the lending_journal table.
type Journal struct {
	db      *sql.DB
	tracer  trace.Tracer
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a journal over db. logger may be nil.
func New(db *sql.DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Journal{
		db:      db,
		tracer:  otel.Tracer("libralend/journal"),
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// EnsureSchema creates the journal table when it does not exist.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lending_journal (
			id BIGSERIAL PRIMARY KEY,
			entry_id UUID NOT NULL UNIQUE,
			item TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			cause TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS lending_journal_item_idx ON lending_journal (item, id);
	`)
	if err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Append records one change and returns the stored entry.
func (j *Journal) Append(ctx context.Context, c lending.Change) (*Entry, error) {
	return j.append(ctx, uuid.New(), c)
}

func (j *Journal) append(ctx context.Context, entryID uuid.UUID, c lending.Change) (*Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("item.id", c.Item),
			attribute.String("transition.from", c.From.String()),
			attribute.String("transition.to", c.To.String()),
		),
	)
	defer span.End()

	entry := &Entry{
		EntryID:    entryID,
		Item:       c.Item,
		FromStatus: c.From.String(),
		ToStatus:   c.To.String(),
		Cause:      string(c.Cause),
		OccurredAt: c.At.UTC(),
	}

	err := j.db.QueryRowContext(ctx, `
		INSERT INTO lending_journal (entry_id, item, from_status, to_status, cause, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, entry.EntryID, entry.Item, entry.FromStatus, entry.ToStatus, entry.Cause, entry.OccurredAt).Scan(&entry.ID)
	if err != nil {
		span.RecordError(err)
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}

	span.SetAttributes(attribute.Int64("entry.id", entry.ID))
	return entry, nil
}

// Record is a lending subscriber: it appends c with its own timeout and
// logs failures instead of returning them.
func (j *Journal) Record(c lending.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.Append(ctx, c); err != nil {
		j.logger.Error("journal append failed",
			slog.String("item", c.Item),
			slog.String("to", c.To.String()),
			slog.Any("error", err),
		)
	}
}

// Load returns every entry for one item in append order.
func (j *Journal) Load(ctx context.Context, item string) ([]Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(attribute.String("item.id", item)),
	)
	defer span.End()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, entry_id, item, from_status, to_status, cause, occurred_at
		FROM lending_journal
		WHERE item = $1
		ORDER BY id ASC
	`, item)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("entries.loaded", len(entries)))
	return entries, nil
}

// Stream provides a cursor over all entries with id > fromID.
func (j *Journal) Stream(ctx context.Context, fromID int64, batchSize int) ([]Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, entry_id, item, from_status, to_status, cause, occurred_at
		FROM lending_journal
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, fromID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("query journal stream: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("entries.streamed", len(entries)))
	return entries, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntryID, &e.Item, &e.FromStatus, &e.ToStatus, &e.Cause, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}
