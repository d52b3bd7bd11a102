package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Postgres reads the catalog from the books table.
type Postgres struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

type bookRow struct {
	Name        string `db:"book_name"`
	Description string `db:"description"`
	Author      string `db:"author"`
	Image       string `db:"image"`
}

// NewPostgres creates a catalog provider backed by db.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:     sqlx.NewDb(db, "postgres"),
		tracer: otel.Tracer("libralend/catalog"),
	}
}

// Items lists the books in insertion order.
func (p *Postgres) Items(ctx context.Context) ([]Item, error) {
	ctx, span := p.tracer.Start(ctx, "catalog.items")
	defer span.End()

	var rows []bookRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT book_name,
		       COALESCE(description, '') AS description,
		       COALESCE(author, '') AS author,
		       COALESCE(image, '') AS image
		FROM books
		ORDER BY id ASC
	`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query books: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			ID:          row.Name,
			Description: row.Description,
			Author:      row.Author,
			Image:       row.Image,
		})
	}

	span.SetAttributes(attribute.Int("items.loaded", len(items)))
	return items, nil
}
