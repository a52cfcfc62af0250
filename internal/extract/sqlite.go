// Package extract builds a schema graph from a live SQLite database,
// so a schema file does not have to be written by hand.
package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/safequery/safequery/internal/schema"
)

// FromSQLite opens a SQLite database file, walks sqlite_master and the
// table pragmas, and returns a verified schema graph.
func FromSQLite(ctx context.Context, path string) (*schema.Graph, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect to sqlite database: %w", err)
	}
	return extract(ctx, db)
}

func extract(ctx context.Context, db *sql.DB) (*schema.Graph, error) {
	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	g := &schema.Graph{}
	for _, name := range names {
		tbl, err := extractTable(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("extract table %s: %w", name, err)
		}
		g.Tables = append(g.Tables, *tbl)
	}

	if err := schema.Verify(g); err != nil {
		return nil, err
	}
	return g, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func extractTable(ctx context.Context, db *sql.DB, name string) (*schema.Table, error) {
	tbl := &schema.Table{Name: name}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notNull, pk int
		var colName, declType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &colName, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		tbl.Columns = append(tbl.Columns, schema.Column{
			Name:     colName,
			Type:     mapType(declType),
			Nullable: notNull == 0 && pk == 0,
		})
		if pk > 0 {
			tbl.PrimaryKey = append(tbl.PrimaryKey, colName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fks, err := extractForeignKeys(ctx, db, name)
	if err != nil {
		return nil, err
	}
	tbl.ForeignKeys = fks
	return tbl, nil
}

func extractForeignKeys(ctx context.Context, db *sql.DB, name string) ([]schema.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var id, seq int
		var refTable, from string
		var to sql.NullString
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		if !to.Valid {
			// Shorthand REFERENCES without a column targets the primary
			// key; skipped rather than guessed so Verify never sees a
			// dangling reference.
			continue
		}
		fks = append(fks, schema.ForeignKey{
			Column:           from,
			ReferencedTable:  refTable,
			ReferencedColumn: to.String,
		})
	}
	return fks, rows.Err()
}

// mapType folds SQLite's declared column types into the five types the
// gauntlet understands, following SQLite's own affinity rules.
func mapType(decl string) schema.ColumnType {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "INT"):
		return schema.TypeInteger
	case strings.Contains(d, "BOOL"):
		return schema.TypeBoolean
	case strings.Contains(d, "DATE") || strings.Contains(d, "TIME"):
		return schema.TypeDate
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"),
		strings.Contains(d, "DOUB"), strings.Contains(d, "DEC"), strings.Contains(d, "NUM"):
		return schema.TypeDecimal
	default:
		return schema.TypeVarchar
	}
}
