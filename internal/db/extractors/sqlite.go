package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"apicatalog/internal/db"
	"apicatalog/internal/introspect"
)

// sqliteIntrospector implements Introspector for SQLite.
type sqliteIntrospector struct{}

func (sqliteIntrospector) ListTables(ctx context.Context, dbConn *sql.DB) ([]string, error) {
	return queryNames(ctx, dbConn, `
	    SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
}

func (sqliteIntrospector) DescribeTable(ctx context.Context, dbConn *sql.DB, table string) ([]introspect.Column, error) {
	pr, err := dbConn.QueryContext(ctx, `SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer pr.Close()

	var cols []introspect.Column
	for pr.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := pr.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		cols = append(cols, introspect.NewColumn(name, ctype, notnull == 0 && pk == 0, pk != 0, nullString(dflt), ""))
	}
	return cols, pr.Err()
}

func init() {
	db.Register("sqlite3", sqliteIntrospector{})
	db.Register("sqlite", sqliteIntrospector{})
}
