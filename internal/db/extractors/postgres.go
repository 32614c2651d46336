package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"apicatalog/internal/db"
	"apicatalog/internal/introspect"
)

// pgIntrospector implements Introspector using information_schema + pg_catalog queries.
type pgIntrospector struct{}

func (pgIntrospector) ListTables(ctx context.Context, dbConn *sql.DB) ([]string, error) {
	return queryNames(ctx, dbConn, `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_type = 'BASE TABLE' AND table_schema = current_schema()
        ORDER BY table_name`)
}

func (pgIntrospector) DescribeTable(ctx context.Context, dbConn *sql.DB, table string) ([]introspect.Column, error) {
	cr, err := dbConn.QueryContext(ctx, `
        SELECT column_name, data_type, is_nullable = 'YES', column_default,
               CASE WHEN is_identity = 'YES' OR column_default LIKE 'nextval(%' THEN 'auto_increment' ELSE '' END
        FROM information_schema.columns
        WHERE table_schema = current_schema() AND table_name = $1
        ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	var cols []introspect.Column
	for cr.Next() {
		var name, typ, extra string
		var nullable bool
		var dflt sql.NullString
		if err := cr.Scan(&name, &typ, &nullable, &dflt, &extra); err != nil {
			cr.Close()
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		cols = append(cols, introspect.NewColumn(name, typ, nullable, false, nullString(dflt), extra))
	}
	cr.Close()
	if err := cr.Err(); err != nil {
		return nil, err
	}

	markPrimaryKeys(ctx, dbConn, cols, `
        SELECT a.attname
        FROM pg_index i
        JOIN pg_class c ON i.indrelid = c.oid
        JOIN pg_namespace ns ON c.relnamespace = ns.oid
        JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
        WHERE ns.nspname = current_schema() AND c.relname = $1 AND i.indisprimary`, table)
	return cols, nil
}

func init() {
	db.Register("postgres", pgIntrospector{})
	db.Register("postgresql", pgIntrospector{})
}
