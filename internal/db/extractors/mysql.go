package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"apicatalog/internal/db"
	"apicatalog/internal/introspect"
)

// myIntrospector implements Introspector for MySQL (information_schema).
type myIntrospector struct{}

func (myIntrospector) ListTables(ctx context.Context, dbConn *sql.DB) ([]string, error) {
	return queryNames(ctx, dbConn, `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_type = 'BASE TABLE' AND table_schema = DATABASE()
        ORDER BY table_name`)
}

func (myIntrospector) DescribeTable(ctx context.Context, dbConn *sql.DB, table string) ([]introspect.Column, error) {
	cr, err := dbConn.QueryContext(ctx, `
        SELECT column_name, column_type, is_nullable = 'YES', column_key = 'PRI', column_default, extra
        FROM information_schema.columns
        WHERE table_schema = DATABASE() AND table_name = ?
        ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer cr.Close()

	var cols []introspect.Column
	for cr.Next() {
		var name, typ, extra string
		var nullable, pk bool
		var dflt sql.NullString
		if err := cr.Scan(&name, &typ, &nullable, &pk, &dflt, &extra); err != nil {
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		cols = append(cols, introspect.NewColumn(name, typ, nullable, pk, nullString(dflt), extra))
	}
	return cols, cr.Err()
}

func init() {
	db.Register("mysql", myIntrospector{})
	db.Register("mariadb", myIntrospector{})
}
