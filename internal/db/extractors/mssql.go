package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"apicatalog/internal/db"
	"apicatalog/internal/introspect"
)

// mssqlIntrospector implements Introspector for Microsoft SQL Server.
type mssqlIntrospector struct{}

func (mssqlIntrospector) ListTables(ctx context.Context, dbConn *sql.DB) ([]string, error) {
	return queryNames(ctx, dbConn, `
        SELECT TABLE_NAME
        FROM INFORMATION_SCHEMA.TABLES
        WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = SCHEMA_NAME()
        ORDER BY TABLE_NAME`)
}

func (mssqlIntrospector) DescribeTable(ctx context.Context, dbConn *sql.DB, table string) ([]introspect.Column, error) {
	cr, err := dbConn.QueryContext(ctx, `
        SELECT COLUMN_NAME, DATA_TYPE, CASE WHEN IS_NULLABLE='YES' THEN 1 ELSE 0 END, COLUMN_DEFAULT,
               CASE WHEN COLUMNPROPERTY(OBJECT_ID(TABLE_SCHEMA + '.' + TABLE_NAME), COLUMN_NAME, 'IsIdentity') = 1
                    THEN 'auto_increment' ELSE '' END
        FROM INFORMATION_SCHEMA.COLUMNS
        WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @table
        ORDER BY ORDINAL_POSITION`, sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}

	var cols []introspect.Column
	for cr.Next() {
		var name, typ, extra string
		var nullableInt int
		var dflt sql.NullString
		if err := cr.Scan(&name, &typ, &nullableInt, &dflt, &extra); err != nil {
			cr.Close()
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		cols = append(cols, introspect.NewColumn(name, typ, nullableInt == 1, false, nullString(dflt), extra))
	}
	cr.Close()
	if err := cr.Err(); err != nil {
		return nil, err
	}

	markPrimaryKeys(ctx, dbConn, cols, `
        SELECT k.COLUMN_NAME
        FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS t
        JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k ON t.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND t.TABLE_SCHEMA = k.TABLE_SCHEMA
        WHERE t.CONSTRAINT_TYPE = 'PRIMARY KEY' AND k.TABLE_SCHEMA = SCHEMA_NAME() AND k.TABLE_NAME = @table`, sql.Named("table", table))
	return cols, nil
}

func init() {
	db.Register("sqlserver", mssqlIntrospector{})
	db.Register("mssql", mssqlIntrospector{})
}
