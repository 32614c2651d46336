package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"apicatalog/internal/introspect"
	"apicatalog/internal/logger"
)

// queryNames runs a query returning a single text column.
func queryNames(ctx context.Context, dbConn *sql.DB, query string, args ...interface{}) ([]string, error) {
	rows, err := dbConn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// markPrimaryKeys flags the columns returned by a primary key query. Failures
// are logged and leave the columns unflagged.
func markPrimaryKeys(ctx context.Context, dbConn *sql.DB, cols []introspect.Column, query string, args ...interface{}) {
	pkr, err := dbConn.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("query primary key: %v", err)
		return
	}
	defer pkr.Close()
	for pkr.Next() {
		var pkcol string
		if err := pkr.Scan(&pkcol); err != nil {
			logger.Error("scan primary key: %v", err)
			continue
		}
		for j := range cols {
			if cols[j].Field == pkcol {
				cols[j].Key = "PRI"
			}
		}
	}
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
