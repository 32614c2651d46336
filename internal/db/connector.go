package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"apicatalog/internal/introspect"
	"apicatalog/pkg/config"
)

// Introspector lists and describes tables for one dialect.
type Introspector interface {

	// ListTables returns the user tables of the connected database.
	ListTables(ctx context.Context, db *sql.DB) ([]string, error)

	// DescribeTable returns the columns of table in ordinal order.
	DescribeTable(ctx context.Context, db *sql.DB, table string) ([]introspect.Column, error)
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Introspector{}
)

// Register makes an Introspector available under name.
func Register(name string, i Introspector) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(name)] = i
}

// listRegistered returns the registered dialect keys (for diagnostics).
func listRegistered() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	return listRegisteredLocked()
}

func lookup(driver string) (Introspector, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	i, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("dialect not registered: %q (available: %v)", driver, listRegisteredLocked())
	}
	return i, nil
}

func listRegisteredLocked() []string {
	keys := make([]string, 0, len(dialects))
	for k := range dialects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// connect opens the database and pings it within timeout.
func connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	dbConn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := dbConn.PingContext(ctx); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

func withDialect[T any](ctx context.Context, driver, dsn string, timeoutSec int, fn func(context.Context, Introspector, *sql.DB) (T, error)) (T, error) {
	var zero T
	driver = config.NormalizeDriver(driver)
	in, err := lookup(driver)
	if err != nil {
		return zero, err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()
	dbConn, err := connect(ctx, driver, dsn)
	if err != nil {
		return zero, err
	}
	defer dbConn.Close()
	return fn(ctx, in, dbConn)
}

// ConnectAndListTables connects to the database and lists its tables.
func ConnectAndListTables(ctx context.Context, driver, dsn string, timeoutSec int) ([]string, error) {
	return withDialect(ctx, driver, dsn, timeoutSec, func(ctx context.Context, in Introspector, dbConn *sql.DB) ([]string, error) {
		return in.ListTables(ctx, dbConn)
	})
}

// ConnectAndDescribe connects to the database and describes one table. An
// unknown table is an error.
func ConnectAndDescribe(ctx context.Context, driver, dsn, table string, timeoutSec int) ([]introspect.Column, error) {
	return withDialect(ctx, driver, dsn, timeoutSec, func(ctx context.Context, in Introspector, dbConn *sql.DB) ([]introspect.Column, error) {
		cols, err := in.DescribeTable(ctx, dbConn, table)
		if err != nil {
			return nil, err
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("table %q not found", table)
		}
		return cols, nil
	})
}

// RegisteredDialects is a helper that allows main to print registered dialects
func RegisteredDialects() []string {
	return listRegistered()
}
