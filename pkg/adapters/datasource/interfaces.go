package datasource

import "context"

// ConnectionTester tests database connectivity.
// Each implementation owns its connection and must be closed when done.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid credentials.
	// Returns nil if connection is healthy, error otherwise.
	TestConnection(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

// RowCursor streams the rows of one query. Rows are consumed once, in order.
//
//	for cur.Next() {
//		row, err := cur.Row()
//		...
//	}
//	if err := cur.Err(); err != nil { ... }
type RowCursor interface {
	// Columns returns the result column names.
	Columns() []string

	// Next advances to the next row. It returns false when the rows are
	// exhausted or an error occurred; check Err afterwards.
	Next() bool

	// Row returns the current row keyed by column name. Byte slices are
	// returned as strings.
	Row() (map[string]any, error)

	// Err returns the first error encountered while iterating.
	Err() error

	// Close releases the cursor. It is safe to call more than once.
	Close() error
}

// QueryExecutor runs generated page list SQL against the wiki database.
// Implementations are safe for concurrent use; each Query call returns an
// independent cursor.
type QueryExecutor interface {
	ConnectionTester

	// Query runs a single SELECT statement and streams its rows.
	Query(ctx context.Context, sqlQuery string) (RowCursor, error)

	// Dialect returns the SQL dialect name: mysql, postgres, sqlite or sqlserver.
	Dialect() string
}
