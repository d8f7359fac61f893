package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
)

// Dialect renders the database-specific fragments of a page list query.
type Dialect interface {
	// Name is the configuration name of the dialect.
	Name() string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// QuoteLiteral quotes a string literal.
	QuoteLiteral(s string) string

	// BackslashEscapes reports whether '\' escapes inside string literals.
	BackslashEscapes() bool

	// Concat joins string expressions.
	Concat(exprs ...string) string

	// GroupConcat aggregates expr into one separated string per group.
	GroupConcat(expr, separator string) string

	// RegexpMatch returns a predicate matching expr against a quoted pattern.
	RegexpMatch(expr, quotedPattern string) (string, error)

	// FoldCase lower-cases expr for case-insensitive comparison.
	FoldCase(expr string) string

	// FormatTimestamp renders a timestamp column as YYYYMMDDHHMMSS.
	FormatTimestamp(expr string) string

	// Paginate returns the clause bounding the result. hasOrder reports
	// whether the statement carries an ORDER BY.
	Paginate(limit, offset int, hasLimit, hasOrder bool) string

	// Collate applies a collation to expr.
	Collate(expr, collation string) string

	// LooseGroupBy reports whether a grouped statement may select columns
	// that are neither grouped nor aggregated.
	LooseGroupBy() bool
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "sqlserver", "mssql":
		return SQLServer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDialect, name)
}

func limitOffset(limit, offset int, hasLimit bool) string {
	var parts []string
	if hasLimit {
		parts = append(parts, "LIMIT "+strconv.Itoa(limit))
	}
	if offset > 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(offset))
	}
	return strings.Join(parts, " ")
}

func doubleQuotes(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// MySQL is the MediaWiki native dialect (MySQL and MariaDB).
type MySQL struct{}

var mysqlLiteralReplacer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) QuoteLiteral(s string) string {
	return "'" + mysqlLiteralReplacer.Replace(s) + "'"
}

func (MySQL) BackslashEscapes() bool { return true }

func (MySQL) LooseGroupBy() bool { return true }

func (MySQL) Concat(exprs ...string) string {
	return "CONCAT(" + strings.Join(exprs, ", ") + ")"
}

func (d MySQL) GroupConcat(expr, separator string) string {
	return fmt.Sprintf("GROUP_CONCAT(DISTINCT %s ORDER BY %s ASC SEPARATOR %s)", expr, expr, d.QuoteLiteral(separator))
}

func (MySQL) RegexpMatch(expr, quotedPattern string) (string, error) {
	return expr + " REGEXP " + quotedPattern, nil
}

func (MySQL) FoldCase(expr string) string {
	return "LOWER(CAST(" + expr + " AS char))"
}

func (MySQL) FormatTimestamp(expr string) string {
	return "DATE_FORMAT(" + expr + ", '%Y%m%d%H%i%s')"
}

func (MySQL) Paginate(limit, offset int, hasLimit, _ bool) string {
	if offset > 0 && !hasLimit {
		// MySQL has no OFFSET without LIMIT
		return fmt.Sprintf("LIMIT %d, 18446744073709551615", offset)
	}
	return limitOffset(limit, offset, hasLimit)
}

func (MySQL) Collate(expr, collation string) string {
	if collation == "" {
		return expr
	}
	return expr + " COLLATE " + collation
}

// Postgres renders PostgreSQL syntax. Quoting is delegated to lib/pq.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (Postgres) QuoteLiteral(s string) string {
	return strings.TrimSpace(pq.QuoteLiteral(s))
}

func (Postgres) BackslashEscapes() bool { return false }

func (Postgres) LooseGroupBy() bool { return false }

func (Postgres) Concat(exprs ...string) string {
	return "CONCAT(" + strings.Join(exprs, ", ") + ")"
}

func (d Postgres) GroupConcat(expr, separator string) string {
	return fmt.Sprintf("STRING_AGG(DISTINCT %s, %s ORDER BY %s)", expr, d.QuoteLiteral(separator), expr)
}

func (Postgres) RegexpMatch(expr, quotedPattern string) (string, error) {
	return expr + " ~ " + quotedPattern, nil
}

func (Postgres) FoldCase(expr string) string {
	return "LOWER(CAST(" + expr + " AS text))"
}

func (Postgres) FormatTimestamp(expr string) string {
	return "TO_CHAR(" + expr + ", 'YYYYMMDDHH24MISS')"
}

func (Postgres) Paginate(limit, offset int, hasLimit, _ bool) string {
	return limitOffset(limit, offset, hasLimit)
}

func (Postgres) Collate(expr, collation string) string {
	if collation == "" {
		return expr
	}
	return expr + " COLLATE " + pq.QuoteIdentifier(collation)
}

// SQLite renders SQLite syntax. REGEXP relies on the function registered by
// the sqlite datasource adapter.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) QuoteLiteral(s string) string { return doubleQuotes(s) }

func (SQLite) BackslashEscapes() bool { return false }

func (SQLite) LooseGroupBy() bool { return true }

func (SQLite) Concat(exprs ...string) string {
	return "(" + strings.Join(exprs, " || ") + ")"
}

// GroupConcat cannot combine DISTINCT with a separator in SQLite; duplicates
// are removed when the record is built.
func (d SQLite) GroupConcat(expr, separator string) string {
	return fmt.Sprintf("GROUP_CONCAT(%s, %s)", expr, d.QuoteLiteral(separator))
}

func (SQLite) RegexpMatch(expr, quotedPattern string) (string, error) {
	return expr + " REGEXP " + quotedPattern, nil
}

func (SQLite) FoldCase(expr string) string {
	return "LOWER(" + expr + ")"
}

func (SQLite) FormatTimestamp(expr string) string {
	return "STRFTIME('%Y%m%d%H%M%S', " + expr + ")"
}

func (SQLite) Paginate(limit, offset int, hasLimit, _ bool) string {
	if offset > 0 && !hasLimit {
		return fmt.Sprintf("LIMIT -1 OFFSET %d", offset)
	}
	return limitOffset(limit, offset, hasLimit)
}

func (SQLite) Collate(expr, collation string) string {
	if collation == "" {
		return expr
	}
	return expr + " COLLATE " + collation
}

// SQLServer renders Microsoft SQL Server syntax.
type SQLServer struct{}

func (SQLServer) Name() string { return "sqlserver" }

func (SQLServer) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (SQLServer) QuoteLiteral(s string) string { return "N" + doubleQuotes(s) }

func (SQLServer) BackslashEscapes() bool { return false }

func (SQLServer) LooseGroupBy() bool { return false }

func (SQLServer) Concat(exprs ...string) string {
	return "CONCAT(" + strings.Join(exprs, ", ") + ")"
}

func (d SQLServer) GroupConcat(expr, separator string) string {
	return fmt.Sprintf("STRING_AGG(%s, %s) WITHIN GROUP (ORDER BY %s)", expr, d.QuoteLiteral(separator), expr)
}

func (SQLServer) RegexpMatch(string, string) (string, error) {
	return "", fmt.Errorf("%w: regular expressions on sqlserver", apperrors.ErrUnsupportedFeature)
}

func (SQLServer) FoldCase(expr string) string {
	return "LOWER(CAST(" + expr + " AS nvarchar(255)))"
}

func (SQLServer) FormatTimestamp(expr string) string {
	return "FORMAT(" + expr + ", 'yyyyMMddHHmmss')"
}

func (SQLServer) Paginate(limit, offset int, hasLimit, hasOrder bool) string {
	if !hasLimit && offset <= 0 {
		return ""
	}
	var b strings.Builder
	if !hasOrder {
		b.WriteString("ORDER BY (SELECT NULL) ")
	}
	fmt.Fprintf(&b, "OFFSET %d ROWS", max(offset, 0))
	if hasLimit {
		fmt.Fprintf(&b, " FETCH NEXT %d ROWS ONLY", limit)
	}
	return b.String()
}

func (SQLServer) Collate(expr, collation string) string {
	if collation == "" {
		return expr
	}
	return expr + " COLLATE " + collation
}
