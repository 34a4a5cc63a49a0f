package memory

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// dialectFromDSN picks a database/sql driver name and the DSN to pass to
// sql.Open by reading the DSN's scheme, mirroring the
// sqlite/mysql/postgres trio the teacher's session store links in.
func dialectFromDSN(dsn string) (driver, dialect, strippedDSN string, err error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "", "", "", fmt.Errorf("memory: dsn %q has no scheme (expected sqlite://, mysql://, or postgres://)", dsn)
	}

	switch scheme {
	case "sqlite", "sqlite3":
		return "sqlite3", "sqlite", rest, nil
	case "mysql":
		return "mysql", "mysql", rest, nil
	case "postgres", "postgresql":
		return "postgres", "postgres", dsn, nil
	default:
		return "", "", "", fmt.Errorf("memory: unsupported dsn scheme %q (supported: sqlite, mysql, postgres)", scheme)
	}
}

// convertToPostgresPlaceholders rewrites `?` placeholders into `$1`,
// `$2`, ... for drivers that require numbered parameters.
func convertToPostgresPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 20)
	n := 1
	for _, c := range query {
		if c == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func placeholders(dialect, query string) string {
	if dialect == "postgres" {
		return convertToPostgresPlaceholders(query)
	}
	return query
}
