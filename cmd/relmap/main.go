// Command relmap checks mapping descriptors and derives artifacts from them:
// DDL, Go identifier constants, a GraphQL schema and snapshots.
package main

import (
	"os"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver, registered as "postgres"
	_ "modernc.org/sqlite"             // SQLite driver
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
