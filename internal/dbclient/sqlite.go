package dbclient

import (
	_ "modernc.org/sqlite"
)

// sqliteDSN opens the file with a busy timeout so a concurrent reader does
// not fail the export.
func sqliteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)"
}
