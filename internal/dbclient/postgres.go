package dbclient

import (
	"fmt"
	"net/url"

	_ "github.com/lib/pq"
)

// postgresDSN passes the URL through to lib/pq, defaulting sslmode to
// "disable" when the URL does not set it.
func postgresDSN(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("parse postgres url: %w", err)
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
