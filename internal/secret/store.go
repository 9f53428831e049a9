package secret

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strings"
)

// Store provides credentials for output databases so that passwords never
// have to appear in --output or the run history.
type Store interface {
	// Get returns the secret for key, or an empty value and nil error when
	// the key does not exist.
	Get(key string) ([]byte, error)
}

// EnvStore reads secrets from environment variables.
type EnvStore struct {
	Prefix string
}

func (e EnvStore) Get(key string) ([]byte, error) {
	return []byte(os.Getenv(EnvName(e.Prefix, key))), nil
}

// EnvName maps a key such as "admin@db.local:5432" to
// PREFIX_ADMIN_DB_LOCAL_5432.
func EnvName(prefix, key string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Chain asks each store in turn and returns the first non-empty secret.
type Chain []Store

func (c Chain) Get(key string) ([]byte, error) {
	for _, s := range c {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, nil
}

// Default is the environment, then the macOS Keychain where available.
func Default(envPrefix string) Store {
	chain := Chain{EnvStore{Prefix: envPrefix}}
	if runtime.GOOS == "darwin" {
		chain = append(chain, NewKeychainStore())
	}
	return chain
}

var credentialSchemes = map[string]bool{
	"postgres":    true,
	"postgresql":  true,
	"mysql":       true,
	"mongodb":     true,
	"mongodb+srv": true,
}

// Key is the lookup key for the credentials of a database locator.
func Key(u *url.URL) string {
	return u.User.Username() + "@" + u.Host
}

// ResolvePassword fills in the password of a database locator that names a
// user but no password. Other locators are returned unchanged.
func ResolvePassword(locator string, store Store) (string, error) {
	u, err := url.Parse(locator)
	if err != nil || !credentialSchemes[strings.ToLower(u.Scheme)] || u.User == nil {
		return locator, nil
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return locator, nil
	}

	key := Key(u)
	pw, err := store.Get(key)
	if err != nil {
		return "", fmt.Errorf("lookup password for %s: %w", key, err)
	}
	if len(pw) == 0 {
		return locator, nil
	}
	u.User = url.UserPassword(u.User.Username(), string(pw))
	return u.String(), nil
}
