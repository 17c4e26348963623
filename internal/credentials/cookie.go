package credentials

import (
	"net/url"
	"strings"
)

// CookieString is the fallback store: a semicolon-separated list of
// key=value pairs with percent-encoded values, in the style of a
// Cookie header.
type CookieString string

var _ Provider = CookieString("")

func (c CookieString) Lookup(key string) (string, bool) {
	for _, pair := range strings.Split(string(c), ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name != key {
			continue
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			return decoded, true
		}
		// Undecodable values are returned raw rather than dropped.
		return value, true
	}
	return "", false
}

// CookieSource re-reads the cookie string on every lookup, for callers
// whose backing string changes over time.
type CookieSource func() string

var _ Provider = CookieSource(nil)

func (f CookieSource) Lookup(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	return CookieString(f()).Lookup(key)
}
