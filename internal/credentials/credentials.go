// Package credentials resolves opaque bearer tokens from a layered set
// of read-only lookup providers. Providers are tried in order and each
// one is fully fault-tolerant: a broken store never surfaces an error
// to the caller, it simply reports a miss.
package credentials

// Logical token keys shared by the stores.
const (
	// KeyIdentity holds the OAuth identity token written by the
	// sign-in widget.
	KeyIdentity = "identity_token"

	// KeyAPIToken holds the API bearer token used for tier
	// verification.
	KeyAPIToken = "api_token"
)

// Provider looks up the value stored under key. The second return is
// false when the key is absent or the store is unavailable.
type Provider interface {
	Lookup(key string) (string, bool)
}

// Chain tries each provider in order and returns the first hit.
type Chain []Provider

func (c Chain) Lookup(key string) (string, bool) {
	for _, p := range c {
		if v, ok := p.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}
