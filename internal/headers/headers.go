// Package headers assembles the resolved header set used by every
// outbound call.
package headers

import "context"

// Factory produces base headers asynchronously, typically from a token
// provider. It runs once per call, before per-call headers are applied.
type Factory func(ctx context.Context) (map[string]string, error)

// Assembler merges factory-produced headers with per-call headers.
// Per-call headers win on key collision. Header names are kept
// case-sensitively as provided; no canonicalization happens here.
type Assembler struct {
	factory Factory
}

// NewAssembler creates an assembler. factory may be nil, in which case
// only per-call headers apply.
func NewAssembler(factory Factory) *Assembler {
	return &Assembler{factory: factory}
}

// Resolve builds a fresh header map for one call. The returned map is
// owned by the caller; no state is shared across calls.
func (a *Assembler) Resolve(ctx context.Context, perCall map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(perCall))

	if a.factory != nil {
		base, err := a.factory(ctx)
		if err != nil {
			return nil, err
		}
		for k, v := range base {
			resolved[k] = v
		}
	}

	for k, v := range perCall {
		resolved[k] = v
	}

	return resolved, nil
}
