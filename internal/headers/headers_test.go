package headers

import (
	"context"
	"errors"
	"testing"
)

func TestResolve_NilFactory(t *testing.T) {
	a := NewAssembler(nil)

	got, err := a.Resolve(context.Background(), map[string]string{"X-One": "1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got["X-One"] != "1" || len(got) != 1 {
		t.Errorf("Resolve() = %v, want only per-call headers", got)
	}
}

func TestResolve_PerCallWinsOverFactory(t *testing.T) {
	a := NewAssembler(func(ctx context.Context) (map[string]string, error) {
		return map[string]string{
			"Authorization": "Bearer from-factory",
			"X-Base":        "base",
		}, nil
	})

	got, err := a.Resolve(context.Background(), map[string]string{
		"Authorization": "Bearer from-call",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got["Authorization"] != "Bearer from-call" {
		t.Errorf("Authorization = %q, per-call header must win", got["Authorization"])
	}
	if got["X-Base"] != "base" {
		t.Errorf("X-Base = %q, factory header must survive", got["X-Base"])
	}
}

func TestResolve_FactoryErrorPropagates(t *testing.T) {
	wantErr := errors.New("token fetch failed")
	a := NewAssembler(func(ctx context.Context) (map[string]string, error) {
		return nil, wantErr
	})

	if _, err := a.Resolve(context.Background(), nil); !errors.Is(err, wantErr) {
		t.Errorf("Resolve() error = %v, want %v", err, wantErr)
	}
}

func TestResolve_FreshMapPerCall(t *testing.T) {
	a := NewAssembler(nil)

	first, _ := a.Resolve(context.Background(), map[string]string{"X": "1"})
	first["X"] = "mutated"

	second, _ := a.Resolve(context.Background(), map[string]string{"X": "1"})
	if second["X"] != "1" {
		t.Error("resolved maps must not share state across calls")
	}
}
