package operators

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/goliatone/go-formflow/pkg/logging"
)

func TestRegistryDefaults(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	RegisterDefaults(reg)

	if reg.Count() != 2 || !reg.Has(Equal) || !reg.Has(NotEqual) {
		t.Fatalf("unexpected defaults: %v", reg.Symbols())
	}
	if !reg.Evaluate("=", "USA", "USA") || reg.Evaluate("=", "USA", "India") {
		t.Fatalf("equality operator misbehaves")
	}
	if reg.Evaluate("!=", "USA", "USA") || !reg.Evaluate("!=", "USA", "India") {
		t.Fatalf("inequality operator misbehaves")
	}
}

func TestRegistryCallsOnlyRequestedOperator(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var called []string
	reg.Register(">", func(a, b string) bool { called = append(called, ">"); return a > b })
	reg.Register("<", func(a, b string) bool { called = append(called, "<"); return a < b })

	if reg.Evaluate("<", "123", "12") {
		t.Fatalf("expected \"123\" < \"12\" to be false")
	}
	if len(called) != 1 || called[0] != "<" {
		t.Fatalf("unexpected calls: %v", called)
	}
}

func TestRegistryUnknownOperatorWarnsAndFailsOpen(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	reg := NewRegistry(WithLogger(logging.New(&buf, logging.LevelDebug)))

	if !reg.Evaluate("~=", "", "") {
		t.Fatalf("unknown operator must evaluate to true")
	}
	if !strings.Contains(buf.String(), "operator=~=") {
		t.Fatalf("expected warning naming the operator, got %q", buf.String())
	}
}

func TestRegistryMatchesSymbolsExactly(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	RegisterDefaults(reg)

	if reg.Has(" = ") {
		t.Fatalf("padded symbol must not resolve to %q", Equal)
	}
	if !reg.Evaluate(" = ", "USA", "India") {
		t.Fatalf("padded symbol is unknown and must fail open")
	}

	reg.Register(" ~ ", func(a, b string) bool { return false })
	if !reg.Has(" ~ ") || reg.Has("~") {
		t.Fatalf("symbol must be stored as given, got %v", reg.Symbols())
	}
}

func TestRegistryIgnoresInvalidRegistrations(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("", func(a, b string) bool { return false })
	reg.Register("=", nil)
	if reg.Count() != 0 {
		t.Fatalf("expected no registrations, got %v", reg.Symbols())
	}

	RegisterDefaults(reg)
	reg.Clear()
	if reg.Count() != 0 {
		t.Fatalf("Clear should empty the registry")
	}
}

func TestProperty_UnknownOperatorAlwaysTrue(t *testing.T) {
	reg := NewRegistry()
	RegisterDefaults(reg)

	rapid.Check(t, func(rt *rapid.T) {
		symbol := rapid.StringMatching(`[<>~a-z]{1,3}`).Draw(rt, "symbol")
		a := rapid.String().Draw(rt, "a")
		b := rapid.String().Draw(rt, "b")
		require.True(rt, reg.Evaluate(symbol, a, b), "unknown operator %q must fail open", symbol)
	})
}
