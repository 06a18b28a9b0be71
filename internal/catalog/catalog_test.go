package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveExactMatch(t *testing.T) {
	t.Parallel()

	c := Default()

	got, ok := c.Resolve("FII LIFE")
	if !ok || got != "LIFE11" {
		t.Fatalf("expected LIFE11, got %q (ok=%v)", got, ok)
	}

	if _, ok := c.Resolve("FII life"); ok {
		t.Fatalf("lookup must be case sensitive")
	}
	if _, ok := c.Resolve("FII UNKNOWN"); ok {
		t.Fatalf("unknown fund must not resolve")
	}
}

func TestResolveNullTicker(t *testing.T) {
	t.Parallel()

	c := Default()
	if _, ok := c.Resolve("FII MAGM"); ok {
		t.Fatalf("fund without ticker must not resolve")
	}
	if !c.Known("FII MAGM") {
		t.Fatalf("fund without ticker should still be known")
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	t.Parallel()

	c := Default()
	first, firstOK := c.Resolve("FIAGRO VCRA")
	for i := 0; i < 10; i++ {
		got, ok := c.Resolve("FIAGRO VCRA")
		if got != first || ok != firstOK {
			t.Fatalf("resolve changed between calls: %q/%v vs %q/%v", got, ok, first, firstOK)
		}
	}
}

func TestRegisterOverrides(t *testing.T) {
	t.Parallel()

	c := Default()
	c.Register(Entry{TradingName: "FII MAGM", Ticker: ticker("MAGM11")})
	c.Register(Entry{TradingName: "FII LIFE"})

	if got, ok := c.Resolve("FII MAGM"); !ok || got != "MAGM11" {
		t.Fatalf("expected override MAGM11, got %q", got)
	}
	if _, ok := c.Resolve("FII LIFE"); ok {
		t.Fatalf("nil ticker override should clear the mapping")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
- tradingName: FII NEW
  ticker: NEWW11
- tradingName: FII NONE
  ticker: null
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	entries, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	c := New(entries...)
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if got, ok := c.Resolve("FII NEW"); !ok || got != "NEWW11" {
		t.Fatalf("unexpected ticker %q", got)
	}
	if _, ok := c.Resolve("FII NONE"); ok {
		t.Fatalf("null ticker must not resolve")
	}
}
