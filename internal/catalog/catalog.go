package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"FilingsScanner/internal/ports"
)

// Entry maps a trading name to its ticker. A nil Ticker marks a known fund
// that is not tracked on the market.
type Entry struct {
	TradingName string  `yaml:"tradingName"`
	Ticker      *string `yaml:"ticker"`
	Description string  `yaml:"description"`
}

// Catalog is a static exact-match lookup from trading name to ticker.
type Catalog struct {
	tickers map[string]string
	known   map[string]struct{}
}

var _ ports.TickerResolver = (*Catalog)(nil)

// New builds a catalog; later entries override earlier ones with the same name.
func New(entries ...Entry) *Catalog {
	c := &Catalog{
		tickers: map[string]string{},
		known:   map[string]struct{}{},
	}
	for _, e := range entries {
		c.Register(e)
	}
	return c
}

// Default returns the built-in fund list.
func Default() *Catalog {
	return New(DefaultEntries()...)
}

// Register adds or replaces an entry.
func (c *Catalog) Register(e Entry) {
	name := strings.TrimSpace(e.TradingName)
	if name == "" {
		return
	}
	c.known[name] = struct{}{}
	if e.Ticker == nil || strings.TrimSpace(*e.Ticker) == "" {
		delete(c.tickers, name)
		return
	}
	c.tickers[name] = strings.TrimSpace(*e.Ticker)
}

// Resolve returns the ticker for an exact trading name match.
func (c *Catalog) Resolve(tradingName string) (string, bool) {
	ticker, ok := c.tickers[strings.TrimSpace(tradingName)]
	return ticker, ok
}

// Known reports whether the name is listed, with or without a ticker.
func (c *Catalog) Known(tradingName string) bool {
	_, ok := c.known[strings.TrimSpace(tradingName)]
	return ok
}

// Len returns the number of listed trading names.
func (c *Catalog) Len() int {
	return len(c.known)
}

// LoadFile reads a YAML list of entries.
func LoadFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return entries, nil
}

func ticker(s string) *string {
	return &s
}

// DefaultEntries lists the funds tracked out of the box.
func DefaultEntries() []Entry {
	return []Entry{
		{TradingName: "FII NAUI", Ticker: ticker("NAUI11"), Description: "Life Capital Partners Fundo de Investimento Imobiliário"},
		{TradingName: "FII TOPP", Ticker: ticker("TOPP11"), Description: "RBR Top Offices Fundo de Investimento Imobiliário"},
		{TradingName: "FII RB CAP I", Ticker: ticker("FIIP11"), Description: "RB Capital Renda I Fundo de Investimento Imobiliário"},
		{TradingName: "FII CPHBC UR", Description: "Fundo imobiliário não identificado ou com ticker não disponível"},
		{TradingName: "FII LEGATUS", Ticker: ticker("LASC11"), Description: "Legatus Shoppings Fundo de Investimento Imobiliário"},
		{TradingName: "FII MAGM", Description: "Fundo imobiliário não identificado ou com ticker não disponível"},
		{TradingName: "FIAGRO VCRA", Ticker: ticker("VCRA11"), Description: "Vectis Datagro Crédito Agronegócio FIAGRO"},
		{TradingName: "FII LIFE", Ticker: ticker("LIFE11"), Description: "Life Capital Partners Fundo de Investimento Imobiliário"},
	}
}
