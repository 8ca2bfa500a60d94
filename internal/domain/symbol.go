package domain

import (
	"regexp"
	"strings"
)

// SymbolClass categorizes a tradable symbol by its naming pattern.
type SymbolClass string

const (
	ClassReal      SymbolClass = "real"
	ClassOTC       SymbolClass = "otc"
	ClassCrypto    SymbolClass = "crypto"
	ClassCommodity SymbolClass = "commodity"
)

// SymbolInfo pairs a symbol identifier with its class.
type SymbolInfo struct {
	Symbol string      `json:"symbol"`
	Type   SymbolClass `json:"type"`
}

var (
	otcPattern       = regexp.MustCompile(`(?i)\(OTC\)|OTC$`)
	cryptoPattern    = regexp.MustCompile(`(?i)BTC|DOGE|SHIBA|PEPE|ARB|APTOS|TRON|BITCOIN|BINANCE`)
	commodityPattern = regexp.MustCompile(`(?i)GOLD|SILVER|CRUDE|UKBRENT|USCRUDE`)
)

// Classify determines the class of a symbol from its name.
func Classify(symbol string) SymbolClass {
	switch {
	case otcPattern.MatchString(symbol):
		return ClassOTC
	case cryptoPattern.MatchString(symbol):
		return ClassCrypto
	case commodityPattern.MatchString(symbol):
		return ClassCommodity
	default:
		return ClassReal
	}
}

// Registry is the ordered set of tracked symbols, fixed at process start.
type Registry struct {
	symbols []SymbolInfo
}

// NewRegistry builds a registry from a watch list, trimming blanks and
// classifying each entry.
func NewRegistry(watch []string) *Registry {
	infos := make([]SymbolInfo, 0, len(watch))
	seen := make(map[string]bool, len(watch))
	for _, s := range watch {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		infos = append(infos, SymbolInfo{Symbol: s, Type: Classify(s)})
	}
	return &Registry{symbols: infos}
}

// Symbols returns the tracked symbol names in registration order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.symbols))
	for i, s := range r.symbols {
		out[i] = s.Symbol
	}
	return out
}

// Infos returns a copy of the classified registry entries.
func (r *Registry) Infos() []SymbolInfo {
	out := make([]SymbolInfo, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// Contains reports whether symbol is tracked.
func (r *Registry) Contains(symbol string) bool {
	for _, s := range r.symbols {
		if strings.EqualFold(s.Symbol, symbol) {
			return true
		}
	}
	return false
}

// Len returns the number of tracked symbols.
func (r *Registry) Len() int {
	return len(r.symbols)
}
