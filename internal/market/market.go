package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AssetClass groups assets under a shared threshold policy and session rule.
type AssetClass string

const (
	ClassCrypto         AssetClass = "CRYPTO"
	ClassCommodity      AssetClass = "COMMODITY"
	ClassRegionalEquity AssetClass = "REGIONAL_EQUITY"
	ClassMicroCap       AssetClass = "MICRO_CAP"
	ClassFund           AssetClass = "FUND"
	ClassDefault        AssetClass = "DEFAULT"
)

// ParseAssetClass normalises a class tag, falling back to DEFAULT.
func ParseAssetClass(v string) AssetClass {
	switch AssetClass(strings.ToUpper(strings.TrimSpace(v))) {
	case ClassCrypto:
		return ClassCrypto
	case ClassCommodity:
		return ClassCommodity
	case ClassRegionalEquity:
		return ClassRegionalEquity
	case ClassMicroCap:
		return ClassMicroCap
	case ClassFund:
		return ClassFund
	default:
		return ClassDefault
	}
}

// Asset identifies a tradable instrument in the scan universe.
// Sessions lists the trading sessions that make the asset eligible for a
// cycle; the asset is evaluated when any of them is open. An empty list
// means always eligible (crypto).
type Asset struct {
	Symbol   string
	Name     string
	Class    AssetClass
	Sessions []string
}

// AlwaysEligible reports whether the asset ignores session gating.
func (a Asset) AlwaysEligible() bool {
	return len(a.Sessions) == 0
}

// PriceBar is a single OHLCV observation.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// SortBars orders bars chronologically in place.
func SortBars(bars []PriceBar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}

// Dedupe removes assets repeating a symbol, keeping the first occurrence.
func Dedupe(assets []Asset) []Asset {
	seen := make(map[string]struct{}, len(assets))
	unique := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if _, ok := seen[a.Symbol]; ok {
			continue
		}
		seen[a.Symbol] = struct{}{}
		unique = append(unique, a)
	}
	return unique
}

func (a Asset) String() string {
	return fmt.Sprintf("%s (%s)", a.Symbol, a.Class)
}
