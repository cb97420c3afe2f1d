package config

import (
	"time"

	"signal-scanner/internal/calendar"
)

// DefaultSessions covers the exchanges the stock universe trades on plus
// the always-open crypto pseudo-session.
func DefaultSessions() []calendar.SessionConfig {
	return []calendar.SessionConfig{
		{ID: "nyse", Timezone: "America/New_York", Open: "09:30", Close: "16:00", Holidays: "us"},
		{ID: "bvc", Timezone: "America/Bogota", Open: "09:00", Close: "16:00"},
		{ID: "crypto", AlwaysOpen: true},
	}
}

// DefaultUniverse is the built-in scan list used when the config file does
// not declare one.
func DefaultUniverse() []AssetConfig {
	return []AssetConfig{
		{Symbol: "BTC-USD", Name: "Bitcoin", Class: "CRYPTO"},
		{Symbol: "ETH-USD", Name: "Ethereum", Class: "CRYPTO"},
		{Symbol: "BNB-USD", Name: "BNB", Class: "CRYPTO"},
		{Symbol: "SOL-USD", Name: "Solana", Class: "CRYPTO"},
		{Symbol: "ADA-USD", Name: "Cardano", Class: "CRYPTO"},
		{Symbol: "GC=F", Name: "Gold Futures", Class: "COMMODITY", Sessions: []string{"nyse"}},
		{Symbol: "SI=F", Name: "Silver Futures", Class: "COMMODITY", Sessions: []string{"nyse"}},
		{Symbol: "CL=F", Name: "Crude Oil Futures", Class: "COMMODITY", Sessions: []string{"nyse"}},
		{Symbol: "EC", Name: "Ecopetrol", Class: "REGIONAL_EQUITY", Sessions: []string{"bvc", "nyse"}},
		{Symbol: "ISA", Name: "Interconexion Electrica", Class: "REGIONAL_EQUITY", Sessions: []string{"bvc", "nyse"}},
		{Symbol: "XLF", Name: "Financial Select Sector", Class: "FUND", Sessions: []string{"nyse"}},
	}
}

// DefaultPolicies is the built-in per-class gate table. Crypto trades the
// MACD check as advisory with a reduced quorum since the 24/7 series makes
// the histogram noisy on short intervals.
func DefaultPolicies() map[string]PolicyConfig {
	return map[string]PolicyConfig{
		"CRYPTO": {
			Threshold:    0.70,
			RSIMin:       30,
			RSIMax:       70,
			MinRelVolume: 1.2,
			Quorum:       2,
			Advisory:     []string{"macd"},
		},
		"COMMODITY": {
			Threshold:    0.70,
			RSIMin:       35,
			RSIMax:       65,
			MinRelVolume: 1.3,
			Quorum:       3,
			StrictTrend:  true,
		},
		"REGIONAL_EQUITY": {
			Threshold:    0.70,
			RSIMin:       35,
			RSIMax:       65,
			MinRelVolume: 1.4,
			Quorum:       3,
			StrictTrend:  true,
		},
		"MICRO_CAP": {
			Threshold:    0.70,
			RSIMin:       40,
			RSIMax:       60,
			MinRelVolume: 1.5,
			Quorum:       3,
			StrictTrend:  true,
		},
		"FUND": {
			Threshold:    0.70,
			RSIMin:       35,
			RSIMax:       65,
			MinRelVolume: 1.3,
			Quorum:       3,
			StrictTrend:  true,
		},
		"DEFAULT": {
			Threshold:    0.70,
			RSIMin:       35,
			RSIMax:       65,
			MinRelVolume: 1.3,
			Quorum:       3,
			StrictTrend:  true,
		},
	}
}

// DefaultIntervals requests finer bars for crypto, which never closes, and
// hourly bars over a month elsewhere.
func DefaultIntervals() map[string]IntervalConfig {
	return map[string]IntervalConfig{
		"CRYPTO":  {Interval: "30min", Lookback: 10 * 24 * time.Hour},
		"DEFAULT": {Interval: "1hour", Lookback: 30 * 24 * time.Hour},
	}
}
