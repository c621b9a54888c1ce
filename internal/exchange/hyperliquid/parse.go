package hyperliquid

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// parseFloat parses a string-encoded number, returning 0 and logging on
// failure rather than propagating an error — a malformed numeric field is
// treated as "absent", not fatal. Routed through shopspring/decimal
// first so a string like "0.1000000001" from the wire doesn't pick up
// binary-float rounding artifacts before it reaches order-sizing math.
func parseFloat(field, s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Warn().Str("field", field).Str("value", s).Err(err).Msg("exchange: malformed numeric field, treating as zero")
		return 0
	}
	f, _ := d.Float64()
	return f
}

// parseSignedSize splits a signed position-size string into (side, magnitude).
// A zero-size string normalizes to (SideLong, 0) — callers treat zero
// magnitude as "no position" regardless of side.
func parseSignedSize(szi string) (Side, float64) {
	v := parseFloat("szi", szi)
	if v < 0 {
		return SideShort, -v
	}
	return SideLong, v
}

// parseLeverage accepts either a bare numeric leverage or the
// {"type": "cross"|"isolated", "value": N} object form Hyperliquid uses.
func parseLeverage(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case map[string]interface{}:
		if val, ok := v["value"]; ok {
			if f, ok := val.(float64); ok {
				return f
			}
		}
	}
	log.Warn().Interface("raw", raw).Msg("exchange: unrecognized leverage shape, defaulting to 1")
	return 1
}

// pickEquity implements the dual equity-regime rule: when spot collateral is
// present (portfolio margin), it is authoritative and perp unrealized PnL is
// added on top, since accountValue in that regime excludes spot collateral.
// Otherwise (standard regime) accountValue is authoritative on its own.
func pickEquity(spotUsdc, accountValue float64, positions []Position) float64 {
	if spotUsdc > 0 {
		sum := spotUsdc
		for _, p := range positions {
			sum += p.UnrealizedPnL
		}
		return sum
	}
	return accountValue
}

// classifyOrder applies the filled > partial > failed precedence to a raw
// order response's statuses array.
func classifyOrder(resp rawOrderResponse) OrderResult {
	for _, s := range resp.Response.Data.Statuses {
		if s.Filled != nil {
			avg := parseFloat("avgPx", s.Filled.AvgPx)
			if avg > 0 {
				return OrderResult{Outcome: OutcomeFilled, AvgPrice: avg, OID: s.Filled.Oid}
			}
		}
	}
	for _, s := range resp.Response.Data.Statuses {
		if s.Resting != nil {
			return OrderResult{Outcome: OutcomePartial, OID: s.Resting.Oid}
		}
	}
	for _, s := range resp.Response.Data.Statuses {
		if s.Error != "" {
			return OrderResult{Outcome: OutcomeFailed, Err: s.Error}
		}
	}
	return OrderResult{Outcome: OutcomeFailed, Err: "no recognizable status in response"}
}

func normalizePosition(raw rawAssetPosition) Position {
	side, size := parseSignedSize(raw.Position.Szi)
	return Position{
		Symbol:        raw.Position.Coin,
		Side:          side,
		Size:          size,
		EntryPrice:    parseFloat("entryPx", raw.Position.EntryPx),
		Leverage:      parseLeverage(raw.Position.Leverage),
		UnrealizedPnL: parseFloat("unrealizedPnl", raw.Position.UnrealizedPnl),
	}
}
