package hyperliquid

import "time"

// Candle is one OHLCV bar. Matches the wire shape returned by
// candles_snapshot: numeric fields arrive as JSON numbers for candles (unlike
// prices/sizes elsewhere in the API, which arrive as strings).
type Candle struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// Level is one side of an order book rung.
type Level struct {
	Px float64
	Sz float64
}

// OrderBook is the top-N snapshot for one coin.
type OrderBook struct {
	Bids []Level
	Asks []Level
}

// Side is a normalized position direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Position is the adapter's normalized view of one open perp position.
type Position struct {
	Symbol        string
	Side          Side
	Size          float64 // always positive magnitude
	EntryPrice    float64
	Leverage      float64
	UnrealizedPnL float64
	MidPrice      float64
}

// Snapshot is the full per-symbol market picture the collector assembles
// each cycle.
type Snapshot struct {
	Symbol       string
	MidPrice     float64
	Candles5m    []Candle
	Candles15m   []Candle
	Candles1h    []Candle
	Candles4h    []Candle
	OrderBook    OrderBook
	FundingRate  float64
	HasFunding   bool
	HasMidPrice  bool
	CollectedAt  time.Time
}

// OrderOutcome classifies the result of a market_open/market_close call.
type OrderOutcome string

const (
	OutcomeFilled    OrderOutcome = "filled"
	OutcomePartial   OrderOutcome = "partial"
	OutcomeFailed    OrderOutcome = "failed"
	OutcomeNoPosition OrderOutcome = "no_position"
)

// OrderResult is the adapter's normalized response to an order placement or
// close request.
type OrderResult struct {
	Outcome  OrderOutcome
	AvgPrice float64
	OID      int64
	Err      string
}

// rawStatusEntry mirrors one entry of Hyperliquid's order "statuses" array,
// which is polymorphic: a fill, a resting order, or an error — never more
// than one populated at a time.
type rawStatusEntry struct {
	Filled *struct {
		TotalSz string `json:"totalSz"`
		AvgPx   string `json:"avgPx"`
		Oid     int64  `json:"oid"`
	} `json:"filled,omitempty"`
	Resting *struct {
		Oid int64 `json:"oid"`
	} `json:"resting,omitempty"`
	Error string `json:"error,omitempty"`
}

type rawOrderResponse struct {
	Status string `json:"status"`
	Response struct {
		Type string `json:"type"`
		Data struct {
			Statuses []rawStatusEntry `json:"statuses"`
		} `json:"data"`
	} `json:"response"`
}

// rawAssetPosition mirrors one entry of user_state's assetPositions array.
type rawAssetPosition struct {
	Position struct {
		Coin     string      `json:"coin"`
		Szi      string      `json:"szi"`
		EntryPx  string      `json:"entryPx"`
		Leverage interface{} `json:"leverage"` // scalar or {type, value}
		UnrealizedPnl string `json:"unrealizedPnl"`
	} `json:"position"`
}

type rawMarginSummary struct {
	AccountValue string `json:"accountValue"`
}

type rawUserState struct {
	MarginSummary   rawMarginSummary   `json:"marginSummary"`
	AssetPositions  []rawAssetPosition `json:"assetPositions"`
	// Withdrawable/spot fields used for the portfolio-margin equity regime.
	SpotUsdc string `json:"spotUsdc"`
}
