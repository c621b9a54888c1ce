// Package hyperliquid is a thin normalizing adapter over a Hyperliquid-shaped
// perpetuals API. It is the one place that knows the wire format's hazards
// (string-encoded numbers, signed size-as-side, polymorphic leverage, the
// null-on-no-position close response, the dual equity regime) so every
// other package deals only in plain floats and normalized types.
package hyperliquid

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Client is the adapter's REST transport. Its connection-pooling settings
// follow the same resty.Client idiom used elsewhere in this codebase's
// lineage: bounded idle connections, HTTP/2 where available, bounded
// built-in retries for transient transport failures (the agent's own
// exponential-backoff retry wrapper sits a layer above this for
// application-level retry/safe-hold decisions).
type Client struct {
	address    string
	privateKey string
	base       string
	rest       *resty.Client
}

// New builds a Client against baseURL, authenticated as address and signing
// with privateKey.
func New(address, privateKey, baseURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	r := resty.New().SetTransport(transport)
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	r.SetRetryCount(2)
	r.SetRetryWaitTime(250 * time.Millisecond)
	r.SetRetryMaxWaitTime(2 * time.Second)

	return &Client{address: address, privateKey: privateKey, base: baseURL, rest: r}
}

func (c *Client) nonce() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	nonce := c.nonce()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("api-address", c.address).
		SetHeader("api-nonce", nonce).
		SetHeader("api-sign", sign(c.privateKey, nonce, path)).
		SetBody(body).
		SetResult(out).
		Post(c.base + path)
	if err != nil {
		return fmt.Errorf("hyperliquid: post %s: %w", path, err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("hyperliquid: post %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}

// UserState returns the normalized positions and the equity figure computed
// from the appropriate regime (portfolio margin vs. standard).
func (c *Client) UserState(ctx context.Context) (equity float64, positions []Position, err error) {
	var raw rawUserState
	body := map[string]string{"type": "clearinghouseState", "user": c.address}
	if err := c.post(ctx, "/info", body, &raw); err != nil {
		return 0, nil, err
	}

	positions = make([]Position, 0, len(raw.AssetPositions))
	for _, rp := range raw.AssetPositions {
		p := normalizePosition(rp)
		if p.Size <= 0 {
			continue // zero-size entries mean "no position"
		}
		positions = append(positions, p)
	}

	accountValue := parseFloat("accountValue", raw.MarginSummary.AccountValue)
	spotUsdc := parseFloat("spotUsdc", raw.SpotUsdc)
	equity = pickEquity(spotUsdc, accountValue, positions)
	return equity, positions, nil
}

// AllMids returns the latest mid price for every coin the exchange tracks.
func (c *Client) AllMids(ctx context.Context) (map[string]float64, error) {
	var raw map[string]string
	body := map[string]string{"type": "allMids"}
	if err := c.post(ctx, "/info", body, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(raw))
	for coin, s := range raw {
		out[coin] = parseFloat("mid:"+coin, s)
	}
	return out, nil
}

// CandlesSnapshot fetches OHLCV candles for coin/interval within [startMs, endMs].
func (c *Client) CandlesSnapshot(ctx context.Context, coin, interval string, startMs, endMs int64) ([]Candle, error) {
	var raw []Candle
	body := map[string]interface{}{
		"type": "candleSnapshot",
		"req": map[string]interface{}{
			"coin":      coin,
			"interval":  interval,
			"startTime": startMs,
			"endTime":   endMs,
		},
	}
	if err := c.post(ctx, "/info", body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// L2Snapshot fetches the top-of-book levels for coin.
func (c *Client) L2Snapshot(ctx context.Context, coin string) (OrderBook, error) {
	var raw struct {
		Levels [2][]struct {
			Px string `json:"px"`
			Sz string `json:"sz"`
		} `json:"levels"`
	}
	body := map[string]string{"type": "l2Book", "coin": coin}
	if err := c.post(ctx, "/info", body, &raw); err != nil {
		return OrderBook{}, err
	}
	var ob OrderBook
	if len(raw.Levels) >= 1 {
		for _, l := range raw.Levels[0] {
			ob.Bids = append(ob.Bids, Level{Px: parseFloat("bid.px", l.Px), Sz: parseFloat("bid.sz", l.Sz)})
		}
	}
	if len(raw.Levels) >= 2 {
		for _, l := range raw.Levels[1] {
			ob.Asks = append(ob.Asks, Level{Px: parseFloat("ask.px", l.Px), Sz: parseFloat("ask.sz", l.Sz)})
		}
	}
	return ob, nil
}

// FundingRate returns the current funding rate for coin via meta_and_asset_ctxs.
func (c *Client) FundingRate(ctx context.Context, coin string) (float64, bool, error) {
	var raw []interface{}
	body := map[string]string{"type": "metaAndAssetCtxs"}
	if err := c.post(ctx, "/info", body, &raw); err != nil {
		return 0, false, err
	}
	if len(raw) < 2 {
		return 0, false, nil
	}
	meta, ok := raw[0].(map[string]interface{})
	if !ok {
		return 0, false, nil
	}
	universe, _ := meta["universe"].([]interface{})
	ctxs, ok := raw[1].([]interface{})
	if !ok {
		return 0, false, nil
	}
	for i, u := range universe {
		um, ok := u.(map[string]interface{})
		if !ok || i >= len(ctxs) {
			continue
		}
		if name, _ := um["name"].(string); name != coin {
			continue
		}
		ctx, ok := ctxs[i].(map[string]interface{})
		if !ok {
			return 0, false, nil
		}
		fr, ok := ctx["funding"].(string)
		if !ok {
			return 0, false, nil
		}
		return parseFloat("funding", fr), true, nil
	}
	return 0, false, nil
}

// UpdateLeverage sets leverage for coin.
func (c *Client) UpdateLeverage(ctx context.Context, coin string, leverage int) error {
	var raw map[string]interface{}
	body := map[string]interface{}{
		"action": map[string]interface{}{
			"type":     "updateLeverage",
			"asset":    coin,
			"isCross":  true,
			"leverage": leverage,
		},
		"nonce": c.nonce(),
	}
	if err := c.post(ctx, "/exchange", body, &raw); err != nil {
		log.Warn().Err(err).Str("coin", coin).Msg("exchange: update leverage failed, continuing with existing leverage")
		return err
	}
	return nil
}

// MarketOpen submits a market order to open or add to a position.
func (c *Client) MarketOpen(ctx context.Context, coin string, isBuy bool, size float64, slippage float64) (OrderResult, error) {
	var raw rawOrderResponse
	body := map[string]interface{}{
		"action": map[string]interface{}{
			"type": "order",
			"orders": []map[string]interface{}{{
				"a": coin, "b": isBuy, "s": strconv.FormatFloat(size, 'f', -1, 64),
				"r": false, "t": map[string]interface{}{"market": map[string]interface{}{"slippage": slippage}},
			}},
		},
		"nonce": c.nonce(),
	}
	if err := c.post(ctx, "/exchange", body, &raw); err != nil {
		return OrderResult{Outcome: OutcomeFailed, Err: err.Error()}, err
	}
	return classifyOrder(raw), nil
}

// MarketClose closes any open position on coin. A nil-equivalent "no open
// orders" response from the exchange maps to OutcomeNoPosition rather than
// an error — closing a symbol with nothing open is a normal no-op.
func (c *Client) MarketClose(ctx context.Context, coin string) (OrderResult, error) {
	var raw rawOrderResponse
	body := map[string]interface{}{
		"action": map[string]interface{}{"type": "closePosition", "asset": coin},
		"nonce":  c.nonce(),
	}
	if err := c.post(ctx, "/exchange", body, &raw); err != nil {
		return OrderResult{Outcome: OutcomeFailed, Err: err.Error()}, err
	}
	if len(raw.Response.Data.Statuses) == 0 && raw.Status == "ok" {
		return OrderResult{Outcome: OutcomeNoPosition}, nil
	}
	return classifyOrder(raw), nil
}

// Cancel cancels a resting order.
func (c *Client) Cancel(ctx context.Context, coin string, oid int64) error {
	var raw map[string]interface{}
	body := map[string]interface{}{
		"action": map[string]interface{}{"type": "cancel", "cancels": []map[string]interface{}{{"a": coin, "o": oid}}},
		"nonce":  c.nonce(),
	}
	return c.post(ctx, "/exchange", body, &raw)
}
