package gateway

import (
	"context"
	"net/http"
	"strconv"

	"standx/pkg/core"
)

// PrepareSignin registers the session signing key and returns the signed
// login payload the wallet must countersign. Part of auth.LoginGateway.
func (c *Client) PrepareSignin(ctx context.Context, chain core.Chain, address, requestID string) (string, error) {
	var result struct {
		Success    bool   `json:"success"`
		SignedData string `json:"signedData"`
	}

	resp, err := c.authAPI.R().
		SetContext(ctx).
		SetQueryParam("chain", chain.String()).
		SetBody(map[string]string{
			"address":   address,
			"requestId": requestID,
		}).
		SetResult(&result).
		Post("/prepare-signin")
	if err != nil {
		return "", core.NewGatewayError(core.ErrorTypeNetwork, 0, err.Error())
	}
	if resp.IsError() {
		return "", core.NewGatewayError(statusToErrorType(resp.StatusCode()), resp.StatusCode(), string(resp.Bytes()))
	}
	if !result.Success || result.SignedData == "" {
		return "", core.NewGatewayError(core.ErrorTypeAuthentication, resp.StatusCode(), "prepare-signin rejected")
	}
	return result.SignedData, nil
}

// Login exchanges the wallet signature for a bearer token. Part of
// auth.LoginGateway.
func (c *Client) Login(ctx context.Context, chain core.Chain, signature, signedData string, expiresSeconds int64) (string, error) {
	var result struct {
		Success     bool   `json:"success"`
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		JWT         string `json:"jwt"`
	}

	resp, err := c.authAPI.R().
		SetContext(ctx).
		SetQueryParam("chain", chain.String()).
		SetBody(map[string]any{
			"signature":      signature,
			"signedData":     signedData,
			"expiresSeconds": expiresSeconds,
		}).
		SetResult(&result).
		Post("/login")
	if err != nil {
		return "", core.NewGatewayError(core.ErrorTypeNetwork, 0, err.Error())
	}
	if resp.IsError() {
		return "", core.NewGatewayError(statusToErrorType(resp.StatusCode()), resp.StatusCode(), string(resp.Bytes()))
	}

	token := result.Token
	if token == "" {
		token = result.AccessToken
	}
	if token == "" {
		token = result.JWT
	}
	if token == "" {
		return "", core.NewGatewayError(core.ErrorTypeAuthentication, resp.StatusCode(), "no token in login response")
	}
	return token, nil
}

// Trading endpoints. All of these carry a body signature and the bearer
// token.

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, req *core.NewOrderRequest) (*core.OrderResponse, error) {
	var out core.OrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/new_order", nil, req, authSigned, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrder cancels a single order by venue or client id.
func (c *Client) CancelOrder(ctx context.Context, req *core.CancelOrderRequest) (*core.OrderResponse, error) {
	var out core.OrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/cancel_order", nil, req, authSigned, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrders cancels a batch of orders.
func (c *Client) CancelOrders(ctx context.Context, req *core.CancelOrdersRequest) (*core.StandardResponse, error) {
	var out core.StandardResponse
	if err := c.do(ctx, http.MethodPost, "/api/cancel_orders", nil, req, authSigned, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeLeverage adjusts leverage for a symbol.
func (c *Client) ChangeLeverage(ctx context.Context, symbol string, leverage int) (*core.StandardResponse, error) {
	var out core.StandardResponse
	req := &core.ChangeLeverageRequest{Symbol: symbol, Leverage: leverage}
	if err := c.do(ctx, http.MethodPost, "/api/change_leverage", nil, req, authSigned, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeMarginMode switches between cross and isolated margin for a symbol.
func (c *Client) ChangeMarginMode(ctx context.Context, symbol string, mode core.MarginMode) (*core.StandardResponse, error) {
	var out core.StandardResponse
	req := &core.ChangeMarginModeRequest{Symbol: symbol, MarginMode: mode}
	if err := c.do(ctx, http.MethodPost, "/api/change_margin_mode", nil, req, authSigned, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransferMargin moves margin into or out of an isolated position.
func (c *Client) TransferMargin(ctx context.Context, req *core.TransferMarginRequest) (*core.StandardResponse, error) {
	var out core.StandardResponse
	if err := c.do(ctx, http.MethodPost, "/api/transfer_margin", nil, req, authSigned, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Account query endpoints. Bearer token only.

// QueryOrder fetches one order by venue or client id.
func (c *Client) QueryOrder(ctx context.Context, orderID int64, clOrdID string) (*core.Order, error) {
	query := map[string]string{}
	if orderID != 0 {
		query["order_id"] = strconv.FormatInt(orderID, 10)
	}
	if clOrdID != "" {
		query["cl_ord_id"] = clOrdID
	}
	var out core.Order
	if err := c.do(ctx, http.MethodGet, "/api/query_order", query, nil, authBearer, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryOrders fetches order history for a symbol.
func (c *Client) QueryOrders(ctx context.Context, symbol string, limit int) ([]core.Order, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	var out []core.Order
	if err := c.do(ctx, http.MethodGet, "/api/query_orders", query, nil, authBearer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryOpenOrders fetches resting orders, optionally filtered by symbol.
func (c *Client) QueryOpenOrders(ctx context.Context, symbol string) ([]core.Order, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	var out []core.Order
	if err := c.do(ctx, http.MethodGet, "/api/query_open_orders", query, nil, authBearer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryTrades fetches the user's fills for a symbol.
func (c *Client) QueryTrades(ctx context.Context, symbol string, limit int) ([]core.Trade, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	var out []core.Trade
	if err := c.do(ctx, http.MethodGet, "/api/query_trades", query, nil, authBearer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryPositions fetches open positions, optionally filtered by symbol.
func (c *Client) QueryPositions(ctx context.Context, symbol string) ([]core.Position, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	var out []core.Position
	if err := c.do(ctx, http.MethodGet, "/api/query_positions", query, nil, authBearer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryPositionConfig fetches leverage and margin-mode settings for a
// symbol.
func (c *Client) QueryPositionConfig(ctx context.Context, symbol string) (*core.PositionConfig, error) {
	var out core.PositionConfig
	if err := c.do(ctx, http.MethodGet, "/api/query_position_config", map[string]string{"symbol": symbol}, nil, authBearer, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryBalances fetches all account balances.
func (c *Client) QueryBalances(ctx context.Context) ([]core.Balance, error) {
	var out []core.Balance
	if err := c.do(ctx, http.MethodGet, "/api/query_user_balances", nil, nil, authBearer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Public market-data endpoints. No authentication.

// QuerySymbolInfo fetches instrument metadata.
func (c *Client) QuerySymbolInfo(ctx context.Context, symbol string) (*core.SymbolInfo, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	var out core.SymbolInfo
	if err := c.do(ctx, http.MethodGet, "/api/query_symbol_info", query, nil, authNone, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuerySymbolMarket fetches the 24h market summary for a symbol.
func (c *Client) QuerySymbolMarket(ctx context.Context, symbol string) (*core.SymbolMarket, error) {
	var out core.SymbolMarket
	if err := c.do(ctx, http.MethodGet, "/api/query_symbol_market", map[string]string{"symbol": symbol}, nil, authNone, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuerySymbolPrice fetches the current price snapshot for a symbol.
func (c *Client) QuerySymbolPrice(ctx context.Context, symbol string) (*core.SymbolPrice, error) {
	var out core.SymbolPrice
	if err := c.do(ctx, http.MethodGet, "/api/query_symbol_price", map[string]string{"symbol": symbol}, nil, authNone, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryDepthBook fetches an order book snapshot.
func (c *Client) QueryDepthBook(ctx context.Context, symbol string, limit int) (*core.DepthBook, error) {
	query := map[string]string{"symbol": symbol}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	var out core.DepthBook
	if err := c.do(ctx, http.MethodGet, "/api/query_depth_book", query, nil, authNone, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryRecentTrades fetches public trade prints for a symbol.
func (c *Client) QueryRecentTrades(ctx context.Context, symbol string, limit int) ([]core.RecentTrade, error) {
	query := map[string]string{"symbol": symbol}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	var out []core.RecentTrade
	if err := c.do(ctx, http.MethodGet, "/api/query_recent_trades", query, nil, authNone, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryFundingRates fetches funding rates, optionally for one symbol.
func (c *Client) QueryFundingRates(ctx context.Context, symbol string) ([]core.FundingRate, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	var out []core.FundingRate
	if err := c.do(ctx, http.MethodGet, "/api/query_funding_rates", query, nil, authNone, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// KlineTime fetches the kline service clock.
func (c *Client) KlineTime(ctx context.Context) (*core.ServerTime, error) {
	var out core.ServerTime
	if err := c.do(ctx, http.MethodGet, "/api/kline/time", nil, nil, authNone, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// KlineHistory fetches candles for a symbol between from and to (unix
// seconds) at the given resolution.
func (c *Client) KlineHistory(ctx context.Context, symbol string, resolution core.Resolution, from, to int64) ([]core.Kline, error) {
	query := map[string]string{
		"symbol":     symbol,
		"resolution": string(resolution),
		"from":       strconv.FormatInt(from, 10),
		"to":         strconv.FormatInt(to, 10),
	}
	var out []core.Kline
	if err := c.do(ctx, http.MethodGet, "/api/kline/history", query, nil, authNone, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health probes venue health.
func (c *Client) Health(ctx context.Context) (*core.Health, error) {
	var out core.Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, authNone, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegionAndServerTime fetches the serving region and venue clock.
func (c *Client) RegionAndServerTime(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/region_and_server_time", nil, nil, authNone, &out); err != nil {
		return nil, err
	}
	return out, nil
}
