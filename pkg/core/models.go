package core

// Request payloads for the trading surface. Quantities and prices travel as
// decimal strings, matching the venue contract.

// NewOrderRequest creates an order via REST or the order stream.
type NewOrderRequest struct {
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	OrderType   OrderType   `json:"order_type"`
	Qty         string      `json:"qty"`
	TimeInForce TimeInForce `json:"time_in_force"`
	Price       string      `json:"price,omitempty"`
	ReduceOnly  *bool       `json:"reduce_only,omitempty"`
	ClOrdID     string      `json:"cl_ord_id,omitempty"`
	MarginMode  *MarginMode `json:"margin_mode,omitempty"`
	Leverage    int         `json:"leverage,omitempty"`
}

// CancelOrderRequest cancels a single order by venue or client id.
type CancelOrderRequest struct {
	OrderID int64  `json:"order_id,omitempty"`
	ClOrdID string `json:"cl_ord_id,omitempty"`
}

// CancelOrdersRequest cancels a batch of orders.
type CancelOrdersRequest struct {
	OrderIDList []int64  `json:"order_id_list,omitempty"`
	ClOrdIDList []string `json:"cl_ord_id_list,omitempty"`
}

// ChangeLeverageRequest adjusts leverage for a symbol.
type ChangeLeverageRequest struct {
	Symbol   string `json:"symbol"`
	Leverage int    `json:"leverage"`
}

// ChangeMarginModeRequest switches between cross and isolated margin.
type ChangeMarginModeRequest struct {
	Symbol     string     `json:"symbol"`
	MarginMode MarginMode `json:"margin_mode"`
}

// TransferMarginRequest moves margin into or out of an isolated position.
type TransferMarginRequest struct {
	Symbol    string `json:"symbol"`
	AmountIn  string `json:"amount_in"`
	Direction string `json:"direction"`
}

// OrderResponse acknowledges an order command.
type OrderResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	OrderID   int64  `json:"order_id,omitempty"`
	ClOrdID   string `json:"cl_ord_id,omitempty"`
}

// StandardResponse is the venue's generic command acknowledgement.
type StandardResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Order is a resting or historical order as reported by the venue.
type Order struct {
	ID           int64       `json:"id"`
	ClOrdID      string      `json:"cl_ord_id,omitempty"`
	Symbol       string      `json:"symbol"`
	Side         OrderSide   `json:"side"`
	OrderType    OrderType   `json:"order_type"`
	Qty          string      `json:"qty"`
	Price        string      `json:"price,omitempty"`
	TimeInForce  TimeInForce `json:"time_in_force"`
	ReduceOnly   bool        `json:"reduce_only,omitempty"`
	Status       OrderStatus `json:"status"`
	FillQty      string      `json:"fill_qty,omitempty"`
	FillAvgPrice string      `json:"fill_avg_price,omitempty"`
	Leverage     string      `json:"leverage,omitempty"`
	Margin       string      `json:"margin,omitempty"`
	PositionID   int64       `json:"position_id,omitempty"`
	CreatedAt    string      `json:"created_at,omitempty"`
	UpdatedAt    string      `json:"updated_at,omitempty"`
	User         string      `json:"user,omitempty"`
}

// Trade is a fill belonging to the authenticated user.
type Trade struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Qty       string    `json:"qty"`
	Price     string    `json:"price"`
	Timestamp int64     `json:"timestamp,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
	OrderID   int64     `json:"order_id,omitempty"`
	User      string    `json:"user,omitempty"`
}

// Position is an open perpetual position.
type Position struct {
	ID            int64      `json:"id"`
	Symbol        string     `json:"symbol"`
	Qty           string     `json:"qty"`
	EntryPrice    string     `json:"entry_price"`
	EntryValue    string     `json:"entry_value,omitempty"`
	Leverage      int        `json:"leverage"`
	MarginMode    MarginMode `json:"margin_mode"`
	InitialMargin string     `json:"initial_margin,omitempty"`
	RealizedPnl   string     `json:"realized_pnl,omitempty"`
	Status        string     `json:"status,omitempty"`
	MarginAsset   string     `json:"margin_asset,omitempty"`
	CreatedAt     string     `json:"created_at,omitempty"`
	UpdatedAt     string     `json:"updated_at,omitempty"`
	User          string     `json:"user,omitempty"`
}

// PositionConfig holds per-symbol leverage and margin-mode settings.
type PositionConfig struct {
	Symbol      string     `json:"symbol"`
	Leverage    int        `json:"leverage"`
	MarginMode  MarginMode `json:"margin_mode"`
	MaxLeverage int        `json:"max_leverage,omitempty"`
	MinLeverage int        `json:"min_leverage,omitempty"`
}

// Balance is a per-token account balance.
type Balance struct {
	ID          string `json:"id,omitempty"`
	Token       string `json:"token"`
	Free        string `json:"free"`
	Locked      string `json:"locked"`
	Total       string `json:"total,omitempty"`
	Occupied    string `json:"occupied,omitempty"`
	AccountType string `json:"account_type,omitempty"`
	WalletID    string `json:"wallet_id,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// SymbolInfo describes a tradable instrument.
type SymbolInfo struct {
	Symbol   string `json:"symbol"`
	Base     string `json:"base"`
	Quote    string `json:"quote"`
	Status   string `json:"status,omitempty"`
	MinQty   string `json:"min_qty,omitempty"`
	MaxQty   string `json:"max_qty,omitempty"`
	TickSize string `json:"tick_size,omitempty"`
	StepSize string `json:"step_size,omitempty"`
}

// SymbolMarket is the 24h market summary for an instrument.
type SymbolMarket struct {
	Symbol           string `json:"symbol"`
	LastPrice        string `json:"last_price"`
	MarkPrice        string `json:"mark_price,omitempty"`
	IndexPrice       string `json:"index_price,omitempty"`
	Volume24h        string `json:"volume_24h,omitempty"`
	Turnover24h      string `json:"turnover_24h,omitempty"`
	High24h          string `json:"high_24h,omitempty"`
	Low24h           string `json:"low_24h,omitempty"`
	Change24h        string `json:"change_24h,omitempty"`
	ChangePercent24h string `json:"change_percent_24h,omitempty"`
}

// SymbolPrice is the current price snapshot for an instrument.
type SymbolPrice struct {
	Symbol     string   `json:"symbol"`
	Base       string   `json:"base,omitempty"`
	Quote      string   `json:"quote,omitempty"`
	LastPrice  string   `json:"last_price"`
	MarkPrice  string   `json:"mark_price,omitempty"`
	IndexPrice string   `json:"index_price,omitempty"`
	MidPrice   string   `json:"mid_price,omitempty"`
	Spread     []string `json:"spread,omitempty"`
	Time       string   `json:"time,omitempty"`
}

// DepthBook is an order book snapshot.
type DepthBook struct {
	Symbol    string      `json:"symbol"`
	Asks      []BookLevel `json:"asks"`
	Bids      []BookLevel `json:"bids"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// RecentTrade is a public trade print.
type RecentTrade struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Qty       string    `json:"qty"`
	Price     string    `json:"price"`
	Timestamp int64     `json:"timestamp,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// FundingRate reports the current and predicted funding for a symbol.
type FundingRate struct {
	Symbol               string `json:"symbol"`
	FundingRate          string `json:"funding_rate"`
	NextFundingTime      int64  `json:"next_funding_time,omitempty"`
	PredictedFundingRate string `json:"predicted_funding_rate,omitempty"`
}

// Kline is one candle of price history.
type Kline struct {
	Time   int64  `json:"time"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
	Symbol string `json:"symbol,omitempty"`
}

// ServerTime is the venue clock reading.
type ServerTime struct {
	ServerTime int64 `json:"server_time,omitempty"`
	Timestamp  int64 `json:"timestamp,omitempty"`
}

// Health is the venue health probe result.
type Health struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp,omitempty"`
}
