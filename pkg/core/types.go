package core

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
)

// Chain identifies the wallet network a root secret belongs to.
type Chain int

// Supported source chains for credential derivation.
const (
	// ChainBSC is the default EVM-compatible network.
	ChainBSC Chain = iota
	// ChainEthereum shares the BSC signing scheme.
	ChainEthereum
	// ChainSolana uses ed25519 wallet signatures.
	ChainSolana
)

// String returns the wire name of the chain.
func (c Chain) String() string {
	switch c {
	case ChainBSC:
		return "bsc"
	case ChainEthereum:
		return "ethereum"
	case ChainSolana:
		return "solana"
	default:
		return fmt.Sprintf("chain(%d)", int(c))
	}
}

// Valid reports whether the chain is one of the supported networks.
func (c Chain) Valid() bool {
	return c == ChainBSC || c == ChainEthereum || c == ChainSolana
}

// EVM reports whether the chain uses secp256k1 personal-sign signatures.
func (c Chain) EVM() bool {
	return c == ChainBSC || c == ChainEthereum
}

// MarshalJSON implements json.Marshaler for Chain.
func (c Chain) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Chain.
func (c *Chain) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"bsc"`:
		*c = ChainBSC
	case `"ethereum"`:
		*c = ChainEthereum
	case `"solana"`:
		*c = ChainSolana
	}
	return nil
}

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

const (
	// SideBuy indicates an order to purchase.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell.
	SideSell
)

// String returns the wire representation of the order side.
func (s OrderSide) String() string {
	return [...]string{"buy", "sell"}[s]
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"buy"`, `"BUY"`:
		*s = SideBuy
	case `"sell"`, `"SELL"`:
		*s = SideSell
	}
	return nil
}

// OrderType represents how an order executes.
type OrderType int

const (
	// TypeLimit executes at a specified price or better.
	TypeLimit OrderType = iota
	// TypeMarket executes immediately at the best available price.
	TypeMarket
)

// String returns the wire representation of the order type.
func (t OrderType) String() string {
	return [...]string{"limit", "market"}[t]
}

// MarshalJSON implements json.Marshaler for OrderType.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderType.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"limit"`, `"LIMIT"`:
		*t = TypeLimit
	case `"market"`, `"MARKET"`:
		*t = TypeMarket
	}
	return nil
}

// OrderStatus represents the venue-side state of an order.
type OrderStatus int

const (
	// StatusOpen indicates the order rests on the book.
	StatusOpen OrderStatus = iota
	// StatusFilled indicates the order has been completely filled.
	StatusFilled
	// StatusCanceled indicates the order has been canceled.
	StatusCanceled
	// StatusRejected indicates the order was rejected by the venue.
	StatusRejected
	// StatusUntriggered indicates a conditional order awaiting its trigger.
	StatusUntriggered
)

// String returns the wire representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{"open", "filled", "canceled", "rejected", "untriggered"}[s]
}

// IsTerminal returns true if no further status transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

// MarshalJSON implements json.Marshaler for OrderStatus.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderStatus.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"open"`:
		*s = StatusOpen
	case `"filled"`:
		*s = StatusFilled
	case `"canceled"`:
		*s = StatusCanceled
	case `"rejected"`:
		*s = StatusRejected
	case `"untriggered"`:
		*s = StatusUntriggered
	}
	return nil
}

// TimeInForce controls how long an order remains active.
type TimeInForce int

const (
	// GTC keeps the order active until canceled.
	GTC TimeInForce = iota
	// IOC fills immediately and cancels the rest.
	IOC
	// ALO only adds liquidity, rejecting crossing orders.
	ALO
)

// String returns the wire representation of the time in force.
func (t TimeInForce) String() string {
	return [...]string{"gtc", "ioc", "alo"}[t]
}

// MarshalJSON implements json.Marshaler for TimeInForce.
func (t TimeInForce) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for TimeInForce.
func (t *TimeInForce) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"gtc"`, `"GTC"`:
		*t = GTC
	case `"ioc"`, `"IOC"`:
		*t = IOC
	case `"alo"`, `"ALO"`:
		*t = ALO
	}
	return nil
}

// MarginMode selects how position margin is maintained.
type MarginMode int

const (
	// MarginCross shares margin across positions.
	MarginCross MarginMode = iota
	// MarginIsolated pins margin to a single position.
	MarginIsolated
)

// String returns the wire representation of the margin mode.
func (m MarginMode) String() string {
	return [...]string{"cross", "isolated"}[m]
}

// MarshalJSON implements json.Marshaler for MarginMode.
func (m MarginMode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for MarginMode.
func (m *MarginMode) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"cross"`:
		*m = MarginCross
	case `"isolated"`:
		*m = MarginIsolated
	}
	return nil
}

// Resolution is a kline time frame in the venue's notation.
type Resolution string

// Kline resolutions supported by the history endpoint.
const (
	ResolutionTick   Resolution = "1T"
	Resolution3Sec   Resolution = "3S"
	Resolution1Min   Resolution = "1"
	Resolution5Min   Resolution = "5"
	Resolution15Min  Resolution = "15"
	Resolution1Hour  Resolution = "60"
	Resolution1Day   Resolution = "1D"
	Resolution1Week  Resolution = "1W"
	Resolution1Month Resolution = "1M"
)

// ParseDecimal parses a venue decimal string into dst.
func ParseDecimal(dst *apd.Decimal, s string) error {
	if s == "" {
		dst.SetInt64(0)
		return nil
	}
	if _, _, err := dst.SetString(s); err != nil {
		return fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return nil
}

// BookLevel is a single price level of the depth book.
type BookLevel struct {
	Price apd.Decimal
	Qty   apd.Decimal
}

// UnmarshalJSON decodes the venue's ["price","qty"] pair format.
func (l *BookLevel) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := sonic.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := ParseDecimal(&l.Price, pair[0]); err != nil {
		return err
	}
	return ParseDecimal(&l.Qty, pair[1])
}

// MarshalJSON encodes the level back into the pair format.
func (l BookLevel) MarshalJSON() ([]byte, error) {
	return sonic.Marshal([2]string{l.Price.String(), l.Qty.String()})
}
