package types

import (
	"github.com/shopspring/decimal"
)

type SecurityType string

const (
	SecurityTypeStock  SecurityType = "STOCK"
	SecurityTypeFuture SecurityType = "FUTURE"
	SecurityTypeForex  SecurityType = "FOREX"
	SecurityTypeCrypto SecurityType = "CRYPTO"
)

// Security holds the static contract data for a symbol.
type Security struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Type         SecurityType    `json:"type"`
	Exchange     string          `json:"exchange"`
	LotSize      int64           `json:"lotSize"`
	PipSize      decimal.Decimal `json:"pipSize"`
	PipValue     decimal.Decimal `json:"pipValue"`
	TickSize     decimal.Decimal `json:"tickSize"`
	MinOrderSize int64           `json:"minOrderSize"`
	MaxOrderSize int64           `json:"maxOrderSize"`
}

// PointValue is the cash value of a one unit price move per unit of size.
// Contracts quoted in pips scale by PipValue/PipSize; everything else is 1.
func (s Security) PointValue() decimal.Decimal {
	if s.PipSize.IsPositive() && s.PipValue.IsPositive() {
		return s.PipValue.Div(s.PipSize)
	}
	return decimal.NewFromInt(1)
}

// AcceptsSize reports whether size respects the min, max and lot constraints.
// Zero constraints are ignored.
func (s Security) AcceptsSize(size int64) bool {
	if size <= 0 {
		return false
	}
	if s.MinOrderSize > 0 && size < s.MinOrderSize {
		return false
	}
	if s.MaxOrderSize > 0 && size > s.MaxOrderSize {
		return false
	}
	if s.LotSize > 1 && size%s.LotSize != 0 {
		return false
	}
	return true
}

// Securities is an in-memory security directory keyed by symbol.
type Securities map[string]Security

func (s Securities) Lookup(symbol string) (Security, bool) {
	sec, ok := s[symbol]
	return sec, ok
}
