package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tickbacktest/types"
)

// LoadSecurities reads the contract data of symbols. Every symbol must exist.
func (db *Database) LoadSecurities(ctx context.Context, symbols []string) (types.Securities, error) {
	rows, err := db.securities.GetSecurities(ctx, symbols)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load securities: %w", err)
	}

	out := make(types.Securities, len(rows))
	for _, r := range rows {
		out[r.Symbol] = types.Security{
			Symbol:       r.Symbol,
			Name:         r.Name,
			Type:         types.SecurityType(r.Type),
			Exchange:     r.Exchange,
			LotSize:      r.LotSize,
			PipSize:      r.PipSize,
			PipValue:     r.PipValue,
			TickSize:     r.TickSize,
			MinOrderSize: r.MinOrderSize,
			MaxOrderSize: r.MaxOrderSize,
		}
	}
	for _, s := range symbols {
		if _, ok := out[s]; !ok {
			return nil, fmt.Errorf("symbol %s %w", s, ErrSecurityNotFound)
		}
	}
	return out, nil
}
