package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tickbacktest/internal/ledger"
	"tickbacktest/types"
)

func (e *Engine) writeReportFiles() error {
	dir := e.reporting.filePath
	if dir == "" {
		dir = "."
	}
	name := e.reporting.reportName
	if name == "" {
		name = "backtest"
	}
	account := e.portfolio.account

	if err := writeCSVFile(filepath.Join(dir, name+"_fills.csv"), func(w io.Writer) error {
		return WriteTradesCSV(w, e.sim.Fills(account))
	}); err != nil {
		return err
	}

	var turns []ledger.RoundTurn
	for _, rt := range e.ledger.RoundTurns() {
		if rt.Account == account {
			turns = append(turns, rt)
		}
	}
	return writeCSVFile(filepath.Join(dir, name+"_roundturns.csv"), func(w io.Writer) error {
		return WriteRoundTurnsCSV(w, turns)
	})
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	return write(f)
}

// WriteTradesCSV writes one row per fill.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)

	header := []string{
		"trade_id",
		"order_id",
		"account",
		"symbol",
		"side",
		"size",
		"price",
		"commission",
		"exchange",
		"time", // RFC3339
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		record := []string{
			t.ID,
			t.OrderID,
			t.Account,
			t.Symbol,
			string(t.Side),
			strconv.FormatInt(t.Size, 10),
			t.Price.String(),
			t.Commission.String(),
			t.Exchange,
			types.ToTime(t.Date, t.Time).Format(time.RFC3339Nano),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteRoundTurnsCSV writes one row per completed round turn.
func WriteRoundTurnsCSV(w io.Writer, turns []ledger.RoundTurn) error {
	cw := csv.NewWriter(w)

	header := []string{
		"account",
		"symbol",
		"direction",
		"entry_time",
		"exit_time",
		"entry_price",
		"exit_price",
		"max_size",
		"fills",
		"gross_pnl",
		"commission",
		"net_pnl",
		"return",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rt := range turns {
		record := []string{
			rt.Account,
			rt.Symbol,
			string(rt.Direction),
			types.ToTime(rt.EntryDate, rt.EntryTime).Format(time.RFC3339Nano),
			types.ToTime(rt.ExitDate, rt.ExitTime).Format(time.RFC3339Nano),
			rt.EntryPrice.String(),
			rt.ExitPrice.String(),
			strconv.FormatInt(rt.MaxSize, 10),
			strconv.Itoa(rt.Fills),
			rt.GrossPnL.String(),
			rt.Commission.String(),
			rt.NetPnL().String(),
			rt.Return().StringFixed(6),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
