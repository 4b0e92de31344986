package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"tick-backtest/internal/domain"
)

// CSV column names. time, price and volume are required.
const (
	ColumnID     = "id"
	ColumnTime   = "time"
	ColumnPrice  = "price"
	ColumnVolume = "volume"
	ColumnBid    = "bid"
	ColumnAsk    = "ask"
	ColumnSymbol = "symbol"
)

var requiredColumns = []string{ColumnTime, ColumnPrice, ColumnVolume}

// ReadCSV parses ticks from a CSV stream with a header row.
// Column names are case-insensitive. time is either seconds since epoch or an
// RFC 3339 timestamp. Rows without an id column are numbered from 1; rows
// without a symbol take defaultSymbol. Missing bid/ask are NaN.
// A missing required column fails before any row is read.
func ReadCSV(r io.Reader, defaultSymbol string) ([]domain.Tick, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingField)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	var ticks []domain.Tick
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}

		t, err := parseRow(rec, cols, int64(len(ticks)+1), defaultSymbol)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		ticks = append(ticks, t)
	}

	return ticks, nil
}

// ReadCSVFile reads one CSV tick file, tagging rows without a symbol column.
func ReadCSVFile(path, symbol string) ([]domain.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ticks, err := ReadCSV(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ticks, nil
}

func parseRow(rec []string, cols map[string]int, seq int64, defaultSymbol string) (domain.Tick, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		v := strings.TrimSpace(rec[i])
		return v, v != ""
	}

	t := domain.Tick{ID: seq, Symbol: defaultSymbol}

	raw, ok := field(ColumnTime)
	if !ok {
		return t, fmt.Errorf("empty %s", ColumnTime)
	}
	ts, err := parseTime(raw)
	if err != nil {
		return t, err
	}
	t.Time = ts

	if raw, ok = field(ColumnPrice); !ok {
		return t, fmt.Errorf("empty %s", ColumnPrice)
	}
	if t.Price, err = strconv.ParseFloat(raw, 64); err != nil {
		return t, fmt.Errorf("parse %s: %w", ColumnPrice, err)
	}

	if raw, ok = field(ColumnVolume); !ok {
		return t, fmt.Errorf("empty %s", ColumnVolume)
	}
	if t.Volume, err = strconv.ParseInt(raw, 10, 64); err != nil {
		return t, fmt.Errorf("parse %s: %w", ColumnVolume, err)
	}

	if raw, ok = field(ColumnID); ok {
		if t.ID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return t, fmt.Errorf("parse %s: %w", ColumnID, err)
		}
	}

	t.Bid, t.Ask = math.NaN(), math.NaN()
	if raw, ok = field(ColumnBid); ok {
		if t.Bid, err = strconv.ParseFloat(raw, 64); err != nil {
			return t, fmt.Errorf("parse %s: %w", ColumnBid, err)
		}
	}
	if raw, ok = field(ColumnAsk); ok {
		if t.Ask, err = strconv.ParseFloat(raw, 64); err != nil {
			return t, fmt.Errorf("parse %s: %w", ColumnAsk, err)
		}
	}

	if raw, ok = field(ColumnSymbol); ok {
		t.Symbol = raw
	}

	return t, nil
}

func parseTime(raw string) (float64, error) {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: not epoch seconds or RFC 3339", ColumnTime, raw)
	}
	return float64(ts.Unix()) + float64(ts.Nanosecond())/1e9, nil
}
