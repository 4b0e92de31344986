package replay

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestReadCSV_RequiredAndOptionalColumns(t *testing.T) {
	input := `Time,Price,Volume,Bid,Ask
10,100.5,3,100,101
11.5,101,1,,
`
	ticks, err := ReadCSV(strings.NewReader(input), "AAA")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(ticks))
	}

	first := ticks[0]
	if first.ID != 1 || first.Time != 10 || first.Price != 100.5 || first.Volume != 3 {
		t.Errorf("Unexpected first tick: %+v", first)
	}
	if first.Bid != 100 || first.Ask != 101 || !first.HasQuote() {
		t.Errorf("Expected quote on first tick, got bid=%v ask=%v", first.Bid, first.Ask)
	}
	if first.Symbol != "AAA" {
		t.Errorf("Expected default symbol, got %q", first.Symbol)
	}

	second := ticks[1]
	if second.ID != 2 {
		t.Errorf("Expected row-numbered id 2, got %d", second.ID)
	}
	if !math.IsNaN(second.Bid) || !math.IsNaN(second.Ask) {
		t.Errorf("Expected NaN quote, got bid=%v ask=%v", second.Bid, second.Ask)
	}
}

func TestReadCSV_ExplicitIDSymbolAndRFC3339(t *testing.T) {
	input := `id,symbol,time,price,volume
7,BBB,2024-01-02T00:00:01Z,5,1
`
	ticks, err := ReadCSV(strings.NewReader(input), "AAA")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if ticks[0].ID != 7 || ticks[0].Symbol != "BBB" {
		t.Errorf("Unexpected tick: %+v", ticks[0])
	}
	if ticks[0].Time != 1704153601 {
		t.Errorf("Expected epoch 1704153601, got %v", ticks[0].Time)
	}
}

func TestReadCSV_MissingRequiredColumn(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no volume", "time,price\n1,2\n"},
		{"no price", "time,volume\n1,2\n"},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), "AAA")
			if !errors.Is(err, ErrMissingField) {
				t.Errorf("Expected ErrMissingField, got %v", err)
			}
		})
	}
}

func TestReadCSV_MalformedRow(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad price", "time,price,volume\n1,abc,2\n"},
		{"empty time", "time,price,volume\n,1,2\n"},
		{"fractional volume", "time,price,volume\n1,1,2.5\n"},
		{"bad time", "time,price,volume\nyesterday,1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), "AAA")
			if !errors.Is(err, ErrMalformedRow) {
				t.Errorf("Expected ErrMalformedRow, got %v", err)
			}
		})
	}
}
