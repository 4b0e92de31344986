package idhash

import (
	"math"
	"testing"

	"tick-backtest/internal/domain"
)

func TestComputeRunID(t *testing.T) {
	tests := []struct {
		name        string
		strategy    string
		config      string
		symbols     []string
		fingerprint string
		wantLen     int // hash length should be 64
	}{
		{
			name:        "single symbol",
			strategy:    "sma_crossover",
			config:      `{"period_fast":5,"period_slow":20}`,
			symbols:     []string{"AAA"},
			fingerprint: "abc",
			wantLen:     64,
		},
		{
			name:        "multi symbol",
			strategy:    "bbands_market_maker",
			config:      `{"n":20,"k":2}`,
			symbols:     []string{"BBB", "AAA"},
			fingerprint: "def",
			wantLen:     64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRunID(tt.strategy, []byte(tt.config), tt.symbols, tt.fingerprint)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeRunID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeRunID(tt.strategy, []byte(tt.config), tt.symbols, tt.fingerprint)
			if got != got2 {
				t.Errorf("ComputeRunID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeRunID_SymbolOrderInsensitive(t *testing.T) {
	symbols := []string{"BBB", "AAA"}
	a := ComputeRunID("s", nil, symbols, "f")
	b := ComputeRunID("s", nil, []string{"AAA", "BBB"}, "f")
	if a != b {
		t.Errorf("Symbol order changed run id: %s != %s", a, b)
	}
	if symbols[0] != "BBB" {
		t.Error("ComputeRunID must not reorder the caller's slice")
	}
}

func TestComputeRunID_DifferentInputs(t *testing.T) {
	base := ComputeRunID("s", []byte("{}"), []string{"AAA"}, "f")

	variants := map[string]string{
		"strategy":    ComputeRunID("t", []byte("{}"), []string{"AAA"}, "f"),
		"config":      ComputeRunID("s", []byte(`{"k":1}`), []string{"AAA"}, "f"),
		"symbols":     ComputeRunID("s", []byte("{}"), []string{"BBB"}, "f"),
		"fingerprint": ComputeRunID("s", []byte("{}"), []string{"AAA"}, "g"),
	}
	for name, id := range variants {
		if id == base {
			t.Errorf("Changing %s did not change run id", name)
		}
	}
}

func TestComputeDataFingerprint(t *testing.T) {
	ticks := []domain.Tick{
		{ID: 1, Time: 10, Price: 100, Volume: 1, Bid: math.NaN(), Ask: math.NaN(), Symbol: "AAA"},
		{ID: 2, Time: 11, Price: 101, Volume: 2, Bid: math.NaN(), Ask: math.NaN(), Symbol: "AAA"},
	}

	a := ComputeDataFingerprint(ticks)
	if len(a) != 64 {
		t.Fatalf("Fingerprint length = %d, want 64", len(a))
	}
	if a != ComputeDataFingerprint(ticks) {
		t.Error("Fingerprint not deterministic")
	}

	changed := append([]domain.Tick(nil), ticks...)
	changed[1].Price = 101.5
	if ComputeDataFingerprint(changed) == a {
		t.Error("Price change did not change fingerprint")
	}

	if ComputeDataFingerprint(nil) == a {
		t.Error("Empty stream must differ from non-empty stream")
	}
}
