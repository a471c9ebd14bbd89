package balance

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeDefaults(t *testing.T) {
	l, err := Decode(strings.NewReader(`{"participants":["a","b"],"payments":{"a":{"kaikki":10}}}`), "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if l.SharedMarker() != DefaultShared {
		t.Errorf("SharedMarker() = %q, want %q", l.SharedMarker(), DefaultShared)
	}
	if l.RoundingPrecision() != DefaultPrecision {
		t.Errorf("RoundingPrecision() = %d, want %d", l.RoundingPrecision(), DefaultPrecision)
	}
}

func TestLoadSelector(t *testing.T) {
	tests := []struct {
		selector      string
		wantNames     int
		wantPrecision int
	}{
		{"$.trips[0].ledger", 4, DefaultPrecision},
		{"$.trips[1].ledger", 2, 0},
		{`$.trips[?(@.name == "sauna")].ledger`, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			l := mustLoad(t, "testdata/trips.json", tt.selector)
			if len(l.Participants) != tt.wantNames {
				t.Errorf("got %d participants, want %d", len(l.Participants), tt.wantNames)
			}
			if l.RoundingPrecision() != tt.wantPrecision {
				t.Errorf("RoundingPrecision() = %d, want %d", l.RoundingPrecision(), tt.wantPrecision)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("testdata/missing.json", ""); err == nil {
		t.Errorf("Load() of a missing file succeeded")
	}
	if _, err := Load("testdata/trips.json", "$.trips[0].name"); !errors.Is(err, ErrInvalidLedger) {
		t.Errorf("selecting a string: error = %v, want ErrInvalidLedger", err)
	}
	if _, err := Load("testdata/trips.json", "$.nowhere"); err == nil {
		t.Errorf("selecting a missing key succeeded")
	}
	if _, err := Decode(strings.NewReader(`{"participants": 3}`), ""); err == nil {
		t.Errorf("Decode() of a malformed ledger succeeded")
	}
}
