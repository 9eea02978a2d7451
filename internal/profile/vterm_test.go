package profile

import "testing"

func termTable() []VTermRow {
	return []VTermRow{
		{TempMaxDeciC: 450, TermMV: 4200},
		{TempMaxDeciC: 600, TermMV: 4100},
	}
}

func TestTempVTermBasicLookup(t *testing.T) {
	v := NewTempVTerm(termTable(), 10)
	mv, err := v.Lookup(200)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if mv != 4200 {
		t.Fatalf("expected 4200, got %d", mv)
	}
}

func TestTempVTermClipsAboveHighestBand(t *testing.T) {
	v := NewTempVTerm(termTable(), 10)
	mv, err := v.Lookup(900)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if mv != 4100 {
		t.Fatalf("expected clip to last row (4100), got %d", mv)
	}
}

func TestTempVTermEmptyTable(t *testing.T) {
	v := NewTempVTerm(nil, 10)
	if _, err := v.Lookup(200); err == nil {
		t.Fatal("expected error for empty table")
	}
}

func TestTempVTermHysteresisHoldsRow(t *testing.T) {
	v := NewTempVTerm(termTable(), 10)
	if _, err := v.Lookup(440); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	mv, err := v.Lookup(455) // within hysteresis guard of the first row
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if mv != 4200 {
		t.Fatalf("expected hysteresis to hold first row (4200), got %d", mv)
	}
}
