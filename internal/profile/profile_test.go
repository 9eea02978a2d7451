package profile

import (
	"testing"

	"chargerd-go/types"
)

func twoRowTable() *Table {
	return &Table{Rows: []Row{
		{
			Class:           types.ClassAll,
			TempMinDeciC:    0,
			TempMaxDeciC:    450,
			VoltMinMV:       3000,
			VoltMaxMV:       4200,
			ChipIndex:       0,
			ChargeCurrentMA: 486,
			ChargeVoltageMV: 4200,
		},
		{
			Class:           types.ClassAll,
			TempMinDeciC:    450,
			TempMaxDeciC:    600,
			VoltMinMV:       3000,
			VoltMaxMV:       4200,
			ChipIndex:       0,
			ChargeCurrentMA: 300,
			ChargeVoltageMV: 4100,
		},
	}}
}

func twoRowHyst() Hysteresis {
	return Hysteresis{TempRiseDeciC: 20, TempFallDeciC: 20, VoltRiseMV: 20, VoltFallMV: 20}
}

func TestPlotSelectorBasicLookup(t *testing.T) {
	s := NewPlotSelector(twoRowTable(), twoRowHyst())
	row, err := s.Select(types.ClassAll, 250, 3700)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if row.ChargeCurrentMA != 486 {
		t.Fatalf("expected first row, got current=%d", row.ChargeCurrentMA)
	}
}

func TestPlotSelectorHysteresisHoldsRowAtBoundary(t *testing.T) {
	s := NewPlotSelector(twoRowTable(), twoRowHyst())
	if _, err := s.Select(types.ClassAll, 440, 3700); err != nil {
		t.Fatalf("Select: %v", err)
	}
	// 455 is technically in the second band but within its own low edge's
	// rise guard, so the selector should hold the first row.
	row, err := s.Select(types.ClassAll, 455, 3700)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if row.ChargeCurrentMA != 486 {
		t.Fatalf("expected hysteresis to hold first row, got current=%d", row.ChargeCurrentMA)
	}
}

func TestPlotSelectorMovesAfterClearingHysteresis(t *testing.T) {
	s := NewPlotSelector(twoRowTable(), twoRowHyst())
	if _, err := s.Select(types.ClassAll, 440, 3700); err != nil {
		t.Fatalf("Select: %v", err)
	}
	row, err := s.Select(types.ClassAll, 480, 3700)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if row.ChargeCurrentMA != 300 {
		t.Fatalf("expected second row after clearing hysteresis, got current=%d", row.ChargeCurrentMA)
	}
}

func TestPlotSelectorVoltAxisHysteresisIsIndependentOfTemp(t *testing.T) {
	table := &Table{Rows: []Row{
		{Class: types.ClassAll, TempMinDeciC: 0, TempMaxDeciC: 600, VoltMinMV: 3000, VoltMaxMV: 3700, ChipIndex: 0, ChargeCurrentMA: 486},
		{Class: types.ClassAll, TempMinDeciC: 0, TempMaxDeciC: 600, VoltMinMV: 3700, VoltMaxMV: 4200, ChipIndex: 0, ChargeCurrentMA: 300},
	}}
	s := NewPlotSelector(table, twoRowHyst())
	if _, err := s.Select(types.ClassAll, 250, 3650); err != nil {
		t.Fatalf("Select: %v", err)
	}
	// 3710 is in the second band but inside its rise guard (3700+20=3720).
	row, err := s.Select(types.ClassAll, 250, 3710)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if row.ChargeCurrentMA != 486 {
		t.Fatalf("expected volt hysteresis to hold first row, got current=%d", row.ChargeCurrentMA)
	}
}

func TestPlotSelectorNoMatchBelowLowestBand(t *testing.T) {
	s := NewPlotSelector(twoRowTable(), twoRowHyst())
	if _, err := s.Select(types.ClassAll, -50, 3700); err == nil {
		t.Fatal("expected NoProfileMatch below lowest band")
	}
}

func TestPlotSelectorNoMatchAboveHighestBand(t *testing.T) {
	s := NewPlotSelector(twoRowTable(), twoRowHyst())
	if _, err := s.Select(types.ClassAll, 900, 3700); err == nil {
		t.Fatal("expected NoProfileMatch above highest band — no clip-to-nearest fallback")
	}
}

func TestPlotSelectorClassMismatch(t *testing.T) {
	s := NewPlotSelector(&Table{Rows: []Row{
		{Class: types.ClassStand, TempMinDeciC: 0, TempMaxDeciC: 450, VoltMinMV: 3000, VoltMaxMV: 4200, ChargeCurrentMA: 486},
	}}, Hysteresis{})
	if _, err := s.Select(types.ClassNoStandOther, 250, 3700); err == nil {
		t.Fatal("expected NoProfileMatch for unmatched adapter class")
	}
}

func TestPlotSelectorNoChargeRow(t *testing.T) {
	table := &Table{Rows: []Row{
		{Class: types.ClassAll, TempMinDeciC: -500, TempMaxDeciC: 0, VoltMinMV: 0, VoltMaxMV: 0xffff, ChipIndex: NoCharge},
	}}
	s := NewPlotSelector(table, Hysteresis{})
	row, err := s.Select(types.ClassAll, -100, 3700)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if row.ChipIndex != NoCharge {
		t.Fatalf("expected NoCharge row, got ChipIndex=%d", row.ChipIndex)
	}
}
