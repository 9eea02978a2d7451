package algorithm

import (
	"testing"

	"chargerd-go/internal/hwio"
	"chargerd-go/types"
)

func TestBuckAlgorithmStart(t *testing.T) {
	sim := hwio.NewSim()
	a := NewBuckAlgorithm(sim, types.ChipBuck)

	if err := a.Start(486, 4200); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sim.SupplyMV != BuckAlgoInitVol {
		t.Fatalf("expected supply voltage %d, got %d", BuckAlgoInitVol, sim.SupplyMV)
	}
	if sim.CurrentMA[types.ChipBuck] != 486 {
		t.Fatalf("expected current 486, got %d", sim.CurrentMA[types.ChipBuck])
	}
	if sim.VoltageMV[types.ChipBuck] != 4200 {
		t.Fatalf("expected voltage 4200, got %d", sim.VoltageMV[types.ChipBuck])
	}
	st, _ := sim.ChargerState(types.ChipBuck)
	if !st.Has(types.StatChgEn) {
		t.Fatal("expected buck charger to be enabled")
	}
}

func TestBuckAlgorithmUpdate(t *testing.T) {
	sim := hwio.NewSim()
	a := NewBuckAlgorithm(sim, types.ChipBuck)
	if err := a.Start(486, 4200); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Update(300, 4100); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sim.CurrentMA[types.ChipBuck] != 300 || sim.VoltageMV[types.ChipBuck] != 4100 {
		t.Fatalf("expected updated targets, got current=%d voltage=%d", sim.CurrentMA[types.ChipBuck], sim.VoltageMV[types.ChipBuck])
	}
}

func TestBuckAlgorithmStop(t *testing.T) {
	sim := hwio.NewSim()
	a := NewBuckAlgorithm(sim, types.ChipBuck)
	_ = a.Start(486, 4200)
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	st, _ := sim.ChargerState(types.ChipBuck)
	if st.Has(types.StatChgEn) {
		t.Fatal("expected buck charger disabled after Stop")
	}
}
