package hwio

import (
	"time"

	"chargerd-go/types"
)

// Sim is an in-memory Backend used by tests and by bench builds with no
// attached hardware. All fields are safe to poke directly between calls
// from a single goroutine; Sim is not safe for concurrent use, matching
// the single-threaded contract the control loop already holds Backend
// calls under.
type Sim struct {
	Adapter      types.AdapterType
	AdapterOn    bool
	SupplyMV     int32
	EnabledChip  types.ChipIndex
	AnyEnabled   bool
	CurrentMA    [2]int32
	VoltageMV    [2]int32
	Status       [2]types.ChargerStatus
	Battery      types.BatterySample
	BatteryOK    bool
	Skin         types.SkinSample
	SkinOK       bool
	VBusAsserted bool

	// DefaultBattery/DefaultSkin are returned (with Online=false) when
	// BatteryOK/SkinOK is false, mirroring a fuel gauge that's gone
	// offline but still owes the caller a usable fallback reading.
	DefaultBattery types.BatterySample
	DefaultSkin    types.SkinSample

	// EnableDelayMs is the power-rail settle time EnableAdapter(true)
	// blocks for, set from the board description's enable_delay_ms.
	// Zero (the default) disables the delay, which is what every
	// existing test relies on.
	EnableDelayMs int32
}

func NewSim() *Sim {
	return &Sim{
		BatteryOK: true,
		SkinOK:    true,
	}
}

func (s *Sim) EnableAdapter(on bool) error {
	if on && s.EnableDelayMs > 0 {
		time.Sleep(time.Duration(s.EnableDelayMs) * time.Millisecond)
	}
	s.AdapterOn = on
	return nil
}

func (s *Sim) AdapterType() (types.AdapterType, error) {
	if !s.AdapterOn {
		return types.AdapterNone, nil
	}
	return s.Adapter, nil
}

func (s *Sim) SetSupplyVoltage(mV int32) error {
	s.SupplyMV = mV
	return nil
}

func (s *Sim) SupplyVoltage() (int32, error) { return s.SupplyMV, nil }

func (s *Sim) EnableCharger(chip types.ChipIndex, on bool) error {
	if on {
		s.EnabledChip = chip
		s.AnyEnabled = true
		s.Status[chip] |= types.StatChgEn
		other := types.ChipBuck
		if chip == types.ChipBuck {
			other = types.ChipPump
		}
		s.Status[other] &^= types.StatChgEn
		return nil
	}
	if s.AnyEnabled && s.EnabledChip == chip {
		s.AnyEnabled = false
	}
	s.Status[chip] &^= types.StatChgEn
	return nil
}

func (s *Sim) SetChargerCurrent(chip types.ChipIndex, mA int32) error {
	s.CurrentMA[chip] = mA
	return nil
}

func (s *Sim) SetChargerVoltage(chip types.ChipIndex, mV int32) error {
	s.VoltageMV[chip] = mV
	return nil
}

func (s *Sim) ChargerState(chip types.ChipIndex) (types.ChargerStatus, error) {
	return s.Status[chip], nil
}

func (s *Sim) BatterySample() (types.BatterySample, error) {
	if !s.BatteryOK {
		d := s.DefaultBattery
		d.Online = false
		return d, nil
	}
	s.Battery.Online = true
	return s.Battery, nil
}

func (s *Sim) SkinSample() (types.SkinSample, error) {
	if !s.SkinOK {
		d := s.DefaultSkin
		d.Online = false
		return d, nil
	}
	s.Skin.Online = true
	return s.Skin, nil
}

func (s *Sim) SetBatteryVBusState(present bool) error {
	s.VBusAsserted = present
	return nil
}

var _ Backend = (*Sim)(nil)
