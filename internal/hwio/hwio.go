// Package hwio is the hardware abstraction the control loop drives: one
// method per physical operation on a charge path (adapter detection,
// supply voltage, charger enable/current/voltage, status, battery and
// skin telemetry). Backend must not block for more than a bus
// transaction's worth of time and must not retain goroutines of its own,
// with one exception: EnableAdapter(true) may block for the board's
// configured power-rail settle time, since that delay is incurred once
// per plug-in rather than on every poll.
package hwio

import (
	"chargerd-go/errcode"
	"chargerd-go/types"
)

// Backend is implemented once per physical charge path. Control must
// guarantee mutual exclusion between charger chips sharing a rail: at
// most one EnableCharger(true) may be in effect across all chips at a
// time, matching the original charger's "disable every other path
// first" contract.
type Backend interface {
	// EnableAdapter switches the upstream detect/negotiation circuit on
	// or off. Turning it on blocks until the power rail has settled
	// (see the package doc), a one-time cost at plug-in.
	EnableAdapter(on bool) error
	// AdapterType reports the negotiated source class, or
	// types.AdapterNone if nothing is attached.
	AdapterType() (types.AdapterType, error)

	// SetSupplyVoltage programs the pump's output voltage target, mV.
	SetSupplyVoltage(mV int32) error
	// SupplyVoltage reads back the pump's output voltage target, mV.
	SupplyVoltage() (int32, error)

	// EnableCharger gates charge current delivery for chip. Enabling
	// one chip disables every other chip on the same path first.
	EnableCharger(chip types.ChipIndex, on bool) error
	// SetChargerCurrent programs the target charge current, mA.
	SetChargerCurrent(chip types.ChipIndex, mA int32) error
	// SetChargerVoltage programs the termination voltage, mV.
	SetChargerVoltage(chip types.ChipIndex, mV int32) error
	// ChargerState returns the 12-bit raw status register for chip.
	ChargerState(chip types.ChipIndex) (types.ChargerStatus, error)

	// BatterySample returns the latest cell reading. Online is false and
	// the other fields hold the backend's configured default values when
	// the fuel gauge cannot be reached, matching the original charger's
	// fallback-to-default contract rather than surfacing an error.
	BatterySample() (types.BatterySample, error)
	// SkinSample returns the latest case/skin temperature reading.
	SkinSample() (types.SkinSample, error)
	// SetBatteryVBusState tells the fuel gauge whether VBUS is present,
	// for coulomb-counter and self-discharge compensation.
	SetBatteryVBusState(present bool) error
}

// errHW wraps a low-level failure as errcode.HardwareFailure.
func errHW(op string, err error) error {
	if err == nil {
		return nil
	}
	return &errcode.E{C: errcode.HardwareFailure, Op: op, Err: err}
}
