// Package algorithm implements the two charge-path start/regulate
// strategies: a fixed-voltage buck path and a voltage-ramping charge
// pump path, each driving a hwio.Backend.
package algorithm

import (
	"chargerd-go/errcode"
	"chargerd-go/internal/hwio"
	"chargerd-go/types"
)

// BuckAlgoInitVol is the supply voltage the buck path starts at; it
// never needs to ramp, unlike the pump path.
const BuckAlgoInitVol int32 = 3000

// BuckAlgorithm drives a simple fixed-voltage charge path: enable,
// program current and supply voltage, done.
type BuckAlgorithm struct {
	backend hwio.Backend
	chip    types.ChipIndex
}

func NewBuckAlgorithm(backend hwio.Backend, chip types.ChipIndex) *BuckAlgorithm {
	return &BuckAlgorithm{backend: backend, chip: chip}
}

// Start programs the supply voltage and target current, then enables
// the charge path. Current and voltage come from the profile row
// selected for the current (temperature, battery voltage) reading.
func (a *BuckAlgorithm) Start(currentMA, voltageMV int32) error {
	if err := a.backend.SetSupplyVoltage(BuckAlgoInitVol); err != nil {
		return wrap("BuckAlgorithm.Start", err)
	}
	if err := a.backend.SetChargerCurrent(a.chip, currentMA); err != nil {
		return wrap("BuckAlgorithm.Start", err)
	}
	if err := a.backend.SetChargerVoltage(a.chip, voltageMV); err != nil {
		return wrap("BuckAlgorithm.Start", err)
	}
	if err := a.backend.EnableCharger(a.chip, true); err != nil {
		return wrap("BuckAlgorithm.Start", err)
	}
	return nil
}

// Update reprograms current/voltage targets while charging continues,
// e.g. after a profile-table reselection.
func (a *BuckAlgorithm) Update(currentMA, voltageMV int32) error {
	if err := a.backend.SetChargerCurrent(a.chip, currentMA); err != nil {
		return wrap("BuckAlgorithm.Update", err)
	}
	return wrap("BuckAlgorithm.Update", a.backend.SetChargerVoltage(a.chip, voltageMV))
}

// Stop disables the charge path.
func (a *BuckAlgorithm) Stop() error {
	return wrap("BuckAlgorithm.Stop", a.backend.EnableCharger(a.chip, false))
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errcode.Of(err) != errcode.Error {
		return err
	}
	return &errcode.E{C: errcode.AlgorithmStartFailure, Op: op, Err: err}
}
