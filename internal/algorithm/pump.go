package algorithm

import (
	"chargerd-go/errcode"
	"chargerd-go/internal/hwio"
	"chargerd-go/types"
	"chargerd-go/x/mathx"
)

// Pump constants, verbatim from the board's charge-pump bring-up table.
const (
	VoutMaxMV            int32   = 9100
	VoutDefaultMV        int32   = 5500
	VolWorkStartMV       int32   = 3650
	VoutOffsetMV         int32   = 578
	VoutRatio            float64 = 1.91
	VoutStepDecMV        int32   = 100
	VoutStepIncMV        int32   = 25
	CoutStepDecMA        int32   = 100
	CoutStepIncMA        int32   = 25
	StartupVoltageMV     int32   = 300
	StartupVoltageOffset int32   = 25
	VolPumpUpLockedMV    int32   = 3450
	VolPumpDownLockedMV  int32   = 3850

	pumpRampStepMs   = 100
	pumpEnableWaitMs = 500
)

// pumpPhase tracks where Start's handshake has got to, so Tick can drive
// it one non-blocking step at a time from the control loop's own timer
// instead of the original firmware's blocking usleep calls.
type pumpPhase uint8

const (
	pumpIdle pumpPhase = iota
	pumpRamping
	pumpAwaitingEnable
	pumpSteady
	pumpFailed
)

// PumpAlgorithm drives a voltage-ramping charge pump: it negotiates an
// output voltage against the chip's VBUS_ERROR status before enabling
// charge current, then holds current inside a dead-band with small
// asymmetric steps once steady.
type PumpAlgorithm struct {
	backend hwio.Backend
	chip    types.ChipIndex

	phase    pumpPhase
	vbase    float64
	psvc     int32
	sinceMs  int64
	targetMA int32
}

func NewPumpAlgorithm(backend hwio.Backend, chip types.ChipIndex) *PumpAlgorithm {
	return &PumpAlgorithm{backend: backend, chip: chip}
}

// Start begins the voltage ramp handshake for a target terminal voltage
// and charge current. Call Tick repeatedly (every ~100ms) until it
// reports done or an error.
func (a *PumpAlgorithm) Start(voltageMV, currentMA int32) error {
	a.vbase = float64(voltageMV) - float64(currentMA)*0.25
	a.psvc = 0
	a.sinceMs = 0
	a.targetMA = currentMA
	a.phase = pumpRamping
	return a.rampStep()
}

func (a *PumpAlgorithm) rampStep() error {
	rxVout := a.vbase*VoutRatio + float64(VoutOffsetMV) +
		float64(StartupVoltageMV+StartupVoltageOffset*a.psvc)
	if rxVout > float64(VoutMaxMV) {
		a.phase = pumpFailed
		return &errcode.E{C: errcode.AlgorithmStartFailure, Op: "PumpAlgorithm.rampStep", Msg: "vout exceeds max"}
	}
	if err := a.backend.SetSupplyVoltage(int32(rxVout)); err != nil {
		a.phase = pumpFailed
		return wrap("PumpAlgorithm.rampStep", err)
	}
	a.psvc++
	return nil
}

// Tick advances the handshake or steady-state regulation by one step.
// elapsedMs is the time since the previous Tick call. done is true once
// the path is enabled and in steady-state regulation, or has failed
// (check the returned error).
func (a *PumpAlgorithm) Tick(elapsedMs int64) (done bool, err error) {
	switch a.phase {
	case pumpIdle, pumpFailed:
		return true, nil

	case pumpRamping:
		a.sinceMs += elapsedMs
		if a.sinceMs < pumpRampStepMs {
			return false, nil
		}
		a.sinceMs = 0
		st, err := a.backend.ChargerState(a.chip)
		if err != nil {
			a.phase = pumpFailed
			return true, wrap("PumpAlgorithm.Tick", err)
		}
		if st.Any(types.StatVBusError) {
			if err := a.rampStep(); err != nil {
				return true, err
			}
			return false, nil
		}
		if err := a.backend.EnableCharger(a.chip, true); err != nil {
			a.phase = pumpFailed
			return true, wrap("PumpAlgorithm.Tick", err)
		}
		a.phase = pumpAwaitingEnable
		a.sinceMs = 0
		return false, nil

	case pumpAwaitingEnable:
		a.sinceMs += elapsedMs
		if a.sinceMs < pumpEnableWaitMs {
			return false, nil
		}
		st, err := a.backend.ChargerState(a.chip)
		if err != nil {
			a.phase = pumpFailed
			return true, wrap("PumpAlgorithm.Tick", err)
		}
		if !st.Has(types.StatChgEn) {
			a.backend.EnableCharger(a.chip, false)
			a.phase = pumpFailed
			return true, &errcode.E{C: errcode.AlgorithmStartFailure, Op: "PumpAlgorithm.Tick", Msg: "charger did not confirm enable"}
		}
		a.phase = pumpSteady
		return true, nil

	default:
		return true, nil
	}
}

// Regulate nudges the supply voltage toward keeping measured charge
// current at target, by at most one asymmetric step per call. It only
// acts once the reading has cleared the dead band on the relevant side:
// too little current steps the supply up by VoutStepIncMV (clamped to
// VoutMaxMV), too much steps it down by VoutStepDecMV with no clamp —
// the chip is trusted to protect itself against an overcorrection, the
// same asymmetry Start's ramp uses to avoid retriggering VBUS_ERROR.
func (a *PumpAlgorithm) Regulate(measuredMA int32) error {
	if a.phase != pumpSteady {
		return nil
	}
	switch {
	case measuredMA < a.targetMA-CoutStepDecMA:
		mV, err := a.backend.SupplyVoltage()
		if err != nil {
			return wrap("PumpAlgorithm.Regulate", err)
		}
		next := mathx.Clamp(mV+VoutStepIncMV, 0, VoutMaxMV)
		return a.backend.SetSupplyVoltage(next)
	case measuredMA > a.targetMA+CoutStepIncMA:
		mV, err := a.backend.SupplyVoltage()
		if err != nil {
			return wrap("PumpAlgorithm.Regulate", err)
		}
		return a.backend.SetSupplyVoltage(mV - VoutStepDecMV)
	}
	return nil
}

// SetTarget updates the regulation target, e.g. after a profile-table
// reselection changes the charge current. When the path is already
// enabled, the new current is programmed immediately rather than phased
// in through Regulate, matching the original's re-init-on-row-change
// behaviour.
func (a *PumpAlgorithm) SetTarget(currentMA int32) error {
	a.targetMA = currentMA
	if a.phase != pumpSteady {
		return nil
	}
	return wrap("PumpAlgorithm.SetTarget", a.backend.SetChargerCurrent(a.chip, currentMA))
}

// Stop disables the charge path and returns the algorithm to idle.
func (a *PumpAlgorithm) Stop() error {
	a.phase = pumpIdle
	return wrap("PumpAlgorithm.Stop", a.backend.EnableCharger(a.chip, false))
}

// Failed reports whether the last Start/Tick sequence ended in failure.
func (a *PumpAlgorithm) Failed() bool { return a.phase == pumpFailed }
