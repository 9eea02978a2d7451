// Package control implements the charge-path state machine: profile
// lookup, algorithm selection, thermal and full-battery policy, driven
// by a run-to-quiescence dispatcher over hwio.Backend.
package control

import (
	"chargerd-go/internal/algorithm"
	"chargerd-go/internal/config"
	"chargerd-go/internal/hwio"
	"chargerd-go/internal/powerlock"
	"chargerd-go/internal/profile"
	"chargerd-go/types"
)

// StateID names the five states the charge path can be in.
type StateID uint8

const (
	StateInit StateID = iota
	StateChg
	StateTempProtect
	StateFull
	StateFault
)

func (s StateID) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateChg:
		return "chg"
	case StateTempProtect:
		return "temp_protect"
	case StateFull:
		return "full"
	case StateFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Thermal lockout thresholds (tenths of °C) and hysteresis, used as
// defaults when a ChargerDesc leaves the corresponding field unset —
// analogous to the platform's own skin-temperature supervisor.
const (
	SkinTempLimitDeciC     int16 = 450
	SkinTempHystDeciC      int16 = 30
	CellOverTempLimitDeciC int16 = 600
	CellOverTempHystDeciC  int16 = 30
	CellMinTempDeciC       int16 = 10
	CellMinTempHystDeciC   int16 = 10
)

// Manager owns one charge path: its hardware backend, profile tables,
// both start/regulate algorithms, and the five-state dispatcher.
type Manager struct {
	desc     config.ChargerDesc
	backend  hwio.Backend
	selector *profile.PlotSelector
	vterm    *profile.TempVTerm
	fault    *profile.PlotSelector
	buck     *algorithm.BuckAlgorithm
	pump     *algorithm.PumpAlgorithm
	lock     powerlock.Lock

	state     StateID
	usingPump bool
	// chipRunning/activeChip track which chip (if any) currently has an
	// algorithm started, mirroring curr_charger: a profile reselection
	// that keeps the same chip just updates it, one that changes chip
	// stops the old and starts the new, and NoCharge stops whatever was
	// running without forcing a state change.
	chipRunning bool
	activeChip  types.ChipIndex

	adapter   types.AdapterType
	batt      types.BatterySample
	skin      types.SkinSample
	row       profile.Row
	haveRow   bool
	fullCount int

	fullTimerMs  int32
	faultTimerMs int32

	tempLatched bool
	faultBits   types.ChargerStatus
}

// New builds a Manager over backend for desc, using table for profile
// lookups. termVolt is kept as a TempVTerm lookup that none of the state
// handlers consults, so the termination voltage is not adjusted with
// temperature. lock is acquired for the duration of an active charge
// cycle.
func New(desc config.ChargerDesc, backend hwio.Backend, table *profile.Table, termVolt []profile.VTermRow, lock powerlock.Lock) *Manager {
	if desc.PollingIntervalMs <= 0 {
		desc.PollingIntervalMs = 1000
	}
	if desc.FullBattCapacity <= 0 {
		desc.FullBattCapacity = 100
	}
	if desc.FullBattDurationMs <= 0 {
		desc.FullBattDurationMs = 180000
	}
	if desc.FaultDurationMs <= 0 {
		desc.FaultDurationMs = 60000
	}
	if desc.TempMaxDeciC == 0 {
		desc.TempMaxDeciC = CellOverTempLimitDeciC
		desc.TempMaxRDeciC = CellOverTempLimitDeciC - CellOverTempHystDeciC
	}
	if desc.TempMinDeciC == 0 {
		desc.TempMinDeciC = CellMinTempDeciC
		desc.TempMinRDeciC = CellMinTempDeciC + CellMinTempHystDeciC
	}
	if desc.SkinMaxDeciC == 0 {
		desc.SkinMaxDeciC = SkinTempLimitDeciC
		desc.SkinMaxRDeciC = SkinTempLimitDeciC - SkinTempHystDeciC
	}
	if desc.SkinMinDeciC == 0 {
		desc.SkinMinDeciC = -4000
		desc.SkinMinRDeciC = -3900
	}

	fault := &profile.Table{Rows: []profile.Row{desc.Fault}}

	return &Manager{
		desc:      desc,
		backend:   backend,
		selector:  profile.NewPlotSelector(table, desc.Hysteresis),
		vterm:     profile.NewTempVTerm(termVolt, 20),
		fault:     profile.NewPlotSelector(fault, desc.Hysteresis),
		buck:      algorithm.NewBuckAlgorithm(backend, types.ChipBuck),
		pump:      algorithm.NewPumpAlgorithm(backend, types.ChipPump),
		lock:      lock,
		state:     StateInit,
		fullCount: 0,
	}
}

// State reports the current top-level state.
func (m *Manager) State() StateID { return m.state }

// Handle feeds one event through the dispatcher, running it to
// quiescence: the state function re-runs with a synthetic EventNone
// until it stops requesting a further transition, mirroring the
// original charger's changed-loop entry/handle pattern.
func (m *Manager) Handle(ev types.Event) error {
	if ev.Kind == types.EventTick {
		m.batt = ev.Batt
		m.skin = ev.Skin
	}
	for {
		next, err := m.dispatch(m.state, ev)
		if err != nil {
			return err
		}
		ev = types.Event{Kind: types.EventNone}
		if next == m.state {
			return nil
		}
		m.state = next
	}
}

func (m *Manager) dispatch(s StateID, ev types.Event) (StateID, error) {
	switch s {
	case StateInit:
		return m.stateInit(ev)
	case StateChg:
		return m.stateChg(ev)
	case StateTempProtect:
		return m.stateTempProtect(ev)
	case StateFull:
		return m.stateFull(ev)
	case StateFault:
		return m.stateFault(ev)
	default:
		return StateInit, nil
	}
}
