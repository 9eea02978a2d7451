package control

import (
	"chargerd-go/internal/profile"
	"chargerd-go/types"
)

// stateInit waits for a plug-in event, then selects the charge profile
// and starts the appropriate algorithm. A latched thermal lockout takes
// priority and sends the path straight to TEMP_PROTECT. The adapter type
// is taken from the plug-in event as delivered: the backend's AdapterType
// is not queried here, so INIT has no protocol-discovery failure path.
func (m *Manager) stateInit(ev types.Event) (StateID, error) {
	switch ev.Kind {
	case types.EventPlugin:
		m.adapter = ev.Adapter
		m.batt = ev.Batt
		m.skin = ev.Skin
		if m.tempLatched {
			return StateTempProtect, nil
		}
		if err := m.backend.EnableAdapter(true); err != nil {
			return StateInit, err
		}
		return m.beginCharge()
	default:
		return StateInit, nil
	}
}

// beginCharge selects a profile row for the current telemetry and starts
// whatever charge path it calls for.
func (m *Manager) beginCharge() (StateID, error) {
	m.fullCount = 0
	m.fullTimerMs = 0
	class := classFor(m.adapter)
	row, err := m.selector.Select(class, m.batt.TempDeciC, m.batt.VoltageMV)
	if err != nil {
		return StateFault, nil
	}
	m.row = row
	m.haveRow = true
	if err := m.applyRow(row); err != nil {
		return StateFault, nil
	}
	return StateChg, nil
}

// applyRow drives the selected row's chip, replicating the original's
// three-way dispatch: nothing running yet starts the row's chip, the
// same chip as before just gets reprogrammed, a different chip stops the
// old one first. A NoCharge row stops whatever is running without
// forcing any state transition — the cell simply isn't being driven.
func (m *Manager) applyRow(row profile.Row) error {
	if row.ChipIndex == profile.NoCharge {
		if m.chipRunning {
			m.stopChip()
		}
		return nil
	}

	newChip := types.ChipIndex(row.ChipIndex)

	if !m.chipRunning {
		m.lock.Acquire()
		if err := m.startChip(newChip, row); err != nil {
			m.lock.Release()
			return err
		}
		m.chipRunning = true
		m.activeChip = newChip
		return nil
	}

	if m.activeChip == newChip {
		return m.updateChip(newChip, row)
	}

	m.stopChipLocked(m.activeChip)
	if err := m.startChip(newChip, row); err != nil {
		m.lock.Release()
		m.chipRunning = false
		return err
	}
	m.activeChip = newChip
	return nil
}

func (m *Manager) startChip(chip types.ChipIndex, row profile.Row) error {
	if chip == types.ChipPump {
		m.usingPump = true
		return m.pump.Start(row.ChargeVoltageMV, row.ChargeCurrentMA)
	}
	m.usingPump = false
	return m.buck.Start(row.ChargeCurrentMA, row.ChargeVoltageMV)
}

func (m *Manager) updateChip(chip types.ChipIndex, row profile.Row) error {
	if chip == types.ChipPump {
		return m.pump.SetTarget(row.ChargeCurrentMA)
	}
	return m.buck.Update(row.ChargeCurrentMA, row.ChargeVoltageMV)
}

// stopChip stops whichever chip is active and releases the power lock.
func (m *Manager) stopChip() {
	m.stopChipLocked(m.activeChip)
	m.lock.Release()
	m.chipRunning = false
}

// stopChipLocked stops chip without touching the power lock, used when
// switching directly from one chip to another inside applyRow.
func (m *Manager) stopChipLocked(chip types.ChipIndex) {
	if chip == types.ChipPump {
		m.pump.Stop()
	} else {
		m.buck.Stop()
	}
}

// stateChg is the steady charging state: every tick it re-evaluates the
// profile row, checks thermal and fault conditions, advances the active
// algorithm, and watches for the battery reaching full.
func (m *Manager) stateChg(ev types.Event) (StateID, error) {
	switch ev.Kind {
	case types.EventPlugout:
		m.stopCharging()
		return StateInit, nil

	case types.EventFault:
		m.faultBits = ev.Status
		m.stopCharging()
		return StateFault, nil

	case types.EventOverTemp:
		m.tempLatched = true
		m.stopCharging()
		return StateTempProtect, nil

	case types.EventTick:
		if m.overTemp() {
			m.tempLatched = true
			m.stopCharging()
			return StateTempProtect, nil
		}

		if m.chipRunning {
			st, err := m.backend.ChargerState(m.activeChip)
			if err != nil {
				return StateChg, err
			}
			if st.Any(types.StatFault) {
				m.faultBits = st
				m.stopCharging()
				return StateFault, nil
			}
		}

		if m.usingPump && m.chipRunning && m.activeChip == types.ChipPump {
			if done, err := m.pump.Tick(int64(m.desc.PollingIntervalMs)); err != nil {
				m.stopCharging()
				return StateFault, nil
			} else if done {
				m.pump.Regulate(m.batt.CurrentMA)
			}
		}

		class := classFor(m.adapter)
		if row, err := m.selector.Select(class, m.batt.TempDeciC, m.batt.VoltageMV); err == nil {
			m.row = row
			if err := m.applyRow(row); err != nil {
				m.stopCharging()
				return StateFault, nil
			}
		}

		if m.checkBatteryFull() {
			m.stopCharging()
			return StateFull, nil
		}
		return StateChg, nil

	default:
		return StateChg, nil
	}
}

// stateTempProtect holds every charge path disabled until both cell and
// skin temperature have cleared their recovery thresholds, then resumes
// charging from a fresh profile lookup.
func (m *Manager) stateTempProtect(ev types.Event) (StateID, error) {
	switch ev.Kind {
	case types.EventNone:
		m.enterTempProtect()
		return StateTempProtect, nil

	case types.EventPlugout:
		m.tempLatched = false
		return StateInit, nil

	case types.EventTick:
		if !m.overTemp() {
			m.tempLatched = false
			if err := m.backend.EnableAdapter(true); err != nil {
				return StateTempProtect, err
			}
			if m.adapter == types.AdapterNone {
				return StateInit, nil
			}
			return m.beginCharge()
		}
		return StateTempProtect, nil

	default:
		return StateTempProtect, nil
	}
}

// enterTempProtect disables every charge path (not just whichever one is
// currently active) and the adapter, matching the original's sweep over
// every charger on lockout entry.
func (m *Manager) enterTempProtect() {
	m.stopAllAndDisable()
}

// stopAllAndDisable stops every charge path, whether or not one is
// currently tracked as running, and disables the adapter.
func (m *Manager) stopAllAndDisable() {
	if m.chipRunning {
		m.stopChip()
	}
	m.buck.Stop()
	m.pump.Stop()
	m.backend.EnableAdapter(false)
}

// stateFull holds the charge path disabled while the pack stays at full
// capacity, resuming charging once fullbatt_duration_ms has elapsed.
func (m *Manager) stateFull(ev types.Event) (StateID, error) {
	switch ev.Kind {
	case types.EventNone:
		m.fullTimerMs = 0
		m.backend.EnableAdapter(false)
		return StateFull, nil

	case types.EventPlugout:
		m.backend.EnableAdapter(true)
		return StateInit, nil

	case types.EventOverTemp:
		m.tempLatched = true
		return StateTempProtect, nil

	case types.EventTick:
		m.fullTimerMs += int32(m.desc.PollingIntervalMs)
		if m.fullTimerMs < m.desc.FullBattDurationMs {
			return StateFull, nil
		}
		m.fullTimerMs = 0
		if err := m.backend.EnableAdapter(true); err != nil {
			return StateFull, err
		}
		if m.adapter == types.AdapterNone {
			return StateInit, nil
		}
		return m.beginCharge()

	default:
		return StateFull, nil
	}
}

// stateFault holds the charge path disabled until the battery is found
// full, fault_duration_ms elapses, the adapter is removed, or an
// EventFaultCleared arrives. EventFaultCleared has no counterpart in the
// original charger; it is accepted as a manual override alongside the
// timer and plugout escapes.
func (m *Manager) stateFault(ev types.Event) (StateID, error) {
	switch ev.Kind {
	case types.EventNone:
		m.enterFault()
		return StateFault, nil

	case types.EventPlugout:
		m.faultBits = 0
		m.faultEscape()
		return StateInit, nil

	case types.EventFaultCleared:
		m.faultBits = 0
		m.faultEscape()
		return StateInit, nil

	case types.EventTick:
		if m.checkBatteryFull() {
			m.faultBits = 0
			m.faultEscape()
			return StateFull, nil
		}
		m.faultTimerMs += int32(m.desc.PollingIntervalMs)
		if m.faultTimerMs < m.desc.FaultDurationMs {
			return StateFault, nil
		}
		m.faultTimerMs = 0
		m.faultBits = 0
		m.faultEscape()
		if m.adapter == types.AdapterNone {
			return StateInit, nil
		}
		return m.beginCharge()

	default:
		return StateFault, nil
	}
}

// enterFault tries to run the board's dedicated fault profile (a charge
// path explicitly rated for the out-of-range cell the fault was raised
// on); failing that, every charge path and the adapter are disabled.
func (m *Manager) enterFault() {
	m.faultTimerMs = 0
	if m.desc.Fault == (profile.Row{}) {
		m.stopAllAndDisable()
		return
	}
	class := classFor(m.adapter)
	if row, err := m.fault.Select(class, m.batt.TempDeciC, m.batt.VoltageMV); err == nil && row.ChipIndex != profile.NoCharge {
		m.row = row
		if err := m.applyRow(row); err == nil {
			return
		}
	}
	m.stopAllAndDisable()
}

// faultEscape stops whatever the fault profile started and re-enables
// the adapter, mirroring the cleanup every exit from FAULT performs
// regardless of which path triggered it.
func (m *Manager) faultEscape() {
	if m.chipRunning {
		m.stopChip()
	}
	m.backend.EnableAdapter(true)
}

func (m *Manager) stopCharging() {
	if m.chipRunning {
		m.stopChip()
	}
}

// checkBatteryFull reports whether the pack has held its full-capacity
// reading for enough consecutive ticks to count as genuinely full rather
// than a momentary fuel-gauge blip: the fifth consecutive passing tick.
func (m *Manager) checkBatteryFull() bool {
	if !m.haveRow {
		m.fullCount = 0
		return false
	}
	if m.batt.Capacity != m.desc.FullBattCapacity ||
		m.batt.CurrentMA < 0 || m.batt.CurrentMA > m.desc.FullBattCurrentMA {
		m.fullCount = 0
		return false
	}
	full := m.fullCount > 3
	m.fullCount++
	return full
}

// overTemp reports whether either the cell or skin reading is past its
// lockout threshold. Once latched, the thresholds used are the
// (looser) recovery points, so a reading has to clear them by the
// board's configured margin before the lockout releases.
func (m *Manager) overTemp() bool {
	d := m.desc
	if m.tempLatched {
		return m.skin.TempDeciC >= d.SkinMaxRDeciC || m.skin.TempDeciC <= d.SkinMinRDeciC ||
			m.batt.TempDeciC >= d.TempMaxRDeciC || m.batt.TempDeciC <= d.TempMinRDeciC
	}
	return m.skin.TempDeciC >= d.SkinMaxDeciC || m.skin.TempDeciC <= d.SkinMinDeciC ||
		m.batt.TempDeciC >= d.TempMaxDeciC || m.batt.TempDeciC <= d.TempMinDeciC
}

func classFor(a types.AdapterType) types.AdapterClass { return types.ClassOf(a) }
