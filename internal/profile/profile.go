// Package profile implements the ordered range-table lookups that select
// charge parameters from cell temperature, terminal voltage and adapter
// class, with hysteresis so a reading that sits on a band edge doesn't
// cause the selected row to chatter.
package profile

import (
	"chargerd-go/errcode"
	"chargerd-go/types"
)

// NoCharge is the ChipIndex sentinel a row uses to mean "don't charge at
// all while in this temperature/voltage cell" — e.g. below the minimum
// charge temperature, or above the point a pack should be topped off.
const NoCharge int32 = -1

// Row is one entry of the charge profile table: a (temperature, voltage)
// band for a set of adapter classes, the chip that should drive it, and
// the charge parameters that apply while a sample falls in it.
type Row struct {
	Class types.AdapterClass `json:"class"`

	TempMinDeciC int16 `json:"temp_min_deci_c"`
	TempMaxDeciC int16 `json:"temp_max_deci_c"`

	VoltMinMV int32 `json:"volt_min_mv"`
	VoltMaxMV int32 `json:"volt_max_mv"`

	// ChipIndex selects which charge path drives this cell: the row's own
	// int32 rather than types.ChipIndex, since NoCharge (-1) has to fit.
	ChipIndex int32 `json:"chip_index"`

	ChargeCurrentMA int32 `json:"charge_current_ma"`
	ChargeVoltageMV int32 `json:"charge_voltage_mv"`
}

func (r Row) matchesClass(c types.AdapterClass) bool { return r.Class&c != 0 }

// matchesTemp and matchesVolt are both-inclusive range tests: a row's
// band covers temp_range_min..temp_range_max and vol_range_min..vol_range_max.
func (r Row) matchesTemp(t int16) bool { return t >= r.TempMinDeciC && t <= r.TempMaxDeciC }

func (r Row) matchesVolt(v int32) bool { return v >= r.VoltMinMV && v <= r.VoltMaxMV }

// Table is an ordered set of Rows, ascending by temperature then voltage.
type Table struct {
	Rows []Row
}

// Hysteresis holds the four global guard-band widths applied at whichever
// boundary a candidate row differs from the currently selected one: a
// rise guard on the low edge of a row reached by increasing temperature or
// voltage, a fall guard on the high edge of a row reached by decreasing.
// These are board-wide parameters, not per-row fields — every band shares
// the same guard widths.
type Hysteresis struct {
	TempRiseDeciC int16
	TempFallDeciC int16
	VoltRiseMV    int32
	VoltFallMV    int32
}

// PlotSelector walks a Table and picks the Row that applies to the
// current (adapter, temperature, voltage) state, debouncing band-edge
// jitter with hysteresis. Create one with NewPlotSelector; a zero
// Hysteresis means no guard bands.
type PlotSelector struct {
	table *Table
	hyst  Hysteresis
	have  bool
	last  Row
}

func NewPlotSelector(t *Table, hyst Hysteresis) *PlotSelector {
	return &PlotSelector{table: t, hyst: hyst}
}

// Select returns the Row that applies to the given reading. It returns
// errcode.NoProfileMatch when no row in the table covers the given
// (temperature, voltage) cell for this adapter class — there is no
// clip-to-nearest-band fallback here, unlike TempVTerm.Lookup: a charger
// with no matching cell simply has nothing to charge with.
func (s *PlotSelector) Select(class types.AdapterClass, tempDeciC int16, voltMV int32) (Row, error) {
	var match Row
	found := false
	for _, r := range s.table.Rows {
		if !r.matchesClass(class) {
			continue
		}
		if r.matchesTemp(tempDeciC) && r.matchesVolt(voltMV) {
			match = r
			found = true
			break
		}
	}
	if !found {
		return Row{}, &errcode.E{C: errcode.NoProfileMatch, Op: "profile.Select", Msg: "no row matches temperature/voltage"}
	}

	if s.have && match != s.last {
		match = s.applyHysteresis(match, tempDeciC, voltMV)
	}

	s.last = match
	s.have = true
	return match, nil
}

// applyHysteresis decides whether to stick with the previously selected
// row instead of moving to match, mirroring the original's "hysteresis
// only applies at current_index±1" rule: a reading has to clear the
// guard band on the boundary it's approaching before the selector will
// move off the current row. Exactly one axis is checked per call — temp
// if the candidate's temperature band differs from the current row's,
// volt only if the temperature bands are identical and the voltage band
// differs.
func (s *PlotSelector) applyHysteresis(match Row, tempDeciC int16, voltMV int32) Row {
	last := s.last
	if match.TempMinDeciC != last.TempMinDeciC || match.TempMaxDeciC != last.TempMaxDeciC {
		if match.TempMinDeciC > last.TempMinDeciC {
			// Moving to a higher temperature band: hold the current row
			// until the reading clears the new row's low edge by the
			// rise guard.
			if tempDeciC < match.TempMinDeciC+s.hyst.TempRiseDeciC {
				return last
			}
		} else {
			// Moving to a lower temperature band: hold until the reading
			// drops below the new row's high edge by the fall guard.
			if tempDeciC > match.TempMaxDeciC-s.hyst.TempFallDeciC {
				return last
			}
		}
		return match
	}
	if match.VoltMinMV != last.VoltMinMV || match.VoltMaxMV != last.VoltMaxMV {
		if match.VoltMinMV > last.VoltMinMV {
			if voltMV < match.VoltMinMV+s.hyst.VoltRiseMV {
				return last
			}
		} else {
			if voltMV > match.VoltMaxMV-s.hyst.VoltFallMV {
				return last
			}
		}
	}
	return match
}
