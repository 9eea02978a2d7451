package profile

import "chargerd-go/errcode"

// VTermRow is one band of a termination-voltage table: the voltage
// target that applies while cell temperature is below TempMaxDeciC and
// at or above the previous row's TempMaxDeciC (0 for the first row),
// read in ascending order.
type VTermRow struct {
	TempMaxDeciC int16
	TermMV       int32
}

// TempVTerm looks up the termination voltage for a temperature, clipping
// to the last row above the highest band and refusing lookups below the
// lowest (the original charger declines to set a termination voltage at
// all until a first in-range reading arrives).
type TempVTerm struct {
	rows      []VTermRow
	hystDeciC int16
	have      bool
	lastIdx   int
}

// NewTempVTerm builds a lookup over rows, which must be sorted ascending
// by TempMaxDeciC. hystDeciC is the guard band width applied at the
// currently selected row's boundary.
func NewTempVTerm(rows []VTermRow, hystDeciC int16) *TempVTerm {
	return &TempVTerm{rows: rows, hystDeciC: hystDeciC}
}

// Lookup returns the termination voltage for tempDeciC.
func (v *TempVTerm) Lookup(tempDeciC int16) (int32, error) {
	if len(v.rows) == 0 {
		return 0, &errcode.E{C: errcode.NoProfileMatch, Op: "profile.TempVTerm.Lookup", Msg: "empty table"}
	}

	if v.have {
		row := v.rows[v.lastIdx]
		lo := int16(0)
		if v.lastIdx > 0 {
			lo = v.rows[v.lastIdx-1].TempMaxDeciC
		}
		if tempDeciC >= lo-v.hystDeciC && tempDeciC < row.TempMaxDeciC+v.hystDeciC {
			return row.TermMV, nil
		}
	}

	for i, row := range v.rows {
		lo := int16(0)
		if i > 0 {
			lo = v.rows[i-1].TempMaxDeciC
		}
		if tempDeciC >= lo && tempDeciC < row.TempMaxDeciC {
			v.lastIdx = i
			v.have = true
			return row.TermMV, nil
		}
	}

	if tempDeciC < 0 {
		return 0, &errcode.E{C: errcode.NoProfileMatch, Op: "profile.TempVTerm.Lookup", Msg: "below lowest band"}
	}

	// Above every band: clip to the last entry.
	last := len(v.rows) - 1
	v.lastIdx = last
	v.have = true
	return v.rows[last].TermMV, nil
}
