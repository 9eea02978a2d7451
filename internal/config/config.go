// Package config loads the charge-path description: the per-adapter
// profile tables, algorithm constants, and hardware addressing that
// together parametrise a ChargerManager instance.
package config

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"chargerd-go/errcode"
	"chargerd-go/internal/profile"
	"chargerd-go/types"
)

// ChargerDesc is the static description of one charge path, equivalent to
// the board-level charge_desc table in the original firmware.
type ChargerDesc struct {
	Name string `json:"name"`
	Bus  string `json:"bus"`
	Addr uint16 `json:"addr"`

	// Device paths, carried through from the board description for
	// logging and diagnostics; the Go backend addresses hardware by
	// Bus/Addr rather than by path, so these are descriptive only.
	SupplyPath  string    `json:"charger_supply,omitempty"`
	AdapterPath string    `json:"charger_adapter,omitempty"`
	ChargerPath [2]string `json:"charger,omitempty"`
	FuelGauge   string    `json:"fuel_gauge,omitempty"`

	// Algo names the per-chip charge strategy, buck vs. pump, as the
	// board description spells it (e.g. "buck", "pump"); ChipIndex 0/1.
	Algo [2]string `json:"algo,omitempty"`

	Buck BuckDesc  `json:"buck"`
	Pump *PumpDesc `json:"pump,omitempty"`

	Profiles []profile.Row      `json:"profiles"`
	Fault    profile.Row        `json:"fault"`
	TermVolt []profile.VTermRow `json:"term_volt"`

	Hysteresis profile.Hysteresis `json:"hysteresis"`

	PollingIntervalMs  int32 `json:"polling_interval_ms"`
	FullBattCapacity   int32 `json:"fullbatt_capacity"`
	FullBattCurrentMA  int32 `json:"fullbatt_current_ma"`
	FullBattDurationMs int32 `json:"fullbatt_duration_ms"`
	FaultDurationMs    int32 `json:"fault_duration_ms"`
	EnableDelayMs      int32 `json:"enable_delay_ms"`

	// Cell-temperature lockout thresholds and their recovery points
	// (tenths of °C); *_r fields are where the lockout releases, set
	// apart from the trip point by the board's own hysteresis margin.
	TempMinDeciC   int16 `json:"temp_min"`
	TempMinRDeciC  int16 `json:"temp_min_r"`
	TempMaxDeciC   int16 `json:"temp_max"`
	TempMaxRDeciC  int16 `json:"temp_max_r"`
	SkinMinDeciC   int16 `json:"temp_skin_min"`
	SkinMinRDeciC  int16 `json:"temp_skin_min_r"`
	SkinMaxDeciC   int16 `json:"temp_skin_max"`
	SkinMaxRDeciC  int16 `json:"temp_skin_max_r"`

	FullWindow int `json:"full_window"` // parsed only; the full-battery check uses a fixed count
}

type BuckDesc struct {
	InitVoltageMV int32 `json:"init_voltage_mv"`
}

type PumpDesc struct {
	VoutMaxMV       int32   `json:"vout_max_mv"`
	VoutDefaultMV   int32   `json:"vout_default_mv"`
	WorkStartMV     int32   `json:"work_start_mv"`
	VoutOffsetMV    int32   `json:"vout_offset_mv"`
	VoutRatio       float64 `json:"vout_ratio"`
	VoutStepDecMV   int32   `json:"vout_step_dec_mv"`
	VoutStepIncMV   int32   `json:"vout_step_inc_mv"`
	CoutStepDecMA   int32   `json:"cout_step_dec_ma"`
	CoutStepIncMA   int32   `json:"cout_step_inc_ma"`
	StartupMV       int32   `json:"startup_voltage_mv"`
	StartupOffsetMV int32   `json:"startup_voltage_offset_mv"`
	PumpUpLockedMV  int32   `json:"pump_up_locked_mv"`
	PumpDownLockMV  int32   `json:"pump_down_locked_mv"`
}

// Load parses a charge path description from JSON. If data does not look
// like a JSON object, it falls back to a flat key=value line format
// (shell-quoted the way board bring-up scripts tend to write them).
func Load(data []byte) (ChargerDesc, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var d ChargerDesc
		if err := json.Unmarshal(data, &d); err != nil {
			return ChargerDesc{}, &errcode.E{C: errcode.ConfigError, Op: "config.Load", Err: err}
		}
		return d, nil
	}
	return loadKV(trimmed)
}

// loadKV parses the degenerate key=value form used for quick bench
// overrides, e.g.: name=main bus=i2c0 addr=0x36 buck.init_voltage_mv=3000
func loadKV(text string) (ChargerDesc, error) {
	var d ChargerDesc
	d.Buck.InitVoltageMV = 3000 // BUCK_ALGO_INIT_VOL default
	d.PollingIntervalMs = 1000
	d.FullBattCapacity = 100
	d.FullBattDurationMs = 180000
	d.FaultDurationMs = 60000
	d.EnableDelayMs = 3000

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := shlex.Split(line)
		if err != nil {
			return ChargerDesc{}, &errcode.E{C: errcode.ConfigError, Op: "config.loadKV", Err: err}
		}
		for _, f := range fields {
			k, v, ok := strings.Cut(f, "=")
			if !ok {
				return ChargerDesc{}, &errcode.E{C: errcode.ConfigError, Op: "config.loadKV", Msg: "missing '=' in " + f}
			}
			if err := applyKV(&d, k, v); err != nil {
				return ChargerDesc{}, err
			}
		}
	}
	if d.Name == "" {
		return ChargerDesc{}, &errcode.E{C: errcode.ConfigError, Op: "config.loadKV", Msg: "missing name"}
	}
	return d, nil
}

func applyKV(d *ChargerDesc, key, val string) error {
	switch key {
	case "name":
		d.Name = val
	case "bus":
		d.Bus = val
	case "addr":
		n, err := strconv.ParseUint(strings.TrimPrefix(val, "0x"), 16, 16)
		if err != nil {
			return &errcode.E{C: errcode.ConfigError, Op: "config.applyKV", Msg: "addr", Err: err}
		}
		d.Addr = uint16(n)
	case "buck.init_voltage_mv":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.Buck.InitVoltageMV = n
	case "full_window":
		n, err := strconv.Atoi(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.FullWindow = n
	case "polling_interval_ms":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.PollingIntervalMs = n
	case "fullbatt_capacity":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.FullBattCapacity = n
	case "fullbatt_current_ma":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.FullBattCurrentMA = n
	case "fullbatt_duration_ms":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.FullBattDurationMs = n
	case "fault_duration_ms":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.FaultDurationMs = n
	case "enable_delay_ms":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.EnableDelayMs = n
	case "temp_min":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.TempMinDeciC = n
	case "temp_min_r":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.TempMinRDeciC = n
	case "temp_max":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.TempMaxDeciC = n
	case "temp_max_r":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.TempMaxRDeciC = n
	case "temp_skin_min":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.SkinMinDeciC = n
	case "temp_skin_min_r":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.SkinMinRDeciC = n
	case "temp_skin_max":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.SkinMaxDeciC = n
	case "temp_skin_max_r":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.SkinMaxRDeciC = n
	case "temp_rise_hys":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.Hysteresis.TempRiseDeciC = n
	case "temp_fall_hys":
		n, err := parseI16(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.Hysteresis.TempFallDeciC = n
	case "vol_rise_hys":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.Hysteresis.VoltRiseMV = n
	case "vol_fall_hys":
		n, err := parseI32(val)
		if err != nil {
			return kvErr(key, err)
		}
		d.Hysteresis.VoltFallMV = n
	default:
		return &errcode.E{C: errcode.ConfigError, Op: "config.applyKV", Msg: "unknown key " + key}
	}
	return nil
}

func parseI32(val string) (int32, error) {
	n, err := strconv.ParseInt(val, 10, 32)
	return int32(n), err
}

func parseI16(val string) (int16, error) {
	n, err := strconv.ParseInt(val, 10, 16)
	return int16(n), err
}

func kvErr(key string, err error) error {
	return &errcode.E{C: errcode.ConfigError, Op: "config.applyKV", Msg: key, Err: err}
}

// DefaultTermVolt returns the termination-voltage table for a standard
// single-cell lithium pack when a board description omits one.
func DefaultTermVolt() []profile.VTermRow {
	return []profile.VTermRow{
		{TempMaxDeciC: 0, TermMV: 4200},
		{TempMaxDeciC: 450, TermMV: 4200},
		{TempMaxDeciC: 600, TermMV: 4100},
	}
}

// DefaultAdapterClass returns the class that matches every adapter type,
// for descriptions that don't narrow profile rows by adapter type.
func DefaultAdapterClass() types.AdapterClass { return types.ClassAll }
