package hwio

import (
	"time"

	"chargerd-go/drivers/aht20"
	"chargerd-go/drivers/ltc4015"
	"chargerd-go/types"

	"tinygo.org/x/drivers"
)

// I2CBackend drives a real charge path: an LTC4015 on the buck side for
// battery telemetry and charge-current regulation, and a second I²C
// charge-pump controller addressed through a plain register codec (its
// alert/state layout has nothing in common with the LTC4015's, so it
// gets its own mapping rather than being forced through the driver).
//
// The LTC4015's own status bits don't line up 1:1 with the 12-bit
// layout the control loop expects; ChargerState() reads the pump's status
// register in that layout directly and synthesises it for the LTC4015 in
// buckStatus.
type I2CBackend struct {
	buck *ltc4015.Device
	pump pumpRegs
	skin *aht20.Device

	adapter     types.AdapterType
	adapterOn   bool
	enabledChip types.ChipIndex
	anyEnabled  bool

	enableDelayMs int32
}

// SetEnableDelay sets the power-rail settle time EnableAdapter(true)
// blocks for, from the board description's enable_delay_ms.
func (b *I2CBackend) SetEnableDelay(ms int32) { b.enableDelayMs = ms }

// NewI2CBackend configures the buck-chip driver and wraps the pump-chip
// bus handle. cfg.Address is the buck chip's I²C address; pumpAddr the
// pump's. skinBus is the bus the skin-contact temperature sensor is on;
// pass nil to fall back to the buck chip's own NTC input (see SkinSample).
func NewI2CBackend(bus drivers.I2C, cfg ltc4015.Config, pumpBus drivers.I2C, pumpAddr uint16, skinBus drivers.I2C) (*I2CBackend, error) {
	dev := ltc4015.New(bus, cfg)
	b := &I2CBackend{
		buck: dev,
		pump: pumpRegs{bus: pumpBus, addr: pumpAddr},
	}
	if skinBus != nil {
		d := aht20.New(skinBus)
		d.Configure()
		b.skin = &d
	}
	return b, nil
}

func (b *I2CBackend) EnableAdapter(on bool) error {
	if on && b.enableDelayMs > 0 {
		time.Sleep(time.Duration(b.enableDelayMs) * time.Millisecond)
	}
	b.adapterOn = on
	return nil
}

// AdapterType reports the class last negotiated by the upstream
// detect/negotiation circuit (see SetNegotiatedType), gated on the
// buck chip actually observing input voltage present. The LTC4015 has
// no visibility into adapter protocol negotiation itself.
func (b *I2CBackend) AdapterType() (types.AdapterType, error) {
	if !b.adapterOn {
		return types.AdapterNone, nil
	}
	mV, err := b.buck.Vin_mV()
	if err != nil {
		return types.AdapterNone, errHW("hwio.AdapterType", err)
	}
	if mV < vinPresentThresholdMV {
		return types.AdapterNone, nil
	}
	return b.adapter, nil
}

// SetNegotiatedType records the adapter class reported by the separate
// PD/BC1.2 negotiation circuit, for AdapterType to surface once VIN is
// confirmed present.
func (b *I2CBackend) SetNegotiatedType(a types.AdapterType) { b.adapter = a }

const vinPresentThresholdMV = 3000

func (b *I2CBackend) SetSupplyVoltage(mV int32) error {
	return errHW("hwio.SetSupplyVoltage", b.pump.setVout(mV))
}

func (b *I2CBackend) SupplyVoltage() (int32, error) {
	mV, err := b.pump.vout()
	return mV, errHW("hwio.SupplyVoltage", err)
}

// EnableCharger guarantees mutual exclusion: enabling one chip disables
// the other first, matching the original hardware interface's contract
// that at most one charge path drives the battery at a time.
func (b *I2CBackend) EnableCharger(chip types.ChipIndex, on bool) error {
	if on {
		if err := b.setChipEnable(otherChip(chip), false); err != nil {
			return err
		}
	}
	if err := b.setChipEnable(chip, on); err != nil {
		return err
	}
	if on {
		b.enabledChip = chip
		b.anyEnabled = true
	} else if b.anyEnabled && b.enabledChip == chip {
		b.anyEnabled = false
	}
	return nil
}

func (b *I2CBackend) setChipEnable(chip types.ChipIndex, on bool) error {
	switch chip {
	case types.ChipBuck:
		if on {
			return errHW("hwio.setChipEnable.buck", b.buck.ClearConfigBits(ltc4015.CfgSuspendCharger))
		}
		return errHW("hwio.setChipEnable.buck", b.buck.SetConfigBits(ltc4015.CfgSuspendCharger))
	case types.ChipPump:
		return errHW("hwio.setChipEnable.pump", b.pump.setEnable(on))
	default:
		return nil
	}
}

func otherChip(chip types.ChipIndex) types.ChipIndex {
	if chip == types.ChipBuck {
		return types.ChipPump
	}
	return types.ChipBuck
}

func (b *I2CBackend) SetChargerCurrent(chip types.ChipIndex, mA int32) error {
	if chip == types.ChipPump {
		return errHW("hwio.SetChargerCurrent", b.pump.setIout(mA))
	}
	return errHW("hwio.SetChargerCurrent", b.buck.SetIChargeTarget_mA(mA))
}

func (b *I2CBackend) SetChargerVoltage(chip types.ChipIndex, mV int32) error {
	if chip == types.ChipPump {
		return errHW("hwio.SetChargerVoltage", b.pump.setVterm(mV))
	}
	// Lithium termination voltage is chemistry-fixed by the strapped
	// variant, not host-settable; only lead-acid packs take a target here.
	la, ok := b.buck.LeadAcid()
	if !ok {
		return nil
	}
	return errHW("hwio.SetChargerVoltage", la.SetVChargeSetting_mVPerCell(mV, false))
}

// ChargerState returns the 12-bit layout the control loop expects for
// whichever chip is asked about: the pump's status register is read as-is
// (regio.go), and buckStatus maps the LTC4015's charger-state,
// system-status and limit-alert registers onto it.
func (b *I2CBackend) ChargerState(chip types.ChipIndex) (types.ChargerStatus, error) {
	if chip == types.ChipPump {
		return b.pump.status()
	}
	return b.buckStatus()
}

func (b *I2CBackend) buckStatus() (types.ChargerStatus, error) {
	var s types.ChargerStatus

	cs, err := b.buck.ChargerState()
	if err != nil {
		return 0, errHW("hwio.buckStatus", err)
	}
	if cs.Has(ltc4015.StBatShortFault) {
		s |= types.StatVBatOVP
	}
	if cs.Has(ltc4015.StMaxChargeTimeFault) {
		s |= types.StatIBatOCP
	}

	sys, err := b.buck.SystemStatus()
	if err != nil {
		return 0, errHW("hwio.buckStatus", err)
	}
	if sys.Has(ltc4015.SysVinOvlo) {
		s |= types.StatVBusOVP
	}
	if sys.Has(ltc4015.SysChargerEnabled) {
		s |= types.StatChgEn
	}
	if sys.Has(ltc4015.SysCellCountError) {
		s |= types.StatVBatIns
	}

	limit, err := b.buck.ReadLimitAlerts()
	if err != nil {
		return 0, errHW("hwio.buckStatus", err)
	}
	if limit.Has(ltc4015.LaVINHi) {
		s |= types.StatVBusOVP
	}
	if limit.Has(ltc4015.LaIINHi) {
		s |= types.StatIBusOCP
	}

	return s, nil
}

func (b *I2CBackend) BatterySample() (types.BatterySample, error) {
	mV, err := b.buck.Battery_mVPerCell()
	if err != nil {
		return types.BatterySample{Online: false}, nil
	}
	mA, err := b.buck.Ibat_mA()
	if err != nil {
		return types.BatterySample{Online: false}, nil
	}
	mC, err := b.buck.Die_mC()
	if err != nil {
		return types.BatterySample{Online: false}, nil
	}
	return types.BatterySample{
		VoltageMV: mV,
		CurrentMA: mA,
		TempDeciC: int16(mC / 100),
		Online:    true,
	}, nil
}

// SkinSample reads the device's skin-contact temperature. Where a
// dedicated sensor is wired (the usual case — skin temperature is
// measured at the enclosure, not at the charge chip), it is used;
// otherwise the buck chip's own NTC input is reported as a fallback,
// which only approximates skin temperature on boards with no
// independent sensor.
func (b *I2CBackend) SkinSample() (types.SkinSample, error) {
	if b.skin != nil {
		if err := b.skin.Read(); err != nil {
			return types.SkinSample{Online: false}, nil
		}
		return types.SkinSample{TempDeciC: int16(b.skin.DeciCelsius()), Online: true}, nil
	}
	ratio, err := b.buck.NTCRatio()
	if err != nil {
		return types.SkinSample{Online: false}, nil
	}
	return types.SkinSample{TempDeciC: int16(ratio), Online: true}, nil
}

func (b *I2CBackend) SetBatteryVBusState(present bool) error {
	if present {
		return errHW("hwio.SetBatteryVBusState", b.buck.SetConfigBits(ltc4015.CfgForceMeasSysOn))
	}
	return errHW("hwio.SetBatteryVBusState", b.buck.ClearConfigBits(ltc4015.CfgForceMeasSysOn))
}

var _ Backend = (*I2CBackend)(nil)
