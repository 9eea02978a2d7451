package hwio

import (
	"chargerd-go/errcode"
	"chargerd-go/types"

	"tinygo.org/x/drivers"
)

// pumpRegs is a minimal 16-bit-register I²C codec for the charge-pump
// controller, modelled on the LTC4015 driver's own readWord/writeWord
// idiom (drivers/ltc4015/bus.go) since no TinyGo driver exists for this
// part. The register map below is this board's own, not a datasheet
// layout, so it lives here rather than under drivers/.
type pumpRegs struct {
	bus  drivers.I2C
	addr uint16

	w [3]byte
	r [2]byte
}

const (
	regPumpVout   byte = 0x00 // mV, 16-bit
	regPumpIout   byte = 0x02 // mA, 16-bit
	regPumpVterm  byte = 0x04 // mV, 16-bit
	regPumpEnable byte = 0x06 // bit0: CHG_EN
	regPumpStatus byte = 0x08 // 12-bit status, see types.ChargerStatus
)

func (p *pumpRegs) readWord(reg byte) (uint16, error) {
	p.w[0] = reg
	if err := p.bus.Tx(p.addr, p.w[:1], p.r[:2]); err != nil {
		return 0, err
	}
	return uint16(p.r[0]) | uint16(p.r[1])<<8, nil
}

func (p *pumpRegs) writeWord(reg byte, val uint16) error {
	p.w[0] = reg
	p.w[1] = byte(val)
	p.w[2] = byte(val >> 8)
	return p.bus.Tx(p.addr, p.w[:3], nil)
}

func (p *pumpRegs) setVout(mV int32) error {
	if mV < 0 {
		return &errcode.E{C: errcode.HardwareFailure, Op: "pumpRegs.setVout", Msg: "negative voltage"}
	}
	return p.writeWord(regPumpVout, uint16(mV))
}

func (p *pumpRegs) vout() (int32, error) {
	v, err := p.readWord(regPumpVout)
	return int32(v), err
}

func (p *pumpRegs) setIout(mA int32) error {
	if mA < 0 {
		return &errcode.E{C: errcode.HardwareFailure, Op: "pumpRegs.setIout", Msg: "negative current"}
	}
	return p.writeWord(regPumpIout, uint16(mA))
}

func (p *pumpRegs) setVterm(mV int32) error {
	if mV < 0 {
		return &errcode.E{C: errcode.HardwareFailure, Op: "pumpRegs.setVterm", Msg: "negative voltage"}
	}
	return p.writeWord(regPumpVterm, uint16(mV))
}

func (p *pumpRegs) setEnable(on bool) error {
	var v uint16
	if on {
		v = 1
	}
	return p.writeWord(regPumpEnable, v)
}

func (p *pumpRegs) status() (types.ChargerStatus, error) {
	v, err := p.readWord(regPumpStatus)
	return types.ChargerStatus(v & 0x0FFF), err
}
