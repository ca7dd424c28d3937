package device

import "github.com/davecheney/twisim/twi"

// TLC59116 registers.
const (
	LEDMode1    = 0x00
	LEDMode2    = 0x01
	LEDPWM0     = 0x02
	LEDPWM15    = 0x11
	LEDGrpPWM   = 0x12
	LEDGrpFreq  = 0x13
	LEDOut0     = 0x14
	LEDAllCall  = 0x1B
	LEDIRef     = 0x1C
	LEDEFlag2   = 0x1D
	ledRegs     = LEDEFlag2 + 1
	ledChannels = 16

	mode1AllCall = 1 << 0
)

// LEDAllCallAddress is the power on ALLCALLADR.
const LEDAllCallAddress = 0x68

// LED output states, two bits per channel in LEDOUT0-3.
const (
	ledOff = iota
	ledOn
	ledPWM
	ledGroup
)

// LEDDriver is a TLC59116 sixteen channel constant current LED driver.
type LEDDriver struct {
	twi.RegisterMachine
	autoinc func(uint8) uint8
}

// NewLEDDriver attaches an LED driver at addr. It also answers the ALLCALL
// address when MODE1 enables it.
func NewLEDDriver(host twi.Host, addr uint8, log twi.Logger) *LEDDriver {
	d := new(LEDDriver)
	// MODE1 powers up with ALLCALL off: ALLCALLADR is shared with the RTC.
	regs := make([]uint8, ledRegs)
	regs[LEDAllCall] = LEDAllCallAddress << 1
	d.RegisterMachine = twi.RegisterMachine{
		Name:   "tlc59116",
		Regs:   regs,
		Select: d.selectRegister,
		Next:   d.next,
		Log:    log,
	}
	addr &= 0x7f
	d.Attach(host, addr, func(m twi.Message) bool {
		if m.Address == addr {
			return true
		}
		return d.Regs[LEDMode1]&mode1AllCall != 0 && m.Address == d.Regs[LEDAllCall]>>1
	})
	return d
}

// Close detaches the driver.
func (d *LEDDriver) Close() { d.Detach() }

// selectRegister decodes the control byte: bits 7:5 pick the auto-increment
// mode, bits 4:0 the register.
func (d *LEDDriver) selectRegister(b uint8) uint8 {
	switch b >> 5 {
	case 4:
		d.autoinc = twi.Wrap(LEDMode1, LEDAllCall)
	case 5:
		d.autoinc = twi.Wrap(LEDPWM0, LEDPWM15)
	case 6:
		d.autoinc = twi.Wrap(LEDGrpPWM, LEDGrpFreq)
	case 7:
		d.autoinc = twi.Wrap(LEDPWM0, LEDGrpFreq)
	default:
		d.autoinc = nil
	}
	return b & 0x1f
}

func (d *LEDDriver) next(reg uint8) uint8 {
	if d.autoinc == nil {
		return reg
	}
	return d.autoinc(reg)
}

// State returns the brightness of each channel: 0 when off, 0xff when fully
// on, and the channel's PWM duty otherwise.
func (d *LEDDriver) State() [ledChannels]uint8 {
	var v [ledChannels]uint8
	for i := range v {
		mode := d.Regs[LEDOut0+i/4] >> (2 * (i % 4)) & 3
		switch mode {
		case ledOff:
			v[i] = 0
		case ledOn:
			v[i] = 0xff
		case ledPWM:
			v[i] = d.Regs[LEDPWM0+i]
		case ledGroup:
			twi.Fatalf(d.Name, twi.Unimplemented, "channel %d: group dimming/blinking", i)
		}
	}
	return v
}
