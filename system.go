package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/device"
	"github.com/davecheney/twisim/twi"
)

// Pins the firmware sees.
const (
	pinKeypadINT  = "PD2"
	pinRTCSQW     = "PD3"
	pinDisplayBSY = "PB0"
	pinLatchCS    = "PB2"
	pinButton     = "PC0"
)

// system is the board with every peripheral attached, keyed by bus address.
type system struct {
	board *board.Board
	log   twi.Logger

	rtc      *device.RTC
	eeprom   *device.EEPROM
	keypad   *device.Keypad
	leds     *device.LEDDriver
	display  *device.Display
	latch    *device.ShiftRegister
	button   *device.Switch
	listener *twi.Listener

	// addrs maps each bus address to the name of the device answering it.
	addrs map[uint8]string
}

func newSystem(g *Globals, log twi.Logger) (*system, error) {
	s := &system{
		board: board.New(g.Freq, log),
		log:   log,
		addrs: make(map[uint8]string),
	}
	for _, a := range []struct {
		name string
		addr uint8
	}{
		{"ds3231", uint8(g.RTC)},
		{"47l04", uint8(g.EEPROM)},
		{"tca8418", uint8(g.Keypad)},
		{"tlc59116", uint8(g.LED)},
		{"gu7000", uint8(g.Display)},
	} {
		if other, ok := s.addrs[a.addr&0x7f]; ok {
			return nil, fmt.Errorf("%s: address %02x already used by %s", a.name, a.addr, other)
		}
		s.addrs[a.addr&0x7f] = a.name
	}

	b := s.board
	s.listener = twi.NewListener(b, log)
	s.rtc = device.NewRTC(b, uint8(g.RTC), b.Pin(pinRTCSQW, 1), log)
	if g.Leap == "gregorian" {
		s.rtc.Leap = device.LeapGregorian
	}
	if g.SetClock {
		s.rtc.SetTime(time.Now())
	}
	s.eeprom = device.NewEEPROM(b, uint8(g.EEPROM), device.EEPROMSize, log)
	if g.Image != "" {
		if err := s.eeprom.Load(g.Image); err != nil {
			return nil, err
		}
	}
	s.keypad = device.NewKeypad(b, uint8(g.Keypad), b.Pin(pinKeypadINT, 1), log)
	s.leds = device.NewLEDDriver(b, uint8(g.LED), log)
	s.display = device.NewDisplay(b, uint8(g.Display), b.Pin(pinDisplayBSY, 0), log)
	s.latch = device.NewShiftRegister(b.SPI(), b.Pin(pinLatchCS, 1))
	s.button = device.NewSwitch(b, b.Pin(pinButton, 1), 0, nil)
	return s, nil
}

// close detaches every device, saving the EEPROM image if one was mounted.
func (s *system) close(g *Globals) error {
	s.button.Stop()
	s.latch.Close()
	s.display.Close()
	s.leds.Close()
	s.keypad.Close()
	s.eeprom.Close()
	s.rtc.Close()
	s.listener.Close()
	if g.Image != "" && g.Save {
		return s.eeprom.Save(g.Image)
	}
	return nil
}

// registers returns the register file of the device at addr.
func (s *system) registers(addr uint8) ([]uint8, error) {
	switch s.addrs[addr&0x7f] {
	case "ds3231":
		return s.rtc.Snapshot(), nil
	case "47l04":
		return s.eeprom.Bytes(), nil
	case "tca8418":
		return s.keypad.Snapshot(), nil
	case "tlc59116":
		return s.leds.Snapshot(), nil
	case "gu7000":
		return nil, fmt.Errorf("gu7000 at %02x has no registers", addr)
	default:
		return nil, fmt.Errorf("no device at %02x", addr)
	}
}

// addrOf returns the bus address of the named device.
func (s *system) addrOf(name string) uint8 {
	for a, n := range s.addrs {
		if n == name {
			return a
		}
	}
	return 0
}

// devices returns the attached bus addresses in order.
func (s *system) devices() []uint8 {
	var addrs []uint8
	for a := range s.addrs {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}
