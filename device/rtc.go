package device

import (
	"time"

	"github.com/davecheney/twisim/twi"
)

// RTCAddress is the DS3231 bus address.
const RTCAddress = 0x68

// DS3231 registers. Time and date are BCD.
const (
	RTCSeconds = 0x00
	RTCMinutes = 0x01
	RTCHours   = 0x02
	RTCDay     = 0x03
	RTCDate    = 0x04
	RTCMonth   = 0x05
	RTCYear    = 0x06
	RTCControl = 0x0E
	RTCStatus  = 0x0F
	RTCAging   = 0x10
	RTCTempMSB = 0x11
	RTCTempLSB = 0x12
	rtcRegs    = RTCTempLSB + 1
)

const (
	// hours register
	hour12 = 1 << 6
	hourPM = 1 << 5

	// month register
	century = 1 << 7

	// control register
	ctrlINTCN = 1 << 2
	ctrlRS1   = 1 << 3
	ctrlRS2   = 1 << 4
	ctrlEOSC  = 1 << 7
)

// OscillatorHz is the frequency of the RTC crystal.
const OscillatorHz = 32768

// square wave rates selected by RS2:RS1
var sqwHz = [4]int{1, 1024, 4096, 8192}

// LeapRule selects how February is sized.
type LeapRule int

const (
	// LeapFaithful reproduces the reference model, which gives February 29
	// days in common years and 28 in leap years.
	LeapFaithful LeapRule = iota

	// LeapGregorian uses the Gregorian calendar.
	LeapGregorian
)

// DaysInMonth returns the length of month (1-12) of a four digit year.
func DaysInMonth(month, year int, rule LeapRule) int {
	leap := year&3 == 0 && (year%25 != 0 || year&15 == 0)
	if rule == LeapFaithful {
		leap = !leap
	}
	if month == 2 {
		if leap {
			return 29
		}
		return 28
	}
	return 31 - (month-1)%7%2
}

// BCDUnpack decodes a BCD register. tens masks the bits holding the tens
// digit; the ones digit is always the low nibble.
func BCDUnpack(v, tens uint8) uint8 {
	return v&0x0f + 10*((v&tens)>>4)
}

// BCDPack encodes x (0-99) as two BCD digits.
func BCDPack(x uint8) uint8 {
	return x/10<<4 | x%10
}

// RTC is a DS3231 real time clock driven by the host's cycle counter.
type RTC struct {
	twi.RegisterMachine

	// Leap selects the February rule. It defaults to LeapFaithful.
	Leap LeapRule

	clock twi.Clock
	sqw   twi.Pin
	level uint32

	osc   uint16
	start uint64
	ticks uint64
	timer twi.TimerID
}

// NewRTC attaches a clock at addr and starts its oscillator. sqw, if not
// nil, receives the square wave output.
func NewRTC(host twi.Host, addr uint8, sqw twi.Pin, log twi.Logger) *RTC {
	r := &RTC{
		clock: host,
		sqw:   sqw,
		level: 1,
	}
	regs := make([]uint8, rtcRegs)
	regs[RTCDay] = 1 // the day counter runs 1-7
	regs[RTCDate] = 1
	regs[RTCMonth] = 1
	regs[RTCControl] = ctrlINTCN | ctrlRS1 | ctrlRS2
	r.RegisterMachine = twi.RegisterMachine{
		Name:        "ds3231",
		Regs:        regs,
		Next:        twi.Wrap(RTCSeconds, RTCTempLSB),
		OnWrite:     r.written,
		KeepPointer: true,
		Log:         log,
	}
	r.Attach(host, addr, nil)

	r.start = host.Cycles()
	r.timer = host.RegisterTimer(r.tickAt(1), r.clockTick)
	r.Log.Printf("ds3231: crystal period %d cycles\n", host.Frequency()/OscillatorHz)
	return r
}

// Close stops the oscillator timer and detaches the clock.
func (r *RTC) Close() {
	r.clock.CancelTimer(r.timer)
	r.Detach()
}

// tickAt returns the cycle of oscillator tick n, without accumulating
// rounding error.
func (r *RTC) tickAt(n uint64) uint64 {
	return r.start + n*r.clock.Frequency()/OscillatorHz
}

func (r *RTC) clockTick(now uint64) uint64 {
	r.Tick()
	r.ticks++
	return r.tickAt(r.ticks + 1)
}

// Tick advances the oscillator by one period. A stopped oscillator ignores
// the tick.
func (r *RTC) Tick() {
	ctrl := r.Regs[RTCControl]
	if ctrl&ctrlEOSC != 0 {
		return
	}
	r.osc = (r.osc + 1) % OscillatorHz
	if r.osc == 0 {
		r.tickSecond()
	}

	level := uint32(1)
	if ctrl&ctrlINTCN == 0 {
		rs := 0
		if ctrl&ctrlRS1 != 0 {
			rs |= 1
		}
		if ctrl&ctrlRS2 != 0 {
			rs |= 2
		}
		half := uint16(OscillatorHz / (2 * sqwHz[rs]))
		level = r.level
		if r.osc%half == 0 {
			level ^= 1
		}
	}
	if level != r.level {
		r.level = level
		if r.sqw != nil {
			r.sqw.Raise(level)
		}
	}
}

// SquareWave returns the current level of the square wave output.
func (r *RTC) SquareWave() uint32 { return r.level }

// tick increments a BCD register, wrapping from max to min. It reports
// whether the register wrapped.
func (r *RTC) tick(reg, min, max, tens uint8) bool {
	v := r.Regs[reg]
	x := BCDUnpack(v, tens) + 1
	carry := x > max
	if carry {
		x = min
	}
	r.Regs[reg] = v&^(0x0f|tens) | BCDPack(x)
	return carry
}

func (r *RTC) tickSecond() {
	if !r.tick(RTCSeconds, 0, 59, 0x70) {
		return
	}
	if !r.tick(RTCMinutes, 0, 59, 0x70) {
		return
	}
	if !r.tickHour() {
		return
	}
	r.tick(RTCDay, 1, 7, 0)

	month := int(BCDUnpack(r.Regs[RTCMonth], 0x10))
	year := 2000 + int(BCDUnpack(r.Regs[RTCYear], 0xf0))
	days := uint8(DaysInMonth(month, year, r.Leap))
	if !r.tick(RTCDate, 1, days, 0x30) {
		return
	}
	if !r.tick(RTCMonth, 1, 12, 0x10) {
		return
	}
	if r.tick(RTCYear, 0, 99, 0xf0) {
		r.Regs[RTCMonth] ^= century
	}
}

func (r *RTC) tickHour() bool {
	v := r.Regs[RTCHours]
	if v&hour12 == 0 {
		return r.tick(RTCHours, 0, 23, 0x30)
	}
	h := BCDUnpack(v, 0x10) + 1
	carry := false
	switch {
	case h == 12:
		v ^= hourPM
		carry = v&hourPM == 0
	case h > 12:
		h = 1
	}
	r.Regs[RTCHours] = v&^0x1f | BCDPack(h)
	return carry
}

func (r *RTC) written(reg, _, v uint8) {
	switch reg {
	case RTCSeconds:
		if r.Regs[RTCControl]&ctrlEOSC == 0 {
			r.Log.Printf("ds3231: clock ticking\n")
		} else {
			r.Log.Printf("ds3231: clock stopped\n")
		}
	case RTCControl:
		r.Log.Printf("ds3231: control register %02x\n", v)
	}
}

// SetTime loads t into the time and date registers in 24 hour mode.
func (r *RTC) SetTime(t time.Time) {
	r.Regs[RTCSeconds] = BCDPack(uint8(t.Second()))
	r.Regs[RTCMinutes] = BCDPack(uint8(t.Minute()))
	r.Regs[RTCHours] = BCDPack(uint8(t.Hour()))
	r.Regs[RTCDay] = uint8(t.Weekday()) + 1
	r.Regs[RTCDate] = BCDPack(uint8(t.Day()))
	r.Regs[RTCMonth] = BCDPack(uint8(t.Month()))
	if t.Year() >= 2100 {
		r.Regs[RTCMonth] |= century
	}
	r.Regs[RTCYear] = BCDPack(uint8(t.Year() % 100))
	r.osc = 0
}

// Time decodes the time and date registers.
func (r *RTC) Time() time.Time {
	hours := r.Regs[RTCHours]
	var h int
	if hours&hour12 != 0 {
		h = int(BCDUnpack(hours, 0x10)) % 12
		if hours&hourPM != 0 {
			h += 12
		}
	} else {
		h = int(BCDUnpack(hours, 0x30))
	}
	year := 2000 + int(BCDUnpack(r.Regs[RTCYear], 0xf0))
	if r.Regs[RTCMonth]&century != 0 {
		year += 100
	}
	return time.Date(year,
		time.Month(BCDUnpack(r.Regs[RTCMonth], 0x10)),
		int(BCDUnpack(r.Regs[RTCDate], 0x30)),
		h,
		int(BCDUnpack(r.Regs[RTCMinutes], 0x70)),
		int(BCDUnpack(r.Regs[RTCSeconds], 0x70)),
		0, time.UTC)
}
