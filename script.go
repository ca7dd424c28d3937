package main

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/twi"
)

// script runs Lua firmware against a system. The firmware sees the bus
// through the i2c table, simulated time through sim, and the board's other
// peripherals through keypad, button, spi and uart.
type script struct {
	s     *system
	m     *board.Master
	L     *lua.LState
	fault error
}

func runScript(s *system, path string) error {
	sc := newScript(s)
	defer sc.close()
	return sc.result(sc.L.DoFile(path))
}

func newScript(s *system) *script {
	sc := &script{s: s, m: s.board.Master(), L: lua.NewState()}
	sc.register("i2c", map[string]lua.LGFunction{
		"start": sc.i2cStart,
		"write": sc.i2cWrite,
		"read":  sc.i2cRead,
		"stop":  sc.i2cStop,
		"tx":    sc.i2cTx,
	})
	sc.register("sim", map[string]lua.LGFunction{
		"advance": sc.simAdvance,
		"cycles":  sc.simCycles,
		"pin":     sc.simPin,
		"log":     sc.simLog,
	})
	sc.register("keypad", map[string]lua.LGFunction{
		"press":   sc.keyPress,
		"release": sc.keyRelease,
		"tap":     sc.keyTap,
	})
	sc.register("button", map[string]lua.LGFunction{
		"close":     sc.buttonClose,
		"open":      sc.buttonOpen,
		"close_for": sc.buttonCloseFor,
		"open_for":  sc.buttonOpenFor,
		"set":       sc.buttonSet,
		"settled":   sc.buttonSettled,
	})
	sc.register("spi", map[string]lua.LGFunction{
		"select":   sc.spiSelect,
		"transfer": sc.spiTransfer,
	})
	sc.register("uart", map[string]lua.LGFunction{
		"print": sc.uartPrint,
	})
	sc.register("display", map[string]lua.LGFunction{
		"text": sc.displayText,
	})
	return sc
}

func (sc *script) close() {
	sc.L.Close()
	sc.m.Close()
}

func (sc *script) register(name string, fns map[string]lua.LGFunction) {
	t := sc.L.NewTable()
	sc.L.SetFuncs(t, fns)
	sc.L.SetGlobal(name, t)
}

// result prefers a device fault over the Lua error it caused.
func (sc *script) result(err error) error {
	if sc.fault != nil {
		return sc.fault
	}
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// check raises err in the script. Device faults are remembered so they
// survive the unwinding through Lua.
func (sc *script) check(L *lua.LState, err error) {
	if err == nil {
		return
	}
	var f *twi.Fault
	if errors.As(err, &f) {
		sc.fault = f
	}
	L.RaiseError("%v", err)
}

func checkByte(L *lua.LState, n int) uint8 {
	v := L.CheckInt(n)
	if v < 0 || v > 0xff {
		L.ArgError(n, "byte out of range")
	}
	return uint8(v)
}

// i2c.start(addr [, read]) -> acked
func (sc *script) i2cStart(L *lua.LState) int {
	err := sc.m.Start(checkByte(L, 1), L.OptBool(2, false))
	return sc.ack(L, err)
}

// i2c.write(byte) -> acked
func (sc *script) i2cWrite(L *lua.LState) int {
	return sc.ack(L, sc.m.Write(checkByte(L, 1)))
}

// ack pushes whether the phase was acknowledged. A missing acknowledge is
// an answer; any other error aborts the script.
func (sc *script) ack(L *lua.LState, err error) int {
	if err != nil && !errors.Is(err, board.ErrNack) {
		sc.check(L, err)
	}
	L.Push(lua.LBool(err == nil))
	return 1
}

// i2c.read() -> byte
func (sc *script) i2cRead(L *lua.LState) int {
	v, err := sc.m.Read()
	sc.check(L, err)
	L.Push(lua.LNumber(v))
	return 1
}

// i2c.stop()
func (sc *script) i2cStop(L *lua.LState) int {
	sc.check(L, sc.m.Stop())
	return 0
}

// i2c.tx(addr, {bytes...} [, n]) -> {bytes...}
func (sc *script) i2cTx(L *lua.LState) int {
	addr := checkByte(L, 1)
	var w []uint8
	if t, ok := L.Get(2).(*lua.LTable); ok {
		for i := 1; i <= t.Len(); i++ {
			n, ok := t.RawGetInt(i).(lua.LNumber)
			if !ok || n < 0 || n > 0xff {
				L.ArgError(2, "bytes expected")
			}
			w = append(w, uint8(n))
		}
	}
	n := L.OptInt(3, 0)
	if n < 0 {
		L.ArgError(3, "read count must not be negative")
	}
	r, err := sc.m.Tx(addr, w, n)
	sc.check(L, err)
	t := L.NewTable()
	for _, v := range r {
		t.Append(lua.LNumber(v))
	}
	L.Push(t)
	return 1
}

// sim.advance(usec)
func (sc *script) simAdvance(L *lua.LState) int {
	sc.check(L, sc.s.board.AdvanceUSec(uint64(L.CheckInt64(1))))
	return 0
}

// sim.cycles() -> n
func (sc *script) simCycles(L *lua.LState) int {
	L.Push(lua.LNumber(sc.s.board.Cycles()))
	return 1
}

// sim.pin(name) -> level
func (sc *script) simPin(L *lua.LState) int {
	L.Push(lua.LNumber(sc.s.board.Pin(L.CheckString(1), 0).Value()))
	return 1
}

// sim.log(fmt, ...)
func (sc *script) simLog(L *lua.LState) int {
	args := make([]interface{}, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i))
	}
	sc.s.log.Printf(L.CheckString(1)+"\n", args...)
	return 0
}

func (sc *script) step(L *lua.LState, fn func()) int {
	sc.check(L, sc.s.board.Step(fn))
	return 0
}

// keypad.press(code)
func (sc *script) keyPress(L *lua.LState) int {
	code := checkByte(L, 1)
	return sc.step(L, func() { sc.s.keypad.AddKeyPress(code) })
}

// keypad.release(code)
func (sc *script) keyRelease(L *lua.LState) int {
	code := checkByte(L, 1)
	return sc.step(L, func() { sc.s.keypad.AddKeyRelease(code) })
}

// keypad.tap(code) presses code and releases it after the hold time.
func (sc *script) keyTap(L *lua.LState) int {
	code := checkByte(L, 1)
	return sc.step(L, func() { sc.s.keypad.AddKeyPressAndRelease(code) })
}

func (sc *script) buttonClose(L *lua.LState) int { sc.s.button.Close(); return 0 }
func (sc *script) buttonOpen(L *lua.LState) int  { sc.s.button.Open(); return 0 }

// button.close_for(msec)
func (sc *script) buttonCloseFor(L *lua.LState) int {
	sc.s.button.CloseFor(uint64(L.CheckInt64(1)))
	return 0
}

// button.open_for(msec)
func (sc *script) buttonOpenFor(L *lua.LState) int {
	sc.s.button.OpenFor(uint64(L.CheckInt64(1)))
	return 0
}

// button.set(closed)
func (sc *script) buttonSet(L *lua.LState) int {
	sc.s.button.Set(L.CheckBool(1))
	return 0
}

// button.settled() -> true once every queued change has completed
func (sc *script) buttonSettled(L *lua.LState) int {
	L.Push(lua.LBool(sc.s.button.Settled()))
	return 1
}

// spi.select(on) drives chip select low when on is true.
func (sc *script) spiSelect(L *lua.LState) int {
	level := uint32(1)
	if L.CheckBool(1) {
		level = 0
	}
	sc.s.board.Pin(pinLatchCS, 1).Raise(level)
	return 0
}

// spi.transfer(byte) -> latched outputs
func (sc *script) spiTransfer(L *lua.LState) int {
	sc.s.board.SPI().Raise(uint32(checkByte(L, 1)))
	L.Push(lua.LNumber(sc.s.latch.Value()))
	return 1
}

// uart.print(s) transmits s on serial port 0.
func (sc *script) uartPrint(L *lua.LState) int {
	w := sc.s.board.UART(0)
	for _, c := range []byte(L.CheckString(1)) {
		w.Raise(uint32(c))
	}
	return 0
}

// display.text() -> the characters on screen
func (sc *script) displayText(L *lua.LState) int {
	L.Push(lua.LString(sc.s.display.Text()))
	return 1
}
