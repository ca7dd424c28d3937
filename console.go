package main

import (
	"fmt"
	"io"
	"os"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/device"
)

// keymap lays the terminal keys out as a 4x4 keypad matrix.
var keymap = [...]string{
	"123A",
	"456B",
	"789C",
	"*0#D",
}

// keyCode returns the keypad code of terminal key c.
func keyCode(c byte) (uint8, bool) {
	for row, keys := range keymap {
		for col := range keys {
			if keys[col] == c {
				return device.KeyCode(uint8(row), uint8(col)), true
			}
		}
	}
	return 0, false
}

// keyName returns the terminal key of keypad code.
func keyName(code uint8) byte {
	code = code&^uint8(device.KeyPress) - 1
	row, col := code/10, code%10
	if int(row) >= len(keymap) || int(col) >= len(keymap[row]) {
		return '?'
	}
	return keymap[row][col]
}

// console is the terminal side of the interactive keypad: keys typed go to
// the keypad, and a small firmware loop services the keypad's interrupt and
// echoes each key on the display.
type console struct {
	s   *system
	m   *board.Master
	out io.Writer
}

func newConsole(s *system, out io.Writer) (*console, error) {
	c := &console{s: s, m: s.board.Master(), out: out}
	// CFG: key event interrupt enable, auto-increment
	if _, err := c.m.Tx(s.addrOf("tca8418"), []uint8{device.KeypadCFG, 0x81}, 0); err != nil {
		return nil, err
	}
	if _, err := c.m.Tx(s.addrOf("gu7000"), []uint8{0x1B, 0x40}, 0); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *console) close() { c.m.Close() }

// addchar presses the key bound to ch.
func (c *console) addchar(ch byte) {
	code, ok := keyCode(ch)
	if !ok {
		return
	}
	c.s.keypad.AddKeyPressAndRelease(code)
}

// service drains the keypad FIFO while its interrupt is asserted.
func (c *console) service() error {
	if c.s.board.Pin(pinKeypadINT, 1).Value() != 0 {
		return nil
	}
	kp := c.s.addrOf("tca8418")
	r, err := c.m.Tx(kp, []uint8{device.KeypadKeyLckEC}, 1)
	if err != nil {
		return err
	}
	for n := r[0] & 0x0f; n > 0; n-- {
		ev, err := c.m.Tx(kp, []uint8{device.KeypadKeyEventA}, 1)
		if err != nil {
			return err
		}
		c.writeterminal(ev[0])
	}
	// acknowledge the key event interrupt
	_, err = c.m.Tx(kp, []uint8{device.KeypadIntStat, 0x01}, 0)
	return err
}

func (c *console) writeterminal(ev uint8) {
	name := keyName(ev)
	if ev&uint8(device.KeyPress) == 0 {
		fmt.Fprintf(c.out, "key %c up\r\n", name)
		return
	}
	fmt.Fprintf(c.out, "key %c down\r\n", name)
	if _, err := c.m.Tx(c.s.addrOf("gu7000"), []uint8{name}, 0); err != nil {
		fmt.Fprintf(c.out, "display: %v\r\n", err)
	}
}

// readKeys sends the bytes read from r until r fails or done is closed.
func readKeys(r io.Reader, done <-chan struct{}) <-chan byte {
	keys := make(chan byte)
	go func() {
		defer close(keys)
		var buf [1]byte
		for {
			if _, err := r.Read(buf[:]); err != nil {
				return
			}
			select {
			case keys <- buf[0]:
			case <-done:
				return
			}
		}
	}()
	return keys
}

type keypadCmd struct{}

func (k *keypadCmd) Run(g *Globals) error {
	var ring board.LogRing
	s, err := newSystem(g, g.logger(&ring))
	if err != nil {
		return err
	}
	restore, err := rawMode(os.Stdin.Fd())
	if err != nil {
		return err
	}
	defer restore()

	c, err := newConsole(s, os.Stdout)
	if err != nil {
		return err
	}
	defer c.close()

	done := make(chan struct{})
	defer close(done)
	keys := readKeys(os.Stdin, done)

	fmt.Fprint(os.Stdout, "keys 0-9 A-D * # press the keypad, q quits\r\n")
	lc := newLineClock(s.board)
	defer lc.stop()
	for {
		select {
		case <-lc.ticks:
			if err := lc.tick(); err != nil {
				dumpLog(&ring)
				return err
			}
			if err := c.service(); err != nil {
				return err
			}
		case ch, ok := <-keys:
			if !ok || ch == 'q' || ch == 0x04 {
				fmt.Fprintf(os.Stdout, "\r\n%s\r\n", s.display.Text())
				return s.close(g)
			}
			c.addchar(ch)
		}
	}
}
