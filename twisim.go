// twisim simulates the I2C and SPI peripherals of a small AVR board.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"

	"github.com/davecheney/twisim/board"
	"github.com/davecheney/twisim/twi"
)

// cli is the twisim command line.
type cli struct {
	Globals

	Run    runCmd    `cmd:"" default:"withargs" help:"run a firmware script against the simulated board"`
	Keypad keypadCmd `cmd:"" help:"drive the keypad from the terminal"`
	Dump   dumpCmd   `cmd:"" help:"print the state of every device"`
}

func newParser(c *cli, options ...kong.Option) (*kong.Kong, error) {
	return kong.New(c, append([]kong.Option{
		kong.Name("twisim"),
		kong.Description("Simulated I2C/SPI peripherals for a cycle driven MCU host."),
		kong.UsageOnError(),
	}, options...)...)
}

func main() {
	var c cli
	parser, err := newParser(&c, kong.Configuration(kong.JSON, "/etc/twisim.json", "~/.twisim.json"))
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	err = ctx.Run(&c.Globals)
	ctx.FatalIfErrorf(err)
}

// busAddr is a 7-bit bus address. It accepts decimal, 0x hex and 0o octal.
type busAddr uint8

func (a *busAddr) Decode(ctx *kong.DecodeContext) error {
	t, err := ctx.Scan.PopValue("address")
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(fmt.Sprint(t.Value), 0, 8)
	if err != nil {
		return fmt.Errorf("bad address %v", t.Value)
	}
	if v > 0x7f {
		return fmt.Errorf("address %#x does not fit in 7 bits", v)
	}
	*a = busAddr(v)
	return nil
}

// Globals are the board options shared by every command.
type Globals struct {
	Config  kong.ConfigFlag `help:"load options from a JSON file"`
	Freq    uint64          `default:"16000000" help:"MCU clock in Hz"`
	Verbose bool            `short:"v" help:"print device diagnostics"`

	RTC     busAddr `name:"rtc" default:"0x68" help:"DS3231 address"`
	EEPROM  busAddr `name:"eeprom" default:"0x54" help:"47L04 address"`
	Keypad  busAddr `name:"keypad" default:"0x34" help:"TCA8418 address"`
	LED     busAddr `name:"led" default:"0x60" help:"TLC59116 address"`
	Display busAddr `name:"display" default:"0x50" help:"GU7000 address"`
	Leap    string  `default:"faithful" enum:"faithful,gregorian" help:"February rule of the RTC"`

	SetClock bool   `name:"set-clock" default:"true" negatable:"" help:"start the RTC at the host's time"`
	Image    string `name:"image" type:"path" help:"EEPROM image to load"`
	Save     bool   `help:"write the EEPROM back to --image on exit"`
}

// logger returns the diagnostics sink for g. Lines always go to ring; with
// Verbose they are printed as well.
func (g *Globals) logger(ring *board.LogRing) twi.Logger {
	if !g.Verbose {
		return ring
	}
	std := log.New(os.Stderr, "", log.Lmicroseconds)
	return twi.LogFunc(func(format string, args ...interface{}) {
		ring.Printf(format, args...)
		std.Printf(format, args...)
	})
}

type runCmd struct {
	Script     string        `arg:"" optional:"" type:"existingfile" help:"Lua firmware script"`
	For        time.Duration `default:"0s" help:"simulated time to run after the script"`
	Transcript bool          `help:"print the bus transcript"`
}

func (r *runCmd) Run(g *Globals) error {
	var ring board.LogRing
	s, err := newSystem(g, g.logger(&ring))
	if err != nil {
		return err
	}
	s.listener.OnTransaction(func(t twi.Transaction) {
		if r.Transcript {
			fmt.Println("i2c:", t)
		}
	})
	uart := board.AttachUART(s.board, 0, func(line string) { fmt.Print(line) })
	defer uart.Close()

	if r.Script != "" {
		err = runScript(s, r.Script)
	}
	if err == nil && r.For > 0 {
		err = s.board.AdvanceUSec(uint64(r.For / time.Microsecond))
	}
	if err != nil {
		dumpLog(&ring)
		return err
	}
	fmt.Println(s.display.Text())
	return s.close(g)
}

type dumpCmd struct {
	For time.Duration `default:"0s" help:"simulated time to run before dumping"`
}

func (d *dumpCmd) Run(g *Globals) error {
	var ring board.LogRing
	s, err := newSystem(g, g.logger(&ring))
	if err != nil {
		return err
	}
	if err := s.board.AdvanceUSec(uint64(d.For / time.Microsecond)); err != nil {
		return err
	}
	fmt.Println(s.board)
	for _, addr := range s.devices() {
		regs, err := s.registers(addr)
		if err != nil {
			continue
		}
		fmt.Printf("%02x %s\n", addr, s.addrs[addr])
		spew.Dump(regs)
	}
	fmt.Println("rtc:", s.rtc.Time().Format(time.DateTime))
	if err := s.board.Step(func() { fmt.Printf("leds: % x\n", s.leds.State()) }); err != nil {
		fmt.Println("leds:", err)
	}
	fmt.Printf("pins: %v\n", s.board.Pins())
	fmt.Print(s.display)
	return s.close(g)
}

func dumpLog(ring *board.LogRing) {
	var lines []string
	ring.Each(func(l string) { lines = append(lines, l) })
	for i := len(lines) - 1; i >= 0; i-- {
		fmt.Fprintln(os.Stderr, lines[i])
	}
}
