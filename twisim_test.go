package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/matryer/is"
)

func parse(t *testing.T, args ...string) (*cli, *kong.Context, error) {
	t.Helper()
	var c cli
	p, err := newParser(&c, kong.Exit(func(int) { t.Fatalf("exit on %q", args) }))
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := p.Parse(args)
	return &c, ctx, err
}

func TestParseCommands(t *testing.T) {
	is := is.New(t)
	fw := filepath.Join(t.TempDir(), "fw.lua")
	is.NoErr(os.WriteFile(fw, []byte("sim.advance(1)\n"), 0o644))

	for _, tt := range []struct {
		args []string
		cmd  string
	}{
		{nil, "run"},
		{[]string{"run"}, "run"},
		{[]string{"run", fw, "--transcript"}, "run"},
		{[]string{fw}, "run"},
		{[]string{"dump", "--for=1s"}, "dump"},
		{[]string{"keypad"}, "keypad"},
	} {
		c, ctx, err := parse(t, tt.args...)
		is.NoErr(err)
		is.Equal(ctx.Selected().Name, tt.cmd)
		if len(tt.args) > 0 && tt.args[len(tt.args)-1] != "run" && tt.cmd == "run" {
			is.Equal(c.Run.Script, fw)
		}
	}
}

func TestParseDefaults(t *testing.T) {
	is := is.New(t)
	c, _, err := parse(t, "dump")
	is.NoErr(err)

	is.Equal(c.RTC, busAddr(0x68))
	is.Equal(c.EEPROM, busAddr(0x54))
	is.Equal(c.Globals.Keypad, busAddr(0x34))
	is.Equal(c.LED, busAddr(0x60))
	is.Equal(c.Display, busAddr(0x50))
	is.Equal(c.Freq, uint64(16000000))
	is.Equal(c.Leap, "faithful")
	is.True(c.SetClock)

	s, err := newSystem(&c.Globals, testLog(t))
	is.NoErr(err)
	is.Equal(s.devices(), []uint8{0x34, 0x50, 0x54, 0x60, 0x68})
	is.NoErr(s.close(&c.Globals))
}

func TestParseAddresses(t *testing.T) {
	is := is.New(t)

	c, _, err := parse(t, "--rtc=0x6f", "--eeprom=87", "--led", "0o101", "dump")
	is.NoErr(err)
	is.Equal(c.RTC, busAddr(0x6f))
	is.Equal(c.EEPROM, busAddr(87))
	is.Equal(c.LED, busAddr(0o101))

	for _, bad := range []string{"0x80", "0x100", "-1", "rtc"} {
		_, _, err := parse(t, "--rtc="+bad, "dump")
		is.True(err != nil) // rejected
	}
}
