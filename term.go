package main

import (
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

func tcget(fd uintptr) (*unix.Termios, error) {
	p, err := unix.IoctlGetTermios(int(fd), getTermios)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func tcset(fd uintptr, p *unix.Termios) error {
	return unix.IoctlSetTermios(int(fd), setTermios, p)
}

// rawMode turns off line editing and echo on the terminal fd so that every
// key reaches the keypad as it is typed. Output processing and signals are
// left alone. The returned function restores the previous settings.
func rawMode(fd uintptr) (restore func() error, err error) {
	if !term.IsTerminal(int(fd)) {
		return nil, fmt.Errorf("fd %d is not a terminal", fd)
	}
	old, err := tcget(fd)
	if err != nil {
		return nil, err
	}
	raw := *old
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := tcset(fd, &raw); err != nil {
		return nil, err
	}
	return func() error { return tcset(fd, old) }, nil
}
