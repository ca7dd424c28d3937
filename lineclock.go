package main

import (
	"time"

	"github.com/davecheney/twisim/board"
)

// lineHz is the rate at which simulated time is paced against the wall clock.
const lineHz = 60

// lineClock runs the board in step with real time: every tick of the line
// the board advances by one line period.
type lineClock struct {
	ticks <-chan time.Time
	stop  func()
	b     *board.Board
}

func newLineClock(b *board.Board) *lineClock {
	t := time.NewTicker(time.Second / lineHz)
	return &lineClock{ticks: t.C, stop: t.Stop, b: b}
}

// tick advances the board by one line period.
func (lc *lineClock) tick() error {
	return lc.b.AdvanceUSec(1000000 / lineHz)
}
