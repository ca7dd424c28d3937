package device

import (
	"sort"
	"strings"

	"github.com/davecheney/twisim/twi"
)

// DisplayAddress is the GU7000 bus address.
const DisplayAddress = 0x50

// Display geometry in dots.
const (
	DisplayWidth  = 140
	DisplayHeight = 32

	rowDots  = 8   // cursor rows and bit image bytes are 8 dots tall
	tabChars = 4   // horizontal tab stops
	busyTime = 100 // usec the BUSY line stays high after a transfer
)

type parseState int

const (
	parseIdle parseState = iota
	parsePrefix
	parseFixed
	parseVariable
)

// Display is a GU7000 vacuum fluorescent display module. Each transaction
// carries a run of bytes which is parsed as a stream of characters and
// commands. The parse carries over from one transaction to the next.
type Display struct {
	clock   twi.Clock
	busy    twi.Pin
	pulse   *twi.Pending
	adapter *twi.Adapter
	log     twi.Logger

	rx []uint8

	state    parseState
	prefix   []uint8
	cmd      *command
	args     []uint8
	variable int

	pix   [DisplayHeight][DisplayWidth]bool
	cells []cell
	x, y  int

	magX, magY  int
	brightness  uint8
	reverse     bool
	scroll      uint8
	speed       uint8
	composition uint8
	window      uint8
	font, code  uint8

	dirty   bool
	updated uint64
}

// NewDisplay attaches a display at addr. busy, if not nil, is pulsed high
// for a short while after every transfer.
func NewDisplay(host twi.Host, addr uint8, busy twi.Pin, log twi.Logger) *Display {
	d := &Display{
		clock: host,
		busy:  busy,
		log:   twi.LoggerOrNop(log),
	}
	d.initialize(nil)
	d.adapter = twi.Attach(host, addr, nil, d)
	return d
}

// Close detaches the display.
func (d *Display) Close() {
	if d.pulse != nil {
		d.pulse.Cancel()
	}
	d.adapter.Detach()
}

func (d *Display) HandleMessage(m twi.Message) {
	switch {
	case m.Cond.Has(twi.CondStart):
		if m.Read {
			twi.Fatalf("gu7000", twi.Desync, "read requested from a write only device")
		}
		d.rx = d.rx[:0]
		d.adapter.Ack()
	case m.Cond.Has(twi.CondStop):
		d.Write(d.rx)
		d.rx = d.rx[:0]
		if d.state == parsePrefix {
			// an unknown sequence cut short by STOP
			d.log.Printf("gu7000: dropped partial command % x\n", d.prefix)
			d.resetParser()
		}
	case m.Cond.Has(twi.CondWrite):
		d.rx = append(d.rx, m.Data)
		d.adapter.Ack()
	default:
		twi.Fatalf("gu7000", twi.Desync, "unexpected condition %v", m.Cond)
	}
}

func (d *Display) ResetStateMachine() { d.rx = d.rx[:0] }

// Write feeds p to the command parser as if it had arrived over the bus.
func (d *Display) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	d.dirty = true
	d.updated = d.clock.Cycles()
	d.pulseBusy()
	for _, b := range p {
		d.process(b)
	}
	return len(p), nil
}

func (d *Display) pulseBusy() {
	if d.busy == nil {
		return
	}
	if d.pulse == nil || d.pulse.Done() {
		d.busy.Raise(1)
	} else {
		d.pulse.Cancel()
	}
	d.pulse = twi.After(d.clock, busyTime, func() { d.busy.Raise(0) })
}

// Busy reports whether the BUSY line is high.
func (d *Display) Busy() bool { return d.pulse != nil && !d.pulse.Done() }

func (d *Display) process(b uint8) {
	switch d.state {
	case parseIdle:
		if b >= 0x20 {
			d.drawGlyph(d.x, d.y, b)
			d.x, d.y = d.advance(d.x, d.y)
			return
		}
		d.state = parsePrefix
		fallthrough
	case parsePrefix:
		d.prefix = append(d.prefix, b)
		c, more := lookupCommand(d.prefix)
		switch {
		case c != nil:
			d.cmd = c
			if c.args == 0 {
				d.execute()
				return
			}
			d.state = parseFixed
		case !more:
			d.log.Printf("gu7000: unknown command % x\n", d.prefix)
			d.resetParser()
		}
	case parseFixed:
		d.args = append(d.args, b)
		if len(d.args) < d.cmd.args {
			return
		}
		if d.cmd.size != nil {
			d.variable = d.cmd.size(d.args)
		}
		if d.variable > 0 {
			d.state = parseVariable
			return
		}
		d.execute()
	case parseVariable:
		d.args = append(d.args, b)
		if len(d.args) == d.cmd.args+d.variable {
			d.execute()
		}
	}
}

func (d *Display) execute() {
	c, args := d.cmd, d.args
	d.resetParser()
	c.exec(d, args)
}

func (d *Display) resetParser() {
	d.state = parseIdle
	d.prefix = d.prefix[:0]
	d.args = nil
	d.cmd = nil
	d.variable = 0
}

// advance returns the position of the character cell after x, y.
func (d *Display) advance(x, y int) (int, int) {
	x += FontWidth * d.magX
	if x+FontWidth*d.magX > DisplayWidth {
		x = 0
		h := FontHeight * d.magY
		y += h
		if y+h > DisplayHeight {
			y = 0
		}
	}
	return x, y
}

func (d *Display) drawGlyph(x, y int, c uint8) {
	g := lookupGlyph(c)
	for row := 0; row < FontHeight; row++ {
		for col := 0; col < FontWidth; col++ {
			on := g.dot(col, row)
			for my := 0; my < d.magY; my++ {
				for mx := 0; mx < d.magX; mx++ {
					d.setPixel(x+col*d.magX+mx, y+row*d.magY+my, on)
				}
			}
		}
	}
	d.place(cell{x: x, y: y, w: FontWidth * d.magX, h: FontHeight * d.magY, c: c})
}

// cell is a character drawn at x, y covering w by h dots.
type cell struct {
	x, y, w, h int
	c          uint8
}

// place records c, replacing every character whose origin it draws over.
func (d *Display) place(c cell) {
	kept := d.cells[:0]
	for _, o := range d.cells {
		if o.x >= c.x && o.x < c.x+c.w && o.y >= c.y && o.y < c.y+c.h {
			continue
		}
		kept = append(kept, o)
	}
	d.cells = append(kept, c)
}

func (d *Display) setPixel(x, y int, on bool) {
	if x < 0 || x >= DisplayWidth || y < 0 || y >= DisplayHeight {
		return
	}
	d.pix[y][x] = on
}

func (d *Display) fill(on bool) {
	for y := range d.pix {
		for x := range d.pix[y] {
			d.pix[y][x] = on
		}
	}
}

// Pixel reports whether the dot at x, y is lit, taking reverse display into
// account. Dots outside the screen are dark.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || x >= DisplayWidth || y < 0 || y >= DisplayHeight {
		return false
	}
	return d.pix[y][x] != d.reverse
}

// Pixels returns the screen as DisplayHeight rows of DisplayWidth dots.
func (d *Display) Pixels() [][]bool {
	rows := make([][]bool, DisplayHeight)
	for y := range rows {
		rows[y] = make([]bool, DisplayWidth)
		for x := range rows[y] {
			rows[y][x] = d.pix[y][x] != d.reverse
		}
	}
	return rows
}

// Cursor returns the cursor position in dots.
func (d *Display) Cursor() (x, y int) { return d.x, d.y }

// Magnification returns the current font magnification.
func (d *Display) Magnification() (x, y int) { return d.magX, d.magY }

// Brightness returns the brightness level, 1 to 8.
func (d *Display) Brightness() uint8 { return d.brightness }

// Text returns the characters on screen, one line per row of characters
// from top to bottom. Gaps of a character width or more become spaces, and
// blank lines are left out.
func (d *Display) Text() string {
	cells := append([]cell(nil), d.cells...)
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].y != cells[j].y {
			return cells[i].y < cells[j].y
		}
		return cells[i].x < cells[j].x
	})
	var lines []string
	for len(cells) > 0 {
		n := 1
		for n < len(cells) && cells[n].y == cells[0].y {
			n++
		}
		var line []rune
		end := 0
		for _, c := range cells[:n] {
			if gap := c.x - end; gap >= c.w {
				line = append(line, []rune(strings.Repeat(" ", gap/c.w))...)
			}
			line = append(line, rune(c.c))
			end = c.x + c.w
		}
		if l := strings.TrimRight(string(line), " "); l != "" {
			lines = append(lines, l)
		}
		cells = cells[n:]
	}
	return strings.Join(lines, "\n")
}

// Dirty reports whether anything was written since the last Clean, and the
// cycle of the latest write.
func (d *Display) Dirty() (bool, uint64) { return d.dirty, d.updated }

// Clean marks the screen as seen.
func (d *Display) Clean() { d.dirty = false }

// String renders the screen with one character per dot.
func (d *Display) String() string {
	var sb strings.Builder
	for y := 0; y < DisplayHeight; y++ {
		for x := 0; x < DisplayWidth; x++ {
			if d.Pixel(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
