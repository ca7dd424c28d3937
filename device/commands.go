package device

import "bytes"

// command is one entry of the display's command set. A command is
// recognised by its exact byte prefix, followed by args fixed argument
// bytes. size, if not nil, computes from the fixed arguments how many
// further bytes belong to the command.
type command struct {
	prefix string
	name   string
	args   int
	size   func(args []uint8) int
	exec   func(d *Display, args []uint8)
}

var cmdtable = [...]command{
	{"\x08", "BS", 0, nil, (*Display).backspace},
	{"\x09", "HT", 0, nil, (*Display).tab},
	{"\x0A", "LF", 0, nil, (*Display).lineFeed},
	{"\x0B", "HOM", 0, nil, (*Display).home},
	{"\x0C", "CLR", 0, nil, (*Display).clear},
	{"\x0D", "CR", 0, nil, (*Display).carriageReturn},

	{"\x1B\x40", "ESC @ initialize", 0, nil, (*Display).initialize},
	{"\x1B\x25", "ESC % download register", 1, nil, notModeled},
	{"\x1B\x26", "ESC & download character", 3, downloadSize, notModeled},
	{"\x1B\x3F", "ESC ? delete download", 2, nil, notModeled},
	{"\x1B\x52", "ESC R international font", 1, nil, (*Display).fontSet},
	{"\x1B\x74", "ESC t code type", 1, nil, (*Display).codeType},

	{"\x1F\x01", "US MD1 overwrite", 0, nil, scrollMode(1)},
	{"\x1F\x02", "US MD2 vertical scroll", 0, nil, scrollMode(2)},
	{"\x1F\x03", "US MD3 horizontal scroll", 0, nil, scrollMode(3)},
	{"\x1F\x24", "US $ cursor set", 4, nil, (*Display).cursorSet},
	{"\x1F\x58", "US X brightness", 1, nil, (*Display).brightnessSet},
	{"\x1F\x72", "US r reverse", 1, nil, (*Display).reverseSet},
	{"\x1F\x73", "US s scroll speed", 1, nil, (*Display).scrollSpeed},
	{"\x1F\x77", "US w composition", 1, nil, (*Display).compositionSet},

	{"\x1F\x28\x61\x01", "US ( a wait", 1, nil, notModeled},
	{"\x1F\x28\x61\x10", "US ( a scroll action", 5, nil, notModeled},
	{"\x1F\x28\x61\x11", "US ( a blink", 4, nil, notModeled},
	{"\x1F\x28\x61\x40", "US ( a screen saver", 1, nil, (*Display).screenSaver},
	{"\x1F\x28\x64\x21", "US ( d bit image", 9, bitImageSize, (*Display).bitImage},
	{"\x1F\x28\x64\x30", "US ( d print at", 6, printAtSize, (*Display).printAt},
	{"\x1F\x28\x67\x03", "US ( g font width", 1, nil, notModeled},
	{"\x1F\x28\x67\x40", "US ( g magnification", 2, nil, (*Display).magnify},
	{"\x1F\x28\x77\x01", "US ( w window select", 1, nil, (*Display).windowSelect},
	{"\x1F\x28\x77\x02", "US ( w window define", 2, windowDefineSize, notModeled},
	{"\x1F\x28\x77\x10", "US ( w screen mode", 1, nil, notModeled},
}

// lookupCommand returns the command whose prefix is exactly p, and whether
// p could still grow into one.
func lookupCommand(p []uint8) (*command, bool) {
	more := false
	for i := range cmdtable {
		c := &cmdtable[i]
		switch {
		case c.prefix == string(p):
			return c, false
		case len(c.prefix) > len(p) && bytes.HasPrefix([]byte(c.prefix), p):
			more = true
		}
	}
	return nil, more
}

func le16(b []uint8) int { return int(b[0]) | int(b[1])<<8 }

// notModeled accepts a command whose effect is not simulated.
func notModeled(*Display, []uint8) {}

// ESC & a c1 c2, then per character a width byte and a*5 columns.
func downloadSize(args []uint8) int {
	a, c1, c2 := int(args[0]), int(args[1]), int(args[2])
	if c2 < c1 {
		return 0
	}
	return (c2 - c1 + 1) * (1 + a*5)
}

// US ( d 21 xP yP w h g, then h/8 bytes for each of w columns.
func bitImageSize(args []uint8) int {
	return le16(args[6:]) / rowDots * le16(args[4:])
}

// US ( d 30 xP yP m n, then n characters.
func printAtSize(args []uint8) int { return int(args[5]) }

// US ( w 02 a b defines window a when b is 1, followed by its position and size.
func windowDefineSize(args []uint8) int {
	if args[1] == 1 {
		return 8
	}
	return 0
}

func (d *Display) backspace([]uint8) {
	w, h := FontWidth*d.magX, FontHeight*d.magY
	if d.x >= w {
		d.x -= w
		return
	}
	d.x = (DisplayWidth/w - 1) * w
	if d.y >= h {
		d.y -= h
	} else {
		d.y = (DisplayHeight/h - 1) * h
	}
}

func (d *Display) tab([]uint8) {
	w := FontWidth * d.magX * tabChars
	d.x = (d.x/w + 1) * w
	if d.x >= DisplayWidth {
		d.x = 0
		d.lineFeed(nil)
	}
}

func (d *Display) lineFeed([]uint8) {
	h := FontHeight * d.magY
	d.y += h
	if d.y+h > DisplayHeight {
		d.y = 0
	}
}

func (d *Display) home([]uint8) { d.x, d.y = 0, 0 }

func (d *Display) carriageReturn([]uint8) { d.x = 0 }

func (d *Display) clear([]uint8) {
	d.fill(false)
	d.cells = d.cells[:0]
	d.home(nil)
}

func (d *Display) initialize([]uint8) {
	d.clear(nil)
	d.magX, d.magY = 1, 1
	d.brightness = 8
	d.reverse = false
	d.scroll = 1
	d.speed = 0
	d.composition = 0
	d.window = 0
	d.font = 0
	d.code = 0
}

func (d *Display) fontSet(args []uint8)  { d.font = args[0] }
func (d *Display) codeType(args []uint8) { d.code = args[0] }

func scrollMode(mode uint8) func(*Display, []uint8) {
	return func(d *Display, _ []uint8) { d.scroll = mode }
}

func (d *Display) cursorSet(args []uint8) {
	d.x = min(le16(args), DisplayWidth-1)
	d.y = min(le16(args[2:])*rowDots, DisplayHeight-1)
}

func (d *Display) brightnessSet(args []uint8) { d.brightness = clamp(args[0], 1, 8) }
func (d *Display) reverseSet(args []uint8)    { d.reverse = args[0]&1 != 0 }
func (d *Display) scrollSpeed(args []uint8)   { d.speed = clamp(args[0], 0, 31) }

func (d *Display) compositionSet(args []uint8) { d.composition = clamp(args[0], 0, 3) }
func (d *Display) windowSelect(args []uint8)   { d.window = clamp(args[0], 0, 4) }

func (d *Display) screenSaver(args []uint8) {
	switch args[0] {
	case 0, 2:
		// power save, all dots off
		d.fill(false)
	case 3:
		d.fill(true)
	}
}

func (d *Display) bitImage(args []uint8) {
	x0, y0 := le16(args), le16(args[2:])
	w, h := le16(args[4:]), le16(args[6:])
	data := args[9:]
	rows := h / rowDots
	for col := 0; col < w; col++ {
		for r := 0; r < rows; r++ {
			b := data[col*rows+r]
			for bit := 0; bit < rowDots; bit++ {
				d.setPixel(x0+col, y0+r*rowDots+bit, b&(0x80>>bit) != 0)
			}
		}
	}
}

func (d *Display) printAt(args []uint8) {
	x, y := le16(args), le16(args[2:])
	for _, c := range args[6:] {
		d.drawGlyph(x, y, c)
		x, y = d.advance(x, y)
	}
}

func (d *Display) magnify(args []uint8) {
	d.magX = int(clamp(args[0], 1, 4))
	d.magY = int(clamp(args[1], 1, 2))
}

func clamp(v, lo, hi uint8) uint8 { return max(lo, min(v, hi)) }
