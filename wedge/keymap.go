package wedge

// HID boot keyboard report layout:
//
//	byte 0: modifier bits, byte 1: reserved, bytes 2-7: usage codes.
//
// Reference: USB HID Usage Tables, keyboard/keypad page (0x07).
const (
	modLeftShift  = 0x02
	modRightShift = 0x20

	usageEnter = 0x28
	usageTab   = 0x2b
)

// keymap maps usage codes to unshifted glyphs.
var keymap = map[byte]rune{
	0x04: 'a', 0x05: 'b', 0x06: 'c', 0x07: 'd', 0x08: 'e', 0x09: 'f',
	0x0a: 'g', 0x0b: 'h', 0x0c: 'i', 0x0d: 'j', 0x0e: 'k', 0x0f: 'l',
	0x10: 'm', 0x11: 'n', 0x12: 'o', 0x13: 'p', 0x14: 'q', 0x15: 'r',
	0x16: 's', 0x17: 't', 0x18: 'u', 0x19: 'v', 0x1a: 'w', 0x1b: 'x',
	0x1c: 'y', 0x1d: 'z',
	0x1e: '1', 0x1f: '2', 0x20: '3', 0x21: '4', 0x22: '5', 0x23: '6',
	0x24: '7', 0x25: '8', 0x26: '9', 0x27: '0',
	usageEnter: '\r',
	usageTab:   '\t',
	0x2c:       ' ',
	0x2d:       '-', 0x2e: '=', 0x2f: '[', 0x30: ']', 0x31: '\\',
	0x33: ';', 0x34: '\'', 0x35: '`', 0x36: ',', 0x37: '.', 0x38: '/',
}

// shiftKeymap maps usage codes to shifted glyphs where the glyph
// differs from a plain uppercase conversion.
var shiftKeymap = map[byte]rune{
	0x1e: '!', 0x1f: '@', 0x20: '#', 0x21: '$', 0x22: '%', 0x23: '^',
	0x24: '&', 0x25: '*', 0x26: '(', 0x27: ')',
	0x2d: '_', 0x2e: '+', 0x2f: '{', 0x30: '}', 0x31: '|',
	0x33: ':', 0x34: '"', 0x35: '~', 0x36: '<', 0x37: '>', 0x38: '?',
}

// decodeUsage translates one usage code to its glyph.
func decodeUsage(usage byte, shifted bool) (rune, bool) {
	if shifted {
		if r, ok := shiftKeymap[usage]; ok {
			return r, true
		}
	}
	r, ok := keymap[usage]
	if !ok {
		return 0, false
	}
	if shifted && r >= 'a' && r <= 'z' {
		r = r - 'a' + 'A'
	}
	return r, true
}

// ReportDecoder turns a sequence of boot keyboard reports into
// keypress glyphs. A usage code held across consecutive reports is one
// keypress; scanners release every key between characters, so repeats
// only matter for debouncing.
type ReportDecoder struct {
	prev [6]byte
}

// Decode returns the glyphs newly pressed in this report.
func (d *ReportDecoder) Decode(report []byte) []rune {
	if len(report) < 8 {
		return nil
	}

	shifted := report[0]&(modLeftShift|modRightShift) != 0

	var out []rune
	for _, usage := range report[2:8] {
		if usage == 0 || d.held(usage) {
			continue
		}
		if r, ok := decodeUsage(usage, shifted); ok {
			out = append(out, r)
		}
	}

	copy(d.prev[:], report[2:8])
	return out
}

// Reset forgets held keys, e.g. after a device reattach.
func (d *ReportDecoder) Reset() {
	d.prev = [6]byte{}
}

func (d *ReportDecoder) held(usage byte) bool {
	for _, p := range d.prev {
		if p == usage {
			return true
		}
	}
	return false
}
