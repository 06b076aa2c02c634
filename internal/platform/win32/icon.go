package win32

import (
	"encoding/binary"
	"unicode/utf16"
)

// tipCapacity is the length of NOTIFYICONDATAW.szTip, terminator included.
const tipCapacity = 128

// isIconDirectory reports whether buf starts with an ICONDIR header.
func isIconDirectory(buf []byte) bool {
	if len(buf) < 6 {
		return false
	}
	reserved := binary.LittleEndian.Uint16(buf[0:])
	kind := binary.LittleEndian.Uint16(buf[2:])
	count := binary.LittleEndian.Uint16(buf[4:])
	return reserved == 0 && kind == 1 && count > 0
}

// tooltipText encodes s for szTip, dropping what does not fit and never
// splitting a surrogate pair.
func tooltipText(s string) [tipCapacity]uint16 {
	var tip [tipCapacity]uint16
	units := utf16.Encode([]rune(s))
	if len(units) > tipCapacity-1 {
		units = units[:tipCapacity-1]
		if last := units[len(units)-1]; last >= 0xD800 && last < 0xDC00 {
			units = units[:len(units)-1]
		}
	}
	for i, u := range units {
		if u == 0 {
			break
		}
		tip[i] = u
	}
	return tip
}
