package codec

import (
	"encoding/binary"
	"math"
)

const maxTextLen = int(^uint16(0))

func sized(dst []byte, n int) []byte {
	if cap(dst) < n {
		return make([]byte, n)
	}
	return dst[:n]
}

func putFloat(dst []byte, v float64) {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
}

func float(src []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(src))
}

// appendText writes a length-prefixed string after a fixed-size body.
// Text longer than a uint16 length is truncated.
func appendText(dst []byte, text string) []byte {
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(text)))
	return append(dst, text...)
}

func readText(src []byte) (string, bool) {
	if len(src) < 2 {
		return "", false
	}
	n := int(binary.LittleEndian.Uint16(src[0:2]))
	if len(src) < 2+n {
		return "", false
	}
	return string(src[2 : 2+n]), true
}
