package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ErrShortFrame signals the receive buffer does not yet hold a whole frame.
var ErrShortFrame = fmt.Errorf("wire: short frame")

// ErrUnknownOpcode signals an opcode this codec has no framing rule for.
type ErrUnknownOpcode struct{ Opcode uint16 }

func (e ErrUnknownOpcode) Error() string {
	return fmt.Sprintf("wire: unknown opcode 0x%04x", e.Opcode)
}

// fixedSizes holds the wire length of every opcode whose frame is a fixed
// size rather than length-prefixed. Variable-length opcodes carry their own
// uint16 length at offset 2 and are handled separately in NextFrame.
var fixedSizes = map[uint16]int{
	ClientLoginV1:      55,
	ClientLoginMD5:     47,
	ClientLoginV2:      84,
	ClientLoginV3:      85,
	ClientRequestKey:   2,
	ClientKeepAlive1:   2,
	ClientKeepAlive2:   2,
	ClientVersionQuery: 2,
	ClientAdminLogin:   2,
	CharServerHandshake: 86,

	FromCharTicketRedeem: 23,
	FromCharUserCount:    4,
	FromCharSetEmail:     44,
	FromCharQueryEmail:   6,
	FromCharPing:         2,
	FromCharChangeEmail:  86,
	FromCharSetState:     8,
	FromCharExtendBan:    18,
	FromCharFlipSex:      6,
	FromCharUnban:        6,
	FromCharSetOnline:    6,
	FromCharSetOffline:   6,
	FromCharQueryAccReg2: 10,
	FromCharUpdateWANIP:  6,
	FromCharAllOffline:   2,
	FromCharReloadGM:     2,
}

// variableLength opcodes carry a uint16 total length at offset 2. None of
// the client login opcodes are length-prefixed; all four are fixed-size.
var variableLength = map[uint16]bool{
	FromCharSetAccReg2: true,
	FromCharFullResync: true,
}

// Opcode reads the 16-bit little-endian opcode at offset 0 of buf.
func Opcode(buf []byte) (uint16, bool) {
	if len(buf) < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(buf), true
}

// NextFrame returns the length in bytes of the next whole frame sitting at
// the front of buf, or ErrShortFrame if more bytes are needed, or
// ErrUnknownOpcode if the opcode has no known framing rule.
func NextFrame(buf []byte) (int, error) {
	op, ok := Opcode(buf)
	if !ok {
		return 0, ErrShortFrame
	}
	if variableLength[op] {
		if len(buf) < 4 {
			return 0, ErrShortFrame
		}
		n := int(binary.LittleEndian.Uint16(buf[2:4]))
		if len(buf) < n {
			return 0, ErrShortFrame
		}
		return n, nil
	}
	if n, ok := fixedSizes[op]; ok {
		if len(buf) < n {
			return 0, ErrShortFrame
		}
		return n, nil
	}
	return 0, ErrUnknownOpcode{Opcode: op}
}

// PutString writes s into a fixed-width, NUL-padded field of width n,
// truncating if s is too long.
func PutString(b *bytes.Buffer, s string, n int) {
	raw := make([]byte, n)
	copy(raw, s)
	b.Write(raw)
}

// GetString reads a fixed-width NUL-padded field and returns it as a Go
// string with the trailing NULs trimmed.
func GetString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return StripControl(string(buf))
}

// StripControl removes ASCII control characters (< 0x20) from s: control
// characters are stripped from strings derived from user/network input
// before use.
func StripControl(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x20 {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// SwapPort reproduces the legacy "ntows(htons(port))" quirk preserved from
// the original server-list entry encoding: the port is stored in the
// opposite byte order from every other scalar in the frame.
func SwapPort(port uint16) uint16 {
	return port<<8 | port>>8
}
