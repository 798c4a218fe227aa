package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ClientLoginRequest is the decoded form of any of the four client login
// variants (0x0064, 0x01dd, 0x0277, 0x02b0). Only 0x01dd carries an MD5
// digest; the other three are cleartext. Which is which is determined by
// the opcode that produced it.
type ClientLoginRequest struct {
	Opcode        uint16
	ClientVersion uint32
	Userid        string
	Password      string // cleartext, when !IsMD5
	PasswordMD5   [16]byte
	IsMD5         bool
}

// DecodeClientLogin parses any of the four login opcodes.
func DecodeClientLogin(buf []byte) (ClientLoginRequest, error) {
	op, ok := Opcode(buf)
	if !ok {
		return ClientLoginRequest{}, ErrShortFrame
	}
	switch op {
	case ClientLoginV1:
		if len(buf) < 55 {
			return ClientLoginRequest{}, ErrShortFrame
		}
		return ClientLoginRequest{
			Opcode:        op,
			ClientVersion: binary.LittleEndian.Uint32(buf[2:6]),
			Userid:        GetString(buf[6:30]),
			Password:      GetString(buf[30:54]),
		}, nil
	case ClientLoginMD5:
		if len(buf) < 47 {
			return ClientLoginRequest{}, ErrShortFrame
		}
		req := ClientLoginRequest{
			Opcode:        op,
			ClientVersion: binary.LittleEndian.Uint32(buf[2:6]),
			Userid:        GetString(buf[6:30]),
			IsMD5:         true,
		}
		copy(req.PasswordMD5[:], buf[30:46])
		return req, nil
	case ClientLoginV2:
		if len(buf) < 84 {
			return ClientLoginRequest{}, ErrShortFrame
		}
		return ClientLoginRequest{
			Opcode:        op,
			ClientVersion: binary.LittleEndian.Uint32(buf[2:6]),
			Userid:        GetString(buf[6:30]),
			Password:      GetString(buf[30:54]),
		}, nil
	case ClientLoginV3:
		if len(buf) < 85 {
			return ClientLoginRequest{}, ErrShortFrame
		}
		return ClientLoginRequest{
			Opcode:        op,
			ClientVersion: binary.LittleEndian.Uint32(buf[2:6]),
			Userid:        GetString(buf[6:30]),
			Password:      GetString(buf[30:54]),
		}, nil
	default:
		return ClientLoginRequest{}, ErrUnknownOpcode{Opcode: op}
	}
}

// ChallengeKeyReply encodes 0x01dc: the generated challenge key.
func ChallengeKeyReply(key []byte) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ServerChallengeKey)
	binary.Write(&b, binary.LittleEndian, uint16(4+len(key)))
	b.Write(key)
	return b.Bytes()
}

// VersionReply encodes 0x7531.
func VersionReply(version uint32) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ServerVersionReply)
	binary.Write(&b, binary.LittleEndian, version)
	return b.Bytes()
}

// AdminReply encodes 0x7919 with the given refusal code.
func AdminReply(code uint8) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ServerAdminReply)
	b.WriteByte(code)
	return b.Bytes()
}

// ForceClose encodes 0x81 (used for the zero-char-server rejection; a
// min_level_to_connect refusal is sent as 0x6a code 3 instead).
func ForceClose(code uint8) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ServerForceClose)
	b.WriteByte(code)
	return b.Bytes()
}

// ServerListEntry is one 32-byte slot advertised in a 0x69 reply.
type ServerListEntry struct {
	IP          [4]byte
	Port        uint16
	Name        string
	UserCount   uint16
	Maintenance uint16
	New         uint16
}

func (e ServerListEntry) encode(b *bytes.Buffer) {
	b.Write(e.IP[:])
	binary.Write(b, binary.LittleEndian, SwapPort(e.Port))
	PutString(b, e.Name, MaxServerNameLen+1)
	binary.Write(b, binary.LittleEndian, e.UserCount)
	binary.Write(b, binary.LittleEndian, e.Maintenance)
	binary.Write(b, binary.LittleEndian, e.New)
}

// LoginOK encodes 0x69: loginId1/2, accountId, sex and the server list.
func LoginOK(loginID1 uint32, accountID int32, loginID2 uint32, sex byte, entries []ServerListEntry) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ServerLoginOK)
	binary.Write(&b, binary.LittleEndian, uint16(47+32*len(entries)))
	binary.Write(&b, binary.LittleEndian, loginID1)
	binary.Write(&b, binary.LittleEndian, int32(accountID))
	binary.Write(&b, binary.LittleEndian, loginID2)
	b.Write(make([]byte, 30)) // reserved, mirrors the original's zeroed block
	b.WriteByte(sex)
	for _, e := range entries {
		e.encode(&b)
	}
	return b.Bytes()
}

// LoginFail encodes 0x6a with the numeric result code. The 20-byte banUntil
// field is always written; it is only meaningful for ResultBanned.
func LoginFail(code uint8, banUntil string) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ServerLoginFail)
	b.WriteByte(code)
	PutString(&b, banUntil, 20)
	return b.Bytes()
}

func init() {
	// Guards against opcode table drift silently breaking frame sizing.
	if _, ok := fixedSizes[ClientLoginV1]; !ok {
		panic(fmt.Sprintf("wire: %#x missing from fixedSizes", ClientLoginV1))
	}
}
