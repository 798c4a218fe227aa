package wire

import (
	"bytes"
	"encoding/binary"
)

// CharServerHandshakeRequest decodes 0x2710.
type CharServerHandshakeRequest struct {
	Userid      string
	Password    string
	Name        string
	IP          [4]byte
	Port        uint16
	Maintenance bool
	NewServer   bool
}

func DecodeCharServerHandshake(buf []byte) (CharServerHandshakeRequest, error) {
	if len(buf) < 86 {
		return CharServerHandshakeRequest{}, ErrShortFrame
	}
	var ip [4]byte
	copy(ip[:], buf[54:58])
	return CharServerHandshakeRequest{
		Userid:      GetString(buf[2:26]),
		Password:    GetString(buf[26:50]),
		IP:          ip,
		Port:        binary.LittleEndian.Uint16(buf[58:60]),
		Name:        GetString(buf[60:80]),
		Maintenance: binary.LittleEndian.Uint16(buf[82:84]) != 0,
		NewServer:   binary.LittleEndian.Uint16(buf[84:86]) != 0,
	}, nil
}

// HandshakeAck encodes 0x2711. code 0 = accepted, 3 = refused (slot full or
// account not eligible).
func HandshakeAck(code uint8) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ServerHandshakeAck)
	b.WriteByte(code)
	return b.Bytes()
}

// TicketRedeemRequest decodes 0x2712.
type TicketRedeemRequest struct {
	AccountID int32
	LoginID1  uint32
	LoginID2  uint32
	Sex       byte
	IP        [4]byte
}

func DecodeTicketRedeem(buf []byte) (TicketRedeemRequest, error) {
	if len(buf) < 23 {
		return TicketRedeemRequest{}, ErrShortFrame
	}
	var ip [4]byte
	copy(ip[:], buf[15:19])
	return TicketRedeemRequest{
		AccountID: int32(binary.LittleEndian.Uint32(buf[2:6])),
		LoginID1:  binary.LittleEndian.Uint32(buf[6:10]),
		LoginID2:  binary.LittleEndian.Uint32(buf[10:14]),
		Sex:       buf[14],
		IP:        ip,
	}, nil
}

// TicketReply encodes 0x2713. On refusal, email/expiration are zero-valued.
func TicketReply(accountID int32, accepted bool, email string, expiration int64) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharTicketReply)
	binary.Write(&b, binary.LittleEndian, accountID)
	if accepted {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
	PutString(&b, email, 40)
	binary.Write(&b, binary.LittleEndian, expiration)
	return b.Bytes()
}

// DecodeUserCount decodes 0x2714.
func DecodeUserCount(buf []byte) (uint16, error) {
	if len(buf) < 4 {
		return 0, ErrShortFrame
	}
	return binary.LittleEndian.Uint16(buf[2:4]), nil
}

// AccountEmailRequest is the decoded form of 0x2715.
type AccountEmailRequest struct {
	AccountID int32
	Email     string
}

func DecodeSetEmail(buf []byte) (AccountEmailRequest, error) {
	if len(buf) < 44 {
		return AccountEmailRequest{}, ErrShortFrame
	}
	return AccountEmailRequest{
		AccountID: int32(binary.LittleEndian.Uint32(buf[2:6])),
		Email:     GetString(buf[6:44]),
	}, nil
}

// DecodeAccountIDRequest decodes every request whose payload is an
// accountId: 0x2716, 0x2727, 0x272a, 0x272b, 0x272c and 0x272e (0x272e also
// carries a char id, which this core does not read).
func DecodeAccountIDRequest(buf []byte) (int32, error) {
	if len(buf) < 6 {
		return 0, ErrShortFrame
	}
	return int32(binary.LittleEndian.Uint32(buf[2:6])), nil
}

// EmailReply encodes 0x2717.
func EmailReply(accountID int32, email string, expiration int64) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharEmailReply)
	binary.Write(&b, binary.LittleEndian, accountID)
	PutString(&b, email, 40)
	binary.Write(&b, binary.LittleEndian, expiration)
	return b.Bytes()
}

// Pong encodes 0x2718.
func Pong() []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharPong)
	return b.Bytes()
}

// ChangeEmailRequest decodes 0x2722.
type ChangeEmailRequest struct {
	AccountID int32
	OldEmail  string
	NewEmail  string
}

func DecodeChangeEmail(buf []byte) (ChangeEmailRequest, error) {
	if len(buf) < 86 {
		return ChangeEmailRequest{}, ErrShortFrame
	}
	return ChangeEmailRequest{
		AccountID: int32(binary.LittleEndian.Uint32(buf[2:6])),
		OldEmail:  GetString(buf[6:46]),
		NewEmail:  GetString(buf[46:86]),
	}, nil
}

// SetStateRequest decodes 0x2724.
type SetStateRequest struct {
	AccountID int32
	State     int32
}

func DecodeSetState(buf []byte) (SetStateRequest, error) {
	if len(buf) < 8 {
		return SetStateRequest{}, ErrShortFrame
	}
	return SetStateRequest{
		AccountID: int32(binary.LittleEndian.Uint32(buf[2:6])),
		State:     int32(binary.LittleEndian.Uint16(buf[6:8])),
	}, nil
}

// ExtendBanRequest decodes 0x2725: deltas to add to the current unban time,
// broken down as years/months/days/hours/minutes/seconds, per login.c's
// struct-tm arithmetic.
type ExtendBanRequest struct {
	AccountID int32
	Years, Months, Days, Hours, Minutes, Seconds int16
}

func DecodeExtendBan(buf []byte) (ExtendBanRequest, error) {
	if len(buf) < 18 {
		return ExtendBanRequest{}, ErrShortFrame
	}
	r := ExtendBanRequest{AccountID: int32(binary.LittleEndian.Uint32(buf[2:6]))}
	r.Years = int16(binary.LittleEndian.Uint16(buf[6:8]))
	r.Months = int16(binary.LittleEndian.Uint16(buf[8:10]))
	r.Days = int16(binary.LittleEndian.Uint16(buf[10:12]))
	r.Hours = int16(binary.LittleEndian.Uint16(buf[12:14]))
	r.Minutes = int16(binary.LittleEndian.Uint16(buf[14:16]))
	r.Seconds = int16(binary.LittleEndian.Uint16(buf[16:18]))
	return r, nil
}

// SexReply encodes 0x2723 (sex-flip broadcast).
func SexReply(accountID int32, sex byte) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharSexReply)
	binary.Write(&b, binary.LittleEndian, accountID)
	b.WriteByte(sex)
	return b.Bytes()
}

// AccReg2Pair is one key/value entry of an account's accountReg2 table.
type AccReg2Pair struct {
	Key   string
	Value string
}

// DecodeSetAccReg2 decodes 0x2728: accountId followed by NUL-delimited
// key,value pairs up to AccountReg2Num entries.
func DecodeSetAccReg2(buf []byte) (int32, []AccReg2Pair, error) {
	if len(buf) < 8 {
		return 0, nil, ErrShortFrame
	}
	n := int(binary.LittleEndian.Uint16(buf[2:4]))
	if n > len(buf) {
		return 0, nil, ErrShortFrame
	}
	accountID := int32(binary.LittleEndian.Uint32(buf[4:8]))
	var pairs []AccReg2Pair
	rest := buf[8:n]
	for len(rest) > 0 && len(pairs) < AccountReg2Num {
		parts := bytes.SplitN(rest, []byte{0}, 3)
		if len(parts) < 2 {
			break
		}
		pairs = append(pairs, AccReg2Pair{
			Key:   StripControl(string(parts[0])),
			Value: StripControl(string(parts[1])),
		})
		if len(parts) < 3 {
			break
		}
		rest = parts[2]
	}
	return accountID, pairs, nil
}

// AccReg2Reply encodes 0x2729. kind 0 = forwarded update, kind 1 = query reply.
func AccReg2Reply(accountID int32, kind uint8, pairs []AccReg2Pair) []byte {
	var body bytes.Buffer
	for _, p := range pairs {
		body.WriteString(p.Key)
		body.WriteByte(0)
		body.WriteString(p.Value)
		body.WriteByte(0)
	}
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharAccReg2Reply)
	binary.Write(&b, binary.LittleEndian, uint16(9+body.Len()))
	binary.Write(&b, binary.LittleEndian, accountID)
	b.WriteByte(kind)
	b.Write(body.Bytes())
	return b.Bytes()
}

// FullResyncEntry decodes one entry of a 0x272d full-online-list resync.
type FullResyncEntry struct {
	AccountID int32
}

// DecodeFullResync decodes 0x272d: a length-prefixed list of account ids
// this char-server currently believes are online.
func DecodeFullResync(buf []byte) ([]FullResyncEntry, error) {
	if len(buf) < 4 {
		return nil, ErrShortFrame
	}
	n := int(binary.LittleEndian.Uint16(buf[2:4]))
	if n > len(buf) {
		return nil, ErrShortFrame
	}
	var entries []FullResyncEntry
	for off := 4; off+4 <= n; off += 4 {
		entries = append(entries, FullResyncEntry{
			AccountID: int32(binary.LittleEndian.Uint32(buf[off : off+4])),
		})
	}
	return entries, nil
}

// DecodeUpdateWANIP decodes 0x2736.
func DecodeUpdateWANIP(buf []byte) ([4]byte, error) {
	var ip [4]byte
	if len(buf) < 6 {
		return ip, ErrShortFrame
	}
	copy(ip[:], buf[2:6])
	return ip, nil
}

// Kick encodes 0x2734: tell char-servers to disconnect this account.
func Kick(accountID int32) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharKick)
	binary.Write(&b, binary.LittleEndian, accountID)
	return b.Bytes()
}

// IPSync encodes 0x2735, the periodic "re-resolve your WAN address" prompt.
func IPSync() []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharIPSync)
	return b.Bytes()
}

// BroadcastState encodes 0x2731. kind 0 = state change, kind 1 = ban extension.
func BroadcastState(accountID int32, kind uint8, value int32) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharBroadcastState)
	binary.Write(&b, binary.LittleEndian, accountID)
	b.WriteByte(kind)
	binary.Write(&b, binary.LittleEndian, value)
	return b.Bytes()
}

// GMEntry is one row of the GM (privilege level) table pushed to
// char-servers by GMAccounts.
type GMEntry struct {
	AccountID int32
	Level     int32
}

// GMAccounts encodes 0x2732: the whole GM table, pushed on every successful
// reload (on-demand via 0x2709 or the refresh-interval timer) and to a
// newly-attached char-server, mirroring send_GM_accounts.
func GMAccounts(entries []GMEntry) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, ToCharGMAccounts)
	binary.Write(&b, binary.LittleEndian, uint16(4+8*len(entries)))
	for _, e := range entries {
		binary.Write(&b, binary.LittleEndian, e.AccountID)
		binary.Write(&b, binary.LittleEndian, e.Level)
	}
	return b.Bytes()
}
