// Package wire implements the little-endian, fixed-width-string framing
// used by both the client-login and inter-server protocols multiplexed on
// the single listening socket.
package wire

// Client-facing opcodes (role UNKNOWN / CLIENT).
const (
	ClientLoginV1        uint16 = 0x0064 // userid/password cleartext, fixed 55 bytes
	ClientLoginMD5       uint16 = 0x01dd // MD5 challenge-response digest, fixed 47 bytes
	ClientLoginV2        uint16 = 0x0277 // cleartext login (kRO 2006-04-24aSakexe), fixed 84 bytes
	ClientLoginV3        uint16 = 0x02b0 // cleartext login (kRO 2007-05-14aSakexe), fixed 85 bytes
	ClientRequestKey     uint16 = 0x01db // "give me a challenge key"
	ClientKeepAlive1     uint16 = 0x0200
	ClientKeepAlive2     uint16 = 0x0204
	ClientVersionQuery   uint16 = 0x7530
	ClientAdminLogin     uint16 = 0x7918 // unconditionally refused; no admin console login is supported

	CharServerHandshake uint16 = 0x2710

	ServerChallengeKey uint16 = 0x01dc
	ServerVersionReply uint16 = 0x7531
	ServerAdminReply   uint16 = 0x7919
	ServerLoginOK      uint16 = 0x0069
	ServerLoginFail    uint16 = 0x006a
	ServerForceClose   uint16 = 0x0081
	ServerHandshakeAck uint16 = 0x2711
)

// Inter-server (CHAR_SERVER role) opcodes.
const (
	FromCharReloadGM      uint16 = 0x2709
	FromCharTicketRedeem  uint16 = 0x2712
	ToCharTicketReply     uint16 = 0x2713
	FromCharUserCount     uint16 = 0x2714
	FromCharSetEmail      uint16 = 0x2715
	FromCharQueryEmail    uint16 = 0x2716
	ToCharEmailReply      uint16 = 0x2717
	FromCharPing          uint16 = 0x2719
	ToCharPong            uint16 = 0x2718
	FromCharChangeEmail   uint16 = 0x2722
	ToCharSexReply        uint16 = 0x2723
	FromCharSetState      uint16 = 0x2724
	FromCharExtendBan     uint16 = 0x2725
	FromCharFlipSex       uint16 = 0x2727
	FromCharSetAccReg2    uint16 = 0x2728
	ToCharAccReg2Reply    uint16 = 0x2729
	FromCharUnban         uint16 = 0x272a
	FromCharSetOnline     uint16 = 0x272b
	FromCharSetOffline    uint16 = 0x272c
	FromCharFullResync    uint16 = 0x272d
	FromCharQueryAccReg2  uint16 = 0x272e
	ToCharKick            uint16 = 0x2734
	ToCharIPSync          uint16 = 0x2735
	FromCharUpdateWANIP   uint16 = 0x2736
	FromCharAllOffline    uint16 = 0x2737
	ToCharBroadcastState  uint16 = 0x2731
	ToCharGMAccounts      uint16 = 0x2732 // GM table push, on-demand reload or refresh-interval tick
)

// Client result codes carried in byte 2 of ServerLoginFail (0x6a).
const (
	ResultUnregistered    = 0
	ResultBadPassword     = 1
	ResultExpired         = 2
	ResultRejected        = 3
	ResultGMBlocked       = 4
	ResultWrongVersion    = 5
	ResultBanned          = 6
	ResultOverPopulated   = 7
	ResultAlreadyOnline   = 8
	ResultErased          = 99
)

// PasswordEncMode enumerates how a client login packet's password field
// is encoded.
type PasswordEncMode int

const (
	EncNone PasswordEncMode = iota
	EncMD5PrependKey
	EncMD5AppendKey
	EncMD5Either
)

// Size limits on wire-carried strings and fixed collections.
const (
	MaxUseridLen   = 23
	MaxPasswordLen = 23
	MaxChallengeLen = 20
	MaxServerNameLen = 19
	AccountReg2KeyLen   = 31
	AccountReg2ValueLen = 255
	AccountReg2Num      = 16
)
