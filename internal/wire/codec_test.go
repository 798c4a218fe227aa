package wire

import "testing"

func TestDecodeClientLoginV1(t *testing.T) {
	var buf [55]byte
	buf[0], buf[1] = byte(ClientLoginV1), 0
	buf[2] = 20
	copy(buf[6:30], "alice_F")
	copy(buf[30:54], "secret")

	req, err := DecodeClientLogin(buf[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Userid != "alice_F" || req.Password != "secret" {
		t.Fatalf("unexpected decode: %+v", req)
	}
	if req.ClientVersion != 20 {
		t.Fatalf("expected version 20, got %d", req.ClientVersion)
	}
}

func TestDecodeClientLoginMD5(t *testing.T) {
	var buf [47]byte
	buf[0], buf[1] = byte(ClientLoginMD5&0xff), byte(ClientLoginMD5>>8)
	buf[2] = 20
	copy(buf[6:30], "bob")
	digest := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	copy(buf[30:46], digest[:])

	req, err := DecodeClientLogin(buf[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !req.IsMD5 {
		t.Fatal("expected IsMD5")
	}
	if req.Userid != "bob" {
		t.Fatalf("unexpected userid: %q", req.Userid)
	}
	if req.PasswordMD5 != digest {
		t.Fatalf("unexpected digest: %x", req.PasswordMD5)
	}
}

func TestDecodeClientLoginV2Cleartext(t *testing.T) {
	var buf [84]byte
	buf[0], buf[1] = byte(ClientLoginV2&0xff), byte(ClientLoginV2>>8)
	copy(buf[6:30], "carol")
	copy(buf[30:54], "hunter2")

	req, err := DecodeClientLogin(buf[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.IsMD5 {
		t.Fatal("expected cleartext, got IsMD5")
	}
	if req.Userid != "carol" || req.Password != "hunter2" {
		t.Fatalf("unexpected decode: %+v", req)
	}
}

func TestNextFrameFixedShort(t *testing.T) {
	buf := []byte{byte(ClientLoginV1), 0, 1, 2}
	if _, err := NextFrame(buf); err != ErrShortFrame {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestNextFrameUnknownOpcode(t *testing.T) {
	buf := []byte{0xff, 0xff}
	if _, err := NextFrame(buf); err == nil {
		t.Fatal("expected ErrUnknownOpcode")
	}
}

func TestStripControl(t *testing.T) {
	if got := StripControl("a\x01b\tc"); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestSwapPort(t *testing.T) {
	if SwapPort(0x0102) != 0x0201 {
		t.Fatalf("unexpected swap: %04x", SwapPort(0x0102))
	}
}

func TestServerListEntryRoundTrip(t *testing.T) {
	data := LoginOK(1, 2000001, 2, 'M', []ServerListEntry{
		{IP: [4]byte{10, 0, 0, 5}, Port: 6121, Name: "server1", UserCount: 3},
	})
	if len(data) != 47+32 {
		t.Fatalf("unexpected length %d", len(data))
	}
	if op, _ := Opcode(data); op != ServerLoginOK {
		t.Fatalf("unexpected opcode %#x", op)
	}
}
