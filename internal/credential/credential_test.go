package credential

import (
	"crypto/md5"
	"testing"
)

func TestVerifyPlain(t *testing.T) {
	if !VerifyPlain("secret", "secret") {
		t.Fatal("expected match")
	}
	if VerifyPlain("secret", "other") {
		t.Fatal("expected mismatch")
	}
}

func TestVerifyChallengePrepend(t *testing.T) {
	key := []byte("abc123")
	stored := "hunter2"
	digest := md5.Sum(append(append([]byte{}, key...), stored...))

	if !VerifyChallenge(key, stored, digest, true, false) {
		t.Fatal("expected prepend variant to verify")
	}
	if VerifyChallenge(key, stored, digest, false, true) {
		t.Fatal("append-only should not accept a prepend digest")
	}
}

func TestVerifyChallengeAppend(t *testing.T) {
	key := []byte("abc123")
	stored := "hunter2"
	digest := md5.Sum(append(append([]byte{}, stored...), key...))

	if !VerifyChallenge(key, stored, digest, false, true) {
		t.Fatal("expected append variant to verify")
	}
}

func TestHexMD5(t *testing.T) {
	if HexMD5("") != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("unexpected hash: %s", HexMD5(""))
	}
}
