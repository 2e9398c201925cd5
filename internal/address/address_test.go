package address

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
)

func encode(version byte, payload []byte) string {
	return base58.CheckEncode(payload, version)
}

func TestValidVersionAccepted(t *testing.T) {
	addr := encode(48, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20})
	if !Valid(addr, []int{48}) {
		t.Fatalf("expected address with version 48 to be valid for [48]")
	}
}

func TestWrongVersionRejected(t *testing.T) {
	addr := encode(0, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20})
	if Valid(addr, []int{48}) {
		t.Fatalf("expected address with version 0 to be rejected for [48]")
	}
}

func TestMalformedRejected(t *testing.T) {
	if Valid("not-a-real-address", []int{48}) {
		t.Fatalf("expected malformed address to be rejected")
	}
}

func TestEmptyAllowListRejectsEverything(t *testing.T) {
	addr := encode(48, []byte{1, 2, 3, 4})
	if Valid(addr, nil) {
		t.Fatalf("expected empty allow-list to reject all addresses")
	}
}
