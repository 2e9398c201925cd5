// Package address validates on-chain destination addresses against the
// version bytes a currency's configuration permits, the Go analogue of the
// original client's cryptokit.base58.get_bcaddress_version check performed
// on every pulled payout before it is persisted.
package address

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// ErrInvalidAddress is returned when an address fails Base58Check decoding
// or its version byte is not in the configured allow-list.
var ErrInvalidAddress = errors.New("address: invalid address")

// Valid reports whether addr is a Base58Check-encoded address whose leading
// version byte is one of validVersions. An empty validVersions list accepts
// nothing: a currency must be explicitly configured.
func Valid(addr string, validVersions []int) bool {
	return CheckVersion(addr, validVersions) == nil
}

// CheckVersion decodes addr and reports ErrInvalidAddress if it cannot be
// decoded or its version byte is not allowed.
func CheckVersion(addr string, validVersions []int) error {
	decoded, version, err := base58.CheckDecode(addr)
	if err != nil {
		return ErrInvalidAddress
	}
	if len(decoded) == 0 {
		return ErrInvalidAddress
	}
	for _, v := range validVersions {
		if int(version) == v {
			return nil
		}
	}
	return ErrInvalidAddress
}
