package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Principal is an externally-controlled identity, represented by its
// public-key-derived 20-byte address. Principals pre-exist; the registries
// never create or destroy them.
type Principal common.Address

// ZeroPrincipal is the null principal. No operation accepts it as a target.
var ZeroPrincipal = Principal{}

// ParsePrincipal validates and returns a Principal from its 0x-prefixed hex form.
func ParsePrincipal(s string) (Principal, error) {
	if !common.IsHexAddress(s) {
		return ZeroPrincipal, fmt.Errorf("invalid principal address: %q", s)
	}
	return Principal(common.HexToAddress(s)), nil
}

// String returns the checksummed hex representation.
func (p Principal) String() string {
	return common.Address(p).Hex()
}

// Bytes returns the raw 20-byte address.
func (p Principal) Bytes() []byte {
	return common.Address(p).Bytes()
}

// IsZero reports whether p is the null principal.
func (p Principal) IsZero() bool {
	return p == ZeroPrincipal
}
