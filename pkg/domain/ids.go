package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// IdentityID identifies a registered identity. IDs start at 1, only ever
// increase, and are never reused after a burn. Zero means "no identity".
type IdentityID uint64

// IsNil reports whether the ID is the zero sentinel.
func (id IdentityID) IsNil() bool {
	return id == 0
}

func (id IdentityID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// ProductID identifies the product a permission is scoped to.
type ProductID uint64

// Nonce is caller-supplied entropy that makes an operation digest unique.
// Uniqueness, not ordering, is what matters; zero is rejected everywhere.
type Nonce uint64

// IsZero reports whether the nonce is unset.
func (n Nonce) IsZero() bool {
	return n == 0
}

// DataHash is the opaque 32-byte hash of an off-registry data payload.
type DataHash common.Hash

// ZeroDataHash is the empty hash sentinel.
var ZeroDataHash = DataHash{}

// ParseDataHash validates and returns a DataHash from 0x-prefixed hex.
func ParseDataHash(s string) (DataHash, error) {
	b, err := hexBytes(s)
	if err != nil {
		return ZeroDataHash, fmt.Errorf("invalid data hash: %w", err)
	}
	if len(b) != common.HashLength {
		return ZeroDataHash, fmt.Errorf("invalid data hash length: %d", len(b))
	}
	return DataHash(common.BytesToHash(b)), nil
}

func (h DataHash) String() string {
	return common.Hash(h).Hex()
}

// Bytes returns the raw 32-byte hash.
func (h DataHash) Bytes() []byte {
	return common.Hash(h).Bytes()
}

// IsZero reports whether the hash is the empty sentinel.
func (h DataHash) IsZero() bool {
	return h == ZeroDataHash
}

func hexBytes(s string) ([]byte, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
