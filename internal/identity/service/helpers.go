package service

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
)

// zeroDigest marks events for direct-caller operations, which consume no
// signed digest.
var zeroDigest = common.Hash{}

func hexString(b []byte) string {
	return hex.EncodeToString(b)
}
