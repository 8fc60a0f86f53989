package signing

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"veristry/pkg/domain"
)

// SignatureLength is the expected length of a detached signature: 64 bytes
// of R||S plus one recovery byte.
const SignatureLength = 65

var (
	// ErrInvalidSignatureLength rejects signatures that are not 65 bytes.
	ErrInvalidSignatureLength = errors.New("signature must be 65 bytes")
	// ErrInvalidRecoveryID rejects recovery bytes outside {0,1,27,28}.
	ErrInvalidRecoveryID = errors.New("invalid signature recovery id")
)

// Recover returns the principal that produced sig over digest.
//
// Recovery failure is an error, never a zero principal treated as a match:
// callers must compare the result against the expected signer and reject on
// mismatch.
func Recover(digest common.Hash, sig []byte) (domain.Principal, error) {
	if len(sig) != SignatureLength {
		return domain.ZeroPrincipal, fmt.Errorf("%w: got %d", ErrInvalidSignatureLength, len(sig))
	}

	// Accept both the raw {0,1} recovery id and the conventional 27/28 form.
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	switch normalized[64] {
	case 0, 1:
	case 27, 28:
		normalized[64] -= 27
	default:
		return domain.ZeroPrincipal, fmt.Errorf("%w: got %d", ErrInvalidRecoveryID, sig[64])
	}

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return domain.ZeroPrincipal, fmt.Errorf("recover signer: %w", err)
	}
	return domain.Principal(crypto.PubkeyToAddress(*pub)), nil
}
