package testutil

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"veristry/pkg/domain"
)

// Signer is a test principal with its private key, for producing the detached
// consent signatures the registries verify.
type Signer struct {
	Principal domain.Principal
	Key       *ecdsa.PrivateKey
}

// NewSigner generates a fresh key pair.
func NewSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &Signer{
		Principal: domain.Principal(crypto.PubkeyToAddress(key.PublicKey)),
		Key:       key,
	}
}

// Sign produces a 65-byte [R || S || V] signature over the digest.
func (s *Signer) Sign(t *testing.T, digest common.Hash) []byte {
	t.Helper()
	sig, err := crypto.Sign(digest.Bytes(), s.Key)
	if err != nil {
		t.Fatalf("sign digest: %v", err)
	}
	return sig
}
