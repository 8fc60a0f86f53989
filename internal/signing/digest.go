// Package signing builds the domain-bound operation digests relayers ask
// principals to sign, and recovers signers from detached signatures.
//
// Every digest is keccak256(separator || keccak256(opTag || fields)). The
// separator binds the system name, protocol version, network identifier, and
// the verifying registry's own address, so a signature obtained for one
// deployment can never authorize an operation on another. Field encoding is
// injective: variable-length fields are individually hashed before
// concatenation and integers are fixed-width big-endian, so no two distinct
// parameter tuples can produce the same preimage.
package signing

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"veristry/pkg/domain"
)

// Operation tags keep digests for different operation types disjoint even if
// their field tuples happen to encode identically.
var (
	tagIdentity       = crypto.Keccak256([]byte("IdentityCreation(kycHash,principal,metadataURI,nonce)"))
	tagDataSubmission = crypto.Keccak256([]byte("DataSubmission(principal,dataHash,nonce)"))
	tagPermission     = crypto.Keccak256([]byte("PermissionGrant(owner,requesterId,dataHash,productId,nonce,expirationOffset)"))
	tagAgreement      = crypto.Keccak256([]byte("AgreementCreation(distributor,termsPayload,nonce)"))
)

// DomainParams identify one deployment of the registries.
type DomainParams struct {
	Name            string
	Version         string
	NetworkID       uint64
	RegistryAddress domain.Principal
}

// Builder produces operation digests bound to a single deployment domain.
// It is immutable after construction and safe for concurrent use.
type Builder struct {
	separator common.Hash
}

// NewBuilder computes the domain separator once up front. Name and version
// are hashed individually before concatenation (variable-length fields).
func NewBuilder(params DomainParams) *Builder {
	var network [8]byte
	binary.BigEndian.PutUint64(network[:], params.NetworkID)
	sep := crypto.Keccak256Hash(
		crypto.Keccak256([]byte(params.Name)),
		crypto.Keccak256([]byte(params.Version)),
		network[:],
		params.RegistryAddress.Bytes(),
	)
	return &Builder{separator: sep}
}

// Separator exposes the computed domain separator for event consumers.
func (b *Builder) Separator() common.Hash {
	return b.separator
}

// Identity builds the digest a principal signs to consent to registration.
func (b *Builder) Identity(kycHash []byte, principal domain.Principal, metadataURI string, nonce domain.Nonce) common.Hash {
	return b.digest(tagIdentity,
		crypto.Keccak256(kycHash),
		principal.Bytes(),
		crypto.Keccak256([]byte(metadataURI)),
		encodeUint64(uint64(nonce)),
	)
}

// DataSubmission builds the digest a principal signs to consent to a data
// hash being recorded under their identity.
func (b *Builder) DataSubmission(principal domain.Principal, dataHash domain.DataHash, nonce domain.Nonce) common.Hash {
	return b.digest(tagDataSubmission,
		principal.Bytes(),
		dataHash.Bytes(),
		encodeUint64(uint64(nonce)),
	)
}

// Permission builds the digest a data owner signs to grant a requester
// time-bounded access to one of their data hashes for a product.
// expirationOffsetSeconds is part of the signed payload so the owner consents
// to the duration, not only to the grant.
func (b *Builder) Permission(owner domain.Principal, requesterID domain.IdentityID, dataHash domain.DataHash, productID domain.ProductID, nonce domain.Nonce, expirationOffsetSeconds uint64) common.Hash {
	return b.digest(tagPermission,
		owner.Bytes(),
		encodeUint64(uint64(requesterID)),
		dataHash.Bytes(),
		encodeUint64(uint64(productID)),
		encodeUint64(uint64(nonce)),
		encodeUint64(expirationOffsetSeconds),
	)
}

// Agreement builds the digest a distributor signs to consent to agreement
// terms. The full terms payload is hashed in, so any change to the terms
// invalidates the signature.
func (b *Builder) Agreement(distributor domain.Principal, termsPayload []byte, nonce domain.Nonce) common.Hash {
	return b.digest(tagAgreement,
		distributor.Bytes(),
		crypto.Keccak256(termsPayload),
		encodeUint64(uint64(nonce)),
	)
}

func (b *Builder) digest(tag []byte, fields ...[]byte) common.Hash {
	parts := make([][]byte, 0, len(fields)+1)
	parts = append(parts, tag)
	parts = append(parts, fields...)
	structHash := crypto.Keccak256(parts...)
	return crypto.Keccak256Hash(b.separator.Bytes(), structHash)
}

func encodeUint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}
