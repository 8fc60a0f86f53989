package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
)

// DataRecord is one entry in the global append-only data-hash log.
// Immutable once created.
type DataRecord struct {
	Hash            domain.DataHash
	OwnerIdentityID domain.IdentityID
	SequenceIndex   uint64
	SubmittedAt     time.Time
}

// PermissionState is a closed variant, not a raw integer: a permission is
// either absent, or explicitly permitted until its expiry.
type PermissionState string

const (
	PermissionNotPermitted PermissionState = "not_permitted"
	PermissionPermitted    PermissionState = "permitted"
)

// Permission is the grant record keyed by (data hash, product).
type Permission struct {
	DataHash       domain.DataHash
	ProductID      domain.ProductID
	State          PermissionState
	RequesterID    domain.IdentityID
	PermissionHash common.Hash
	GrantedAt      time.Time
	ExpiresAt      time.Time
}

// Receipt derives the deterministic permission hash appended to the owner's
// history log. Not secret: it is a lookup key for indexers and auditors.
func Receipt(requesterID domain.IdentityID, dataHash domain.DataHash, productID domain.ProductID) common.Hash {
	var requester, product [8]byte
	putUint64(requester[:], uint64(requesterID))
	putUint64(product[:], uint64(productID))
	return crypto.Keccak256Hash(requester[:], dataHash.Bytes(), product[:])
}

func putUint64(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

// SubmitRequest carries a sponsor-relayed data-hash submission.
type SubmitRequest struct {
	Caller    domain.Principal
	Signature []byte
	Principal domain.Principal
	DataHash  domain.DataHash
	Nonce     domain.Nonce
}

// Validate enforces the shared input preconditions.
func (r SubmitRequest) Validate() error {
	if r.Principal.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "target principal must not be the zero principal")
	}
	if len(r.Signature) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "signature must not be empty")
	}
	if r.DataHash.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "data hash must not be empty")
	}
	if r.Nonce.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "nonce must not be zero")
	}
	return nil
}

// PermissionRequest carries a requester-submitted, owner-signed grant.
// Caller is the requester's own principal; Owner is the data owner whose
// signature authorizes the grant.
type PermissionRequest struct {
	Caller           domain.Principal
	Signature        []byte
	Owner            domain.Principal
	DataHash         domain.DataHash
	ProductID        domain.ProductID
	Nonce            domain.Nonce
	ExpirationOffset time.Duration
}

// Validate enforces the shared input preconditions. No upper bound is put on
// the expiration offset here; ceilings are relayer policy.
func (r PermissionRequest) Validate() error {
	if r.Owner.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "data owner must not be the zero principal")
	}
	if len(r.Signature) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "signature must not be empty")
	}
	if r.DataHash.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "data hash must not be empty")
	}
	if r.Nonce.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "nonce must not be zero")
	}
	if r.ExpirationOffset <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "expiration offset must be positive")
	}
	return nil
}
