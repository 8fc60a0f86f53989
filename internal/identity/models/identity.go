package models

import (
	"time"

	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
)

// Identity is the soulbound record of a registered principal. One identity
// per principal at any time; IDs start at 1 and are never reused after burn.
type Identity struct {
	ID          domain.IdentityID
	Owner       domain.Principal
	KYCHash     []byte
	MetadataURI string
	CreatedAt   time.Time
}

// CreateRequest carries a sponsor-relayed registration. Caller is the
// relayer invoking the operation; Principal is the party whose detached
// signature authorizes it.
type CreateRequest struct {
	Caller      domain.Principal
	Signature   []byte
	KYCHash     []byte
	Principal   domain.Principal
	MetadataURI string
	Nonce       domain.Nonce
}

// Validate enforces the input preconditions shared by every relayed create.
func (r CreateRequest) Validate() error {
	if r.Principal.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "target principal must not be the zero principal")
	}
	if len(r.Signature) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "signature must not be empty")
	}
	if len(r.KYCHash) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "kyc hash must not be empty")
	}
	if r.MetadataURI == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "metadata URI must not be empty")
	}
	if r.Nonce.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "nonce must not be zero")
	}
	return nil
}
