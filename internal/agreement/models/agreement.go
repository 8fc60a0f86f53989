package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
)

// Agreement holds a distributor's current terms. This is a latest-terms
// registry, not a history: a later creation for the same distributor
// replaces the prior record.
type Agreement struct {
	Distributor domain.Principal
	TermsHash   common.Hash
	ProductID   domain.ProductID
	Units       uint64
	UnitPrice   uint64
	Percentage  uint64
	CreatedAt   time.Time
}

// CreateRequest carries an agreement creation. Any caller may relay it; the
// distributor's signature alone authorizes the terms.
type CreateRequest struct {
	Caller       domain.Principal
	Distributor  domain.Principal
	Signature    []byte
	TermsPayload []byte
	ProductID    domain.ProductID
	Units        uint64
	UnitPrice    uint64
	Percentage   uint64
	Nonce        domain.Nonce
}

// Validate enforces the input preconditions.
func (r CreateRequest) Validate() error {
	if r.Distributor.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "distributor must not be the zero principal")
	}
	if len(r.Signature) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "signature must not be empty")
	}
	if len(r.TermsPayload) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "terms payload must not be empty")
	}
	if r.Units == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "units must be positive")
	}
	if r.UnitPrice == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "unit price must be positive")
	}
	if r.Percentage == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "percentage must be positive")
	}
	if r.Nonce.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "nonce must not be zero")
	}
	return nil
}

// TermsHash derives the stored hash of the raw terms payload.
func (r CreateRequest) TermsHash() common.Hash {
	return crypto.Keccak256Hash(r.TermsPayload)
}
