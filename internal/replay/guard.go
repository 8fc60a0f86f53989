// Package replay maintains the ledger of consumed operation digests. A
// digest, once consumed, stays consumed forever; this is the system's replay
// protection and its soundness is the central invariant every authenticated
// operation leans on.
package replay

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	dErrors "veristry/pkg/domain-errors"
	"veristry/pkg/platform/sentinel"
)

// Store persists the consumed-digest set.
type Store interface {
	// Consume records the digest atomically. Returns sentinel.ErrAlreadyUsed
	// if it was ever consumed before.
	Consume(ctx context.Context, digest common.Hash) error
	// IsConsumed reports whether the digest has been consumed.
	IsConsumed(ctx context.Context, digest common.Hash) (bool, error)
	// Release removes a digest. Only the rollback path of a failed commit may
	// call this; a digest whose operation committed is permanent.
	Release(ctx context.Context, digest common.Hash) error
}

// Guard is the check-and-consume gate shared by every registry. One Guard
// instance backs all registries, so a digest consumed anywhere is dead
// everywhere.
type Guard struct {
	store Store
}

// NewGuard wraps a digest store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Consume marks the digest consumed, failing with CodeDigestReused if it has
// been seen before. Callers must invoke this as the first state mutation of
// an operation's commit path.
func (g *Guard) Consume(ctx context.Context, digest common.Hash) error {
	err := g.store.Consume(ctx, digest)
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return dErrors.New(dErrors.CodeDigestReused, "operation digest already consumed")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume digest")
}

// IsConsumed reports whether the digest was ever consumed.
func (g *Guard) IsConsumed(ctx context.Context, digest common.Hash) (bool, error) {
	used, err := g.store.IsConsumed(ctx, digest)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check digest")
	}
	return used, nil
}

// Release undoes a Consume whose enclosing operation failed to commit.
// Guard insertion and the operation must commit or fail as one unit; this is
// the fail half.
func (g *Guard) Release(ctx context.Context, digest common.Hash) error {
	if err := g.store.Release(ctx, digest); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release digest")
	}
	return nil
}
