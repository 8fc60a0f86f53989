package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"veristry/pkg/platform/sentinel"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the store can run
// standalone or inside an enclosing transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists the consumed-digest set durably.
//
// Schema:
//
//	CREATE TABLE consumed_digests (
//	    digest      BYTEA PRIMARY KEY,
//	    consumed_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Postgres struct {
	q querier
}

// NewPostgres constructs a store over a database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{q: db}
}

// NewPostgresTx binds the store to an open transaction so digest consumption
// commits or rolls back together with the rest of the operation.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{q: tx}
}

func (s *Postgres) Consume(ctx context.Context, digest common.Hash) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO consumed_digests (digest) VALUES ($1) ON CONFLICT (digest) DO NOTHING`,
		digest.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("consume digest: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume digest: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Postgres) IsConsumed(ctx context.Context, digest common.Hash) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM consumed_digests WHERE digest = $1)`,
		digest.Bytes(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check digest: %w", err)
	}
	return exists, nil
}

func (s *Postgres) Release(ctx context.Context, digest common.Hash) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM consumed_digests WHERE digest = $1`,
		digest.Bytes(),
	); err != nil {
		return fmt.Errorf("release digest: %w", err)
	}
	return nil
}
