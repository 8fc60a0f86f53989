package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"veristry/internal/events"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
)

// Gate evaluates role and pause guards at the top of every operation, and
// owns role administration. Guard checks return typed errors rather than
// aborting control flow, so registries stay explicit about what failed.
type Gate struct {
	store     Store
	publisher events.Publisher
	logger    *slog.Logger

	// Serializes role administration so the last-admin invariant cannot be
	// raced out from under two concurrent revokes.
	adminMu sync.Mutex
}

// NewGate wires the gate to its store and event sink.
func NewGate(store Store, publisher events.Publisher, logger *slog.Logger) *Gate {
	return &Gate{store: store, publisher: publisher, logger: logger}
}

// Bootstrap grants the initial admin. Used once at startup from config; a
// registry with no admin could never mint one.
func (g *Gate) Bootstrap(ctx context.Context, admin domain.Principal) error {
	if admin.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "bootstrap admin must not be the zero principal")
	}
	return g.store.GrantRole(ctx, admin, RoleAdmin)
}

// HasRole reports role membership.
func (g *Gate) HasRole(ctx context.Context, principal domain.Principal, role Role) (bool, error) {
	ok, err := g.store.HasRole(ctx, principal, role)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check role")
	}
	return ok, nil
}

// RequireRole fails with Unauthorized unless caller holds role.
func (g *Gate) RequireRole(ctx context.Context, caller domain.Principal, role Role) error {
	ok, err := g.HasRole(ctx, caller, role)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller lacks required role: "+string(role))
	}
	return nil
}

// RequireNotPaused fails fast with Paused while the registry's circuit
// breaker is open. Reads never consult this.
func (g *Gate) RequireNotPaused(ctx context.Context, registry Registry) error {
	paused, err := g.store.IsPaused(ctx, registry)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pause state")
	}
	if paused {
		return dErrors.New(dErrors.CodePaused, "registry is paused: "+string(registry))
	}
	return nil
}

// GrantRole assigns role to target. Caller must be an admin.
func (g *Gate) GrantRole(ctx context.Context, caller, target domain.Principal, role Role) error {
	if err := g.RequireRole(ctx, caller, RoleAdmin); err != nil {
		return err
	}
	if target.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "target principal must not be the zero principal")
	}
	if !role.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}

	g.adminMu.Lock()
	defer g.adminMu.Unlock()

	if err := g.store.GrantRole(ctx, target, role); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role")
	}

	event := events.New(events.TypeRoleGranted, common.Hash{})
	event.RoleChange = &events.RoleChange{Principal: target, Role: string(role), Actor: caller}
	if err := g.publisher.Emit(ctx, event); err != nil {
		// Roll the grant back; the stream must stay complete.
		_ = g.store.RevokeRole(ctx, target, role)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to emit role grant")
	}

	g.logger.InfoContext(ctx, "role granted",
		"role", role,
		"principal", target.String(),
		"actor", caller.String(),
	)
	return nil
}

// RevokeRole removes role from target. Caller must be an admin. Revoking the
// final admin is rejected so role administration cannot strand itself.
func (g *Gate) RevokeRole(ctx context.Context, caller, target domain.Principal, role Role) error {
	if err := g.RequireRole(ctx, caller, RoleAdmin); err != nil {
		return err
	}
	if !role.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}

	g.adminMu.Lock()
	defer g.adminMu.Unlock()

	if role == RoleAdmin {
		held, err := g.store.HasRole(ctx, target, RoleAdmin)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check role")
		}
		count, err := g.store.CountRole(ctx, RoleAdmin)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count admins")
		}
		if held && count <= 1 {
			return dErrors.New(dErrors.CodeInvalidInput, "cannot revoke the last admin")
		}
	}

	if err := g.store.RevokeRole(ctx, target, role); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role")
	}

	event := events.New(events.TypeRoleRevoked, common.Hash{})
	event.RoleChange = &events.RoleChange{Principal: target, Role: string(role), Actor: caller}
	if err := g.publisher.Emit(ctx, event); err != nil {
		_ = g.store.GrantRole(ctx, target, role)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to emit role revoke")
	}

	g.logger.InfoContext(ctx, "role revoked",
		"role", role,
		"principal", target.String(),
		"actor", caller.String(),
	)
	return nil
}

// SetPaused toggles a registry's circuit breaker. Caller must hold the
// pauser role.
func (g *Gate) SetPaused(ctx context.Context, caller domain.Principal, registry Registry, paused bool) error {
	if err := g.RequireRole(ctx, caller, RolePauser); err != nil {
		return err
	}
	if !registry.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown registry")
	}

	prev, err := g.store.IsPaused(ctx, registry)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pause state")
	}
	if err := g.store.SetPaused(ctx, registry, paused); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set pause state")
	}

	event := events.New(events.TypePauseSet, common.Hash{})
	event.PauseSet = &events.PauseSet{Registry: string(registry), Paused: paused, Actor: caller}
	if err := g.publisher.Emit(ctx, event); err != nil {
		_ = g.store.SetPaused(ctx, registry, prev)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to emit pause change")
	}

	g.logger.InfoContext(ctx, "pause state changed",
		"registry", registry,
		"paused", paused,
		"actor", caller.String(),
	)
	return nil
}

// IsPaused reports the circuit-breaker state.
func (g *Gate) IsPaused(ctx context.Context, registry Registry) (bool, error) {
	paused, err := g.store.IsPaused(ctx, registry)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pause state")
	}
	return paused, nil
}
