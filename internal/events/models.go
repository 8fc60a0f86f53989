// Package events defines the records each registry emits on commit. Events
// carry the full operation parameters plus the consumed digest, so an
// off-process indexer can reconstruct every registry and the consumed-digest
// set without re-running signature checks.
package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"veristry/pkg/domain"
)

// Type names a registry event.
type Type string

const (
	TypeIdentityCreated   Type = "identity_created"
	TypeIdentityBurned    Type = "identity_burned"
	TypeDataSubmitted     Type = "data_submitted"
	TypePermissionGranted Type = "permission_granted"
	TypeAgreementCreated  Type = "agreement_created"
	TypeRoleGranted       Type = "role_granted"
	TypeRoleRevoked       Type = "role_revoked"
	TypePauseSet          Type = "pause_set"
)

// Event is emitted from registry commit paths. Keep it transport-agnostic so
// publishers can fan out to Kafka, memory, or an outbox table.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	// Digest is the consumed operation digest for signature-authenticated
	// operations; zero for direct-caller actions (burn, role admin, pause).
	Digest common.Hash `json:"digest"`

	IdentityCreated   *IdentityCreated   `json:"identityCreated,omitempty"`
	IdentityBurned    *IdentityBurned    `json:"identityBurned,omitempty"`
	DataSubmitted     *DataSubmitted     `json:"dataSubmitted,omitempty"`
	PermissionGranted *PermissionGranted `json:"permissionGranted,omitempty"`
	AgreementCreated  *AgreementCreated  `json:"agreementCreated,omitempty"`
	RoleChange        *RoleChange        `json:"roleChange,omitempty"`
	PauseSet          *PauseSet          `json:"pauseSet,omitempty"`
}

// IdentityCreated records a mint. From is always the zero principal: the
// transfer-from-null form downstream token observers expect.
type IdentityCreated struct {
	IdentityID  domain.IdentityID `json:"identityId"`
	From        domain.Principal  `json:"from"`
	Owner       domain.Principal  `json:"owner"`
	KYCHash     string            `json:"kycHash"`
	MetadataURI string            `json:"metadataUri"`
	Nonce       domain.Nonce      `json:"nonce"`
	Sponsor     domain.Principal  `json:"sponsor"`
}

// IdentityBurned records a destruction, initiated by the owner directly.
type IdentityBurned struct {
	IdentityID domain.IdentityID `json:"identityId"`
	Owner      domain.Principal  `json:"owner"`
}

type DataSubmitted struct {
	Owner           domain.Principal  `json:"owner"`
	OwnerIdentityID domain.IdentityID `json:"ownerIdentityId"`
	DataHash        domain.DataHash   `json:"dataHash"`
	SequenceIndex   uint64            `json:"sequenceIndex"`
	Nonce           domain.Nonce      `json:"nonce"`
	Sponsor         domain.Principal  `json:"sponsor"`
}

type PermissionGranted struct {
	Owner              domain.Principal  `json:"owner"`
	OwnerIdentityID    domain.IdentityID `json:"ownerIdentityId"`
	RequesterID        domain.IdentityID `json:"requesterId"`
	DataHash           domain.DataHash   `json:"dataHash"`
	ProductID          domain.ProductID  `json:"productId"`
	PermissionHash     string            `json:"permissionHash"`
	ExpiresAt          time.Time         `json:"expiresAt"`
	Nonce              domain.Nonce      `json:"nonce"`
	RequesterPrincipal domain.Principal  `json:"requesterPrincipal"`
}

type AgreementCreated struct {
	Distributor domain.Principal `json:"distributor"`
	TermsHash   string           `json:"termsHash"`
	ProductID   domain.ProductID `json:"productId"`
	Units       uint64           `json:"units"`
	UnitPrice   uint64           `json:"unitPrice"`
	Percentage  uint64           `json:"percentage"`
	Nonce       domain.Nonce     `json:"nonce"`
	Replaced    bool             `json:"replaced"`
}

type RoleChange struct {
	Principal domain.Principal `json:"principal"`
	Role      string           `json:"role"`
	Actor     domain.Principal `json:"actor"`
}

type PauseSet struct {
	Registry string           `json:"registry"`
	Paused   bool             `json:"paused"`
	Actor    domain.Principal `json:"actor"`
}

// New stamps a fresh event envelope.
func New(t Type, digest common.Hash) Event {
	return Event{
		ID:        uuid.New(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Digest:    digest,
	}
}
