package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/frahmantamala/asset-attestation/internal"
	auditDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/audit"
)

type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionRegister  Action = "register"
	ActionPromote   Action = "promote"
	ActionLaunch    Action = "launch"
	ActionCancel    Action = "cancel"
	ActionComplete  Action = "complete"
	ActionConvert   Action = "convert"
	ActionAutoClose Action = "auto_close"
)

type EntityType string

const (
	EntityUser     EntityType = "user"
	EntityAsset    EntityType = "asset"
	EntityCompany  EntityType = "company"
	EntityCampaign EntityType = "attestation_campaign"
	EntityRecord   EntityType = "attestation_record"
	EntityInvite   EntityType = "attestation_invite"
)

type Entry struct {
	Action     Action
	EntityType EntityType
	EntityID   int64
	EntityName string
	Details    map[string]any
	// ActorEmail defaults to the actor stored on the context.
	ActorEmail string
}

type Repository interface {
	Create(ctx context.Context, log *auditDatamodel.Log) error
}

// Service is a write-only sink. Failures are logged and never reach the caller.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Record(ctx context.Context, entry Entry) {
	actor := entry.ActorEmail
	if actor == "" {
		actor = internal.ActorFromContext(ctx)
	}

	var details string
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			s.logger.Warn("failed to encode audit details", "error", err, "action", entry.Action)
		} else {
			details = string(b)
		}
	}

	var entityID *int64
	if entry.EntityID != 0 {
		id := entry.EntityID
		entityID = &id
	}

	log := &auditDatamodel.Log{
		Action:     string(entry.Action),
		EntityType: string(entry.EntityType),
		EntityID:   entityID,
		EntityName: entry.EntityName,
		Details:    details,
		ActorEmail: actor,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.Error("failed to write audit log",
			"error", err,
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID)
	}
}

// Discard is a sink that drops every entry.
type Discard struct{}

func (Discard) Record(context.Context, Entry) {}
