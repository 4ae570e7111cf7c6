package attestation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/asset"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	attestationDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/attestation"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	"github.com/frahmantamala/asset-attestation/internal/core/events"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
	"gorm.io/datatypes"
)

type Repository interface {
	CreateCampaign(ctx context.Context, c *attestationDatamodel.Campaign) error
	GetCampaign(ctx context.Context, id int64) (*attestationDatamodel.Campaign, error)
	UpdateCampaign(ctx context.Context, c *attestationDatamodel.Campaign) error
	DeleteDraftCampaign(ctx context.Context, id int64) (bool, error)
	ListCampaigns(ctx context.Context, status string) ([]*attestationDatamodel.Campaign, error)
	TransitionCampaign(ctx context.Context, id int64, from []string, to string, at time.Time) (bool, error)
	ApplyLaunch(ctx context.Context, plan LaunchPlan) (*LaunchOutcome, error)

	GetRecord(ctx context.Context, id int64) (*attestationDatamodel.Record, error)
	ListRecordsByUser(ctx context.Context, userID int64, campaignStatus string) ([]*attestationDatamodel.Record, error)
	ListRecordsByCampaign(ctx context.Context, campaignID int64) ([]*attestationDatamodel.Record, error)
	StartRecord(ctx context.Context, id int64, at time.Time) (bool, error)
	CountRecordsByStatus(ctx context.Context, campaignID int64) (map[string]int64, error)
	CompleteRecord(ctx context.Context, recordID int64, at time.Time, transfer TransferFunc) (completed bool, created int, err error)

	GetInviteByToken(ctx context.Context, token string) (*attestationDatamodel.PendingInvite, error)
	ListOpenInvitesByEmail(ctx context.Context, email string) ([]*attestationDatamodel.PendingInvite, error)
	ListInvitesByCampaign(ctx context.Context, campaignID int64) ([]*attestationDatamodel.PendingInvite, error)
	CountInvites(ctx context.Context, campaignID int64) (open int64, converted int64, err error)
	ConvertInvite(ctx context.Context, invite *attestationDatamodel.PendingInvite, userID int64, at time.Time) (recordID int64, converted bool, err error)

	CreateNewAsset(ctx context.Context, a *attestationDatamodel.NewAsset) error
	ListNewAssets(ctx context.Context, recordID int64) ([]*attestationDatamodel.NewAsset, error)
	ExistsStagedSerial(ctx context.Context, serial string) (bool, error)
	ExistsStagedAssetTag(ctx context.Context, tag string) (bool, error)
}

// LaunchPlan is everything a launch writes. Activate moves a draft campaign to
// active in the same transaction.
type LaunchPlan struct {
	CampaignID int64
	Activate   bool
	At         time.Time
	UserIDs    []int64
	Invites    []*attestationDatamodel.PendingInvite
}

// LaunchOutcome lists what a launch actually created; rows that already
// existed are left out.
type LaunchOutcome struct {
	CreatedUserIDs []int64
	CreatedInvites []*attestationDatamodel.PendingInvite
}

// TransferFunc turns the staged new assets of a completed record into assets.
type TransferFunc func(staged []*attestationDatamodel.NewAsset) []*assetDatamodel.Asset

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	List(ctx context.Context) ([]*userDatamodel.User, error)
}

type AssetDirectory interface {
	GetByID(ctx context.Context, id int64) (*assetDatamodel.Asset, error)
	UpdateStatus(ctx context.Context, id int64, status, notes string) error
	ListByEmployee(ctx context.Context, email string, ownerID int64) ([]*assetDatamodel.Asset, error)
	ListByCompanies(ctx context.Context, companyIDs []int64) ([]*assetDatamodel.Asset, error)
	ListUnowned(ctx context.Context) ([]*assetDatamodel.Asset, error)
	ExistsBySerial(ctx context.Context, serial string, excludeID int64) (bool, error)
	ExistsByAssetTag(ctx context.Context, tag string, excludeID int64) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type AuditLogger interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Service struct {
	repo      Repository
	users     UserDirectory
	assets    AssetDirectory
	publisher EventPublisher
	audit     AuditLogger
	defaults  internal.AttestationConfig
	logger    *slog.Logger
}

func NewService(repo Repository, users UserDirectory, assets AssetDirectory, publisher EventPublisher, auditLogger AuditLogger, defaults internal.AttestationConfig, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		assets:    assets,
		publisher: publisher,
		audit:     auditLogger,
		defaults:  defaults,
		logger:    logger,
	}
}

// NewInviteToken returns 32 random bytes, URL-safe encoded.
func NewInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Service) CreateCampaign(ctx context.Context, createdBy int64, dto CampaignDTO) (*Campaign, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("campaign validation failed", "error", err)
		return nil, err
	}

	model := &attestationDatamodel.Campaign{
		Name:                     strings.TrimSpace(dto.Name),
		Description:              strings.TrimSpace(dto.Description),
		StartDate:                dto.StartDate,
		EndDate:                  dto.EndDate,
		Status:                   CampaignStatusDraft,
		TargetType:               dto.targetType(),
		TargetCompanyIDs:         targetCompanies(dto),
		ReminderDays:             intOr(dto.ReminderDays, s.defaults.DefaultReminderDays),
		EscalationDays:           intOr(dto.EscalationDays, s.defaults.DefaultEscalationDays),
		UnregisteredReminderDays: intOr(dto.UnregisteredReminderDays, s.defaults.DefaultUnregisteredReminderDays),
	}
	if createdBy != 0 {
		model.CreatedBy = &createdBy
	}

	if err := s.repo.CreateCampaign(ctx, model); err != nil {
		s.logger.Error("failed to create campaign", "error", err)
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.logger.Info("campaign created", "campaign_id", model.ID, "target_type", model.TargetType)
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: audit.EntityCampaign,
		EntityID:   model.ID,
		EntityName: model.Name,
	})
	return CampaignFromDataModel(model), nil
}

func (s *Service) GetCampaign(ctx context.Context, id int64) (*Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	return CampaignFromDataModel(c), nil
}

func (s *Service) ListCampaigns(ctx context.Context, status string) ([]*Campaign, error) {
	campaigns, err := s.repo.ListCampaigns(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return CampaignsFromDataModel(campaigns), nil
}

// UpdateCampaign edits a draft freely. An active campaign keeps its start date
// and scope; only its name, description, end date and thresholds change.
func (s *Service) UpdateCampaign(ctx context.Context, id int64, dto CampaignDTO) (*Campaign, error) {
	model, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	switch model.Status {
	case CampaignStatusDraft:
		if err := dto.Validate(); err != nil {
			return nil, err
		}
		model.StartDate = dto.StartDate
		model.TargetType = dto.targetType()
		model.TargetCompanyIDs = targetCompanies(dto)
	case CampaignStatusActive:
		dto.StartDate = model.StartDate
		dto.TargetType = model.TargetType
		dto.TargetCompanyIDs = model.TargetCompanyIDs
		if err := dto.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidCampaignState
	}

	model.Name = strings.TrimSpace(dto.Name)
	model.Description = strings.TrimSpace(dto.Description)
	model.EndDate = dto.EndDate
	model.ReminderDays = intOr(dto.ReminderDays, model.ReminderDays)
	model.EscalationDays = intOr(dto.EscalationDays, model.EscalationDays)
	model.UnregisteredReminderDays = intOr(dto.UnregisteredReminderDays, model.UnregisteredReminderDays)

	if err := s.repo.UpdateCampaign(ctx, model); err != nil {
		s.logger.Error("failed to update campaign", "error", err, "campaign_id", id)
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityCampaign,
		EntityID:   id,
		EntityName: model.Name,
		Details:    map[string]any{"status": model.Status},
	})
	return CampaignFromDataModel(model), nil
}

func (s *Service) DeleteCampaign(ctx context.Context, id int64) error {
	model, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if !CampaignFromDataModel(model).CanBeDeleted() {
		return ErrInvalidCampaignState
	}

	deleted, err := s.repo.DeleteDraftCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if !deleted {
		return ErrInvalidCampaignState
	}

	s.logger.Info("campaign deleted", "campaign_id", id)
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionDelete,
		EntityType: audit.EntityCampaign,
		EntityID:   id,
		EntityName: model.Name,
	})
	return nil
}

func (s *Service) CancelCampaign(ctx context.Context, id int64) (*Campaign, error) {
	return s.transition(ctx, id, []string{CampaignStatusDraft, CampaignStatusActive}, CampaignStatusCancelled, audit.ActionCancel)
}

// CompleteCampaign closes an active campaign by hand. Open records stay open.
func (s *Service) CompleteCampaign(ctx context.Context, id int64) (*Campaign, error) {
	return s.transition(ctx, id, []string{CampaignStatusActive}, CampaignStatusCompleted, audit.ActionComplete)
}

func (s *Service) transition(ctx context.Context, id int64, from []string, to string, action audit.Action) (*Campaign, error) {
	model, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := s.repo.TransitionCampaign(ctx, id, from, to, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to change campaign status: %w", err)
	}
	if !changed {
		return nil, ErrInvalidCampaignState
	}

	s.logger.Info("campaign status changed", "campaign_id", id, "from", model.Status, "to", to)
	s.audit.Record(ctx, audit.Entry{
		Action:     action,
		EntityType: audit.EntityCampaign,
		EntityID:   id,
		EntityName: model.Name,
		Details:    map[string]any{"previous_status": model.Status},
	})
	return s.GetCampaign(ctx, id)
}

// invitee is an in-scope asset holder without an account.
type invitee struct {
	email     string
	firstName string
	lastName  string
}

type scope struct {
	users    []*userDatamodel.User
	invitees []invitee
}

// resolveScope returns each in-scope person once: registered users by id and
// unregistered asset holders by lowercased email.
func (s *Service) resolveScope(ctx context.Context, c *attestationDatamodel.Campaign) (*scope, error) {
	result := &scope{}
	seenUsers := make(map[int64]struct{})
	seenEmails := make(map[string]struct{})

	addUser := func(u *userDatamodel.User) {
		if _, ok := seenUsers[u.ID]; ok {
			return
		}
		seenUsers[u.ID] = struct{}{}
		seenEmails[coreUser.NormalizeEmail(u.Email)] = struct{}{}
		result.users = append(result.users, u)
	}

	var holders []*assetDatamodel.Asset
	if c.TargetType == TargetCompanies {
		assets, err := s.assets.ListByCompanies(ctx, []int64(c.TargetCompanyIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to list assets in target companies: %w", err)
		}
		holders = assets
	} else {
		users, err := s.users.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		for _, u := range users {
			addUser(u)
		}
		unowned, err := s.assets.ListUnowned(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list unowned assets: %w", err)
		}
		holders = unowned
	}

	for _, a := range holders {
		if a.OwnerID != nil {
			u, err := s.users.GetByID(ctx, *a.OwnerID)
			if err == nil {
				addUser(u)
				continue
			}
			s.logger.Warn("asset owner could not be loaded, matching by email",
				"asset_id", a.ID, "owner_id", *a.OwnerID, "error", err)
		}

		email := coreUser.NormalizeEmail(a.EmployeeEmail)
		if email == "" {
			continue
		}
		if _, ok := seenEmails[email]; ok {
			continue
		}

		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up asset holder: %w", err)
		}
		if u != nil {
			addUser(u)
			continue
		}

		seenEmails[email] = struct{}{}
		result.invitees = append(result.invitees, invitee{
			email:     email,
			firstName: a.EmployeeFirstName,
			lastName:  a.EmployeeLastName,
		})
	}
	return result, nil
}

// LaunchCampaign activates a draft campaign and creates one record per in-scope
// registered user and one invite per unregistered asset holder. Launching an
// active campaign again only adds what is missing.
func (s *Service) LaunchCampaign(ctx context.Context, id int64) (*LaunchResult, error) {
	model, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	campaign := CampaignFromDataModel(model)
	if !campaign.CanBeLaunched() {
		return nil, ErrInvalidCampaignState
	}

	relaunch := campaign.IsActive()

	sc, err := s.resolveScope(ctx, model)
	if err != nil {
		return nil, err
	}

	plan := LaunchPlan{CampaignID: id, Activate: !relaunch, At: time.Now()}
	for _, u := range sc.users {
		plan.UserIDs = append(plan.UserIDs, u.ID)
	}
	for _, inv := range sc.invitees {
		token, err := NewInviteToken()
		if err != nil {
			return nil, err
		}
		plan.Invites = append(plan.Invites, &attestationDatamodel.PendingInvite{
			CampaignID:        id,
			EmployeeEmail:     inv.email,
			EmployeeFirstName: inv.firstName,
			EmployeeLastName:  inv.lastName,
			InviteToken:       token,
		})
	}

	outcome, err := s.repo.ApplyLaunch(ctx, plan)
	if err != nil {
		if errors.Is(err, ErrInvalidCampaignState) {
			return nil, ErrInvalidCampaignState
		}
		return nil, fmt.Errorf("failed to launch campaign: %w", err)
	}

	result := &LaunchResult{
		CampaignID:     id,
		Relaunched:     relaunch,
		RecordsCreated: len(outcome.CreatedUserIDs),
		InvitesCreated: len(outcome.CreatedInvites),
	}

	created := make(map[int64]bool, len(outcome.CreatedUserIDs))
	for _, userID := range outcome.CreatedUserIDs {
		created[userID] = true
	}
	var participants, invited []events.Recipient
	for _, u := range sc.users {
		if !created[u.ID] {
			continue
		}
		participants = append(participants, events.Recipient{
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}
	for _, inv := range outcome.CreatedInvites {
		invited = append(invited, events.Recipient{
			Email:       inv.EmployeeEmail,
			FirstName:   inv.EmployeeFirstName,
			LastName:    inv.EmployeeLastName,
			InviteToken: inv.InviteToken,
		})
	}

	s.logger.Info("campaign launched",
		"campaign_id", id,
		"relaunch", relaunch,
		"records_created", result.RecordsCreated,
		"invites_created", result.InvitesCreated)

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionLaunch,
		EntityType: audit.EntityCampaign,
		EntityID:   id,
		EntityName: model.Name,
		Details: map[string]any{
			"records_created": result.RecordsCreated,
			"invites_created": result.InvitesCreated,
			"relaunch":        relaunch,
		},
	})

	if len(participants) > 0 || len(invited) > 0 {
		event := events.NewCampaignLaunchedEvent(id, model.Name, model.StartDate, model.EndDate, participants, invited)
		s.publish(ctx, event)
	}

	return result, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
	}
}

// MyAttestations lists the user's records in active campaigns.
func (s *Service) MyAttestations(ctx context.Context, userID int64) ([]*Record, error) {
	records, err := s.repo.ListRecordsByUser(ctx, userID, CampaignStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list attestation records: %w", err)
	}
	return RecordsFromDataModel(records), nil
}

func (s *Service) CampaignRecords(ctx context.Context, campaignID int64) ([]*Record, error) {
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListRecordsByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign records: %w", err)
	}
	return RecordsFromDataModel(records), nil
}

func (s *Service) CampaignInvites(ctx context.Context, campaignID int64) ([]*PendingInvite, error) {
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	invites, err := s.repo.ListInvitesByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign invites: %w", err)
	}
	result := make([]*PendingInvite, len(invites))
	for i, inv := range invites {
		result[i] = InviteFromDataModel(inv)
	}
	return result, nil
}

// ownedRecord loads a record and checks that it belongs to userID.
func (s *Service) ownedRecord(ctx context.Context, recordID, userID int64) (*attestationDatamodel.Record, error) {
	record, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, internal.ErrUnauthorizedAccess
	}
	return record, nil
}

// workableRecord is ownedRecord plus the checks for employee edits: the campaign
// is active and the record is not completed.
func (s *Service) workableRecord(ctx context.Context, recordID, userID int64) (*attestationDatamodel.Record, error) {
	record, err := s.ownedRecord(ctx, recordID, userID)
	if err != nil {
		return nil, err
	}
	if record.Campaign == nil || record.Campaign.Status != CampaignStatusActive {
		return nil, ErrInvalidCampaignState
	}
	if record.Status == RecordStatusCompleted {
		return nil, ErrRecordCompleted
	}
	return record, nil
}

func (s *Service) GetMyRecord(ctx context.Context, recordID int64, viewer asset.Viewer) (*RecordDetail, error) {
	record, err := s.ownedRecord(ctx, recordID, viewer.ID)
	if err != nil {
		return nil, err
	}

	assets, err := s.assets.ListByEmployee(ctx, viewer.Email, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee assets: %w", err)
	}
	staged, err := s.repo.ListNewAssets(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list new assets: %w", err)
	}

	return &RecordDetail{
		Record:    RecordFromDataModel(record),
		Assets:    asset.FromDataModelSlice(assets),
		NewAssets: NewAssetsFromDataModel(staged),
	}, nil
}

// StartRecord moves a pending record to in_progress. Starting a record that is
// already in progress is a no-op.
func (s *Service) StartRecord(ctx context.Context, recordID, userID int64) (*Record, error) {
	record, err := s.workableRecord(ctx, recordID, userID)
	if err != nil {
		return nil, err
	}

	if record.Status == RecordStatusPending {
		if _, err := s.repo.StartRecord(ctx, recordID, time.Now()); err != nil {
			return nil, fmt.Errorf("failed to start attestation record: %w", err)
		}
		s.logger.Info("attestation started", "record_id", recordID, "user_id", userID)
	}

	fresh, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return RecordFromDataModel(fresh), nil
}

// AddNewAsset stages an asset the employee holds but that is not registered yet.
// It becomes a real asset when the record completes.
func (s *Service) AddNewAsset(ctx context.Context, recordID, userID int64, dto NewAssetDTO) (*NewAsset, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.workableRecord(ctx, recordID, userID); err != nil {
		return nil, err
	}

	serial := trimmed(dto.SerialNumber)
	tag := trimmed(dto.AssetTag)
	if serial != nil {
		exists, err := s.assets.ExistsBySerial(ctx, *serial, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to check serial number: %w", err)
		}
		if !exists {
			exists, err = s.repo.ExistsStagedSerial(ctx, *serial)
			if err != nil {
				return nil, fmt.Errorf("failed to check staged serial number: %w", err)
			}
		}
		if exists {
			return nil, asset.ErrDuplicateSerial
		}
	}
	if tag != nil {
		exists, err := s.assets.ExistsByAssetTag(ctx, *tag, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to check asset tag: %w", err)
		}
		if !exists {
			exists, err = s.repo.ExistsStagedAssetTag(ctx, *tag)
			if err != nil {
				return nil, fmt.Errorf("failed to check staged asset tag: %w", err)
			}
		}
		if exists {
			return nil, asset.ErrDuplicateAssetTag
		}
	}

	model := &attestationDatamodel.NewAsset{
		RecordID:     recordID,
		AssetType:    strings.TrimSpace(dto.AssetType),
		Make:         strings.TrimSpace(dto.Make),
		Model:        strings.TrimSpace(dto.Model),
		SerialNumber: serial,
		AssetTag:     tag,
		CompanyID:    dto.CompanyID,
		Notes:        dto.Notes,
	}
	if err := s.repo.CreateNewAsset(ctx, model); err != nil {
		return nil, fmt.Errorf("failed to stage new asset: %w", err)
	}
	if _, err := s.repo.StartRecord(ctx, recordID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to start attestation record: %w", err)
	}

	s.logger.Info("new asset staged", "record_id", recordID, "new_asset_id", model.ID)
	return NewAssetFromDataModel(model), nil
}

// UpdateAssetStatus lets an employee report the state of an asset they hold.
func (s *Service) UpdateAssetStatus(ctx context.Context, recordID int64, viewer asset.Viewer, assetID int64, dto AssetStatusDTO) (*asset.Asset, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.workableRecord(ctx, recordID, viewer.ID); err != nil {
		return nil, err
	}

	model, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.FromDataModel(model).IsOwnedBy(viewer.ID, viewer.Email) {
		return nil, internal.ErrUnauthorizedAccess
	}

	if err := s.assets.UpdateStatus(ctx, assetID, dto.Status, dto.Notes); err != nil {
		return nil, fmt.Errorf("failed to update asset status: %w", err)
	}
	if _, err := s.repo.StartRecord(ctx, recordID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to start attestation record: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityAsset,
		EntityID:   assetID,
		EntityName: model.AssetType,
		Details: map[string]any{
			"previous_status": model.Status,
			"new_status":      dto.Status,
			"record_id":       recordID,
		},
	})

	fresh, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return asset.FromDataModel(fresh), nil
}

// CompleteRecord finishes an attestation and turns its staged new assets into
// assets owned by the employee. The completion update is guarded by status, so
// a second call is a no-op and never transfers twice.
func (s *Service) CompleteRecord(ctx context.Context, recordID int64, viewer asset.Viewer) (*CompletionResult, error) {
	record, err := s.ownedRecord(ctx, recordID, viewer.ID)
	if err != nil {
		return nil, err
	}
	if record.Status == RecordStatusCompleted {
		return &CompletionResult{Record: RecordFromDataModel(record)}, nil
	}
	if record.Campaign == nil || record.Campaign.Status != CampaignStatusActive {
		return nil, ErrInvalidCampaignState
	}

	owner, err := s.users.GetByID(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	var managerID *int64
	if owner.ManagerEmail != "" {
		mgr, err := s.users.FindByEmail(ctx, owner.ManagerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve manager: %w", err)
		}
		if mgr != nil {
			managerID = &mgr.ID
		}
	}

	transfer := func(staged []*attestationDatamodel.NewAsset) []*assetDatamodel.Asset {
		out := make([]*assetDatamodel.Asset, len(staged))
		for i, n := range staged {
			ownerID := owner.ID
			out[i] = &assetDatamodel.Asset{
				EmployeeFirstName: owner.FirstName,
				EmployeeLastName:  owner.LastName,
				EmployeeEmail:     owner.Email,
				OwnerID:           &ownerID,
				ManagerFirstName:  owner.ManagerFirstName,
				ManagerLastName:   owner.ManagerLastName,
				ManagerEmail:      owner.ManagerEmail,
				ManagerID:         managerID,
				CompanyID:         n.CompanyID,
				AssetType:         n.AssetType,
				Make:              n.Make,
				Model:             n.Model,
				SerialNumber:      n.SerialNumber,
				AssetTag:          n.AssetTag,
				Status:            asset.StatusActive,
				Notes:             n.Notes,
			}
		}
		return out
	}

	completed, created, err := s.repo.CompleteRecord(ctx, recordID, time.Now(), transfer)
	if err != nil {
		s.logger.Error("failed to complete attestation", "error", err, "record_id", recordID)
		return nil, err
	}

	fresh, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	result := &CompletionResult{
		Record:        RecordFromDataModel(fresh),
		Completed:     completed,
		AssetsCreated: created,
	}
	if !completed {
		return result, nil
	}

	s.logger.Info("attestation completed",
		"record_id", recordID,
		"campaign_id", record.CampaignID,
		"user_id", owner.ID,
		"assets_created", created)

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionComplete,
		EntityType: audit.EntityRecord,
		EntityID:   recordID,
		EntityName: owner.Email,
		Details:    map[string]any{"campaign_id": record.CampaignID, "assets_created": created},
	})

	s.publish(ctx, events.NewAttestationCompletedEvent(
		record.CampaignID,
		record.Campaign.Name,
		recordID,
		owner.ID,
		events.Recipient{Email: owner.Email, FirstName: owner.FirstName, LastName: owner.LastName},
		created,
	))
	return result, nil
}

// ConvertPendingInvites turns the user's open invites for active campaigns into
// records. Invites for campaigns that are not active stay unconverted, and an
// invite that fails to convert is logged and stays open for the next attempt.
func (s *Service) ConvertPendingInvites(ctx context.Context, u *userDatamodel.User) (int, error) {
	invites, err := s.repo.ListOpenInvitesByEmail(ctx, u.Email)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending invites: %w", err)
	}

	converted := 0
	for _, inv := range invites {
		if inv.Campaign == nil || inv.Campaign.Status != CampaignStatusActive {
			s.logger.Info("pending invite left unconverted: campaign not active",
				"invite_id", inv.ID,
				"campaign_id", inv.CampaignID,
				"user_id", u.ID)
			continue
		}

		recordID, ok, err := s.repo.ConvertInvite(ctx, inv, u.ID, time.Now())
		if err != nil {
			s.logger.Error("failed to convert pending invite",
				"invite_id", inv.ID,
				"campaign_id", inv.CampaignID,
				"user_id", u.ID,
				"error", err)
			continue
		}
		if !ok {
			continue
		}
		converted++

		s.logger.Info("pending invite converted",
			"invite_id", inv.ID,
			"campaign_id", inv.CampaignID,
			"record_id", recordID,
			"user_id", u.ID)
		s.audit.Record(ctx, audit.Entry{
			Action:     audit.ActionConvert,
			EntityType: audit.EntityInvite,
			EntityID:   inv.ID,
			EntityName: inv.EmployeeEmail,
			Details:    map[string]any{"campaign_id": inv.CampaignID, "record_id": recordID},
		})
	}
	return converted, nil
}

// InviteByToken resolves an invite link for the registration page.
func (s *Service) InviteByToken(ctx context.Context, token string) (*InviteDetail, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInviteNotFound
	}
	inv, err := s.repo.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &InviteDetail{
		Invite:   InviteFromDataModel(inv),
		Campaign: CampaignFromDataModel(inv.Campaign),
	}, nil
}

func (s *Service) Dashboard(ctx context.Context, campaignID int64) (*Dashboard, error) {
	model, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	byStatus, err := s.repo.CountRecordsByStatus(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	open, converted, err := s.repo.CountInvites(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count invites: %w", err)
	}

	counts := map[string]int64{
		RecordStatusPending:    0,
		RecordStatusInProgress: 0,
		RecordStatusCompleted:  0,
	}
	var total int64
	for status, n := range byStatus {
		counts[status] = n
		total += n
	}

	percent := 0.0
	if total > 0 {
		percent = float64(counts[RecordStatusCompleted]) * 100 / float64(total)
	}

	return &Dashboard{
		Campaign:          CampaignFromDataModel(model),
		RecordsByStatus:   counts,
		TotalRecords:      total,
		OpenInvites:       open,
		ConvertedInvites:  converted,
		CompletionPercent: percent,
	}, nil
}

func targetCompanies(dto CampaignDTO) datatypes.JSONSlice[int64] {
	if dto.targetType() != TargetCompanies {
		return datatypes.JSONSlice[int64]{}
	}
	seen := make(map[int64]struct{}, len(dto.TargetCompanyIDs))
	ids := make([]int64, 0, len(dto.TargetCompanyIDs))
	for _, id := range dto.TargetCompanyIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return datatypes.JSONSlice[int64](ids)
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
